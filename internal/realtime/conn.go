package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sisi/sisichat/internal/presence"
)

// ConnConfig はWebSocket接続のタイムアウトとバッファの設定。
type ConnConfig struct {
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	PongTimeout    time.Duration
	SendBufferSize int
	MaxFrameSize   int64
}

// PeerConn は1本のWebSocket接続を包むトランスポートハンドル。
// 書き込みはすべて単一のWritePumpゴルーチンに集約される
// （gorilla/websocketは並行書き込みを許可しないため）。
// Sendはバッファ付きチャネルへの投入のみを行い、決してブロックしない。
type PeerConn struct {
	ws     *websocket.Conn
	cfg    ConnConfig
	logger *slog.Logger

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

// NewPeerConn はPeerConnを生成し、読み取り側のデッドラインとpongハンドラを設定する。
// WritePumpは呼び出し側が別ゴルーチンで起動する。
func NewPeerConn(ws *websocket.Conn, cfg ConnConfig, logger *slog.Logger) *PeerConn {
	if logger == nil {
		logger = slog.Default()
	}
	ws.SetReadLimit(cfg.MaxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	})
	return &PeerConn{
		ws:     ws,
		cfg:    cfg,
		logger: logger,
		send:   make(chan []byte, cfg.SendBufferSize),
		closed: make(chan struct{}),
	}
}

// Send はフレームを送信キューへ投入する。キュー満杯の場合はそのフレームを捨てて
// ErrSendBufferFullを返す。切断済みの場合はErrHandleClosedを返す。
func (c *PeerConn) Send(frame []byte) error {
	select {
	case <-c.closed:
		return presence.ErrHandleClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.closed:
		return presence.ErrHandleClosed
	default:
		return presence.ErrSendBufferFull
	}
}

// WritePump は送信キューのフレームを接続へ書き込み、定期的にpingを送る。
// 書き込みエラーまたはClose呼び出しで終了する。終了時に基底の接続を閉じる。
func (c *PeerConn) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("websocket write failed",
					slog.String("error", err.Error()),
				)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// ReadFrame は次のフレームを読み取る。切断時はエラーを返す。
func (c *PeerConn) ReadFrame() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// Close は接続を閉じる。冪等であり、複数経路（読み取りループの終了、
// 書き込みエラー、コンテキストのキャンセル）から安全に呼べる。
func (c *PeerConn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

// compile-time interface check
var _ presence.Handle = (*PeerConn)(nil)
