package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/sisi/sisichat/internal/middleware"
	"github.com/sisi/sisichat/internal/model"
)

// デフォルトのニュースフィード取得件数
const defaultNewsLimit = 50

// NewsServiceInterface はニュースハンドラーが必要とするサービスインターフェース。
type NewsServiceInterface interface {
	// CreatePost はユーザー投稿を作成する。
	CreatePost(ctx context.Context, authorID, authorName, title, content, imageURL, category string) (*model.NewsPost, error)
	// List はニュース投稿を新しい順で返す。
	List(ctx context.Context, limit int) ([]*model.NewsPost, error)
}

// NewsHandler はニュースフィードのHTTPハンドラー。
type NewsHandler struct {
	service NewsServiceInterface
}

// NewNewsHandler はNewsHandlerを生成する。
func NewNewsHandler(service NewsServiceInterface) *NewsHandler {
	return &NewsHandler{service: service}
}

// createNewsRequest はニュース投稿作成のボディ。
type createNewsRequest struct {
	AuthorName string `json:"author_name"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	ImageURL   string `json:"image_url"`
	Category   string `json:"category"`
}

// newsResponse はニュース投稿のAPIレスポンス。
type newsResponse struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	ImageURL   string    `json:"image_url"`
	Category   string    `json:"category"`
	SourceURL  string    `json:"source_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreatePost はニュース投稿の作成を処理する。
// POST /api/news
func (h *NewsHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createNewsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	post, err := h.service.CreatePost(r.Context(), userID, req.AuthorName, req.Title, req.Content, req.ImageURL, req.Category)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toNewsResponse(post))
}

// List はニュースフィードを返す。
// GET /api/news
func (h *NewsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultNewsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= defaultNewsLimit {
			limit = parsed
		}
	}

	posts, err := h.service.List(r.Context(), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]newsResponse, 0, len(posts))
	for _, p := range posts {
		responses = append(responses, toNewsResponse(p))
	}
	writeJSON(w, http.StatusOK, responses)
}

func toNewsResponse(p *model.NewsPost) newsResponse {
	return newsResponse{
		ID:         p.ID,
		AuthorID:   p.AuthorID,
		AuthorName: p.AuthorName,
		Title:      p.Title,
		Content:    p.Content,
		ImageURL:   p.ImageURL,
		Category:   p.Category,
		SourceURL:  p.SourceURL,
		CreatedAt:  p.CreatedAt,
	}
}
