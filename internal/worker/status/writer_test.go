package status

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sisi/sisichat/internal/model"
)

// --- モック定義 ---

type statusWrite struct {
	userID string
	status model.UserStatus
}

type mockUserRepo struct {
	mu     sync.Mutex
	writes []statusWrite
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) UpdateStatus(ctx context.Context, userID string, status model.UserStatus, lastSeen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, statusWrite{userID: userID, status: status})
	return nil
}

func (m *mockUserRepo) snapshot() []statusWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]statusWrite(nil), m.writes...)
}

// --- テスト ---

func TestRecordOnline_WritesSynchronously(t *testing.T) {
	repo := &mockUserRepo{}
	w := NewWriter(repo, 4, nil)
	defer w.Drain(context.Background())

	if err := w.RecordOnline(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writes := repo.snapshot()
	if len(writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(writes))
	}
	if writes[0].userID != "user-1" || writes[0].status != model.UserStatusOnline {
		t.Errorf("write = %+v, want user-1/online", writes[0])
	}
}

// Drainは投入済みのオフライン書き込みをすべて完了させてから戻る
func TestDrain_CompletesQueuedWrites(t *testing.T) {
	repo := &mockUserRepo{}
	w := NewWriter(repo, 16, nil)

	w.RecordOffline("user-1")
	w.RecordOffline("user-2")
	w.RecordOffline("user-3")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Drain(ctx); err != nil {
		t.Fatalf("unexpected drain error: %v", err)
	}

	writes := repo.snapshot()
	if len(writes) != 3 {
		t.Fatalf("writes = %d, want 3", len(writes))
	}
	for _, write := range writes {
		if write.status != model.UserStatusOffline {
			t.Errorf("write = %+v, want offline", write)
		}
	}
}

// Drain後のオフライン書き込みは破棄される（パニックしない）
func TestRecordOffline_DiscardedAfterDrain(t *testing.T) {
	repo := &mockUserRepo{}
	w := NewWriter(repo, 4, nil)

	if err := w.Drain(context.Background()); err != nil {
		t.Fatalf("unexpected drain error: %v", err)
	}

	w.RecordOffline("user-1")

	if got := len(repo.snapshot()); got != 0 {
		t.Errorf("writes = %d, want 0", got)
	}
}

// Drainの多重呼び出しは安全
func TestDrain_Idempotent(t *testing.T) {
	w := NewWriter(&mockUserRepo{}, 4, nil)

	if err := w.Drain(context.Background()); err != nil {
		t.Fatalf("first drain: %v", err)
	}
	if err := w.Drain(context.Background()); err != nil {
		t.Fatalf("second drain: %v", err)
	}
}
