package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sisi/sisichat/internal/model"
)

// --- モック定義 ---

type mockSessionFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func newAuthedHandler(t *testing.T, wantUserID string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("expected user ID in context: %v", err)
		}
		if userID != wantUserID {
			t.Errorf("user ID = %q, want %q", userID, wantUserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

// --- テスト ---

func TestSessionMiddleware_ValidToken(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id != "session-abc" {
				t.Errorf("session id = %q, want session-abc", id)
			}
			return &model.Session{ID: id, UserID: "user-1"}, nil
		},
	}
	mw := NewSessionMiddleware(finder)

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("Authorization", "Bearer session-abc")
	rec := httptest.NewRecorder()

	mw(newAuthedHandler(t, "user-1")).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestSessionMiddleware_MissingHeader(t *testing.T) {
	mw := NewSessionMiddleware(&mockSessionFinder{})

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestSessionMiddleware_MalformedHeader(t *testing.T) {
	mw := NewSessionMiddleware(&mockSessionFinder{})

	for _, auth := range []string{"session-abc", "Basic dXNlcjpwYXNz", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
		req.Header.Set("Authorization", auth)
		rec := httptest.NewRecorder()

		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("handler should not be called for %q", auth)
		})).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("auth %q: status = %d, want %d", auth, rec.Code, http.StatusUnauthorized)
		}
	}
}

// 期限切れ・未検出のセッションはnilとして返り、401になる
func TestSessionMiddleware_ExpiredSession(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, nil
		},
	}
	mw := NewSessionMiddleware(finder)

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("Authorization", "Bearer expired-session")
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestSessionMiddleware_LookupError(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, errors.New("db down")
		},
	}
	mw := NewSessionMiddleware(finder)

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("Authorization", "Bearer session-abc")
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for missing user ID")
	}
}
