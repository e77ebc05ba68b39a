package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newLimitedRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	return req.WithContext(ContextWithUserID(req.Context(), userID))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestGeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    3,
		HistoryRate:     rate.Limit(1),
		HistoryBurst:    3,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newLimitedRequest("user-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, rec.Code, http.StatusOK)
		}
	}
}

func TestGeneralMiddleware_BurstExhaustionReturns429(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // 補充をほぼ無効化
		GeneralBurst:    2,
		HistoryRate:     rate.Limit(1),
		HistoryBurst:    1,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newLimitedRequest("user-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, rec.Code, http.StatusOK)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newLimitedRequest("user-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

// ユーザーごとに独立したリミッターが使われる
func TestGeneralMiddleware_PerUserIsolation(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001),
		GeneralBurst:    1,
		HistoryRate:     rate.Limit(1),
		HistoryBurst:    1,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newLimitedRequest("user-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("user-1 first request: status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, newLimitedRequest("user-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("user-1 second request: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}

	// 別ユーザーは影響を受けない
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, newLimitedRequest("user-2"))
	if rec.Code != http.StatusOK {
		t.Errorf("user-2 request: status = %d, want %d", rec.Code, http.StatusOK)
	}

	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("limiter count = %d, want 2", rl.GeneralLimiterCount())
	}
}

// 履歴取得レーンはAPI全般レーンと独立に消費される
func TestHistoryMiddleware_IndependentLane(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001),
		GeneralBurst:    1,
		HistoryRate:     rate.Limit(0.001),
		HistoryBurst:    1,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler)
	history := rl.HistoryMiddleware()(okHandler)

	// API全般のバーストを使い切る
	rec := httptest.NewRecorder()
	general.ServeHTTP(rec, newLimitedRequest("user-1"))
	rec = httptest.NewRecorder()
	general.ServeHTTP(rec, newLimitedRequest("user-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("general lane: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}

	// 履歴レーンは未消費のまま
	rec = httptest.NewRecorder()
	history.ServeHTTP(rec, newLimitedRequest("user-1"))
	if rec.Code != http.StatusOK {
		t.Errorf("history lane: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestGeneralMiddleware_MissingUserIDReturns401(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
