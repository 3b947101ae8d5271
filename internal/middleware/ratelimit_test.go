package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/request"
	"github.com/google/uuid"
)

type mockRatelimitRepo struct {
	mu     sync.Mutex
	cfg    *models.RatelimitConfig
	getErr error
	saved  []string
}

func (m *mockRatelimitRepo) Get(context.Context) (*models.RatelimitConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg, m.getErr
}

func (m *mockRatelimitRepo) Set(_ context.Context, c *models.RatelimitConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, c.Rate)
	m.cfg = c
	return nil
}

func (m *mockRatelimitRepo) setRate(rate string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = &models.RatelimitConfig{Rate: rate}
}

func hit(h http.Handler, user *models.User) int {
	req := httptest.NewRequest("GET", "/api/v1/dashboard", nil)
	req.RemoteAddr = "198.51.100.7:5000"
	if user != nil {
		req = req.WithContext(request.WithUser(req.Context(), user))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitReloader_SavesDefaultAndLimits(t *testing.T) {
	t.Parallel()

	store, err := NewLimiterStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	repo := &mockRatelimitRepo{}
	rl := NewRateLimitReloader(store, repo, "2-M", nil, 0)
	h := rl.Middleware()(okHandler)

	if len(repo.saved) != 1 || repo.saved[0] != "2-M" || rl.Rate() != "2-M" {
		t.Fatalf("saved = %v, rate = %q", repo.saved, rl.Rate())
	}

	alice := &models.User{ID: uuid.New()}
	bob := &models.User{ID: uuid.New()}
	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		if got := hit(h, alice); got != want {
			t.Errorf("alice request %d = %d, want %d", i, got, want)
		}
	}
	if got := hit(h, bob); got != http.StatusOK {
		t.Errorf("bob is limited separately, got %d", got)
	}
}

func TestRateLimitReloader_Reload(t *testing.T) {
	t.Parallel()

	store, _ := NewLimiterStore(nil)
	repo := &mockRatelimitRepo{cfg: &models.RatelimitConfig{Rate: "1-M"}}
	rl := NewRateLimitReloader(store, repo, "", nil, 0)
	h := rl.Middleware()(okHandler)

	if hit(h, nil) != http.StatusOK || hit(h, nil) != http.StatusTooManyRequests {
		t.Fatal("1-M rate not enforced")
	}

	repo.setRate("100-M")
	rl.load(context.Background())
	if rl.Rate() != "100-M" {
		t.Fatalf("rate = %q after reload", rl.Rate())
	}

	repo.setRate("garbage")
	rl.load(context.Background())
	if rl.Rate() != defaultRatelimitRate {
		t.Errorf("invalid rate should fall back to default, got %q", rl.Rate())
	}
}

func TestRateLimitReloader_RepoErrorUsesDefault(t *testing.T) {
	t.Parallel()

	store, _ := NewLimiterStore(nil)
	repo := &mockRatelimitRepo{getErr: errors.New("db down")}
	rl := NewRateLimitReloader(store, repo, "5-S", nil, 0)
	_ = rl.Middleware()(okHandler)
	if rl.Rate() != "5-S" || len(repo.saved) != 0 {
		t.Errorf("rate = %q, saved = %v", rl.Rate(), repo.saved)
	}
}

func TestRateLimitReloader_SharedAcrossRouters(t *testing.T) {
	t.Parallel()

	store, _ := NewLimiterStore(nil)
	rl := NewRateLimitReloader(store, &mockRatelimitRepo{cfg: &models.RatelimitConfig{Rate: "2-M"}}, "", nil, 0)
	mw := rl.Middleware()
	login, api := mw(okHandler), mw(okHandler)

	if hit(login, nil) != http.StatusOK || hit(api, nil) != http.StatusOK {
		t.Fatal("first two requests should pass")
	}
	if got := hit(login, nil); got != http.StatusTooManyRequests {
		t.Errorf("third request across routers = %d, want 429", got)
	}
}
