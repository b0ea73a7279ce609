package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bitedash/bitedash-backend/pkg/enums"
)

type memoryStore struct {
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.values[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "test:idemp:" + scope + ":" + id
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func idempotentHandler(calls *atomic.Int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"data":{"call":%d}}`, calls.Load())
	})
}

func placeOrderRequest(t *testing.T, key, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(WithActor(req.Context(), 7, 3, enums.ActorRoleEmployee))
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	var calls atomic.Int64
	handler := Idempotency(newMemoryStore(), nil)(idempotentHandler(&calls))

	body := `{"vendor_id":9}`

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, placeOrderRequest(t, "key-1", body))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, placeOrderRequest(t, "key-1", body))
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", second.Code)
	}
	if calls.Load() != 1 {
		t.Fatalf("handler should run once, ran %d times", calls.Load())
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", first.Body.String(), second.Body.String())
	}
	if ct := second.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("replay lost content type: %q", ct)
	}
}

func TestIdempotencyRejectsBodyMismatch(t *testing.T) {
	var calls atomic.Int64
	handler := Idempotency(newMemoryStore(), nil)(idempotentHandler(&calls))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, placeOrderRequest(t, "key-1", `{"vendor_id":9}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, placeOrderRequest(t, "key-1", `{"vendor_id":10}`))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key got %d", second.Code)
	}
	if calls.Load() != 1 {
		t.Fatalf("mismatched replay must not reach the handler")
	}
}

func TestIdempotencyRequiresKeyOnGuardedRoutes(t *testing.T) {
	var calls atomic.Int64
	handler := Idempotency(newMemoryStore(), nil)(idempotentHandler(&calls))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, placeOrderRequest(t, "", `{"vendor_id":9}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if calls.Load() != 0 {
		t.Fatal("handler must not run without a key")
	}
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	var calls atomic.Int64
	handler := Idempotency(newMemoryStore(), nil)(idempotentHandler(&calls))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req = req.WithContext(WithActor(req.Context(), 7, 3, enums.ActorRoleEmployee))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("unguarded request should pass through, got %d", resp.Code)
	}
	if calls.Load() != 1 {
		t.Fatal("handler should run for unguarded routes")
	}
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	var calls atomic.Int64
	handler := Idempotency(newMemoryStore(), nil)(idempotentHandler(&calls))

	body := `{"vendor_id":9}`

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, placeOrderRequest(t, "shared-key", body))

	otherUser := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	otherUser.Header.Set("Idempotency-Key", "shared-key")
	otherUser = otherUser.WithContext(WithActor(otherUser.Context(), 99, 3, enums.ActorRoleEmployee))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, otherUser)

	if calls.Load() != 2 {
		t.Fatalf("different users must not share idempotency records, handler ran %d times", calls.Load())
	}
}
