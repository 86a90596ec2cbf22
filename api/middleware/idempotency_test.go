package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/wheelworks/shopfloor-backend/pkg/auth"
	pkgredis "github.com/wheelworks/shopfloor-backend/pkg/redis"
	"github.com/wheelworks/shopfloor-backend/pkg/types"
)

type memoryIdempotencyStore struct {
	records map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{records: map[string]string{}}
}

func (s *memoryIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := s.records[key]
	if !ok {
		return "", pkgredis.ErrCacheMiss
	}
	return value, nil
}

func (s *memoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = fmt.Sprint(value)
	return true, nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "sf:idem:" + scope + ":" + id
}

func idempotentRequest(method, path, body, key string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	actor := pkgAuth.Actor{UserID: uuid.New(), DisplayName: "Sam"}
	return req.WithContext(WithActor(req.Context(), actor))
}

func decodeAPIError(t *testing.T, resp *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error
}

func TestIdempotencyReplaysStoredPaymentResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	invocations := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		invocations++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"data":{"deposit_cents":%d}}`, invocations*5000)
	}))

	path := "/api/v1/orders/" + uuid.NewString() + "/payments"
	body := `{"amount_cents":5000}`

	first := idempotentRequest(http.MethodPost, path, body, "pay-1")
	actor, _ := ActorFromContext(first.Context())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, first)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	// Same actor, key and body again: the handler must not run a second
	// time, otherwise the deposit would be incremented twice.
	replay := idempotentRequest(http.MethodPost, path, body, "pay-1")
	replay = replay.WithContext(WithActor(replay.Context(), actor))
	replayResp := httptest.NewRecorder()
	handler.ServeHTTP(replayResp, replay)

	if invocations != 1 {
		t.Fatalf("expected handler to run once, ran %d times", invocations)
	}
	if replayResp.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", replayResp.Code)
	}
	if replayResp.Body.String() != resp.Body.String() {
		t.Fatalf("replay body %q differs from original %q", replayResp.Body.String(), resp.Body.String())
	}
	if ct := replayResp.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected replayed content type, got %q", ct)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	path := "/api/v1/orders/" + uuid.NewString() + "/payments"
	first := idempotentRequest(http.MethodPost, path, `{"amount_cents":5000}`, "pay-1")
	actor, _ := ActorFromContext(first.Context())
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := idempotentRequest(http.MethodPost, path, `{"amount_cents":9000}`, "pay-1")
	second = second.WithContext(WithActor(second.Context(), actor))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, second)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if apiErr := decodeAPIError(t, resp); apiErr.Code != "IDEMPOTENCY_KEY_REUSED" {
		t.Fatalf("unexpected error code %s", apiErr.Code)
	}
}

func TestIdempotencyRequiresHeaderOnGuardedRoutes(t *testing.T) {
	handler := Idempotency(newMemoryIdempotencyStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := idempotentRequest(http.MethodPost, "/api/v1/orders/bulk", `{"order_ids":[]}`, "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestIdempotencyIgnoresUnguardedRoutes(t *testing.T) {
	invocations := 0
	handler := Idempotency(newMemoryIdempotencyStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		invocations++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := idempotentRequest(http.MethodGet, "/api/v1/orders", "", "")
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", resp.Code)
		}
	}
	if invocations != 2 {
		t.Fatalf("expected handler to run each time, ran %d times", invocations)
	}
}

func TestIdempotencyScopesKeysPerActor(t *testing.T) {
	store := newMemoryIdempotencyStore()
	invocations := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		invocations++
		w.WriteHeader(http.StatusCreated)
	}))

	path := "/api/v1/orders/" + uuid.NewString() + "/payments"
	body := `{"amount_cents":5000}`

	// Two different actors may use the same key value independently.
	handler.ServeHTTP(httptest.NewRecorder(), idempotentRequest(http.MethodPost, path, body, "pay-1"))
	handler.ServeHTTP(httptest.NewRecorder(), idempotentRequest(http.MethodPost, path, body, "pay-1"))

	if invocations != 2 {
		t.Fatalf("expected both actors to reach the handler, ran %d times", invocations)
	}
}
