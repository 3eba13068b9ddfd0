package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/lotledger/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"

	// IdempotencyReplayHeader marks a response served from the store.
	IdempotencyReplayHeader = "X-Idempotency-Replay"

	processingMarker = "processing"
	storeTimeout     = 2 * time.Second
)

// cachedResponse is what the store keeps for a completed request.
type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyMiddleware replays successful POST responses keyed by Idempotency-Key.
type IdempotencyMiddleware struct {
	store    usecase.IdempotencyStore
	ttl      time.Duration
	logger   zerolog.Logger
	onReplay func()
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware. onReplay may be nil.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration, logger zerolog.Logger, onReplay func()) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}
	if onReplay == nil {
		onReplay = func() {}
	}

	return &IdempotencyMiddleware{
		store:    store,
		ttl:      ttl,
		logger:   logger,
		onReplay: onReplay,
	}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only apply to mutating requests
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get(IdempotencyKeyHeader)
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		// The same key on a different endpoint is a different request.
		key := r.Method + ":" + r.URL.Path + ":" + header

		exists, cached, err := m.store.CheckAndSet(r.Context(), key, nil, m.ttl)
		if err != nil {
			m.logger.Error().Err(err).Str("key", header).Msg("idempotency check failed")
			writeJSONError(w, http.StatusInternalServerError, "idempotency check failed")
			return
		}

		if exists {
			m.replay(w, header, cached)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}

		// A panicking handler never reaches the bookkeeping below.
		completed := false
		defer func() {
			if !completed {
				m.release(r, key, header)
			}
		}()

		next.ServeHTTP(recorder, r)
		completed = true

		if recorder.statusCode < 200 || recorder.statusCode >= 300 {
			m.release(r, key, header)
			return
		}

		// The ledger already changed; a client disconnect must not lose the record.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), storeTimeout)
		defer cancel()

		body := bytes.TrimSpace(recorder.body.Bytes())
		if len(body) == 0 {
			body = []byte("null")
		}

		payload, err := json.Marshal(cachedResponse{
			Status: recorder.statusCode,
			Body:   json.RawMessage(body),
		})
		if err != nil {
			m.logger.Warn().Err(err).Str("key", header).Msg("failed to encode idempotent response")
			return
		}

		if err := m.store.Update(ctx, key, payload, m.ttl); err != nil {
			m.logger.Warn().Err(err).Str("key", header).Msg("failed to store idempotent response")
		}
	})
}

// release frees key so the client can retry.
func (m *IdempotencyMiddleware) release(r *http.Request, key, header string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), storeTimeout)
	defer cancel()

	if err := m.store.Delete(ctx, key); err != nil {
		m.logger.Warn().Err(err).Str("key", header).Msg("failed to release idempotency key")
	}
}

func (m *IdempotencyMiddleware) replay(w http.ResponseWriter, header string, cached []byte) {
	if cached == nil || string(cached) == processingMarker {
		writeJSONError(w, http.StatusConflict, "request with this idempotency key is in progress")
		return
	}

	var resp cachedResponse
	if err := json.Unmarshal(cached, &resp); err != nil || resp.Status == 0 {
		m.logger.Warn().Err(err).Str("key", header).Msg("unreadable idempotent response")
		writeJSONError(w, http.StatusConflict, "idempotency key already used")
		return
	}

	m.onReplay()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(IdempotencyReplayHeader, "true")
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
