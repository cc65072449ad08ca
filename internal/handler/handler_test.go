package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bettingtipspro/tracker/internal/auth"
	"github.com/bettingtipspro/tracker/internal/domain"
	"github.com/bettingtipspro/tracker/internal/guard"
	"github.com/bettingtipspro/tracker/internal/infra"
	"github.com/bettingtipspro/tracker/internal/ocr"
)

type envelopeBody struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelopeBody {
	t.Helper()
	var body envelopeBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func withSession(r *http.Request) *http.Request {
	return r.WithContext(auth.WithSession(r.Context(), &auth.Session{
		UserID:  uuid.New(),
		Email:   "tipster@example.com",
		TokenID: uuid.NewString(),
	}))
}

// --- RespondJSON Tests ---

func TestRespondJSON(t *testing.T) {
	t.Run("200 wraps data", func(t *testing.T) {
		w := httptest.NewRecorder()
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		assert.Equal(t, http.StatusOK, w.Code)

		body := decodeEnvelope(t, w)
		assert.True(t, body.Success)
		assert.JSONEq(t, `{"status":"ok"}`, string(body.Data))
		assert.Empty(t, body.Code)
	})

	t.Run("nil data omits the field", func(t *testing.T) {
		w := httptest.NewRecorder()
		RespondJSON(w, http.StatusOK, nil)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())
	})
}

// --- RespondError Tests ---

func TestRespondError(t *testing.T) {
	t.Run("AppError maps to correct status", func(t *testing.T) {
		tests := []struct {
			err        *domain.AppError
			wantStatus int
			wantCode   string
		}{
			{domain.ErrBetNotFound(), 404, "NOT_FOUND"},
			{domain.ErrValidation("bad input"), 400, "VALIDATION_ERROR"},
			{domain.ErrUnauthorized(""), 401, "UNAUTHORIZED"},
			{domain.ErrConflict("duplicate"), 409, "CONFLICT"},
			{domain.ErrRateLimited(nil), 429, "RATE_LIMITED"},
			{domain.ErrAccountLocked("locked"), 429, "ACCOUNT_LOCKED"},
			{domain.ErrDuplicateRequest(), 409, "DUPLICATE_REQUEST"},
			{domain.ErrInternal("oops", nil), 500, "INTERNAL_ERROR"},
		}

		for _, tt := range tests {
			t.Run(tt.wantCode, func(t *testing.T) {
				w := httptest.NewRecorder()
				RespondError(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
				assert.Equal(t, tt.wantStatus, w.Code)

				body := decodeEnvelope(t, w)
				assert.False(t, body.Success)
				assert.Equal(t, tt.wantCode, body.Code)
				assert.Equal(t, tt.err.Message, body.Error)
			})
		}
	})

	t.Run("generic error returns 500 without leaking the cause", func(t *testing.T) {
		w := httptest.NewRecorder()
		RespondError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: connection refused"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)

		body := decodeEnvelope(t, w)
		assert.Equal(t, "INTERNAL_ERROR", body.Code)
		assert.Equal(t, domain.MsgUnexpected, body.Error)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})

	t.Run("cause goes to the request logger", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(context.WithValue(r.Context(), loggerKey, zap.New(core)))

		RespondError(httptest.NewRecorder(), r, domain.ErrInternal("Erreur lors de la création du pari", errors.New("boom")))

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zap.ErrorLevel, entry.Level)
		assert.Contains(t, entry.ContextMap()["error"], "boom")
	})
}

// --- DecodeJSON Tests ---

func TestDecodeJSON(t *testing.T) {
	t.Run("valid JSON body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"test","value":42}`))
		var dst struct {
			Name  string `json:"name"`
			Value int    `json:"value"`
		}
		require.NoError(t, DecodeJSON(httptest.NewRecorder(), r, &dst))
		assert.Equal(t, "test", dst.Name)
		assert.Equal(t, 42, dst.Value)
	})

	t.Run("invalid JSON returns validation error", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{invalid`))
		var dst map[string]interface{}
		err := DecodeJSON(httptest.NewRecorder(), r, &dst)

		var appErr *domain.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, http.StatusBadRequest, appErr.Status)
		assert.Equal(t, "corps de requête invalide", appErr.Message)
	})

	t.Run("body exceeding 1MiB returns error", func(t *testing.T) {
		big := `{"x":"` + strings.Repeat("x", 1<<20) + `"}`
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(big))
		var dst map[string]interface{}
		err := DecodeJSON(httptest.NewRecorder(), r, &dst)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "trop volumineux")
	})
}

// --- ClientIP Tests ---

func TestClientIP(t *testing.T) {
	t.Run("strips the port", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:54321"
		assert.Equal(t, "10.0.0.1", clientIP(r))
	})

	t.Run("RemoteAddr without port", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1"
		assert.Equal(t, "10.0.0.1", clientIP(r))
	})
}

// --- RequestID Middleware Tests ---

func TestRequestID(t *testing.T) {
	t.Run("generates ID when none provided", func(t *testing.T) {
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NotEmpty(t, GetRequestID(r.Context()))
			w.WriteHeader(http.StatusOK)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("uses provided X-Request-ID", func(t *testing.T) {
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "my-custom-id", GetRequestID(r.Context()))
			w.WriteHeader(http.StatusOK)
		}))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "my-custom-id")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, "my-custom-id", w.Header().Get("X-Request-ID"))
	})
}

func TestGetRequestID_EmptyContext(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

// --- RequestLogger Middleware Tests ---

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := infra.NewMetrics(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(zap.New(core), metrics))
	r.Get("/bets/{id}", func(w http.ResponseWriter, r *http.Request) {
		LoggerFrom(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/bets/123", nil)
	req.Header.Set("X-Request-ID", "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 2, logs.Len())
	for _, entry := range logs.All() {
		assert.Equal(t, "req-1", entry.ContextMap()["request_id"])
	}
	access := logs.FilterMessage("http request").All()
	require.Len(t, access, 1)
	fields := access[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/bets/123", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.Contains(t, fields, "duration_ms")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/bets/{id}", "GET", "418")))
}

func TestLoggerFrom_OutsideRequest(t *testing.T) {
	assert.NotNil(t, LoggerFrom(context.Background()))
}

// --- JSONContentType Middleware Tests ---

func TestJSONContentType(t *testing.T) {
	handler := JSONContentType(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

// --- CORS Middleware Tests ---

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("wildcard allows any origin", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "https://anywhere.example")
		w := httptest.NewRecorder()
		CORS([]string{"*"})(ok).ServeHTTP(w, r)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("specific origin with credentials", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "https://app.bettingtips.pro")
		w := httptest.NewRecorder()
		CORS([]string{"https://app.bettingtips.pro"})(ok).ServeHTTP(w, r)

		assert.Equal(t, "https://app.bettingtips.pro", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
	})

	t.Run("unknown origin gets no headers", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		CORS([]string{"https://app.bettingtips.pro"})(ok).ServeHTTP(w, r)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight allows the idempotency header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/bets", nil)
		r.Header.Set("Origin", "https://app.bettingtips.pro")
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)
		r.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
		w := httptest.NewRecorder()
		CORS([]string{"https://app.bettingtips.pro"})(ok).ServeHTTP(w, r)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")), "idempotency-key")
	})
}

// --- Recovery Middleware Tests ---

func TestRecovery(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		handler := Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("something went wrong")
		}))

		w := httptest.NewRecorder()
		assert.NotPanics(t, func() {
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeEnvelope(t, w)
		assert.Equal(t, "INTERNAL_ERROR", body.Code)
		assert.Equal(t, domain.MsgUnexpected, body.Error)
	})

	t.Run("abort handler panics propagate", func(t *testing.T) {
		handler := Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		assert.Panics(t, func() {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
	})
}

// --- responseWriter Tests ---

func TestResponseWriter_CapturesStatus(t *testing.T) {
	w := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: w, status: 200}

	rw.WriteHeader(http.StatusNotFound)
	assert.Equal(t, 404, rw.status)
	assert.Equal(t, 404, w.Code)
}

// --- Health ---

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		w := httptest.NewRecorder()
		HealthHandler(fakePinger{})(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeEnvelope(t, w)
		assert.JSONEq(t, `{"status":"healthy"}`, string(body.Data))
	})

	t.Run("database down", func(t *testing.T) {
		w := httptest.NewRecorder()
		HealthHandler(fakePinger{err: errors.New("dial tcp")})(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "UNHEALTHY", decodeEnvelope(t, w).Code)
	})
}

// --- Session-guarded handlers ---

func TestHandlers_RequireSession(t *testing.T) {
	bets := NewBetHandler(nil, guard.NewIdempotencyGuard(time.Minute))
	profiles := NewProfileHandler(nil)
	authH := NewAuthHandler(nil)
	ocrH := NewOCRHandler(nil, guard.NewRateLimiter(10, time.Minute))

	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"bets list", bets.List},
		{"bets create", bets.Create},
		{"bets stats", bets.Stats},
		{"bets export", bets.Export},
		{"profile get", profiles.Get},
		{"logout", authH.Logout},
		{"ocr extract", ocrH.Extract},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.h(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			body := decodeEnvelope(t, w)
			assert.Equal(t, "UNAUTHORIZED", body.Code)
			assert.Equal(t, domain.MsgUnauthorized, body.Error)
		})
	}
}

func TestBetHandler_RejectsBadInput(t *testing.T) {
	h := NewBetHandler(nil, guard.NewIdempotencyGuard(time.Minute))

	t.Run("invalid id", func(t *testing.T) {
		r := chi.NewRouter()
		r.Get("/bets/{id}", h.Get)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, withSession(httptest.NewRequest(http.MethodGet, "/bets/not-a-uuid", nil)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "identifiant de pari invalide", decodeEnvelope(t, w).Error)
	})

	t.Run("negative limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.List(w, withSession(httptest.NewRequest(http.MethodGet, "/bets?limit=-1", nil)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "limit invalide", decodeEnvelope(t, w).Error)
	})

	t.Run("malformed create body", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Create(w, withSession(httptest.NewRequest(http.MethodPost, "/bets", strings.NewReader("{"))))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, w).Code)
	})
}

// --- OCR ---

func newTestOCRHandler(limit int) *OCRHandler {
	extractor := ocr.NewExtractor(nil, nil, infra.NewMetrics(prometheus.NewRegistry()), zap.NewNop())
	return NewOCRHandler(extractor, guard.NewRateLimiter(limit, time.Minute))
}

const pngDataURL = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func TestOCRHandler_Extract(t *testing.T) {
	t.Run("no model configured returns the fallback with a draft", func(t *testing.T) {
		h := newTestOCRHandler(10)
		w := httptest.NewRecorder()
		body := `{"image":"` + pngDataURL + `"}`
		h.Extract(w, withSession(httptest.NewRequest(http.MethodPost, "/ocr/extract", strings.NewReader(body))))

		require.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)
		require.True(t, env.Success)

		var data map[string]interface{}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, string(ocr.SourceFallback), data["source"])
		assert.Equal(t, "Nottingham Forest vs Chelsea", data["match"])
		require.Contains(t, data, "draft")
		draft := data["draft"].(map[string]interface{})
		assert.Equal(t, true, draft["is_ocr_extracted"])
	})

	t.Run("missing image is a validation error", func(t *testing.T) {
		h := newTestOCRHandler(10)
		w := httptest.NewRecorder()
		h.Extract(w, withSession(httptest.NewRequest(http.MethodPost, "/ocr/extract", strings.NewReader(`{}`))))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rate limited per user", func(t *testing.T) {
		h := newTestOCRHandler(1)
		req := withSession(httptest.NewRequest(http.MethodPost, "/ocr/extract", nil))
		sess := auth.SessionFromContext(req.Context())

		send := func() *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/ocr/extract", strings.NewReader(`{"image":"`+pngDataURL+`"}`))
			h.Extract(w, r.WithContext(auth.WithSession(r.Context(), sess)))
			return w
		}

		assert.Equal(t, http.StatusOK, send().Code)
		w := send()
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Equal(t, domain.MsgRateLimited, decodeEnvelope(t, w).Error)
	})
}
