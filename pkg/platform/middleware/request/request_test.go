package request

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitties/pkg/requestcontext"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	t.Run("reuses inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "req-123")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", rr.Header().Get(HeaderRequestID))
	})

	t.Run("generates id when missing or oversized", func(t *testing.T) {
		for _, inbound := range []string{"", strings.Repeat("x", 129)} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderRequestID, inbound)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			require.NotEmpty(t, seen)
			assert.NotEqual(t, inbound, seen)
			assert.Equal(t, seen, rr.Header().Get(HeaderRequestID))
		}
	})
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodPost, "/kitties", nil)
	ctx := requestcontext.WithRequestID(req.Context(), "req-9")
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1", "test-agent")
	h.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

	line := buf.String()
	assert.Contains(t, line, `"msg":"http_request"`)
	assert.Contains(t, line, `"status":418`)
	assert.Contains(t, line, `"path":"/kitties"`)
	assert.Contains(t, line, `"request_id":"req-9"`)
	assert.Contains(t, line, `"client_ip":"10.0.0.1"`)
}

func TestLoggerClientAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	t.Run("bot user agent", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/registry", nil)
		ctx := requestcontext.WithClientMetadata(req.Context(), "10.0.0.2",
			"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
		h.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))
		assert.Contains(t, buf.String(), `"bot":true`)
	})

	t.Run("no user agent", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/registry", nil)
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.NotContains(t, buf.String(), `"client"`)
	})
}
