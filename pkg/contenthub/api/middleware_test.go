package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, RequestIDFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	wrapped := RequestIDMiddleware(handler)

	t.Run("generates request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		rr := httptest.NewRecorder()

		wrapped.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	})

	t.Run("uses provided request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", "my-custom-id")
		rr := httptest.NewRecorder()

		wrapped.ServeHTTP(rr, req)

		assert.Equal(t, "my-custom-id", rr.Header().Get("X-Request-ID"))
	})
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("Hello"))
	})
	wrapped := RequestIDMiddleware(LoggingMiddleware(logger)(handler))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rr := httptest.NewRecorder()

	wrapped.ServeHTTP(rr, req)

	assert.Equal(t, "Hello", rr.Body.String())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "HTTP request", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, float64(5), entry["bytes"])
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("returns a generic 500", func(t *testing.T) {
		wrapped := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("something went wrong")
		}))

		req := httptest.NewRequest("GET", "/test", nil)
		rr := httptest.NewRecorder()

		assert.NotPanics(t, func() {
			wrapped.ServeHTTP(rr, req)
		})

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		var body errorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, internalErrorMessage, body.Error)
	})

	t.Run("keeps aborting handlers aborted", func(t *testing.T) {
		wrapped := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
			wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/test", nil))
		})
	})
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	var readErr error
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})
	wrapped := RequestSizeLimitMiddleware(16)(handler)

	t.Run("allows small requests", func(t *testing.T) {
		wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/test", strings.NewReader("small body")))
		assert.NoError(t, readErr)
	})

	t.Run("rejects large requests", func(t *testing.T) {
		wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/test", strings.NewReader(strings.Repeat("x", 64))))
		var maxErr *http.MaxBytesError
		assert.True(t, errors.As(readErr, &maxErr))
	})
}

type observation struct {
	method, route string
	status        int
	size          int64
}

type fakeCollector struct {
	seen []observation
}

func (f *fakeCollector) RecordRequest(method, route string, status int, duration time.Duration, size int64) {
	f.seen = append(f.seen, observation{method, route, status, size})
}

func TestMetricsMiddleware(t *testing.T) {
	collector := &fakeCollector{}

	r := chi.NewRouter()
	r.Use(MetricsMiddleware(collector))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("item"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/items/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nowhere", nil))

	require.Len(t, collector.seen, 2)
	assert.Equal(t, observation{"GET", "/items/{id}", http.StatusOK, 4}, collector.seen[0])
	assert.Equal(t, "unmatched", collector.seen[1].route)
	assert.Equal(t, http.StatusNotFound, collector.seen[1].status)
}

func TestCacheMiddleware(t *testing.T) {
	status := http.StatusOK
	wrapped := CacheMiddleware(time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	tests := []struct {
		name   string
		method string
		status int
		want   string
	}{
		{"successful get", "GET", http.StatusOK, "public, max-age=3600"},
		{"missing file", "GET", http.StatusNotFound, ""},
		{"post", "POST", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status = tt.status
			rr := httptest.NewRecorder()
			wrapped.ServeHTTP(rr, httptest.NewRequest(tt.method, "/file.png", nil))
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.want, rr.Header().Get("Cache-Control"))
		})
	}
}
