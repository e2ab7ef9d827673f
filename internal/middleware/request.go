package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ms-gatepass/internal/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

const RequestIDHeader = "X-Request-ID"

// RequestID propagates the caller's X-Request-ID or assigns a fresh uuid
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestLogger writes one API line per request through the category logger
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return chimw.RequestLogger(&apiLogFormatter{log: log})
}

type apiLogFormatter struct {
	log *logger.Logger
}

func (f *apiLogFormatter) NewLogEntry(r *http.Request) chimw.LogEntry {
	return &apiLogEntry{log: f.log, request: r}
}

type apiLogEntry struct {
	log     *logger.Logger
	request *http.Request
}

func (e *apiLogEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	path := e.request.URL.Path
	if id := GetRequestID(e.request.Context()); id != "" {
		path = fmt.Sprintf("%s [%s]", path, id)
	}
	e.log.LogAPI(e.request.Method, path, fmt.Sprintf("%d %dB", status, bytes), elapsed.String())
}

func (e *apiLogEntry) Panic(v interface{}, stack []byte) {
	e.log.Error("API", fmt.Sprintf("panic serving %s %s: %v\n%s", e.request.Method, e.request.URL.Path, v, stack))
}
