package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	e "github.com/gartstein/ems/internal/ems/errors"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

var marshaler = &runtime.JSONBuiltin{}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := marshaler.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", marshaler.ContentType(v))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps domain errors onto HTTP statuses. Anything unrecognised
// is logged and reported as a generic 500 so internals never leak.
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *e.ValidationError
		conflictErr   *e.ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: validationErr.Message, Details: validationErr.Details})
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, errorResponse{Message: conflictErr.Error(), Field: conflictErr.Field})
	case errors.Is(err, e.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
	case errors.Is(err, e.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Not found"})
	case errors.Is(err, e.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "unauthorized"})
	case errors.Is(err, e.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Message: "Duplicate value"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
	}
}

// NewMux builds the gateway mux with request logging and JSON routing
// errors.
func NewMux(logger *zap.Logger) *runtime.ServeMux {
	logger = logger.Named("http")
	return runtime.NewServeMux(
		runtime.WithMiddlewares(requestLogger(logger)),
		runtime.WithRoutingErrorHandler(routingErrorHandler),
	)
}

func routingErrorHandler(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler, w http.ResponseWriter, _ *http.Request, status int) {
	message := http.StatusText(status)
	if status == http.StatusNotFound {
		message = "Not found"
	}
	writeJSON(w, status, errorResponse{Message: message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(logger *zap.Logger) runtime.Middleware {
	return func(next runtime.HandlerFunc) runtime.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next(rec, r, pathParams)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		}
	}
}

// CORS allows credentialed requests from the configured client origin and
// answers preflight requests directly.
func CORS(next http.Handler, origin string) http.Handler {
	origin = strings.TrimSuffix(origin, "/")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin != "" && r.Header.Get("Origin") == origin {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
