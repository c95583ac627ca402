package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/unpuzzle-ai/usagekit/pkg/assistant"
	"github.com/unpuzzle-ai/usagekit/pkg/plan"
	"github.com/unpuzzle-ai/usagekit/pkg/throttle"
)

type healthcheck func(context.Context) error

func newRouter(
	log *slog.Logger,
	guard *throttle.Service,
	tutor *assistant.Service,
	responder assistant.Responder,
	checks []healthcheck,
) http.Handler {
	h := &handlers{
		log:       log,
		guard:     guard,
		tutor:     tutor,
		responder: responder,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler(checks))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/usage", h.handleUsage)
		r.Post("/assistant/message", h.handleSendMessage)

		// Quiz generation is admitted by the throttle middleware; the
		// handler itself only produces content.
		r.Group(func(r chi.Router) {
			r.Use(throttle.Middleware(guard, headerIdentity, plan.FeatureQuiz))
			r.Post("/quiz/generate", h.handleGenerateQuiz)
		})
	})

	return r
}

// headerIdentity reads the user and plan identity set by the auth layer in
// front of this service. Requests without identity are not throttled; the
// handlers reject them instead.
func headerIdentity(r *http.Request) (userID, planID string) {
	return r.Header.Get("X-User-ID"), r.Header.Get("X-Plan-ID")
}

type requestIDKey struct{}

// requestID assigns every request an ID, honoring one set upstream.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// requestLogger emits one structured line per request.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			id, _ := r.Context().Value(requestIDKey{}).(string)
			log.InfoContext(r.Context(), "http request",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}

func healthHandler(checks []healthcheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
