package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"muxlti/internal/auth"
	"muxlti/internal/logger"
)

type Handlers struct {
	Videos   *VideoHandler
	Uploads  *UploadHandler
	Callback *CallbackHandler
	Guard    *auth.Guard
}

type RouterConfig struct {
	AllowedOrigins []string
	Timeout        time.Duration
}

// NewRouter собирает HTTP API плагина под префиксом /mux
func NewRouter(h Handlers, cfg RouterConfig, log *logger.Logger) http.Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	guard := h.Guard
	r.Route("/mux", func(r chi.Router) {
		r.Get("/launch/{sessionID}", guard.Learner(h.Videos.Launch))
		r.Get("/edit/{sessionID}", guard.Instructor(h.Videos.Edit))
		r.Post("/delete/{sessionID}/{muxID}", guard.Instructor(h.Videos.Delete))
		r.Post("/subtitles/{sessionID}/{muxID}", guard.Instructor(h.Videos.UploadSubtitles))
		r.Post("/subtitles/{sessionID}/{muxID}/{trackID}", guard.Instructor(h.Videos.DeleteSubtitles))

		r.Route("/uploads/{sessionID}", func(r chi.Router) {
			r.Get("/", guard.Instructor(h.Uploads.GetUpload))
			r.Post("/", guard.Instructor(h.Uploads.CreateUpload))
		})

		r.Post("/callback", h.Callback.Callback)
	})

	return r
}

// RequestLogger пишет в лог метод, путь, статус и длительность каждого запроса
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
