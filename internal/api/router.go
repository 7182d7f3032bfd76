package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type RouterOptions struct {
	CORSOrigins []string
	Metrics     *HTTPMetrics
	// Gatherer backs /metrics. Nil leaves the endpoint unmounted.
	Gatherer prometheus.Gatherer
	// Content serves locally stored objects under ContentPrefix.
	Content       http.Handler
	ContentPrefix string
}

func (s *Server) NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLogMiddleware(s.logger))
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Get("/ws", s.ServeWsHandler)
	r.Get("/health", s.HealthCheckHandler)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	if opts.Content != nil && opts.ContentPrefix != "" {
		prefix := "/" + strings.Trim(opts.ContentPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, opts.Content))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.AuthMiddleware)
		r.Get("/me", s.GetCurrentUserHandler)
		r.Get("/events", s.GetEventsHandler)

		r.Post("/folders", s.CreateFolderHandler)

		r.Get("/files", s.ListFilesHandler)
		r.Get("/files/trash", s.ListTrashHandler)
		r.Get("/files/starred", s.ListStarredHandler)
		r.Post("/files/upload", s.UploadFileHandler)
		r.Post("/files/register", s.RegisterUploadHandler)
		r.Delete("/files/empty-trash", s.EmptyTrashHandler)
		r.Patch("/files/{fileId}", s.RenameHandler)
		r.Delete("/files/{fileId}", s.DeleteFileHandler)
		r.Patch("/files/{fileId}/trash", s.ToggleTrashHandler)
		r.Patch("/files/{fileId}/star", s.ToggleStarHandler)
		r.Patch("/files/{fileId}/move", s.MoveHandler)
	})

	return r
}
