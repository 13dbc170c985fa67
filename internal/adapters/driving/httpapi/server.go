package httpapi

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// BasePath prefixes every route.
const BasePath = "/knowledge/v1"

// MCPPath is where WithMCP mounts the MCP transport.
const MCPPath = "/mcp"

// Default server settings.
const (
	DefaultMaxUploadBytes  = 256 << 20
	DefaultShutdownTimeout = 10 * time.Second
	readHeaderTimeout      = 10 * time.Second
)

// Services are the driving ports served by the API. Nil services leave
// their routes unmounted.
type Services struct {
	Ingestion driving.IngestionService
	Metadata  driving.MetadataService
	Content   driving.ContentService
	Search    driving.SearchService
	Tabular   driving.TabularService
	Contexts  driving.CollectionService
	Profiles  driving.CollectionService
}

// Server is the HTTP API server.
type Server struct {
	cfg            domain.ServerConfig
	services       Services
	stagingDir     string
	maxUploadBytes int64
	mcpHandler     http.Handler
	router         chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithStagingDir sets where uploads are staged before processing.
// Defaults to the system temporary directory.
func WithStagingDir(dir string) Option {
	return func(s *Server) {
		s.stagingDir = dir
	}
}

// WithMaxUploadBytes bounds the size of a multipart request body.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithMCP mounts a Model Context Protocol handler at MCPPath.
func WithMCP(h http.Handler) Option {
	return func(s *Server) {
		s.mcpHandler = h
	}
}

// NewServer builds the router for the given services.
func NewServer(cfg domain.ServerConfig, services Services, opts ...Option) *Server {
	s := &Server{
		cfg:            cfg,
		services:       services,
		stagingDir:     os.TempDir(),
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down HTTP API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.mcpHandler != nil {
		r.Handle(MCPPath, s.mcpHandler)
		r.Handle(MCPPath+"/*", s.mcpHandler)
	}

	r.Route(BasePath, func(api chi.Router) {
		if s.services.Ingestion != nil {
			api.Post("/process-files", s.processFiles)
		}
		if s.services.Metadata != nil {
			api.Post("/documents/metadata", s.listMetadata)
			api.Get("/documents/search", s.searchMetadata)
			api.Get("/document/{uid}", s.getMetadata)
			api.Put("/document/{uid}", s.updateRetrievable)
			api.Delete("/document/{uid}", s.deleteDocument)
		}
		if s.services.Content != nil {
			api.Get("/markdown/{uid}", s.getMarkdown)
			api.Get("/raw_content/{uid}", s.getRawContent)
		}
		if s.services.Search != nil {
			api.Post("/vector/search", s.vectorSearch)
		}
		if s.services.Tabular != nil {
			api.Get("/tabular/list", s.listDatasets)
			api.Get("/tabular/{uid}/schema", s.tabularSchema)
			api.Post("/tabular/{uid}/query", s.tabularQuery)
		}
		if s.services.Contexts != nil {
			api.Route("/knowledgeContexts", s.collectionRoutes(s.services.Contexts))
		}
		if s.services.Profiles != nil {
			api.Route("/chatProfiles", s.collectionRoutes(s.services.Profiles))
		}
	})

	return r
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("%s %s -> %d (%s)", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond))
	})
}
