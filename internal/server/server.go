// Package server exposes the figura pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz        liveness and build info
//	GET  /api/tools      tool presets
//	GET  /api/tools/{id} one preset
//	POST /api/generate   text to Document
//	POST /api/export     Document (or text) to a file download
//	POST /api/drafts     draft sync with local fallback
//
// A request whose client disconnects is answered with status 499 and
// logged at debug level; cancellation is not an error.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/figura/pkg/cache"
	"github.com/matzehuels/figura/pkg/drafts"
	"github.com/matzehuels/figura/pkg/fonts"
	"github.com/matzehuels/figura/pkg/generate"
	"github.com/matzehuels/figura/pkg/registry"
)

// Defaults.
const (
	DefaultMaxBodyBytes = 1 << 20
	DefaultWorkTimeout  = 60 * time.Second
)

// StatusClientClosed is the non-standard status for requests abandoned by
// the client.
const StatusClientClosed = 499

// Server holds the collaborators shared by all handlers.
type Server struct {
	Runner   *generate.Runner
	Syncer   *drafts.Syncer
	Tools    *registry.Catalog
	Cache    cache.Cache // export artifacts; nil disables artifact caching
	Keyer    cache.Keyer
	Measurer fonts.Measurer
	Logger   *log.Logger

	MaxBodyBytes int64
	WorkTimeout  time.Duration // bound for shared generate work
	Now          func() time.Time

	group singleflight.Group
}

// New creates a server with defaults for unset collaborators.
func New(runner *generate.Runner, syncer *drafts.Syncer, tools *registry.Catalog, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if runner == nil {
		runner = generate.NewRunner(nil, nil, nil, logger)
	}
	if syncer == nil {
		syncer = &drafts.Syncer{Logger: logger}
	}
	if tools == nil {
		tools = registry.Default()
	}
	return &Server{
		Runner:       runner,
		Syncer:       syncer,
		Tools:        tools,
		Cache:        cache.NewNullCache(),
		Keyer:        cache.NewDefaultKeyer(),
		Measurer:     fonts.Default(),
		Logger:       logger,
		MaxBodyBytes: DefaultMaxBodyBytes,
		WorkTimeout:  DefaultWorkTimeout,
		Now:          time.Now,
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/tools", s.listTools)
		r.Get("/tools/{id}", s.getTool)
		r.Post("/generate", s.generate)
		r.Post("/export", s.export)
		r.Post("/drafts", s.syncDraft)
	})
	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.Logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
