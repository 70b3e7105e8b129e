// Package api exposes the DSN catalogue and the connection test over HTTP.
//
// Routes:
//
//	GET    /healthz
//	GET    /metrics
//	GET    /api/v1/dsns
//	GET    /api/v1/dsns/{name}
//	PUT    /api/v1/dsns/{name}[?overwrite=true]
//	PATCH  /api/v1/dsns/{name}
//	DELETE /api/v1/dsns/{name}
//	POST   /api/v1/test
//
// Secrets never leave the server: pwd, APIKey and ProxyAuthPWD are masked in
// every response.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/dsneditor/internal/dsnstore"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/logger"
	"github.com/koustreak/dsneditor/internal/probe"
)

// Config holds the HTTP listener settings.
type Config struct {
	Addr            string        `mapstructure:"addr" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" validate:"min=0"`
}

// DefaultConfig listens on localhost only.
func DefaultConfig() *Config {
	return &Config{
		Addr:            "127.0.0.1:8089",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    1 << 20,
	}
}

// Server serves the admin API.
type Server struct {
	cfg    *Config
	store  dsnstore.Store
	tester  *probe.Tester
	log     *logger.Logger
	metrics *metrics
}

// New creates a Server. A nil cfg uses DefaultConfig.
func New(cfg *Config, store dsnstore.Store, tester *probe.Tester, log *logger.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Global()
	}
	return &Server{
		cfg:     cfg,
		store:   store,
		tester:  tester,
		log:     log.With().Str("component", "api").Logger(),
		metrics: newMetrics(),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	if s.cfg.MaxBodyBytes > 0 {
		r.Use(middleware.RequestSize(s.cfg.MaxBodyBytes))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		jsonOK(w, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/dsns", func(r chi.Router) {
			r.Get("/", s.listDSNs)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.getDSN)
				r.Put("/", s.putDSN)
				r.Patch("/", s.patchDSN)
				r.Delete("/", s.deleteDSN)
			})
		})
		r.Post("/test", s.testConnection)
	})

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoWith("admin API listening", map[string]interface{}{"addr": s.cfg.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.Wrap(errs.ErrKindConnectionFailed, "admin API stopped", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info("shutting down admin API")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "admin API shutdown timed out", err)
	}
	return nil
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.HTTPEvent().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
