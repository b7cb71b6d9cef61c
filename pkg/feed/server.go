// Package feed publishes module manifests over HTTP in the format the
// remote source consumes.
//
// Routes:
//
//	GET /modules.json               every manifest, as a JSON array
//	GET /modules/{id}               every version of one module, newest first
//	GET /modules/{id}/{version}     a single manifest
//	GET /healthz                    liveness
//	GET /metrics                    Prometheus metrics, when a gatherer is set
//
// Records are read from the [Provider] on every request, so edits to a
// modules directory show up without a restart.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/modcat/pkg/module"
	"github.com/matzehuels/modcat/pkg/semver"
)

// Provider supplies the records to publish. local.Dir satisfies it.
type Provider interface {
	Scan(ctx context.Context) ([]*module.Record, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) ([]*module.Record, error)

// Scan calls f.
func (f ProviderFunc) Scan(ctx context.Context) ([]*module.Record, error) { return f(ctx) }

// Options configures a Server.
type Options struct {
	Logger   *log.Logger         // Defaults to a discarding logger
	Gatherer prometheus.Gatherer // Enables /metrics when set
	MaxAge   time.Duration       // Cache-Control max-age for feed responses
}

// Server serves a feed.
type Server struct {
	provider Provider
	opts     Options
	router   chi.Router
}

// NewServer builds the routes for p.
func NewServer(p Provider, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	s := &Server{provider: p, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/modules.json", s.handleFeed)
	r.Get("/modules/{id}", s.handleModule)
	r.Get("/modules/{id}/{version}", s.handleVersion)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("serving module feed", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	records, ok := s.scan(w, r)
	if !ok {
		return
	}
	s.writeRecords(w, records)
}

func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	records, ok := s.scan(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var versions []*module.Record
	for _, rec := range records {
		if rec.ID == id {
			versions = append(versions, rec)
		}
	}
	if len(versions) == 0 {
		writeError(w, http.StatusNotFound, "module "+id+" not found")
		return
	}
	slices.SortStableFunc(versions, module.ByVersionDesc)
	s.writeRecords(w, versions)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	id, raw := chi.URLParam(r, "id"), chi.URLParam(r, "version")
	v, err := semver.ParseVersion(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid version "+raw)
		return
	}
	records, ok := s.scan(w, r)
	if !ok {
		return
	}
	want := module.Identity{ID: id, Version: v.String()}
	for _, rec := range records {
		if rec.Identity() == want {
			s.writeJSON(w, module.ManifestOf(rec))
			return
		}
	}
	writeError(w, http.StatusNotFound, "module "+want.String()+" not found")
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) ([]*module.Record, bool) {
	records, err := s.provider.Scan(r.Context())
	if err != nil {
		s.opts.Logger.Error("scan modules", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to read modules")
		return nil, false
	}
	return records, true
}

func (s *Server) writeRecords(w http.ResponseWriter, records []*module.Record) {
	manifests := make([]module.Manifest, len(records))
	for i, rec := range records {
		manifests[i] = module.ManifestOf(rec)
	}
	s.writeJSON(w, manifests)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if s.opts.MaxAge > 0 {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(s.opts.MaxAge/time.Second)))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.opts.Logger.Debug("write response", "err", err)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.opts.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
