// Package server exposes tracking runs over HTTP and websockets.
package server

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/track-cli/internal/metrics"
	"github.com/sells-group/track-cli/internal/presence"
	"github.com/sells-group/track-cli/internal/tracking"
	"github.com/sells-group/track-cli/pkg/carrier"
)

// SessionHeader carries the client session ID. Browsers that cannot set
// headers on websocket requests use the "session" query parameter instead.
const SessionHeader = "X-Session-ID"

// DefaultSession is used when the client sends no session ID.
const DefaultSession = "default"

// Config holds server settings.
type Config struct {
	AllowedOrigins []string
	// ProxyTarget is the carrier base URL that /track/* is forwarded to.
	// Empty disables the proxy.
	ProxyTarget   string
	Delay         time.Duration
	AbortInFlight bool
	SheetName     string
}

// Deps are the collaborators the server wires together. Carrier and
// Sessions are required.
type Deps struct {
	Carrier     carrier.Client
	Sessions    *tracking.Sessions
	Presence    *presence.Hub
	Observer    tracking.Observer
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

// Server routes API requests. Runs it starts live until ctx is done.
type Server struct {
	ctx     context.Context
	cfg     Config
	deps    Deps
	handler http.Handler
}

// New builds the router.
func New(ctx context.Context, cfg Config, deps Deps) (*Server, error) {
	if deps.Carrier == nil {
		return nil, eris.New("server: carrier client is required")
	}
	if deps.Sessions == nil {
		return nil, eris.New("server: sessions registry is required")
	}

	s := &Server{ctx: ctx, cfg: cfg, deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Middleware)
	}
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", SessionHeader},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Post("/extract", s.handleExtract)
		api.Route("/runs", func(runs chi.Router) {
			runs.Post("/", s.handleStartRun)
			runs.Get("/current", s.handleCurrentRun)
			runs.Post("/current/cancel", s.handleCancelRun)
			runs.Get("/current/export", s.handleExport)
			runs.Get("/current/stream", s.handleStream)
		})
		api.Get("/shipments/{identifier}", s.handleShipment)
	})

	if deps.Presence != nil {
		r.Get("/ws/presence", presence.Handler(deps.Presence))
	}

	if cfg.ProxyTarget != "" {
		proxy, err := newProxy(cfg.ProxyTarget)
		if err != nil {
			return nil, err
		}
		r.Handle("/track/*", proxy)
	}

	s.handler = r
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func sessionID(r *http.Request) string {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		id = r.URL.Query().Get("session")
	}
	if id == "" {
		id = DefaultSession
	}
	return id
}

// session returns the caller's session, registering it on first use.
func (s *Server) session(r *http.Request) *tracking.Session {
	return s.deps.Sessions.Get(sessionID(r))
}

// existing returns the caller's session for read-only routes. An unknown
// session reads as an idle one that is never registered.
func (s *Server) existing(r *http.Request) *tracking.Session {
	if sess, ok := s.deps.Sessions.Lookup(sessionID(r)); ok {
		return sess
	}
	return tracking.NewSession()
}

func (s *Server) runOptions() tracking.Options {
	return tracking.Options{
		Delay:         s.cfg.Delay,
		AbortInFlight: s.cfg.AbortInFlight,
		Observer:      s.deps.Observer,
	}
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// newProxy forwards requests to target unchanged apart from the host.
func newProxy(target string) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, eris.Wrap(err, "server: parse proxy target")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, eris.Errorf("server: proxy target %q must be an absolute URL", target)
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u)
			pr.SetXForwarded()
		},
	}, nil
}
