// Package server provides the bibrange HTTP API.
//
// The server exposes the reference grammars as JSON endpoints, runs
// batch jobs with progress broadcast over WebSocket, and serves the
// Prometheus registry at /metrics. It binds the loopback interface by
// default.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/scrinium/bibrange/core/books"
	"github.com/scrinium/bibrange/internal/config"
	"github.com/scrinium/bibrange/internal/logging"
	"github.com/scrinium/bibrange/internal/metrics"
	"github.com/scrinium/bibrange/internal/pipeline"
)

const serverVersion = "0.3.0"

// Server bundles the state shared by all handlers. The /parse endpoint
// resolves through a bible-mode resolver, /canonlaw and /timerange call
// their grammars directly, /batch builds a resolver per request.
type Server struct {
	cfg       *config.Config
	mappers   *books.Mappers
	metrics   *metrics.Metrics
	resolver  *pipeline.Resolver
	hub       *Hub
	startTime time.Time
}

// New creates a Server for the given configuration and mappers. A nil
// metrics value gets a fresh registry. The WebSocket hub starts
// immediately and runs for the lifetime of the process.
func New(cfg *config.Config, mappers *books.Mappers, met *metrics.Metrics) *Server {
	if met == nil {
		met = metrics.New()
	}
	batch := cfg.Batch
	batch.Mode = config.ModeBible

	hub := NewHub()
	go hub.Run()

	return &Server{
		cfg:       cfg,
		mappers:   mappers,
		metrics:   met,
		resolver:  pipeline.NewResolver(mappers, met, batch),
		hub:       hub,
		startTime: time.Now(),
	}
}

// Handler returns the server's complete route and middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/parse", s.handleParse)
	mux.HandleFunc("/canonlaw", s.handleCanonLaw)
	mux.HandleFunc("/timerange", s.handleTimeRange)
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/batch", s.handleBatch)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	var handler http.Handler = SecurityHeadersMiddleware(mux)
	handler = TimingMiddleware(handler)
	handler = CORSMiddleware(CORSConfig{}, handler)
	handler = logging.CombinedMiddleware(handler)
	return handler
}

// Start runs the server until the listener fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	logging.ServerStartup("api", "http", s.cfg.Server.Port,
		"host", s.cfg.Server.Host,
		"books", s.mappers.Codes.Len(),
		"aliases", s.mappers.Aliases.Len())
	return http.ListenAndServe(addr, s.Handler())
}
