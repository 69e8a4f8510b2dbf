// Package http exposes a running module tree over a small introspection
// and control API: read the tree, drive transitions, stream lifecycle
// events. The contract lives in api/openapi.yaml.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/api"
	"github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves introspection and lifecycle control for one module tree.
type Server struct {
	root    *lattice.Module
	journal ports.Journal
	logger  *slog.Logger
	streams *StreamManager
}

// Option configures the HTTP adapter.
type Option func(*Server)

// WithJournal exposes transition history at /modules/{name}/journal.
func WithJournal(j ports.Journal) Option {
	return func(s *Server) { s.journal = j }
}

// WithLogger sets the request-scope logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewHandler builds the HTTP handler for the tree rooted at root. When a
// metrics gatherer is given, it is mounted at /metrics.
func NewHandler(root *lattice.Module, gatherer prometheus.Gatherer, opts ...Option) http.Handler {
	s := &Server{
		root:    root,
		logger:  slog.Default(),
		streams: NewStreamManager(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.bridgeEvents()

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/tree", s.GetTree)
	r.Get("/graph", s.GetGraph)
	r.Get("/events", s.SubscribeEvents)
	r.Get("/openapi.yaml", s.GetOpenAPISpec)
	r.Get("/swagger", s.GetSwaggerUI)
	r.Route("/modules/{name}", func(r chi.Router) {
		r.Get("/", s.GetModule)
		r.Get("/can-unload", s.GetCanUnload)
		r.Get("/journal", s.GetJournal)
		r.Post("/suspend", s.SuspendModule)
		r.Post("/resume", s.ResumeModule)
		r.Post("/unload", s.UnloadModule)
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bridgeEvents fans the root module's lifecycle topics into the SSE stream
// manager. Forwarders exit when the module unloads and its bus closes.
func (s *Server) bridgeEvents() {
	for _, topic := range domain.Topics {
		ch, _ := s.root.Subscribe(topic)
		go func() {
			for event := range ch {
				payload, err := json.Marshal(event)
				if err != nil {
					s.logger.Error("failed to encode lifecycle event", "error", err)
					continue
				}
				s.streams.Broadcast(string(event.Topic), string(payload))
			}
		}()
	}
}

// -- Node lookup --

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *lattice.Module {
	name := chi.URLParam(r, "name")
	if m := findModule(s.root, name); m != nil {
		return m
	}
	http.Error(w, fmt.Sprintf("%v: %s", domain.ErrModuleNotFound, name), http.StatusNotFound)
	return nil
}

func findModule(m *lattice.Module, name string) *lattice.Module {
	if m.Name() == name {
		return m
	}
	for _, child := range m.Children() {
		if found := findModule(child, name); found != nil {
			return found
		}
	}
	return nil
}

// -- Read endpoints --

// ModuleNode is the JSON shape of one tree node.
type ModuleNode struct {
	Name     string       `json:"name"`
	State    string       `json:"state"`
	Children []ModuleNode `json:"children,omitempty"`
}

func snapshotTree(m *lattice.Module) ModuleNode {
	node := ModuleNode{Name: m.Name(), State: string(m.State())}
	for _, child := range m.Children() {
		node.Children = append(node.Children, snapshotTree(child))
	}
	return node
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := api.Load(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	writeJSON(w, s.logger, map[string]string{
		"app":         "lattice-http",
		"version":     strings.TrimSpace(lattice.Version),
		"api_version": apiVersion,
	})
}

// GetTree handles GET /tree.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, snapshotTree(s.root))
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.root))
}

// GetModule handles GET /modules/{name}.
func (s *Server) GetModule(w http.ResponseWriter, r *http.Request) {
	m := s.lookup(w, r)
	if m == nil {
		return
	}
	writeJSON(w, s.logger, map[string]string{"name": m.Name(), "state": string(m.State())})
}

// GetCanUnload handles GET /modules/{name}/can-unload.
func (s *Server) GetCanUnload(w http.ResponseWriter, r *http.Request) {
	m := s.lookup(w, r)
	if m == nil {
		return
	}
	result := m.CanUnload(r.Context())
	writeJSON(w, s.logger, map[string]any{
		"eligible": result.Eligible,
		"reasons":  result.Reasons,
	})
}

// GetJournal handles GET /modules/{name}/journal.
func (s *Server) GetJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		http.Error(w, "no journal configured", http.StatusNotFound)
		return
	}
	m := s.lookup(w, r)
	if m == nil {
		return
	}
	entries, err := s.journal.List(r.Context(), m.Name())
	if err != nil {
		http.Error(w, fmt.Sprintf("journal error: %v", err), http.StatusInternalServerError)
		s.logger.Error("journal list failed", "module", m.Name(), "error", err)
		return
	}
	if entries == nil {
		entries = []domain.TransitionEntry{}
	}
	writeJSON(w, s.logger, entries)
}

// -- Transition endpoints --

// SuspendModule handles POST /modules/{name}/suspend.
func (s *Server) SuspendModule(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(ctx context.Context, m *lattice.Module) *lattice.Transition {
		return m.Suspend(ctx)
	})
}

// ResumeModule handles POST /modules/{name}/resume.
func (s *Server) ResumeModule(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(ctx context.Context, m *lattice.Module) *lattice.Transition {
		return m.Resume(ctx)
	})
}

// UnloadModule handles POST /modules/{name}/unload.
func (s *Server) UnloadModule(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(ctx context.Context, m *lattice.Module) *lattice.Transition {
		return m.Unload(ctx)
	})
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, start func(context.Context, *lattice.Module) *lattice.Transition) {
	m := s.lookup(w, r)
	if m == nil {
		return
	}

	if err := start(r.Context(), m).Await(r.Context()); err != nil {
		s.writeTransitionError(w, m, err)
		return
	}
	writeJSON(w, s.logger, map[string]string{"name": m.Name(), "state": string(m.State())})
}

func (s *Server) writeTransitionError(w http.ResponseWriter, m *lattice.Module, err error) {
	var veto *domain.VetoError
	if errors.As(err, &veto) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   veto.Error(),
			"reasons": veto.Reasons,
		})
		return
	}

	var illegal *domain.IllegalTransitionError
	if errors.As(err, &illegal) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"error": illegal.Error()})
		return
	}

	http.Error(w, fmt.Sprintf("transition error: %v", err), http.StatusInternalServerError)
	s.logger.Error("transition failed", "module", m.Name(), "error", err)
}

// -- SSE --

// StreamManager handles active SSE connections, keyed by topic.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan<- string]map[string]bool // channel -> topic filter (nil = all)
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan<- string]map[string]bool),
	}
}

// Subscribe registers a consumer. An empty topic list subscribes to
// everything.
func (sm *StreamManager) Subscribe(topics []string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var filter map[string]bool
	if len(topics) > 0 {
		filter = make(map[string]bool, len(topics))
		for _, t := range topics {
			filter[strings.TrimSpace(t)] = true
		}
	}

	ch := make(chan string, 10)
	sm.subscribers[ch] = filter

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Broadcast delivers one event payload to every matching subscriber. Slow
// clients get messages dropped rather than blocking the broadcast.
func (sm *StreamManager) Broadcast(topic, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch, filter := range sm.subscribers {
		if filter != nil && !filter[topic] {
			continue
		}
		select {
		case ch <- msg:
		default:
			slog.Warn("SSE: client buffer full, dropping message", "topic", topic)
		}
	}
}

// SubscribeEvents handles GET /events (SSE). The optional topics query
// parameter is a comma-separated filter of lifecycle topics.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var topics []string
	if raw := r.URL.Query().Get("topics"); raw != "" {
		topics = strings.Split(raw, ",")
	}

	ch, cancel := s.streams.Subscribe(topics)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Spec endpoints --

// GetOpenAPISpec handles GET /openapi.yaml.
func (s *Server) GetOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	w.Write(api.Spec())
}

// GetSwaggerUI handles GET /swagger.
func (s *Server) GetSwaggerUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(swaggerHTML))
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Lattice API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}
