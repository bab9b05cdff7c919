package web

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/sylvagraph/sylva/engine/assets"
	"github.com/sylvagraph/sylva/engine/config"
	"github.com/sylvagraph/sylva/engine/core"
	"github.com/sylvagraph/sylva/engine/forest"
)

// Server exposes the loaded item store and the forest pipeline state over
// HTTP, plus static file serving for the data directory.
type Server struct {
	cfg          config.Web
	store        *assets.ItemStore
	orchestrator *forest.Orchestrator

	httpServer *http.Server
}

func NewServer(cfg config.Web, store *assets.ItemStore, orchestrator *forest.Orchestrator) *Server {
	return &Server{
		cfg:          cfg,
		store:        store,
		orchestrator: orchestrator,
	}
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/json/items", s.handleItems)
	r.HandleFunc("/json/items/{name}", s.handleItem)
	r.HandleFunc("/json/placements", s.handlePlacements)
	r.HandleFunc("/json/forest", s.handleForest)
	r.PathPrefix("/data/").Handler(http.StripPrefix("/data/", http.FileServer(http.Dir(s.cfg.DataDir))))

	h := handlers.RecoveryHandler()(r)
	return handlers.LoggingHandler(os.Stdout, h)
}

// Start runs the HTTP server until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{Addr: s.cfg.Addr, Handler: s.router()}

	core.LogInfo("web server listening on %s", s.cfg.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting briefly for in-flight requests.
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

type itemSummary struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) handleItems(w http.ResponseWriter, _ *http.Request) {
	var out []itemSummary
	for _, name := range s.store.Names() {
		item, _ := s.store.Get(name)
		out = append(out, itemSummary{Name: item.Name, Type: item.Type})
	}
	writeJSON(w, out)
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	item, ok := s.store.Get(name)
	if !ok {
		http.Error(w, "item not found", http.StatusNotFound)
		return
	}
	writeJSON(w, itemSummary{Name: item.Name, Type: item.Type})
}

func (s *Server) handlePlacements(w http.ResponseWriter, r *http.Request) {
	set, err := forest.LoadPlacements(r.Context(), []string{s.cfg.DataDir + "/treePositions.json"}, nil, nil)
	if err != nil {
		http.Error(w, "no placements available", http.StatusNotFound)
		return
	}
	writeJSON(w, set)
}

type forestSummary struct {
	Meshes []meshSummary `json:"meshes"`
}

type meshSummary struct {
	Name      string `json:"name"`
	Instances int    `json:"instances"`
	Triangles int    `json:"triangles"`
}

func (s *Server) handleForest(w http.ResponseWriter, _ *http.Request) {
	var out forestSummary
	for _, im := range s.orchestrator.Meshes() {
		out.Meshes = append(out.Meshes, meshSummary{
			Name:      im.Name,
			Instances: im.Count,
			Triangles: im.Geometry.TriangleCount(),
		})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		core.LogError("encoding response: %v", err)
	}
}
