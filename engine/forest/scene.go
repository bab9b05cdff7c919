package forest

import (
	"context"
	"sync"

	"github.com/sylvagraph/sylva/engine/assets"
	"github.com/sylvagraph/sylva/engine/config"
	"github.com/sylvagraph/sylva/engine/core"
	"github.com/sylvagraph/sylva/engine/scene"
)

// Orchestrator runs the forest pipeline end to end: when the authored map is
// ready it is analyzed into placements, the placements drive instanced-mesh
// building, and the combined scene readiness signal fires once both the map
// and the forest are in place.
type Orchestrator struct {
	cfg       *config.Config
	bus       *core.Bus
	store     *assets.ItemStore
	catalog   *TemplateCatalog
	extractor *Extractor
	builder   *Builder

	mu          sync.Mutex
	mapReady    bool
	forestReady bool
	sceneFired  bool
	meshes      []*scene.InstancedMesh
}

func NewOrchestrator(cfg *config.Config, bus *core.Bus, store *assets.ItemStore, catalog *TemplateCatalog, extractor *Extractor, builder *Builder) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		bus:       bus,
		store:     store,
		catalog:   catalog,
		extractor: extractor,
		builder:   builder,
	}
}

// Start subscribes the pipeline to its driving signals. The returned stop
// function removes the subscriptions.
func (o *Orchestrator) Start(ctx context.Context) (stop func()) {
	offMap := o.bus.On(core.SignalMapReady, func(payload interface{}) {
		model, ok := payload.(*scene.Model)
		if !ok {
			core.LogWarn("map-ready payload is %T, expected a model", payload)
			return
		}
		go o.analyze(ctx, model)
	})
	offPositions := o.bus.On(core.SignalTreePositionsReady, func(payload interface{}) {
		set, ok := payload.(PlacementSet)
		if !ok {
			core.LogWarn("tree-positions-ready payload is %T, expected a placement set", payload)
			return
		}
		go o.build(ctx, set)
	})
	return func() {
		offMap()
		offPositions()
	}
}

// Meshes returns the instanced meshes of the latest completed build.
func (o *Orchestrator) Meshes() []*scene.InstancedMesh {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*scene.InstancedMesh, len(o.meshes))
	copy(out, o.meshes)
	return out
}

func (o *Orchestrator) analyze(ctx context.Context, model *scene.Model) {
	o.mu.Lock()
	o.mapReady = true
	o.mu.Unlock()

	set, _ := o.extractor.Extract(ctx, model.Scene)
	if set == nil {
		return
	}
	if out := o.cfg.Placements.OutputPath; out != "" {
		if err := SavePlacements(out, set); err != nil {
			core.LogWarn("persisting placements: %v", err)
		}
	}
}

// LoadPersisted skips analysis and feeds the pipeline from the persisted
// placement file candidates instead, falling back to an empty structure.
func (o *Orchestrator) LoadPersisted(ctx context.Context) (PlacementSet, error) {
	fallback := PlacementSet(o.catalog.CreateEmptyPositionsStructure())
	set, err := LoadPlacements(ctx, o.cfg.Placements.Candidates, nil, fallback)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	o.mapReady = true
	o.mu.Unlock()
	o.bus.Trigger(core.SignalTreePositionsReady, set)
	return set, nil
}

func (o *Orchestrator) build(ctx context.Context, set PlacementSet) {
	meshes := o.builder.BuildAll(ctx, set)

	o.mu.Lock()
	o.meshes = meshes
	o.forestReady = true
	o.mu.Unlock()

	core.LogInfo("forest built: %d instanced meshes, %d placements", len(meshes), set.Total())
	o.bus.Trigger(core.SignalForestReady, meshes)
	o.maybeFireSceneReady()
}

// maybeFireSceneReady emits the combined readiness signal exactly once, when
// both the map analysis and the forest build have completed.
func (o *Orchestrator) maybeFireSceneReady() {
	o.mu.Lock()
	fire := o.mapReady && o.forestReady && !o.sceneFired
	if fire {
		o.sceneFired = true
	}
	o.mu.Unlock()
	if fire {
		o.bus.Trigger(core.SignalForestSceneReady, nil)
	}
}
