package engine

import (
	"context"

	"github.com/pkg/errors"

	"github.com/sylvagraph/sylva/engine/assets"
	"github.com/sylvagraph/sylva/engine/assets/loaders"
	"github.com/sylvagraph/sylva/engine/config"
	"github.com/sylvagraph/sylva/engine/core"
	"github.com/sylvagraph/sylva/engine/forest"
	"github.com/sylvagraph/sylva/engine/optimize"
	"github.com/sylvagraph/sylva/engine/scene"
	"github.com/sylvagraph/sylva/engine/web"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Engine wires the asset, optimization and forest systems together and runs
// the pipeline: load the registry, analyze the authored map, build the
// instanced forest, then serve the results.
type Engine struct {
	currentStage Stage
	runID        string

	cfg          *config.Config
	bus          *core.Bus
	store        *assets.ItemStore
	manager      *assets.Manager
	registry     []assets.Descriptor
	source       *assets.DirSource
	catalog      *forest.TemplateCatalog
	optimizer    *optimize.Optimizer
	preloader    *forest.Preloader
	extractor    *forest.Extractor
	builder      *forest.Builder
	orchestrator *forest.Orchestrator
	server       *web.Server

	stopPipeline func()
	cancelRun    context.CancelFunc
}

func New(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}

	bus := core.NewBus()
	store := assets.NewItemStore()
	catalog := forest.DefaultTemplateCatalog()

	var source assets.Source
	dirSource := assets.NewDirSource(cfg.Assets.BaseDir)
	source = dirSource
	if cfg.Assets.BaseURL != "" {
		source = assets.NewHTTPSource(cfg.Assets.BaseURL)
		dirSource = nil
	}

	manager := assets.NewManager(store, assets.GlobalCache(), bus, source, cfg.Assets.Workers)
	loaders.RegisterDefaults(manager, cfg.LODScale())

	optimizer := optimize.NewOptimizer(cfg.Decimation)
	preloader := forest.NewPreloader(manager, nil)
	extractor := forest.NewExtractor(catalog, cfg.Matcher, bus, preloader)
	builder := forest.NewBuilder(cfg.Builder, store, optimizer, preloader)
	orchestrator := forest.NewOrchestrator(cfg, bus, store, catalog, extractor, builder)

	return &Engine{
		currentStage: EngineStageUninitialized,
		runID:        core.NewRunID(),
		cfg:          cfg,
		bus:          bus,
		store:        store,
		manager:      manager,
		registry:     assets.MergeRegistries(assets.BaseRegistry(), catalog.GetRequiredAssets()),
		source:       dirSource,
		catalog:      catalog,
		optimizer:    optimizer,
		preloader:    preloader,
		extractor:    extractor,
		builder:      builder,
		orchestrator: orchestrator,
		server:       web.NewServer(cfg.Web, store, orchestrator),
	}, nil
}

// Bus exposes the engine's signal bus so embedders can subscribe.
func (e *Engine) Bus() *core.Bus {
	return e.bus
}

// Store exposes the process-wide item accessor.
func (e *Engine) Store() *assets.ItemStore {
	return e.store
}

// Initialize starts watching the asset directory and subscribes the forest
// pipeline. Calling it twice is a no-op.
func (e *Engine) Initialize() error {
	if e.currentStage >= EngineStageInitializing {
		return nil
	}
	e.currentStage = EngineStageInitializing
	core.LogInfo("initializing run %s", e.runID)

	ctx, cancel := context.WithCancel(context.Background())
	e.cancelRun = cancel

	if e.source != nil {
		if err := e.source.Watch(); err != nil {
			core.LogWarn("asset watching unavailable: %v", err)
		} else {
			go e.watchChanges(ctx)
		}
	}
	e.stopPipeline = e.orchestrator.Start(ctx)

	e.currentStage = EngineStageInitialized
	return nil
}

// Run loads every registered asset, kicks off map analysis, and serves the
// web interface until Shutdown.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine must be initialized before Run")
	}
	e.currentStage = EngineStageRunning

	ctx, cancel := context.WithCancel(context.Background())
	prevCancel := e.cancelRun
	e.cancelRun = func() {
		cancel()
		prevCancel()
	}

	go e.loadAndAnalyze(ctx)

	return e.server.Start()
}

// watchChanges drains the directory watcher and hot-reloads registry entries
// whose backing file changed on disk.
func (e *Engine) watchChanges(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case changed, ok := <-e.source.Changes():
			if !ok {
				return
			}
			for _, d := range e.registry {
				if d.Path == changed {
					e.manager.Reload(ctx, d)
				}
			}
		}
	}
}

func (e *Engine) loadAndAnalyze(ctx context.Context) {
	report := e.manager.LoadAll(ctx, e.registry)
	core.LogInfo("assets resolved: %d loaded, %d reused, %d cloned, %d fallbacks, %d missing",
		report.Loaded, report.Reused, report.Cloned, report.Fallbacks, len(report.Missing))

	item, ok := e.store.Get("map")
	if !ok {
		core.LogWarn("authored map missing, trying persisted placements")
		if _, err := e.orchestrator.LoadPersisted(ctx); err != nil {
			core.LogError("forest pipeline has no input: %v", err)
		}
		return
	}
	model, ok := item.Payload.(*scene.Model)
	if !ok {
		core.LogError("map item is %T, not a model", item.Payload)
		return
	}
	e.optimizer.Optimize(model.Scene)
	e.bus.Trigger(core.SignalMapReady, model)
}

// Shutdown stops the web server, the pipeline subscriptions and the asset
// watcher.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	core.LogInfo("shutting down run %s", e.runID)

	if e.stopPipeline != nil {
		e.stopPipeline()
	}
	if e.cancelRun != nil {
		e.cancelRun()
	}
	if e.source != nil {
		e.source.Close()
	}
	return e.server.Shutdown()
}
