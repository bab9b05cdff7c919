package forest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylvagraph/sylva/engine/assets"
	"github.com/sylvagraph/sylva/engine/config"
	"github.com/sylvagraph/sylva/engine/core"
	"github.com/sylvagraph/sylva/engine/optimize"
	"github.com/sylvagraph/sylva/engine/scene"
)

func TestOrchestratorEndToEnd(t *testing.T) {
	cfg := config.Default()
	cfg.Builder.RetryAttempts = 5
	cfg.Builder.RetryBackoffMS = 10
	cfg.Placements.OutputPath = filepath.Join(t.TempDir(), "treePositions.json")

	bus := core.NewBus()
	store := assets.NewItemStore()
	store.Set(assets.Item{Name: "TreeNaked", Type: assets.TypeGLTFModel, Payload: trunkModel()})

	catalog := DefaultTemplateCatalog()
	extractor := NewExtractor(catalog, cfg.Matcher, bus, nil)
	builder := NewBuilder(cfg.Builder, store, optimize.NewOptimizer(cfg.Decimation), nil)
	o := NewOrchestrator(cfg, bus, store, catalog, extractor, builder)

	sceneReady := make(chan struct{})
	bus.Once(core.SignalForestSceneReady, func(interface{}) { close(sceneReady) })

	stop := o.Start(context.Background())
	defer stop()

	mapRoot := scene.NewNode("map")
	mapRoot.Add(instanceNode("GN_Instance_753", trunkGeometry(), mgl64.Vec3{4, 0, 4}))
	bus.Trigger(core.SignalMapReady, &scene.Model{Scene: mapRoot})

	select {
	case <-sceneReady:
	case <-time.After(5 * time.Second):
		t.Fatal("forest scene never became ready")
	}

	meshes := o.Meshes()
	require.Len(t, meshes, 1)
	assert.Equal(t, "TreeNaked", meshes[0].Name)
	assert.Equal(t, 1, meshes[0].Count)

	// The analysis pass persisted its placements.
	_, err := os.Stat(cfg.Placements.OutputPath)
	assert.NoError(t, err)
}

func TestOrchestratorLoadPersisted(t *testing.T) {
	cfg := config.Default()
	cfg.Builder.RetryAttempts = 2
	cfg.Builder.RetryBackoffMS = 10
	cfg.Placements.OutputPath = ""

	path := filepath.Join(t.TempDir(), "treePositions.json")
	require.NoError(t, SavePlacements(path, samplePlacements()))
	cfg.Placements.Candidates = []string{path}

	bus := core.NewBus()
	store := assets.NewItemStore()
	store.Set(assets.Item{Name: "TreeNaked", Type: assets.TypeGLTFModel, Payload: trunkModel()})

	catalog := DefaultTemplateCatalog()
	extractor := NewExtractor(catalog, cfg.Matcher, bus, nil)
	builder := NewBuilder(cfg.Builder, store, optimize.NewOptimizer(cfg.Decimation), nil)
	o := NewOrchestrator(cfg, bus, store, catalog, extractor, builder)

	sceneReady := make(chan struct{})
	bus.Once(core.SignalForestSceneReady, func(interface{}) { close(sceneReady) })

	stop := o.Start(context.Background())
	defer stop()

	set, err := o.LoadPersisted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, set.Total())

	select {
	case <-sceneReady:
	case <-time.After(5 * time.Second):
		t.Fatal("forest scene never became ready")
	}
}
