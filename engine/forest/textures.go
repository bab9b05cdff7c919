package forest

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/sylvagraph/sylva/engine/assets"
	"github.com/sylvagraph/sylva/engine/core"
	"github.com/sylvagraph/sylva/engine/scene"
)

// DefaultTextureSets maps object identifiers to their material texture
// slots. Paths follow the authored texture layout on the asset source.
func DefaultTextureSets() map[string]map[string]string {
	bark := func(name string) map[string]string {
		return map[string]string{
			scene.SlotColor:     "textures/" + name + "/color.jpg",
			scene.SlotNormal:    "textures/" + name + "/normal.jpg",
			scene.SlotRoughness: "textures/" + name + "/roughness.jpg",
			scene.SlotAO:        "textures/" + name + "/ao.jpg",
		}
	}
	return map[string]map[string]string{
		"TreeNaked":  bark("treeNaked"),
		"TrunkLarge": bark("trunkLarge"),
		"ThinTrunk":  bark("thinTrunk"),
		"TreeStump":  bark("treeStump"),
		"BranchEucalyptus": {
			scene.SlotColor:  "textures/branchEucalyptus/color.png",
			scene.SlotNormal: "textures/branchEucalyptus/normal.png",
			scene.SlotAlpha:  "textures/branchEucalyptus/alpha.png",
		},
	}
}

// PreloadHandle tracks one in-flight texture-set load. Await blocks until
// the load settles or the context ends.
type PreloadHandle struct {
	objectID string
	done     chan struct{}

	set *assets.MaterialSet
	err error
}

func (h *PreloadHandle) Await(ctx context.Context) (*assets.MaterialSet, error) {
	select {
	case <-h.done:
		return h.set, h.err
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "awaiting textures for %q", h.objectID)
	}
}

// Preloader loads per-object texture sets ahead of mesh building. Each
// object identifier is loaded at most once; repeated requests share the same
// handle.
type Preloader struct {
	manager *assets.Manager
	sets    map[string]map[string]string

	mu      sync.Mutex
	handles map[string]*PreloadHandle
}

func NewPreloader(manager *assets.Manager, sets map[string]map[string]string) *Preloader {
	if sets == nil {
		sets = DefaultTextureSets()
	}
	return &Preloader{
		manager: manager,
		sets:    sets,
		handles: map[string]*PreloadHandle{},
	}
}

// Preload starts loading the texture set for an object identifier and
// returns a handle the builder can await. Objects with no configured set
// resolve immediately with a nil material set.
func (p *Preloader) Preload(ctx context.Context, objectID string) *PreloadHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.handles[objectID]; ok {
		return h
	}

	h := &PreloadHandle{objectID: objectID, done: make(chan struct{})}
	p.handles[objectID] = h

	slots, ok := p.sets[objectID]
	if !ok {
		close(h.done)
		return h
	}

	go func() {
		defer close(h.done)
		desc := assets.Descriptor{
			Name:        objectID + "Textures",
			Type:        assets.TypeMultiTextureMaterial,
			SubTextures: slots,
		}
		item, ok := p.manager.LoadOne(ctx, desc)
		if !ok {
			h.err = errors.Errorf("texture set for %q did not load", objectID)
			core.LogWarn("%v", h.err)
			return
		}
		set, ok := item.Payload.(*assets.MaterialSet)
		if !ok {
			h.err = errors.Errorf("texture set for %q has payload %T", objectID, item.Payload)
			core.LogWarn("%v", h.err)
			return
		}
		h.set = set
	}()
	return h
}

// Handle returns the handle for an object identifier if a preload was
// requested.
func (p *Preloader) Handle(objectID string) (*PreloadHandle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.handles[objectID]
	return h, ok
}
