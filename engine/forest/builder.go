package forest

import (
	"context"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/sylvagraph/sylva/engine/assets"
	"github.com/sylvagraph/sylva/engine/config"
	"github.com/sylvagraph/sylva/engine/core"
	"github.com/sylvagraph/sylva/engine/optimize"
	"github.com/sylvagraph/sylva/engine/scene"
)

// Builder turns grouped placement records plus loaded template models into
// GPU-instanced meshes.
type Builder struct {
	cfg       config.Builder
	store     *assets.ItemStore
	optimizer *optimize.Optimizer
	preloader *Preloader
}

func NewBuilder(cfg config.Builder, store *assets.ItemStore, optimizer *optimize.Optimizer, preloader *Preloader) *Builder {
	return &Builder{
		cfg:       cfg,
		store:     store,
		optimizer: optimizer,
		preloader: preloader,
	}
}

// Build produces one instanced mesh for an object identifier. Nil is
// returned, and is not an error, when there is nothing to place or the
// template has no usable mesh.
func (b *Builder) Build(objectID string, model *scene.Model, records []PlacementRecord, textures *assets.MaterialSet) *scene.InstancedMesh {
	if len(records) == 0 {
		return nil
	}
	if model == nil || model.Scene == nil {
		core.LogWarn("no template model for %q, skipping %d placements", objectID, len(records))
		return nil
	}
	template := model.Scene.FindFirstMesh()
	if template == nil {
		core.LogWarn("template model for %q has no mesh, skipping %d placements", objectID, len(records))
		return nil
	}

	geo := b.optimizer.OptimizeForInstancing(objectID, template.Geometry, len(records))
	mat := instanceMaterial(objectID, template.Material, textures)
	if ov, ok := b.cfg.MaterialOverrides[objectID]; ok {
		applyOverride(mat, ov)
	}
	if mat.Texture(scene.SlotAO) != nil {
		geo.SynthesizeUV2()
	}

	im := scene.NewInstancedMesh(objectID, geo, mat, len(records))
	im.CastShadow = template.CastShadow
	im.ReceiveShadow = template.ReceiveShadow
	for i, r := range records {
		world := scene.ComposeTRS(
			mgl64.Vec3{r.X, r.Y, r.Z},
			mgl64.Vec3{r.RotationX, r.RotationY, r.RotationZ},
			mgl64.Vec3{r.ScaleX, r.ScaleY, r.ScaleZ},
		)
		im.SetMatrixAt(i, world)
	}
	// One upload for the whole batch, not one per instance.
	im.MarkDirty()
	return im
}

// instanceMaterial builds the single shared material for an object's
// instances: double-sided, alpha-tested, with every preloaded map attached
// and vertical flip disabled.
func instanceMaterial(objectID string, base *scene.Material, textures *assets.MaterialSet) *scene.Material {
	mat := scene.NewMaterial(objectID)
	if base != nil {
		mat.Type = base.Type
		mat.Color = base.Color
		mat.HasColor = base.HasColor
		mat.Roughness = base.Roughness
		mat.Metalness = base.Metalness
	}
	mat.DoubleSided = true
	mat.AlphaTest = 0.5

	if textures != nil {
		for slot, tex := range textures.Slots {
			tex.FlipY = false
			mat.SetTexture(slot, tex)
		}
	}
	return mat
}

// applyOverride layers configured material properties over the template's.
func applyOverride(mat *scene.Material, ov config.MaterialOverride) {
	if ov.Color != nil {
		mat.Color = *ov.Color
		mat.HasColor = true
	}
	if ov.Roughness != nil {
		mat.Roughness = *ov.Roughness
	}
	if ov.Metalness != nil {
		mat.Metalness = *ov.Metalness
	}
}

// BuildAll builds an instanced mesh per object identifier in the set.
// Template models are awaited with a bounded retry budget; an identifier
// whose model never appears is skipped and listed in the shortfall log, and
// building proceeds with whatever loaded.
func (b *Builder) BuildAll(ctx context.Context, set PlacementSet) []*scene.InstancedMesh {
	budget := time.Duration(b.cfg.RetryAttempts) * time.Duration(b.cfg.RetryBackoffMS) * time.Millisecond

	var (
		meshes  []*scene.InstancedMesh
		missing []string
	)
	for _, objectID := range orderedIDs(set) {
		records := set[objectID]
		if len(records) == 0 || objectID == ObjectUndefined {
			continue
		}

		waitCtx, cancel := context.WithTimeout(ctx, budget)
		item, err := b.store.WaitFor(waitCtx, objectID)
		cancel()
		if err != nil {
			missing = append(missing, objectID)
			continue
		}
		model, ok := item.Payload.(*scene.Model)
		if !ok {
			core.LogWarn("item %q is %T, not a model, skipping", objectID, item.Payload)
			missing = append(missing, objectID)
			continue
		}

		var textures *assets.MaterialSet
		if b.preloader != nil {
			if h, ok := b.preloader.Handle(objectID); ok {
				awaitCtx, cancel := context.WithTimeout(ctx, budget)
				textures, err = h.Await(awaitCtx)
				cancel()
				if err != nil {
					core.LogWarn("textures for %q unavailable: %v, building untextured", objectID, err)
				}
			}
		}

		if im := b.Build(objectID, model, records, textures); im != nil {
			meshes = append(meshes, im)
		}
	}
	if len(missing) > 0 {
		core.LogWarn("instancing proceeded without %d object(s): %v", len(missing), missing)
	}
	return meshes
}

// orderedIDs returns the set's object identifiers in a stable order:
// alphabetical, Undefined last.
func orderedIDs(set PlacementSet) []string {
	var ids []string
	for id := range set {
		if id == ObjectUndefined {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return append(ids, ObjectUndefined)
}
