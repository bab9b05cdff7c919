package forest

import (
	"context"
	"regexp"
	"strconv"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/sylvagraph/sylva/engine/config"
	"github.com/sylvagraph/sylva/engine/core"
	"github.com/sylvagraph/sylva/engine/scene"
)

// instancePattern recognizes procedurally generated instance nodes by their
// authoring-tool name, which carries a trailing integer ID.
var instancePattern = regexp.MustCompile(`^GN_Instance_(\d+)$`)

// ExtractStats summarizes one analysis pass.
type ExtractStats struct {
	Instances  int
	ByID       int
	ByScore    int
	Undefined  int
	References int
}

// Extractor walks an authored map, resolves every generated instance node to
// a semantic object identifier, and emits its world transform as a placement
// record. Resolution prefers the authoritative instance-ID mapping and falls
// back to geometric-fingerprint scoring.
type Extractor struct {
	catalog    *TemplateCatalog
	matcherCfg config.Matcher
	bus        *core.Bus
	preloader  *Preloader

	mu      sync.Mutex
	lastSet PlacementSet
	done    bool
}

func NewExtractor(catalog *TemplateCatalog, matcherCfg config.Matcher, bus *core.Bus, preloader *Preloader) *Extractor {
	return &Extractor{
		catalog:    catalog,
		matcherCfg: matcherCfg,
		bus:        bus,
		preloader:  preloader,
	}
}

// Extract analyzes the map once per extractor lifetime. A second call
// returns the first call's placements without re-emitting signals, guarding
// against duplicate analysis runs.
func (e *Extractor) Extract(ctx context.Context, mapRoot *scene.Node) (PlacementSet, ExtractStats) {
	e.mu.Lock()
	if e.done {
		set := e.lastSet
		e.mu.Unlock()
		core.LogDebug("map already analyzed, returning previous placements")
		return set, ExtractStats{}
	}
	e.done = true
	e.mu.Unlock()

	matcher := e.buildReferences(mapRoot)
	set, stats := e.resolveInstances(ctx, mapRoot, matcher)
	stats.References = matcher.ReferenceCount()

	e.mu.Lock()
	e.lastSet = set
	e.mu.Unlock()

	core.LogInfo("map analysis: %d instances (%d by id, %d by score, %d undefined), %d reference templates",
		stats.Instances, stats.ByID, stats.ByScore, stats.Undefined, stats.References)
	e.bus.Trigger(core.SignalTreePositionsReady, set)
	return set, stats
}

// buildReferences is the first pass: nodes whose name exactly matches a
// known template register their fingerprint as that template's reference.
// This pass fully completes before any instance is scored.
func (e *Extractor) buildReferences(mapRoot *scene.Node) *Matcher {
	matcher := NewMatcher(e.matcherCfg)
	registered := map[string]struct{}{}
	mapRoot.Walk(func(n *scene.Node, _ mgl64.Mat4) bool {
		if _, ok := e.catalog.Entry(n.Name); !ok {
			return true
		}
		if _, dup := registered[n.Name]; dup {
			return true
		}
		registered[n.Name] = struct{}{}
		matcher.Register(n.Name, FingerprintOf(n))
		return true
	})
	if matcher.ReferenceCount() == 0 {
		core.LogWarn("map contains no recognizable template nodes, all unmapped instances will be undefined")
	}
	return matcher
}

// resolveInstances is the second pass. Duplicate instance names are not
// deduplicated; every qualifying node produces its own record.
func (e *Extractor) resolveInstances(ctx context.Context, mapRoot *scene.Node, matcher *Matcher) (PlacementSet, ExtractStats) {
	set := PlacementSet(e.catalog.CreateEmptyPositionsStructure())
	var stats ExtractStats

	mapRoot.Walk(func(n *scene.Node, world mgl64.Mat4) bool {
		groups := instancePattern.FindStringSubmatch(n.Name)
		if groups == nil {
			return true
		}
		id, err := strconv.Atoi(groups[1])
		if err != nil {
			return true
		}
		stats.Instances++

		templateName, how := e.resolveTemplate(id, n, matcher)
		switch how {
		case resolvedByID:
			stats.ByID++
		case resolvedByScore:
			stats.ByScore++
		default:
			stats.Undefined++
		}

		objectID := ObjectUndefined
		if templateName != "" {
			objectID = e.catalog.GetObjectTypeFromTemplate(templateName)
			if e.preloader != nil && e.catalog.DoesModelUseTextures(templateName) {
				e.preloader.Preload(ctx, objectID)
			}
		}
		set.Add(objectID, recordFromWorld(world))
		return true
	})
	return set, stats
}

type resolution int

const (
	resolvedUndefined resolution = iota
	resolvedByID
	resolvedByScore
)

func (e *Extractor) resolveTemplate(id int, n *scene.Node, matcher *Matcher) (string, resolution) {
	if name, ok := e.catalog.GetTemplateFromID(id); ok {
		return name, resolvedByID
	}
	if name, _, ok := matcher.Match(FingerprintOf(n)); ok {
		return name, resolvedByScore
	}
	return "", resolvedUndefined
}

func recordFromWorld(world mgl64.Mat4) PlacementRecord {
	pos, rot, scale := scene.Decompose(world)
	rx, ry, rz := scene.EulerXYZ(rot)
	return PlacementRecord{
		X: pos.X(), Y: pos.Y(), Z: pos.Z(),
		RotationX: rx, RotationY: ry, RotationZ: rz,
		ScaleX: scale.X(), ScaleY: scale.Y(), ScaleZ: scale.Z(),
	}
}
