package assets

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/sylvagraph/sylva/engine/core"
	"github.com/sylvagraph/sylva/engine/scene"
)

// Loader decodes one asset type from raw bytes. Implementations must be safe
// for concurrent use.
type Loader interface {
	Load(ctx context.Context, data []byte, desc Descriptor) (interface{}, error)
}

// MaterialSet is the payload of a multi-texture material descriptor. Slots
// that failed to load are listed in Missing instead.
type MaterialSet struct {
	Name    string
	Slots   map[string]*scene.Texture
	Missing []string
}

// Progress is the payload of every per-item load signal.
type Progress struct {
	Name   string
	Loaded int
	Total  int
}

// Report summarizes one LoadAll run.
type Report struct {
	Loaded    int
	Reused    int
	Cloned    int
	Fallbacks int
	Missing   []string
}

// Manager routes registry descriptors to type-specific loaders with
// name-level and path-level deduplication, same-type fallback on failure,
// and a single aggregate completion signal per run.
type Manager struct {
	store   *ItemStore
	cache   *Cache
	bus     *core.Bus
	source  Source
	workers int

	mu      sync.Mutex
	loaders map[string]Loader
}

// NewManager wires a manager to its collaborators. Loaders for the concrete
// asset types are registered by the caller (RegisterDefaultLoaders for the
// stock set).
func NewManager(store *ItemStore, cache *Cache, bus *core.Bus, source Source, workers int) *Manager {
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		store:   store,
		cache:   cache,
		bus:     bus,
		source:  source,
		workers: workers,
		loaders: map[string]Loader{},
	}
}

// RegisterLoader binds a loader to an asset type, replacing any previous
// binding.
func (m *Manager) RegisterLoader(assetType string, loader Loader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaders[assetType] = loader
}

func (m *Manager) loader(assetType string) (Loader, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loaders[assetType]
	return l, ok
}

// Store returns the item store the manager writes to.
func (m *Manager) Store() *ItemStore {
	return m.store
}

// LoadAll resolves every descriptor: loading, reusing, cloning for duplicate
// paths, or substituting a same-type fallback on failure. A per-item signal
// fires as each descriptor resolves and the aggregate ready signal fires
// exactly once, after the last one. A missing asset is never fatal.
func (m *Manager) LoadAll(ctx context.Context, descriptors []Descriptor) Report {
	var (
		report    Report
		resolved  int
		resolveMu sync.Mutex
	)

	total := 0
	announce := func(name string) {
		resolveMu.Lock()
		resolved++
		p := Progress{Name: name, Loaded: resolved, Total: total}
		resolveMu.Unlock()
		m.bus.Trigger(core.SignalAssetLoaded, p)
	}

	var (
		jobs      []Descriptor
		followers = map[string][]Descriptor{}
		seenName  = map[string]struct{}{}
		seenPath  = map[string]string{}
		reused    []string
	)
	for _, d := range descriptors {
		if _, ok := seenName[d.Name]; ok {
			core.LogDebug("descriptor %q repeated, first occurrence wins", d.Name)
			continue
		}
		seenName[d.Name] = struct{}{}

		if m.store.Has(d.Name) {
			report.Reused++
			reused = append(reused, d.Name)
			continue
		}
		if cached, ok := m.cache.Get(d.Name); ok {
			m.store.Set(cached)
			report.Reused++
			reused = append(reused, d.Name)
			continue
		}
		if d.Type != TypeMultiTextureMaterial && d.Path != "" {
			if primary, ok := seenPath[d.Path]; ok {
				followers[primary] = append(followers[primary], d)
				continue
			}
			seenPath[d.Path] = d.Name
		}
		jobs = append(jobs, d)
	}

	total = len(reused) + len(jobs)
	for _, f := range followers {
		total += len(f)
	}

	for _, name := range reused {
		announce(name)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, m.workers)
	for _, d := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(d Descriptor) {
			defer wg.Done()
			defer func() { <-sem }()
			m.loadOne(ctx, d, &report, &resolveMu)
			announce(d.Name)
		}(d)
	}
	wg.Wait()

	// Names that shared a path resolve against their primary's payload:
	// scene-graph types get an independent deep clone, flat payloads are
	// shared.
	for primary, list := range followers {
		item, ok := m.store.Get(primary)
		for _, d := range list {
			if !ok {
				m.fallback(d, &report, &resolveMu)
				announce(d.Name)
				continue
			}
			payload, err := clonePayload(d.Type, item.Payload)
			if err != nil {
				core.LogWarn("cloning %q for %q: %v", primary, d.Name, err)
				m.fallback(d, &report, &resolveMu)
				announce(d.Name)
				continue
			}
			resolveMu.Lock()
			report.Cloned++
			resolveMu.Unlock()
			m.finish(Item{Name: d.Name, Type: d.Type, Payload: payload})
			announce(d.Name)
		}
	}

	m.bus.Trigger(core.SignalReady, report)
	return report
}

// LoadOne resolves a single descriptor outside a LoadAll run. The per-item
// signal fires on resolution but no aggregate ready signal does. Used by
// on-demand loads such as texture preloading during map analysis.
func (m *Manager) LoadOne(ctx context.Context, d Descriptor) (Item, bool) {
	if item, ok := m.store.Get(d.Name); ok {
		return item, true
	}
	if cached, ok := m.cache.Get(d.Name); ok {
		m.store.Set(cached)
		return cached, true
	}
	var (
		report Report
		mu     sync.Mutex
	)
	m.loadOne(ctx, d, &report, &mu)
	item, ok := m.store.Get(d.Name)
	if ok {
		m.bus.Trigger(core.SignalAssetLoaded, Progress{Name: d.Name})
	}
	return item, ok
}

// Reload re-fetches and re-decodes a descriptor whose backing file changed,
// replacing the stored and cached item. Any failure keeps the previous item
// in place. No fallback substitution runs on this path.
func (m *Manager) Reload(ctx context.Context, d Descriptor) bool {
	loader, ok := m.loader(d.Type)
	if !ok {
		core.LogWarn("no loader for asset type %q (%s)", d.Type, d.Name)
		return false
	}
	data, err := m.source.Fetch(ctx, d.Path)
	if err != nil {
		core.LogWarn("reloading %q: %v", d.Name, err)
		return false
	}
	payload, err := loader.Load(ctx, data, d)
	if err != nil {
		core.LogWarn("re-decoding %q: %v", d.Name, err)
		return false
	}
	item := Item{Name: d.Name, Type: d.Type, Payload: payload}
	m.store.Replace(item)
	m.cache.Replace(item)
	m.bus.Trigger(core.SignalAssetLoaded, Progress{Name: d.Name})
	core.LogInfo("reloaded %q from %s", d.Name, d.Path)
	return true
}

func (m *Manager) loadOne(ctx context.Context, d Descriptor, report *Report, mu *sync.Mutex) {
	if d.Type == TypeMultiTextureMaterial {
		m.loadMaterial(ctx, d, report, mu)
		return
	}

	loader, ok := m.loader(d.Type)
	if !ok {
		core.LogWarn("no loader for asset type %q (%s)", d.Type, d.Name)
		m.fallback(d, report, mu)
		return
	}
	data, err := m.source.Fetch(ctx, d.Path)
	if err != nil {
		core.LogWarn("loading %q: %v", d.Name, err)
		m.fallback(d, report, mu)
		return
	}
	payload, err := loader.Load(ctx, data, d)
	if err != nil {
		core.LogWarn("decoding %q: %v", d.Name, err)
		m.fallback(d, report, mu)
		return
	}
	mu.Lock()
	report.Loaded++
	mu.Unlock()
	m.finish(Item{Name: d.Name, Type: d.Type, Payload: payload})
}

// loadMaterial fans one descriptor out into a load per sub-texture and joins
// on all of them. The set is complete once every slot has either a texture or
// an entry in Missing.
func (m *Manager) loadMaterial(ctx context.Context, d Descriptor, report *Report, mu *sync.Mutex) {
	loader, ok := m.loader(TypeTexture)
	if !ok {
		core.LogWarn("no texture loader registered, material %q unfilled", d.Name)
		m.fallback(d, report, mu)
		return
	}

	set := &MaterialSet{Name: d.Name, Slots: map[string]*scene.Texture{}}
	var (
		wg    sync.WaitGroup
		setMu sync.Mutex
	)
	for slot, path := range d.SubTextures {
		wg.Add(1)
		go func(slot, path string) {
			defer wg.Done()
			tex, err := m.loadSlotTexture(ctx, loader, d, slot, path)
			setMu.Lock()
			defer setMu.Unlock()
			if err != nil {
				core.LogWarn("material %q slot %q: %v", d.Name, slot, err)
				set.Missing = append(set.Missing, slot)
				return
			}
			set.Slots[slot] = tex
		}(slot, path)
	}
	wg.Wait()

	mu.Lock()
	report.Loaded++
	mu.Unlock()
	m.finish(Item{Name: d.Name, Type: d.Type, Payload: set})
}

func (m *Manager) loadSlotTexture(ctx context.Context, loader Loader, d Descriptor, slot, path string) (*scene.Texture, error) {
	data, err := m.source.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	payload, err := loader.Load(ctx, data, Descriptor{Name: d.Name + ":" + slot, Type: TypeTexture, Path: path})
	if err != nil {
		return nil, err
	}
	tex, ok := payload.(*scene.Texture)
	if !ok {
		return nil, errors.Errorf("texture loader returned %T", payload)
	}
	return tex, nil
}

// fallback substitutes the earliest loaded asset of the same type. With no
// candidate the slot stays unfilled, which downstream stages tolerate.
func (m *Manager) fallback(d Descriptor, report *Report, mu *sync.Mutex) {
	sub, ok := m.store.FirstOfType(d.Type)
	if !ok {
		core.LogWarn("no fallback of type %q for %q, slot unfilled", d.Type, d.Name)
		mu.Lock()
		report.Missing = append(report.Missing, d.Name)
		mu.Unlock()
		return
	}
	core.LogWarn("substituting %q for failed asset %q", sub.Name, d.Name)
	mu.Lock()
	report.Fallbacks++
	mu.Unlock()
	m.finish(Item{Name: d.Name, Type: d.Type, Payload: sub.Payload})
}

func (m *Manager) finish(item Item) {
	m.store.Set(item)
	m.cache.Put(item)
}

// clonePayload duplicates a payload for a name that shares another name's
// path. Scene-graph payloads are deep-cloned so the two copies can be mutated
// independently; textures and materials are shared.
func clonePayload(assetType string, payload interface{}) (interface{}, error) {
	switch assetType {
	case TypeGLTFModel, TypeRiggedModel:
		model, ok := payload.(*scene.Model)
		if !ok {
			return nil, errors.Errorf("expected model payload, got %T", payload)
		}
		out := &scene.Model{Animations: model.Animations}
		if model.Scene != nil {
			root, err := model.Scene.Clone()
			if err != nil {
				return nil, errors.Wrap(err, "deep-cloning model")
			}
			out.Scene = root
		}
		return out, nil
	default:
		return payload, nil
	}
}
