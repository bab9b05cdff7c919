package forest

import (
	"github.com/sylvagraph/sylva/engine/assets"
	"github.com/sylvagraph/sylva/engine/core"
)

// ObjectUndefined is the category for instance nodes no template could be
// resolved for. It always has a slot in placement structures.
const ObjectUndefined = "Undefined"

// Template groups.
const (
	GroupRegular = "regular"
	GroupEnd     = "end"
	GroupScreen  = "screen"
)

// TemplateEntry maps one authoring-tool node name to a semantic object
// identifier. Multiple templates may share an ObjectID.
type TemplateEntry struct {
	TemplateName string
	ObjectID     string
	Path         string
	Priority     int
	UseTextures  bool
	Group        string
}

// TemplateCatalog holds the known templates in registration order plus the
// sparse instance-ID mapping the authoring tool exports.
type TemplateCatalog struct {
	entries []TemplateEntry
	byName  map[string]int
	idMap   map[int]string
}

// NewTemplateCatalog returns an empty catalog.
func NewTemplateCatalog() *TemplateCatalog {
	return &TemplateCatalog{
		byName: map[string]int{},
		idMap:  map[int]string{},
	}
}

// DefaultTemplateCatalog returns the catalog for the forest map as authored.
func DefaultTemplateCatalog() *TemplateCatalog {
	c := NewTemplateCatalog()
	c.AddTemplate(TemplateEntry{TemplateName: "Retopo_TRONC001", ObjectID: "TreeNaked", Path: "models/treeNaked.glb", Priority: 1, UseTextures: true, Group: GroupRegular})
	c.AddTemplate(TemplateEntry{TemplateName: "Retopo_GROS_TRONC001", ObjectID: "TrunkLarge", Path: "models/trunkLarge.glb", Priority: 2, UseTextures: true, Group: GroupRegular})
	c.AddTemplate(TemplateEntry{TemplateName: "Retopo_TRONC_FIN", ObjectID: "ThinTrunk", Path: "models/thinTrunk.glb", Priority: 3, UseTextures: true, Group: GroupRegular})
	c.AddTemplate(TemplateEntry{TemplateName: "Trunk", ObjectID: "TreeStump", Path: "models/treeStump.glb", Priority: 4, UseTextures: true, Group: GroupEnd})
	c.AddTemplate(TemplateEntry{TemplateName: "Plane003", ObjectID: "Bush", Path: "models/bush.glb", Priority: 5, UseTextures: false, Group: GroupRegular})
	c.AddTemplate(TemplateEntry{TemplateName: "Plane_7", ObjectID: "BranchEucalyptus", Path: "models/branchEucalyptus.glb", Priority: 6, UseTextures: true, Group: GroupScreen})

	c.AddIDMapping(753, "Retopo_TRONC001")
	c.AddIDMapping(1021, "Retopo_TRONC_FIN")
	c.AddIDMapping(1015, "Retopo_GROS_TRONC001")
	c.AddIDMapping(925, "Trunk")
	return c
}

// AddTemplate registers a template. Re-registering a name replaces the entry
// in place, keeping its original position in registration order.
func (c *TemplateCatalog) AddTemplate(e TemplateEntry) {
	if idx, ok := c.byName[e.TemplateName]; ok {
		c.entries[idx] = e
		return
	}
	c.byName[e.TemplateName] = len(c.entries)
	c.entries = append(c.entries, e)
}

// AddIDMapping binds an authoring-tool instance ID to a template name. The
// template must already be registered; unknown names are rejected with a
// warning so the map invariant holds.
func (c *TemplateCatalog) AddIDMapping(id int, templateName string) {
	if _, ok := c.byName[templateName]; !ok {
		core.LogWarn("id mapping %d refers to unknown template %q, ignored", id, templateName)
		return
	}
	c.idMap[id] = templateName
}

// Templates returns the entries in registration order.
func (c *TemplateCatalog) Templates() []TemplateEntry {
	out := make([]TemplateEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Entry looks a template up by name.
func (c *TemplateCatalog) Entry(templateName string) (TemplateEntry, bool) {
	idx, ok := c.byName[templateName]
	if !ok {
		return TemplateEntry{}, false
	}
	return c.entries[idx], true
}

// GetTemplateFromID resolves an authoring-tool instance ID to a template
// name. This path is authoritative: when it hits, no geometric matching runs.
func (c *TemplateCatalog) GetTemplateFromID(id int) (string, bool) {
	name, ok := c.idMap[id]
	return name, ok
}

// GetObjectTypeFromTemplate returns the semantic object identifier for a
// template name, or ObjectUndefined for unknown names.
func (c *TemplateCatalog) GetObjectTypeFromTemplate(templateName string) string {
	if e, ok := c.Entry(templateName); ok {
		return e.ObjectID
	}
	return ObjectUndefined
}

// DoesModelUseTextures reports whether the template's object should have the
// preloaded texture set applied.
func (c *TemplateCatalog) DoesModelUseTextures(templateName string) bool {
	e, ok := c.Entry(templateName)
	return ok && e.UseTextures
}

// ObjectIDs returns the distinct object identifiers in registration order,
// with ObjectUndefined appended last.
func (c *TemplateCatalog) ObjectIDs() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, e := range c.entries {
		if _, ok := seen[e.ObjectID]; ok {
			continue
		}
		seen[e.ObjectID] = struct{}{}
		out = append(out, e.ObjectID)
	}
	return append(out, ObjectUndefined)
}

// CreateEmptyPositionsStructure returns a slot per object identifier,
// including ObjectUndefined, each with an empty sequence.
func (c *TemplateCatalog) CreateEmptyPositionsStructure() map[string][]PlacementRecord {
	out := map[string][]PlacementRecord{}
	for _, id := range c.ObjectIDs() {
		out[id] = []PlacementRecord{}
	}
	return out
}

// GetRequiredAssets returns one model descriptor per template, named after
// the object identifier. Templates that share an ObjectID contribute a single
// descriptor; first registration wins.
func (c *TemplateCatalog) GetRequiredAssets() []assets.Descriptor {
	seen := map[string]struct{}{}
	var out []assets.Descriptor
	for _, e := range c.entries {
		if _, ok := seen[e.ObjectID]; ok {
			continue
		}
		seen[e.ObjectID] = struct{}{}
		out = append(out, assets.Descriptor{
			Name: e.ObjectID,
			Type: assets.TypeGLTFModel,
			Path: e.Path,
		})
	}
	return out
}
