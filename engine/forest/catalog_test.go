package forest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIDMappings(t *testing.T) {
	c := DefaultTemplateCatalog()

	tests := []struct {
		id       int
		template string
		objectID string
	}{
		{753, "Retopo_TRONC001", "TreeNaked"},
		{1021, "Retopo_TRONC_FIN", "ThinTrunk"},
		{1015, "Retopo_GROS_TRONC001", "TrunkLarge"},
		{925, "Trunk", "TreeStump"},
	}
	for _, test := range tests {
		name, ok := c.GetTemplateFromID(test.id)
		require.True(t, ok, "id=%d", test.id)
		assert.Equal(t, test.template, name)
		assert.Equal(t, test.objectID, c.GetObjectTypeFromTemplate(name))
	}

	_, ok := c.GetTemplateFromID(99999)
	assert.False(t, ok)
}

func TestCatalogUnknownTemplateIsUndefined(t *testing.T) {
	c := DefaultTemplateCatalog()
	assert.Equal(t, ObjectUndefined, c.GetObjectTypeFromTemplate("NoSuchTemplate"))
}

func TestCatalogUseTextures(t *testing.T) {
	c := DefaultTemplateCatalog()
	assert.True(t, c.DoesModelUseTextures("Retopo_TRONC001"))
	assert.False(t, c.DoesModelUseTextures("Plane003"))
	assert.False(t, c.DoesModelUseTextures("NoSuchTemplate"))
}

func TestCatalogEmptyPositionsStructure(t *testing.T) {
	c := DefaultTemplateCatalog()
	s := c.CreateEmptyPositionsStructure()

	for _, id := range []string{"TreeNaked", "TrunkLarge", "ThinTrunk", "TreeStump", "Bush", "BranchEucalyptus", ObjectUndefined} {
		records, ok := s[id]
		assert.True(t, ok, id)
		assert.Empty(t, records, id)
	}
}

func TestCatalogIDMappingRequiresKnownTemplate(t *testing.T) {
	c := NewTemplateCatalog()
	c.AddIDMapping(1, "Ghost")
	_, ok := c.GetTemplateFromID(1)
	assert.False(t, ok)
}

func TestCatalogRequiredAssetsDedupedByObjectID(t *testing.T) {
	c := NewTemplateCatalog()
	c.AddTemplate(TemplateEntry{TemplateName: "A", ObjectID: "Tree", Path: "models/a.glb"})
	c.AddTemplate(TemplateEntry{TemplateName: "B", ObjectID: "Tree", Path: "models/b.glb"})
	c.AddTemplate(TemplateEntry{TemplateName: "C", ObjectID: "Bush", Path: "models/c.glb"})

	required := c.GetRequiredAssets()
	require.Len(t, required, 2)
	assert.Equal(t, "Tree", required[0].Name)
	assert.Equal(t, "models/a.glb", required[0].Path)
	assert.Equal(t, "Bush", required[1].Name)
}
