package scene

import "fmt"

// Material types mirror the shading models the renderer distinguishes.
const (
	MaterialStandard = "standard"
	MaterialPhysical = "physical"
	MaterialBasic    = "basic"
	MaterialLambert  = "lambert"
)

// Texture slot names used by material texture maps.
const (
	SlotColor     = "map"
	SlotNormal    = "normalMap"
	SlotRoughness = "roughnessMap"
	SlotMetalness = "metalnessMap"
	SlotAO        = "aoMap"
	SlotAlpha     = "alphaMap"
	SlotEmissive  = "emissiveMap"
	SlotEnv       = "envMap"
)

// Material is a renderer-agnostic surface description. Texture slots map a
// slot name to a texture; absent slots stay nil.
type Material struct {
	Name string
	Type string

	// Color is a packed 0xRRGGBB value; HasColor distinguishes black from
	// unset.
	Color    uint32
	HasColor bool

	Roughness       float64
	Metalness       float64
	Opacity         float64
	EnvMapIntensity float64

	Transparent bool
	DoubleSided bool
	AlphaTest   float64

	CastShadow    bool
	ReceiveShadow bool

	Textures map[string]*Texture
}

// NewMaterial returns a standard material with opaque defaults.
func NewMaterial(name string) *Material {
	return &Material{
		Name:      name,
		Type:      MaterialStandard,
		Opacity:   1,
		Roughness: 1,
		Textures:  map[string]*Texture{},
	}
}

// SetTexture assigns a texture to a slot, allocating the slot map when the
// material was built without one.
func (m *Material) SetTexture(slot string, t *Texture) {
	if m.Textures == nil {
		m.Textures = map[string]*Texture{}
	}
	m.Textures[slot] = t
}

func (m *Material) Texture(slot string) *Texture {
	return m.Textures[slot]
}

// SignatureKey identifies materials that are interchangeable for sharing:
// same shading model and same base color.
func (m *Material) SignatureKey() string {
	if !m.HasColor {
		return m.Type + "_nocolor"
	}
	return fmt.Sprintf("%s_%06x", m.Type, m.Color)
}
