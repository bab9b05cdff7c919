package loaders

import (
	"github.com/sylvagraph/sylva/engine/assets"
)

// RegisterDefaults binds the stock loaders for every concrete asset type.
// The multi-texture material type needs no loader of its own: the manager
// fans it out over the texture loader.
func RegisterDefaults(m *assets.Manager, textureScale float64) {
	m.RegisterLoader(assets.TypeTexture, &TextureLoader{Scale: textureScale})
	m.RegisterLoader(assets.TypeEnvironmentEXR, &EnvironmentLoader{})
	m.RegisterLoader(assets.TypeEnvironmentHDR, &EnvironmentLoader{})
	m.RegisterLoader(assets.TypeGLTFModel, &ModelLoader{})
	m.RegisterLoader(assets.TypeRiggedModel, &ModelLoader{})
}

// MaterialDescriptor builds a multi-texture material descriptor from a slot
// to path mapping.
func MaterialDescriptor(name string, slots map[string]string) assets.Descriptor {
	return assets.Descriptor{
		Name:        name,
		Type:        assets.TypeMultiTextureMaterial,
		SubTextures: slots,
	}
}
