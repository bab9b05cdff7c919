package loaders

import (
	"bytes"
	"context"
	"image"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/sylvagraph/sylva/engine/assets"
	"github.com/sylvagraph/sylva/engine/scene"
)

// TextureLoader decodes PNG and JPEG images. Scale applies the configured
// level-of-detail downscale; 1 keeps the source resolution.
type TextureLoader struct {
	Scale float64
}

func (l *TextureLoader) Load(_ context.Context, data []byte, desc assets.Descriptor) (interface{}, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding image %q", desc.Name)
	}

	scale := l.Scale
	if scale <= 0 || scale > 1 {
		scale = 1
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if scale < 1 {
		if sw := int(float64(w) * scale); sw >= 1 {
			w = sw
		}
		if sh := int(float64(h) * scale); sh >= 1 {
			h = sh
		}
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(rgba, rgba.Bounds(), img, b, draw.Over, nil)

	tex := scene.NewTexture(desc.Name, w, h, rgba.Pix)
	if isDataMap(desc.Name) {
		tex.ColorSpace = scene.ColorSpaceLinear
	}
	return tex, nil
}

// isDataMap guesses whether a texture holds non-color data (normals,
// roughness and the like) that must not be sRGB-decoded.
func isDataMap(name string) bool {
	n := strings.ToLower(name)
	for _, kind := range []string{"normal", "roughness", "metalness", "ao", "occlusion", "alpha", "opacity"} {
		if strings.Contains(n, kind) {
			return true
		}
	}
	return false
}
