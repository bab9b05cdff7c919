package loaders

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylvagraph/sylva/engine/assets"
	"github.com/sylvagraph/sylva/engine/scene"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTextureLoaderFullResolution(t *testing.T) {
	l := &TextureLoader{Scale: 1}

	payload, err := l.Load(context.Background(), encodePNG(t, 16, 8), assets.Descriptor{Name: "barkColor", Type: assets.TypeTexture})
	require.NoError(t, err)

	tex := payload.(*scene.Texture)
	assert.Equal(t, 16, tex.Width)
	assert.Equal(t, 8, tex.Height)
	assert.Len(t, tex.Pixels, 16*8*4)
	assert.True(t, tex.FlipY)
	assert.Equal(t, scene.ColorSpaceSRGB, tex.ColorSpace)
}

func TestTextureLoaderDownscales(t *testing.T) {
	l := &TextureLoader{Scale: 0.5}

	payload, err := l.Load(context.Background(), encodePNG(t, 16, 8), assets.Descriptor{Name: "barkColor", Type: assets.TypeTexture})
	require.NoError(t, err)

	tex := payload.(*scene.Texture)
	assert.Equal(t, 8, tex.Width)
	assert.Equal(t, 4, tex.Height)
}

func TestTextureLoaderDataMapsAreLinear(t *testing.T) {
	l := &TextureLoader{Scale: 1}

	payload, err := l.Load(context.Background(), encodePNG(t, 4, 4), assets.Descriptor{Name: "barkNormal", Type: assets.TypeTexture})
	require.NoError(t, err)

	tex := payload.(*scene.Texture)
	assert.Equal(t, scene.ColorSpaceLinear, tex.ColorSpace)
}

func TestTextureLoaderRejectsGarbage(t *testing.T) {
	l := &TextureLoader{Scale: 1}
	_, err := l.Load(context.Background(), []byte("not an image"), assets.Descriptor{Name: "bad"})
	assert.Error(t, err)
}
