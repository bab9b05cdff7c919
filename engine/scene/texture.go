package scene

// Texture wraps decoded pixel data with the sampling parameters the renderer
// needs. FlipY is kept explicit because GPU-instanced foliage materials rely
// on it being disabled.
type Texture struct {
	Name   string
	Width  int
	Height int

	// Pixels is tightly packed RGBA, four bytes per texel.
	Pixels []byte

	FlipY      bool
	Wrap       string
	ColorSpace string
}

// Wrap modes.
const (
	WrapRepeat = "repeat"
	WrapClamp  = "clamp"
)

// Color spaces.
const (
	ColorSpaceSRGB   = "srgb"
	ColorSpaceLinear = "linear"
)

// NewTexture returns a texture with repeat wrapping and sRGB interpretation,
// FlipY enabled to match decoded image orientation.
func NewTexture(name string, w, h int, pixels []byte) *Texture {
	return &Texture{
		Name:       name,
		Width:      w,
		Height:     h,
		Pixels:     pixels,
		FlipY:      true,
		Wrap:       WrapRepeat,
		ColorSpace: ColorSpaceSRGB,
	}
}

// EnvironmentMap holds high dynamic range equirectangular image data decoded
// from EXR or Radiance HDR files, three floats per texel.
type EnvironmentMap struct {
	Name     string
	Width    int
	Height   int
	Pixels   []float32
	Equirect bool
}
