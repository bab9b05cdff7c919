package loaders

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/sylvagraph/sylva/engine/assets"
	"github.com/sylvagraph/sylva/engine/scene"
)

// EnvironmentLoader decodes high dynamic range equirectangular images:
// Radiance RGBE (.hdr) and uncompressed scanline OpenEXR (.exr).
type EnvironmentLoader struct{}

func (l *EnvironmentLoader) Load(_ context.Context, data []byte, desc assets.Descriptor) (interface{}, error) {
	var (
		env *scene.EnvironmentMap
		err error
	)
	switch desc.Type {
	case assets.TypeEnvironmentHDR:
		env, err = decodeRadiance(data)
	case assets.TypeEnvironmentEXR:
		env, err = decodeEXR(data)
	default:
		return nil, errors.Errorf("unsupported environment type %q", desc.Type)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding environment %q", desc.Name)
	}
	env.Name = desc.Name
	env.Equirect = desc.Equirect
	return env, nil
}

// decodeRadiance reads the Radiance RGBE format, both flat and new-style RLE
// scanlines.
func decodeRadiance(data []byte) (*scene.EnvironmentMap, error) {
	r := bufio.NewReader(bytes.NewReader(data))

	magic, err := r.ReadString('\n')
	if err != nil {
		return nil, errors.Wrap(err, "reading magic")
	}
	if !strings.HasPrefix(magic, "#?RADIANCE") && !strings.HasPrefix(magic, "#?RGBE") {
		return nil, errors.New("not a radiance file")
	}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(err, "reading header")
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "FORMAT=") && line != "FORMAT=32-bit_rle_rgbe" {
			return nil, errors.Errorf("unsupported format %q", line)
		}
	}
	resLine, err := r.ReadString('\n')
	if err != nil {
		return nil, errors.Wrap(err, "reading resolution")
	}
	var height, width int
	if _, err := fmt.Sscanf(strings.TrimSpace(resLine), "-Y %d +X %d", &height, &width); err != nil {
		return nil, errors.Errorf("unsupported resolution line %q", strings.TrimSpace(resLine))
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("bad dimensions %dx%d", width, height)
	}

	pixels := make([]float32, width*height*3)
	scanline := make([]byte, width*4)
	for y := 0; y < height; y++ {
		if err := readRGBEScanline(r, scanline, width); err != nil {
			return nil, errors.Wrapf(err, "scanline %d", y)
		}
		for x := 0; x < width; x++ {
			rv, gv, bv := rgbeToFloat(scanline[x*4], scanline[x*4+1], scanline[x*4+2], scanline[x*4+3])
			o := (y*width + x) * 3
			pixels[o], pixels[o+1], pixels[o+2] = rv, gv, bv
		}
	}
	return &scene.EnvironmentMap{Width: width, Height: height, Pixels: pixels}, nil
}

func readRGBEScanline(r *bufio.Reader, out []byte, width int) error {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return err
	}
	// New-style RLE scanlines start with 2,2 and encode the width.
	if header[0] == 2 && header[1] == 2 && int(header[2])<<8|int(header[3]) == width {
		for c := 0; c < 4; c++ {
			x := 0
			for x < width {
				count, err := r.ReadByte()
				if err != nil {
					return err
				}
				if count > 128 {
					run := int(count) - 128
					v, err := r.ReadByte()
					if err != nil {
						return err
					}
					for i := 0; i < run && x < width; i++ {
						out[x*4+c] = v
						x++
					}
				} else {
					for i := 0; i < int(count) && x < width; i++ {
						v, err := r.ReadByte()
						if err != nil {
							return err
						}
						out[x*4+c] = v
						x++
					}
				}
			}
		}
		return nil
	}
	// Flat scanline: the four header bytes are the first pixel.
	copy(out[:4], header)
	_, err := io.ReadFull(r, out[4:width*4])
	return err
}

func rgbeToFloat(r, g, b, e byte) (float32, float32, float32) {
	if e == 0 {
		return 0, 0, 0
	}
	scale := math.Ldexp(1, int(e)-136)
	return float32(float64(r) * scale), float32(float64(g) * scale), float32(float64(b) * scale)
}

// exrChannel describes one channel from the chlist header attribute.
type exrChannel struct {
	name      string
	pixelType int32
}

const (
	exrTypeUint  = 0
	exrTypeHalf  = 1
	exrTypeFloat = 2
)

// decodeEXR reads single-part uncompressed scanline OpenEXR images with HALF
// or FLOAT channels. Compressed files are rejected; the caller's fallback
// policy handles them.
func decodeEXR(data []byte) (*scene.EnvironmentMap, error) {
	r := bytes.NewReader(data)

	var magic, version int32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, errors.Wrap(err, "reading magic")
	}
	if magic != 20000630 {
		return nil, errors.New("not an exr file")
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, errors.Wrap(err, "reading version")
	}
	if version&0x1e00 != 0 {
		return nil, errors.New("tiled, deep or multi-part exr not supported")
	}

	var (
		channels               []exrChannel
		compression            int32 = -1
		xMin, yMin, xMax, yMax int32
		haveWindow             bool
	)
	for {
		name, err := readCString(r)
		if err != nil {
			return nil, errors.Wrap(err, "reading attribute name")
		}
		if name == "" {
			break
		}
		attrType, err := readCString(r)
		if err != nil {
			return nil, errors.Wrap(err, "reading attribute type")
		}
		var size int32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, errors.Wrap(err, "reading attribute size")
		}
		value := make([]byte, size)
		if _, err := io.ReadFull(r, value); err != nil {
			return nil, errors.Wrap(err, "reading attribute value")
		}

		switch {
		case name == "channels" && attrType == "chlist":
			channels, err = parseChannelList(value)
			if err != nil {
				return nil, err
			}
		case name == "compression" && attrType == "compression":
			if len(value) < 1 {
				return nil, errors.New("empty compression attribute")
			}
			compression = int32(value[0])
		case name == "dataWindow" && attrType == "box2i":
			if len(value) < 16 {
				return nil, errors.New("short dataWindow attribute")
			}
			xMin = int32(binary.LittleEndian.Uint32(value[0:]))
			yMin = int32(binary.LittleEndian.Uint32(value[4:]))
			xMax = int32(binary.LittleEndian.Uint32(value[8:]))
			yMax = int32(binary.LittleEndian.Uint32(value[12:]))
			haveWindow = true
		}
	}

	if !haveWindow || len(channels) == 0 || compression < 0 {
		return nil, errors.New("missing required exr header attributes")
	}
	if compression != 0 {
		return nil, errors.Errorf("compression mode %d not supported, re-export uncompressed", compression)
	}

	width := int(xMax-xMin) + 1
	height := int(yMax-yMin) + 1
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("bad data window %dx%d", width, height)
	}

	// Skip the scanline offset table; blocks follow in order anyway.
	if _, err := r.Seek(int64(height)*8, io.SeekCurrent); err != nil {
		return nil, errors.Wrap(err, "skipping offset table")
	}

	pixels := make([]float32, width*height*3)
	for row := 0; row < height; row++ {
		var y, blockSize int32
		if err := binary.Read(r, binary.LittleEndian, &y); err != nil {
			return nil, errors.Wrapf(err, "scanline %d header", row)
		}
		if err := binary.Read(r, binary.LittleEndian, &blockSize); err != nil {
			return nil, errors.Wrapf(err, "scanline %d size", row)
		}
		block := make([]byte, blockSize)
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, errors.Wrapf(err, "scanline %d data", row)
		}
		if err := decodeEXRScanline(block, channels, width, int(y-yMin), pixels); err != nil {
			return nil, errors.Wrapf(err, "scanline %d", row)
		}
	}
	return &scene.EnvironmentMap{Width: width, Height: height, Pixels: pixels}, nil
}

func parseChannelList(value []byte) ([]exrChannel, error) {
	r := bytes.NewReader(value)
	var channels []exrChannel
	for {
		name, err := readCString(r)
		if err != nil {
			return nil, errors.Wrap(err, "reading channel name")
		}
		if name == "" {
			break
		}
		var pixelType int32
		if err := binary.Read(r, binary.LittleEndian, &pixelType); err != nil {
			return nil, errors.Wrap(err, "reading channel type")
		}
		// pLinear + reserved + x/y sampling.
		if _, err := r.Seek(12, io.SeekCurrent); err != nil {
			return nil, errors.Wrap(err, "skipping channel fields")
		}
		channels = append(channels, exrChannel{name: name, pixelType: pixelType})
	}
	// Channels are stored alphabetically within each scanline block.
	sort.Slice(channels, func(i, j int) bool { return channels[i].name < channels[j].name })
	return channels, nil
}

func decodeEXRScanline(block []byte, channels []exrChannel, width, y int, pixels []float32) error {
	offset := 0
	for _, ch := range channels {
		var chSize int
		switch ch.pixelType {
		case exrTypeHalf:
			chSize = 2
		case exrTypeFloat, exrTypeUint:
			chSize = 4
		default:
			return errors.Errorf("unknown pixel type %d", ch.pixelType)
		}
		end := offset + width*chSize
		if end > len(block) {
			return errors.New("scanline block shorter than channel data")
		}

		target := -1
		switch ch.name {
		case "R":
			target = 0
		case "G":
			target = 1
		case "B":
			target = 2
		}
		if target >= 0 {
			for x := 0; x < width; x++ {
				var v float32
				switch ch.pixelType {
				case exrTypeHalf:
					v = halfToFloat(binary.LittleEndian.Uint16(block[offset+x*2:]))
				case exrTypeFloat:
					v = math.Float32frombits(binary.LittleEndian.Uint32(block[offset+x*4:]))
				case exrTypeUint:
					v = float32(binary.LittleEndian.Uint32(block[offset+x*4:]))
				}
				pixels[(y*width+x)*3+target] = v
			}
		}
		offset = end
	}
	return nil
}

func readCString(r io.ByteReader) (string, error) {
	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return sb.String(), nil
		}
		sb.WriteByte(b)
	}
}

func halfToFloat(h uint16) float32 {
	sign := uint32(h>>15) & 1
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h) & 0x3ff

	var bits uint32
	switch {
	case exp == 0 && mant == 0:
		bits = sign << 31
	case exp == 0:
		// Subnormal half: normalize into a float32.
		e := uint32(127 - 15 + 1)
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		mant &= 0x3ff
		bits = sign<<31 | e<<23 | mant<<13
	case exp == 0x1f:
		bits = sign<<31 | 0xff<<23 | mant<<13
	default:
		bits = sign<<31 | (exp-15+127)<<23 | mant<<13
	}
	return math.Float32frombits(bits)
}
