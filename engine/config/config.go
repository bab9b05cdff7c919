package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// TriangleBand maps a triangle-count ceiling to the fraction of triangles to
// KEEP when decimating. Bands are a tuning policy, not a correctness contract;
// ratios must be monotonically non-increasing as triangle counts grow.
type TriangleBand struct {
	MaxTriangles int     `toml:"max_triangles"`
	KeepRatio    float64 `toml:"keep_ratio"`
}

// InstanceBand is the aggressive variant keyed on instance count, used before
// building GPU-instanced meshes where per-instance cost multiplies.
type InstanceBand struct {
	MaxInstances int     `toml:"max_instances"`
	KeepRatio    float64 `toml:"keep_ratio"`
}

type Decimation struct {
	// Meshes at or below this triangle count are never touched.
	MinTriangles  int            `toml:"min_triangles"`
	TriangleBands []TriangleBand `toml:"triangle_bands"`
	InstanceBands []InstanceBand `toml:"instance_bands"`
	// Meshes whose bounding sphere is smaller than this stop casting and
	// receiving shadows.
	ShadowRadiusCutoff float64 `toml:"shadow_radius_cutoff"`
}

// Matcher holds the weights of the geometric-fingerprint similarity score and
// the score ceiling above which an instance is classified as Undefined.
type Matcher struct {
	WeightVertex   float64 `toml:"weight_vertex"`
	WeightFace     float64 `toml:"weight_face"`
	WeightMesh     float64 `toml:"weight_mesh"`
	WeightMaterial float64 `toml:"weight_material"`
	WeightVolume   float64 `toml:"weight_volume"`
	WeightAspect   float64 `toml:"weight_aspect"`
	Threshold      float64 `toml:"threshold"`
}

type Assets struct {
	BaseDir    string  `toml:"base_dir"`
	BaseURL    string  `toml:"base_url"`
	Workers    int     `toml:"workers"`
	TextureLOD string  `toml:"texture_lod"`
	LODHigh    float64 `toml:"lod_high"`
	LODMedium  float64 `toml:"lod_medium"`
	LODLow     float64 `toml:"lod_low"`
}

// MaterialOverride adjusts the shared instancing material of one object.
// Nil fields leave the template's value in place.
type MaterialOverride struct {
	Color     *uint32  `toml:"color"`
	Roughness *float64 `toml:"roughness"`
	Metalness *float64 `toml:"metalness"`
}

type Builder struct {
	RetryAttempts  int `toml:"retry_attempts"`
	RetryBackoffMS int `toml:"retry_backoff_ms"`
	// Keyed by object identifier.
	MaterialOverrides map[string]MaterialOverride `toml:"material_overrides"`
}

type Placements struct {
	// Probed in order; the first location answering with parseable JSON wins.
	Candidates []string `toml:"candidates"`
	OutputPath string   `toml:"output_path"`
}

type Web struct {
	Addr    string `toml:"addr"`
	DataDir string `toml:"data_dir"`
}

type Config struct {
	Assets     Assets     `toml:"assets"`
	Decimation Decimation `toml:"decimation"`
	Matcher    Matcher    `toml:"matcher"`
	Builder    Builder    `toml:"builder"`
	Placements Placements `toml:"placements"`
	Web        Web        `toml:"web"`
}

func Default() *Config {
	return &Config{
		Assets: Assets{
			BaseDir:    "assets",
			Workers:    4,
			TextureLOD: "medium",
			LODHigh:    1.0,
			LODMedium:  0.5,
			LODLow:     0.25,
		},
		Decimation: Decimation{
			MinTriangles: 100,
			TriangleBands: []TriangleBand{
				{MaxTriangles: 1000, KeepRatio: 0.8},
				{MaxTriangles: 5000, KeepRatio: 0.6},
				{MaxTriangles: 20000, KeepRatio: 0.4},
				{MaxTriangles: 50000, KeepRatio: 0.3},
				{MaxTriangles: 0, KeepRatio: 0.2},
			},
			InstanceBands: []InstanceBand{
				{MaxInstances: 10, KeepRatio: 0.8},
				{MaxInstances: 50, KeepRatio: 0.5},
				{MaxInstances: 200, KeepRatio: 0.35},
				{MaxInstances: 0, KeepRatio: 0.25},
			},
			ShadowRadiusCutoff: 0.5,
		},
		Matcher: Matcher{
			WeightVertex:   1.5,
			WeightFace:     1.5,
			WeightMesh:     1.5,
			WeightMaterial: 1.0,
			WeightVolume:   0.8,
			WeightAspect:   0.5,
			Threshold:      0.3,
		},
		Builder: Builder{
			RetryAttempts:  20,
			RetryBackoffMS: 100,
		},
		Placements: Placements{
			Candidates: []string{
				"./data/treePositions.json",
				"/data/treePositions.json",
				"../data/treePositions.json",
				"treePositions.json",
			},
			OutputPath: "data/treePositions.json",
		},
		Web: Web{
			Addr:    ":8027",
			DataDir: "data",
		},
	}
}

// Load reads a TOML config file, filling unset fields from Default. A missing
// file is not an error; the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "read config %q", path)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %q", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validateKeepRatios(triangleRatios(c.Decimation.TriangleBands)); err != nil {
		return errors.Wrap(err, "decimation triangle bands")
	}
	if err := validateKeepRatios(instanceRatios(c.Decimation.InstanceBands)); err != nil {
		return errors.Wrap(err, "decimation instance bands")
	}
	if c.Matcher.Threshold <= 0 {
		return errors.New("matcher threshold must be positive")
	}
	if c.Assets.Workers <= 0 {
		return errors.New("assets workers must be positive")
	}
	return nil
}

// RatioForTriangles returns the keep ratio of the first band whose ceiling
// covers the triangle count. A zero ceiling marks the open-ended last band.
func (d Decimation) RatioForTriangles(triangles int) float64 {
	for _, b := range d.TriangleBands {
		if b.MaxTriangles == 0 || triangles <= b.MaxTriangles {
			return b.KeepRatio
		}
	}
	return 1
}

// RatioForInstances is the aggressive variant keyed on instance count. Bands
// use an exclusive ceiling so "fewer than 10 instances" reads naturally.
func (d Decimation) RatioForInstances(instances int) float64 {
	for _, b := range d.InstanceBands {
		if b.MaxInstances == 0 || instances < b.MaxInstances {
			return b.KeepRatio
		}
	}
	return 1
}

func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Builder.RetryBackoffMS) * time.Millisecond
}

// LODScale resolves the configured texture level of detail to a resolution
// scale factor.
func (c *Config) LODScale() float64 {
	switch c.Assets.TextureLOD {
	case "high":
		return c.Assets.LODHigh
	case "low":
		return c.Assets.LODLow
	default:
		return c.Assets.LODMedium
	}
}

func triangleRatios(bands []TriangleBand) []float64 {
	rs := make([]float64, len(bands))
	for i, b := range bands {
		rs[i] = b.KeepRatio
	}
	return rs
}

func instanceRatios(bands []InstanceBand) []float64 {
	rs := make([]float64, len(bands))
	for i, b := range bands {
		rs[i] = b.KeepRatio
	}
	return rs
}

func validateKeepRatios(ratios []float64) error {
	for i, r := range ratios {
		if r <= 0 || r > 1 {
			return errors.Errorf("keep ratio %v out of range (0,1]", r)
		}
		if i > 0 && r > ratios[i-1] {
			return errors.New("keep ratios must be monotonically non-increasing")
		}
	}
	return nil
}
