// Package config handles generator configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/rally/pkg/heightfield"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Config holds all level generation settings.
type Config struct {
	// Seed feeds the single random source used for the whole level.
	Seed     int64          `yaml:"seed"`
	Terrain  TerrainConfig  `yaml:"terrain"`
	Track    TrackConfig    `yaml:"track"`
	NavMesh  NavMeshConfig  `yaml:"navmesh"`
	Finalize FinalizeConfig `yaml:"finalize"`
	Scenery  SceneryConfig  `yaml:"scenery"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// TerrainConfig holds height field generation settings.
type TerrainConfig struct {
	Size                int     `yaml:"size"`
	Basis               string  `yaml:"basis"` // perlin or simplex
	Bowl                bool    `yaml:"bowl"`
	BowlDepth           float32 `yaml:"bowl_depth"`
	NoiseFrequency      float32 `yaml:"noise_frequency"`
	PerturbFrequency    float32 `yaml:"perturb_frequency"`
	PerturbDisplacement float32 `yaml:"perturb_displacement"`
	Fractal             bool    `yaml:"fractal"`
	CoarseAmplitude     float32 `yaml:"coarse_amplitude"`
	ErosionPasses       int     `yaml:"erosion_passes"`
	ErosionSmoothness   float32 `yaml:"erosion_smoothness"`
}

// TrackConfig holds race track shape and corridor settings.
// Widths are in height field cells.
type TrackConfig struct {
	Nodes         int     `yaml:"nodes"`
	Height        float32 `yaml:"height"`
	Variation     float32 `yaml:"variation"`
	TangentJitter float32 `yaml:"tangent_jitter"` // radians
	RadiusJitter  float32 `yaml:"radius_jitter"`
	Samples       int     `yaml:"samples"`
	RoadWidth     float32 `yaml:"road_width"`
	Falloff       float32 `yaml:"falloff"`
	CarveStep     float32 `yaml:"carve_step"`
	MaskDivisor   float32 `yaml:"mask_divisor"`
}

// NavMeshConfig holds ribbon settings. The ribbon has one cross-section per
// track sample.
type NavMeshConfig struct {
	Width float32    `yaml:"width"`
	Scale [3]float32 `yaml:"scale"` // world units per cell (X, Y, Z)
}

// FinalizeConfig holds the passes run after carving.
type FinalizeConfig struct {
	Smooth              bool    `yaml:"smooth"`
	PerturbFrequency    float32 `yaml:"perturb_frequency"`
	PerturbDisplacement float32 `yaml:"perturb_displacement"`
	LockRoad            bool    `yaml:"lock_road"`
}

// SceneryConfig holds decorative placement settings.
type SceneryConfig struct {
	Trees       int     `yaml:"trees"`
	LightHeight float32 `yaml:"light_height"`
}

// TrackerConfig holds surface tracking and race settings.
type TrackerConfig struct {
	LinearScan  bool          `yaml:"linear_scan"`
	GhostLap    time.Duration `yaml:"ghost_lap"`
	Checkpoints int           `yaml:"checkpoints"`
	Laps        int           `yaml:"laps"`
	TickRate    int           `yaml:"tick_rate"` // ticks per second
}

// OutputConfig holds output file paths. Empty paths disable the output.
type OutputConfig struct {
	Heightmap string `yaml:"heightmap"` // .png or .bmp
	Cache     string `yaml:"cache"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns the settings the game ships with.
func Default() *Config {
	return &Config{
		Seed: 1,
		Terrain: TerrainConfig{
			Size:                8*64 + 1,
			Basis:               "perlin",
			BowlDepth:           0.5,
			NoiseFrequency:      10,
			PerturbFrequency:    32,
			PerturbDisplacement: 32,
			CoarseAmplitude:     0.15,
			ErosionPasses:       10,
			ErosionSmoothness:   16,
		},
		Track: TrackConfig{
			Nodes:         4,
			Height:        0.2,
			Variation:     1,
			TangentJitter: 0.7853982,
			Samples:       1500,
			RoadWidth:     6,
			Falloff:       35,
			CarveStep:     2e-4,
			MaskDivisor:   10,
		},
		NavMesh: NavMeshConfig{
			Width: 6,
			Scale: [3]float32{50, 7500, 50},
		},
		Finalize: FinalizeConfig{
			Smooth:              true,
			PerturbFrequency:    30,
			PerturbDisplacement: 30,
			LockRoad:            true,
		},
		Scenery: SceneryConfig{
			Trees:       40,
			LightHeight: 250,
		},
		Tracker: TrackerConfig{
			GhostLap:    1020 * time.Second,
			Checkpoints: 10,
			Laps:        3,
			TickRate:    60,
		},
		Output: OutputConfig{
			Heightmap: "heightmap.png",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate rejects settings that would produce a degenerate level.
func (c *Config) Validate() error {
	switch {
	case c.Terrain.Size < heightfield.MinSize || c.Terrain.Size > heightfield.MaxSize:
		return fmt.Errorf("%w: terrain.size %d outside %d..%d", ErrInvalid, c.Terrain.Size, heightfield.MinSize, heightfield.MaxSize)
	case c.Terrain.Basis != "" && c.Terrain.Basis != "perlin" && c.Terrain.Basis != "simplex":
		return fmt.Errorf("%w: terrain.basis %q", ErrInvalid, c.Terrain.Basis)
	case c.Terrain.ErosionPasses < 0:
		return fmt.Errorf("%w: terrain.erosion_passes is negative", ErrInvalid)
	case c.Track.Nodes < 2:
		return fmt.Errorf("%w: track.nodes %d is below 2", ErrInvalid, c.Track.Nodes)
	case c.Track.Samples < 2:
		return fmt.Errorf("%w: track.samples %d is below 2", ErrInvalid, c.Track.Samples)
	case c.Track.RoadWidth <= 0 || c.Track.RoadWidth >= c.Track.Falloff:
		return fmt.Errorf("%w: track.road_width %v must be positive and below falloff %v",
			ErrInvalid, c.Track.RoadWidth, c.Track.Falloff)
	case c.NavMesh.Width <= 0:
		return fmt.Errorf("%w: navmesh.width must be positive", ErrInvalid)
	case c.NavMesh.Scale[0] <= 0 || c.NavMesh.Scale[1] <= 0 || c.NavMesh.Scale[2] <= 0:
		return fmt.Errorf("%w: navmesh.scale %v must be positive", ErrInvalid, c.NavMesh.Scale)
	case c.Scenery.Trees < 0:
		return fmt.Errorf("%w: scenery.trees is negative", ErrInvalid)
	case c.Tracker.Checkpoints < 1:
		return fmt.Errorf("%w: tracker.checkpoints must be at least 1", ErrInvalid)
	case c.Tracker.Laps < 1:
		return fmt.Errorf("%w: tracker.laps must be at least 1", ErrInvalid)
	case c.Tracker.GhostLap <= 0:
		return fmt.Errorf("%w: tracker.ghost_lap must be positive", ErrInvalid)
	case c.Tracker.TickRate < 1:
		return fmt.Errorf("%w: tracker.tick_rate must be at least 1", ErrInvalid)
	}
	return nil
}
