package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagSeed      = flag.Int64("seed", 0, "Random seed (0 keeps the configured seed)")
	flagSize      = flag.Int("size", 0, "Height field size in cells")
	flagBasis     = flag.String("basis", "", "Noise basis: perlin or simplex")
	flagFractal   = flag.Bool("fractal", false, "Use fractal terrain instead of erosion")
	flagHeightmap = flag.String("heightmap", "", "Heightmap image output path")
	flagCache     = flag.String("cache", "", "Level cache output path")
	flagLinear    = flag.Bool("linear", false, "Scan every triangle instead of using the spatial index")
	flagSave      = flag.Bool("save-config", false, "Write the effective config to the user config directory")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// SaveRequested reports whether --save-config was given.
func SaveRequested() bool {
	return *flagSave
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSeed != 0 {
		cfg.Seed = *flagSeed
	}
	if *flagSize > 0 {
		cfg.Terrain.Size = *flagSize
	}
	if *flagBasis != "" {
		cfg.Terrain.Basis = *flagBasis
	}
	if *flagFractal {
		cfg.Terrain.Fractal = true
	}
	if *flagHeightmap != "" {
		cfg.Output.Heightmap = *flagHeightmap
	}
	if *flagCache != "" {
		cfg.Output.Cache = *flagCache
	}
	if *flagLinear {
		cfg.Tracker.LinearScan = true
	}
}
