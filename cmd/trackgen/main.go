// Package main is the entry point for the rally level generator.
package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/rally/internal/config"
	"github.com/Faultbox/rally/internal/level"
	"github.com/Faultbox/rally/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Rally Track Generator ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if config.SaveRequested() {
		if err := cfg.Save(); err != nil {
			logger.Warn("failed to save config", zap.Error(err))
		} else {
			logger.Info("config saved", zap.String("dir", config.ConfigDir()))
		}
	}

	if err := run(cfg); err != nil {
		logger.Error("generation failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	lvl, err := level.Build(cfg, cfg.Seed)
	if err != nil {
		return err
	}

	if path := cfg.Output.Heightmap; path != "" {
		if err := lvl.Terrain.WriteFile(path); err != nil {
			return err
		}
		logger.Info("heightmap written", zap.String("path", path))
	}
	if path := cfg.Output.Cache; path != "" {
		if err := lvl.Save(path); err != nil {
			return err
		}
		logger.Info("level cache written", zap.String("path", path))
	}

	res, err := simulate(lvl, cfg.Tracker)
	if err != nil {
		return err
	}
	logger.Info("ghost race complete",
		zap.Bool("finished", res.Finished),
		zap.Durations("laps", res.Laps),
		zap.Duration("total", res.Total),
		zap.Int("ticks", res.Ticks),
		zap.Int("recoveries", res.Recoveries),
		zap.Int("off_track_frames", res.OffTrack),
	)
	if !res.Finished {
		logger.Warn("ghost car did not finish",
			zap.Int("laps_done", len(res.Laps)),
			zap.Int("laps", cfg.Tracker.Laps),
			zap.Duration("limit", time.Duration(cfg.Tracker.Laps+1)*cfg.Tracker.GhostLap),
		)
	}
	if res.OffTrack > 0 {
		logger.Warn("ghost car left the navmesh",
			zap.Int("off_track_frames", res.OffTrack),
			zap.Int("recoveries", res.Recoveries),
		)
	}
	return nil
}
