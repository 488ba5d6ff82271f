// Package level assembles a playable level: terrain, race track, navmesh and
// scenery, all drawn from one seeded random source.
package level

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/rally/internal/config"
	"github.com/Faultbox/rally/internal/logger"
	"github.com/Faultbox/rally/pkg/heightfield"
	"github.com/Faultbox/rally/pkg/navmesh"
	"github.com/Faultbox/rally/pkg/terrain"
	"github.com/Faultbox/rally/pkg/track"
)

// Level is everything the game needs to start a race.
type Level struct {
	Seed int64
	// Scale maps height field cells and normalized height to world units.
	Scale   mgl32.Vec3
	Terrain *heightfield.Grid
	Mask    *terrain.RoadMask
	Track   *track.RaceTrack
	Mesh    *navmesh.NavMesh
	Trees   []Tree
	Lights  []Light
}

// Build generates a level. The same config and seed always give the same level.
func Build(cfg *config.Config, seed int64) (*Level, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Named("level").With(zap.Int64("seed", seed))
	rng := rand.New(rand.NewSource(seed))
	start := time.Now()

	gen, err := heightfield.NewGenerator(cfg.Terrain.Size, rng, terrainOptions(cfg.Terrain))
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	carver, err := terrain.NewCarver(cfg.Track.RoadWidth, cfg.Track.Falloff, terrain.CarverOptions{
		Step:        cfg.Track.CarveStep,
		MaskDivisor: cfg.Track.MaskDivisor,
	})
	if err != nil {
		return nil, err
	}
	pipeline := terrain.NewPipeline(gen, carver)

	stage := time.Now()
	if err := pipeline.Generate(); err != nil {
		return nil, err
	}
	lo, hi := pipeline.Grid().Range()
	log.Debug("terrain generated",
		zap.Int("size", cfg.Terrain.Size),
		zap.String("basis", cfg.Terrain.Basis),
		zap.Bool("fractal", cfg.Terrain.Fractal),
		zap.Float32("min", lo),
		zap.Float32("max", hi),
		zap.Duration("took", time.Since(stage)),
	)

	stage = time.Now()
	rt, err := track.NewRaceTrack(cfg.Terrain.Size, rng, trackOptions(cfg.Track))
	if err != nil {
		return nil, fmt.Errorf("creating race track: %w", err)
	}
	if err := pipeline.Carve(rt.Curve); err != nil {
		return nil, err
	}
	log.Debug("track carved",
		zap.Int("nodes", rt.Curve.Len()),
		zap.Float32("road_width", cfg.Track.RoadWidth),
		zap.Float32("falloff", cfg.Track.Falloff),
		zap.Duration("took", time.Since(stage)),
	)

	stage = time.Now()
	if err := pipeline.Finalize(finalizeOptions(cfg.Finalize)); err != nil {
		return nil, err
	}
	log.Debug("terrain finalized", zap.Duration("took", time.Since(stage)))

	stage = time.Now()
	scale := mgl32.Vec3(cfg.NavMesh.Scale)
	mesh, err := navmesh.FromRasterization(rt.Rasterization, cfg.NavMesh.Width, scale)
	if err != nil {
		return nil, fmt.Errorf("building navmesh: %w", err)
	}
	log.Debug("navmesh built",
		zap.Int("triangles", mesh.Len()),
		zap.Duration("took", time.Since(stage)),
	)

	lvl := &Level{
		Seed:    seed,
		Scale:   scale,
		Terrain: pipeline.Grid(),
		Mask:    pipeline.Mask(),
		Track:   rt,
		Mesh:    mesh,
	}
	lvl.Lights = lvl.LightAnchors(rng, cfg.Scenery.LightHeight)
	lvl.Trees = lvl.PlaceScenery(rng, cfg.Scenery.Trees)

	log.Info("level ready",
		zap.Int("triangles", mesh.Len()),
		zap.Int("trees", len(lvl.Trees)),
		zap.Int("lights", len(lvl.Lights)),
		zap.Duration("took", time.Since(start)),
	)
	return lvl, nil
}

// StartPose returns the start line pose in world space.
func (l *Level) StartPose() track.Pose {
	return l.Track.StartPose(l.Scale)
}

// WorldHeight returns the terrain height in world units under a world XZ point.
func (l *Level) WorldHeight(x, z float32) float32 {
	return l.Terrain.Sample(x/l.Scale.X(), z/l.Scale.Z()) * l.Scale.Y()
}

func terrainOptions(c config.TerrainConfig) heightfield.Options {
	return heightfield.Options{
		Basis:               heightfield.Basis(c.Basis),
		Bowl:                c.Bowl,
		BowlDepth:           c.BowlDepth,
		NoiseFrequency:      c.NoiseFrequency,
		PerturbFrequency:    c.PerturbFrequency,
		PerturbDisplacement: c.PerturbDisplacement,
		Fractal:             c.Fractal,
		CoarseAmplitude:     c.CoarseAmplitude,
		ErosionPasses:       c.ErosionPasses,
		ErosionSmoothness:   c.ErosionSmoothness,
	}
}

func trackOptions(c config.TrackConfig) track.Options {
	return track.Options{
		Nodes:         c.Nodes,
		Height:        c.Height,
		Variation:     c.Variation,
		TangentJitter: c.TangentJitter,
		RadiusJitter:  c.RadiusJitter,
		Samples:       c.Samples,
	}
}

func finalizeOptions(c config.FinalizeConfig) terrain.FinalizeOptions {
	return terrain.FinalizeOptions{
		Smooth:              c.Smooth,
		PerturbFrequency:    c.PerturbFrequency,
		PerturbDisplacement: c.PerturbDisplacement,
		LockRoad:            c.LockRoad,
	}
}
