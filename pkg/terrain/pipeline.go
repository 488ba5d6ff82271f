package terrain

import (
	"errors"
	"fmt"

	"github.com/Faultbox/rally/pkg/heightfield"
	"github.com/Faultbox/rally/pkg/track"
)

// ErrStageOrder is returned when a pipeline stage runs before its predecessor.
var ErrStageOrder = errors.New("terrain: pipeline stage out of order")

// Stage is a step of the terrain build.
type Stage int

// Pipeline stages, in the only order they may run.
const (
	StageEmpty Stage = iota
	StageBase
	StageCarved
	StageFinalized
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageEmpty:
		return "empty"
	case StageBase:
		return "base"
	case StageCarved:
		return "carved"
	case StageFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// FinalizeOptions controls the passes applied after carving.
type FinalizeOptions struct {
	Smooth              bool
	PerturbFrequency    float32
	PerturbDisplacement float32
	// LockRoad keeps full-road cells at their carved height.
	LockRoad bool
}

// DefaultFinalizeOptions returns the post-carve passes used by the game.
func DefaultFinalizeOptions() FinalizeOptions {
	return FinalizeOptions{
		Smooth:              true,
		PerturbFrequency:    30,
		PerturbDisplacement: 30,
		LockRoad:            true,
	}
}

// Pipeline runs base generation, carving and finalization in that order.
type Pipeline struct {
	gen    *heightfield.Generator
	carver *Carver
	stage  Stage
	grid   *heightfield.Grid
	mask   *RoadMask
}

// NewPipeline creates a pipeline in StageEmpty.
func NewPipeline(gen *heightfield.Generator, carver *Carver) *Pipeline {
	return &Pipeline{gen: gen, carver: carver}
}

// Stage returns the last completed stage.
func (p *Pipeline) Stage() Stage { return p.stage }

// Grid returns the height grid, nil before Generate.
func (p *Pipeline) Grid() *heightfield.Grid { return p.grid }

// Mask returns the road mask, nil before Carve.
func (p *Pipeline) Mask() *RoadMask { return p.mask }

// Generate builds the base height field.
func (p *Pipeline) Generate() error {
	if err := p.expect(StageEmpty, StageBase); err != nil {
		return err
	}
	grid, err := p.gen.Generate()
	if err != nil {
		return fmt.Errorf("generating base terrain: %w", err)
	}
	p.grid = grid
	p.stage = StageBase
	return nil
}

// Carve stamps the track corridor into the base grid.
func (p *Pipeline) Carve(curve *track.Curve) error {
	if err := p.expect(StageBase, StageCarved); err != nil {
		return err
	}
	mask, err := p.carver.Carve(p.grid, curve)
	if err != nil {
		return fmt.Errorf("carving corridor: %w", err)
	}
	p.mask = mask
	p.stage = StageCarved
	return nil
}

// Finalize smooths and perturbs the carved grid, then clamps it to [0, 1].
func (p *Pipeline) Finalize(opts FinalizeOptions) error {
	if err := p.expect(StageCarved, StageFinalized); err != nil {
		return err
	}
	var lock heightfield.Locker
	if opts.LockRoad {
		lock = p.mask
	}
	if opts.Smooth {
		heightfield.Smoothen(p.grid, lock)
	}
	if opts.PerturbDisplacement != 0 {
		heightfield.Perturb(p.grid, p.gen.Noise(), opts.PerturbFrequency, opts.PerturbDisplacement, lock)
	}
	p.grid.Clamp(0, 1)
	p.stage = StageFinalized
	return nil
}

// Run executes every remaining stage.
func (p *Pipeline) Run(curve *track.Curve, opts FinalizeOptions) error {
	if err := p.Generate(); err != nil {
		return err
	}
	if err := p.Carve(curve); err != nil {
		return err
	}
	return p.Finalize(opts)
}

func (p *Pipeline) expect(want, next Stage) error {
	if p.stage != want {
		return fmt.Errorf("%w: %s requires %s, pipeline is %s", ErrStageOrder, next, want, p.stage)
	}
	return nil
}
