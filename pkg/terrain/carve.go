// Package terrain carves race track corridors into height fields and
// enforces the order of the terrain build stages.
package terrain

import (
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/rally/pkg/heightfield"
	"github.com/Faultbox/rally/pkg/track"
)

// ErrInvalidCorridor is returned when the road is not narrower than its falloff.
var ErrInvalidCorridor = errors.New("terrain: road width must be positive and less than falloff width")

// RoadMask stores per-cell road weights: 1 on the road, fading through the
// falloff band. It is used for texture blending and to lock road cells.
type RoadMask struct {
	*heightfield.Grid
}

// Locked reports whether cell (i, j) is full road.
func (m *RoadMask) Locked(i, j int) bool {
	return m.InBounds(i, j) && m.At(i, j) >= 1
}

// CarverOptions tunes corridor carving.
type CarverOptions struct {
	// Step is the parameter increment per sample. It must be small enough
	// that consecutive lateral sweeps leave no gap at the falloff edge.
	Step float32
	// MaskDivisor scales the falloff weight written to the road mask.
	MaskDivisor float32
}

// DefaultCarverOptions returns the settings used by the game.
func DefaultCarverOptions() CarverOptions {
	return CarverOptions{Step: 2e-4, MaskDivisor: 10}
}

// Carver stamps a flat road of half-width RoadWidth and a linear blend of
// half-width Falloff into a grid. Widths are in grid cells.
type Carver struct {
	RoadWidth float32
	Falloff   float32
	opts      CarverOptions
}

// NewCarver validates the corridor widths.
func NewCarver(roadWidth, falloff float32, opts CarverOptions) (*Carver, error) {
	if roadWidth <= 0 || falloff <= roadWidth {
		return nil, fmt.Errorf("%w: road %v, falloff %v", ErrInvalidCorridor, roadWidth, falloff)
	}
	if opts.Step <= 0 || opts.Step >= 1 {
		opts.Step = DefaultCarverOptions().Step
	}
	if opts.MaskDivisor <= 0 {
		opts.MaskDivisor = DefaultCarverOptions().MaskDivisor
	}
	return &Carver{RoadWidth: roadWidth, Falloff: falloff, opts: opts}, nil
}

// Carve walks the curve and writes the corridor into grid. Curve positions
// are in grid-cell units centered on the grid, with Y the track height.
// Cells the corridor reaches outside the grid are skipped, and falloff never
// blends a cell that an earlier sample already made road.
//
// Lateral samples round to the nearest cell, so the outermost sweep can touch
// cells up to half a cell diagonal past Falloff. Those cells keep their height
// and carry a mask weight of at most 1/MaskDivisor.
func (c *Carver) Carve(grid *heightfield.Grid, curve *track.Curve) (*RoadMask, error) {
	maskGrid, err := heightfield.NewGrid(grid.Size())
	if err != nil {
		return nil, err
	}
	mask := &RoadMask{Grid: maskGrid}

	steps := int(math.Ceil(1 / float64(c.opts.Step)))
	span := int(c.Falloff)
	prev := curve.Point(-c.opts.Step)

	for s := range steps {
		t := float32(s) * c.opts.Step
		e := curve.Point(t)
		lateral := track.Lateral(e.Sub(prev))
		height := e.Y()

		for k := -span; k <= span; k++ {
			j := float32(k)
			pos := e.Add(lateral.Mul(j))
			x, z := grid.Cell(pos.X(), pos.Z())
			if !grid.InBounds(x, z) {
				continue
			}

			dist := float32(math.Abs(float64(j)))
			if dist <= c.RoadWidth {
				grid.Set(x, z, height)
				mask.Set(x, z, 1)
				continue
			}

			if mask.Locked(x, z) {
				continue
			}
			amount := (dist - c.RoadWidth) / (c.Falloff - c.RoadWidth)
			existing := grid.At(x, z)
			grid.Set(x, z, height+(existing-height)*amount)
			if w := amount / c.opts.MaskDivisor; w > mask.At(x, z) {
				mask.Set(x, z, w)
			}
		}
		prev = e
	}
	return mask, nil
}
