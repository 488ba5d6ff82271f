// Package heightfield generates and stores square terrain height grids.
package heightfield

import (
	"errors"
	"fmt"
)

// Grid errors.
var (
	ErrInvalidSize  = errors.New("heightfield: grid size out of range")
	ErrSizeMismatch = errors.New("heightfield: grid sizes differ")
)

// Grid size limits. MinSize is the smallest grid with an interior cell.
const (
	MinSize = 3
	MaxSize = 1<<13 + 1
)

// Grid is a size x size buffer of elevations stored row-major by x.
//
// Cell (i, j) sits at curve-space X = i - Half(), Z = j - Half(), so the
// grid is centered on the origin of the race track.
type Grid struct {
	size  int
	cells []float32
}

// NewGrid allocates a zeroed grid.
func NewGrid(size int) (*Grid, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	return &Grid{size: size, cells: make([]float32, size*size)}, nil
}

// NewFlat allocates a grid with every cell set to h.
func NewFlat(size int, h float32) (*Grid, error) {
	g, err := NewGrid(size)
	if err != nil {
		return nil, err
	}
	g.Fill(h)
	return g, nil
}

// Size returns the number of cells along one side.
func (g *Grid) Size() int { return g.size }

// Half returns the curve-space offset of cell 0.
func (g *Grid) Half() float32 { return float32(g.size-1) / 2 }

// InBounds reports whether (i, j) addresses a cell.
func (g *Grid) InBounds(i, j int) bool {
	return i >= 0 && j >= 0 && i < g.size && j < g.size
}

// At returns the height of cell (i, j). Out-of-range indices clamp to the edge.
func (g *Grid) At(i, j int) float32 {
	return g.cells[g.clampIndex(i)*g.size+g.clampIndex(j)]
}

// Set writes cell (i, j). It reports false and does nothing when out of bounds.
func (g *Grid) Set(i, j int, h float32) bool {
	if !g.InBounds(i, j) {
		return false
	}
	g.cells[i*g.size+j] = h
	return true
}

// Add adds d to cell (i, j) if it exists.
func (g *Grid) Add(i, j int, d float32) bool {
	if !g.InBounds(i, j) {
		return false
	}
	g.cells[i*g.size+j] += d
	return true
}

// Fill sets every cell to h.
func (g *Grid) Fill(h float32) {
	for i := range g.cells {
		g.cells[i] = h
	}
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := &Grid{size: g.size, cells: make([]float32, len(g.cells))}
	copy(c.cells, g.cells)
	return c
}

// CopyFrom overwrites g with the contents of src.
func (g *Grid) CopyFrom(src *Grid) error {
	if src.size != g.size {
		return fmt.Errorf("%w: %d != %d", ErrSizeMismatch, src.size, g.size)
	}
	copy(g.cells, src.cells)
	return nil
}

// Values exposes the backing slice (row-major by x). Callers must not resize it.
func (g *Grid) Values() []float32 { return g.cells }

// FromValues wraps a row-major slice of size*size heights.
func FromValues(size int, values []float32) (*Grid, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	if len(values)%size != 0 || len(values)/size != size {
		return nil, fmt.Errorf("%w: %d values for size %d", ErrSizeMismatch, len(values), size)
	}
	cells := make([]float32, len(values))
	copy(cells, values)
	return &Grid{size: size, cells: cells}, nil
}

// Range returns the lowest and highest cell values.
func (g *Grid) Range() (lo, hi float32) {
	lo, hi = g.cells[0], g.cells[0]
	for _, v := range g.cells {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Clamp limits every cell to [lo, hi].
func (g *Grid) Clamp(lo, hi float32) {
	for i, v := range g.cells {
		g.cells[i] = clampf(v, lo, hi)
	}
}

// Cell converts a curve-space position to the nearest cell index.
func (g *Grid) Cell(x, z float32) (i, j int) {
	half := g.Half()
	return roundi(x + half), roundi(z + half)
}

func checkSize(size int) error {
	if size < MinSize || size > MaxSize {
		return fmt.Errorf("%w: got %d, want %d..%d", ErrInvalidSize, size, MinSize, MaxSize)
	}
	return nil
}

func (g *Grid) clampIndex(i int) int {
	if i < 0 {
		return 0
	}
	if i >= g.size {
		return g.size - 1
	}
	return i
}

func roundi(v float32) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
