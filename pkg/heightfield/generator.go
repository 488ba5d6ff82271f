package heightfield

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Options controls the generation passes.
type Options struct {
	Basis Basis

	// Bowl seeds the grid with a radial quadratic basin before noise is added.
	Bowl      bool
	BowlDepth float32

	NoiseFrequency float32

	PerturbFrequency    float32
	PerturbDisplacement float32

	// Fractal replaces erosion with an additive coarse sub-generation.
	Fractal         bool
	CoarseAmplitude float32

	ErosionPasses     int
	ErosionSmoothness float32
}

// DefaultOptions returns the legacy single-resolution settings.
func DefaultOptions() Options {
	return Options{
		Basis:               BasisPerlin,
		BowlDepth:           0.5,
		NoiseFrequency:      10,
		PerturbFrequency:    32,
		PerturbDisplacement: 32,
		CoarseAmplitude:     0.15,
		ErosionPasses:       10,
		ErosionSmoothness:   16,
	}
}

// Generator runs the height passes over an owned grid.
type Generator struct {
	opts  Options
	rng   *rand.Rand
	noise Noise
	grid  *Grid

	// scratch holds the previous pass for erosion.
	scratch *Grid
}

// NewGenerator creates a generator for a size x size grid.
// All randomness is drawn from rng, so a fixed seed reproduces the grid.
func NewGenerator(size int, rng *rand.Rand, opts Options) (*Generator, error) {
	grid, err := NewGrid(size)
	if err != nil {
		return nil, err
	}
	noise, err := NewNoise(opts.Basis, rng)
	if err != nil {
		return nil, err
	}
	return &Generator{opts: opts, rng: rng, noise: noise, grid: grid}, nil
}

// Grid returns the grid being generated.
func (g *Generator) Grid() *Grid { return g.grid }

// Noise returns the generator's noise source.
func (g *Generator) Noise() Noise { return g.noise }

// Generate runs the full pass sequence and returns the grid.
func (g *Generator) Generate() (*Grid, error) {
	if g.opts.Bowl {
		g.AddBowl(g.opts.BowlDepth)
	}
	g.AddPerlinNoise(g.opts.NoiseFrequency)
	g.Perturb(g.opts.PerturbFrequency, g.opts.PerturbDisplacement)

	if g.opts.Fractal {
		if err := g.addCoarse(); err != nil {
			return nil, fmt.Errorf("coarse pass: %w", err)
		}
	} else {
		for range g.opts.ErosionPasses {
			g.Erode(g.opts.ErosionSmoothness)
		}
	}

	g.Smoothen()
	g.grid.Clamp(0, 1)
	return g.grid, nil
}

// AddBowl adds depth*(r/R)^2, lowest at the center of the grid.
func (g *Generator) AddBowl(depth float32) {
	half := float64(g.grid.Half())
	forRows(g.grid.size, func(i int) {
		for j := range g.grid.size {
			dx := (float64(i) - half) / half
			dz := (float64(j) - half) / half
			g.grid.Add(i, j, depth*float32(dx*dx+dz*dz))
		}
	})
}

// AddPerlinNoise adds noise sampled at (f*i/size, f*j/size, 0) remapped to [0, 1].
// If the result overshoots 1 the whole grid is halved until it fits, which
// keeps the relative ordering of cells intact.
func (g *Generator) AddPerlinNoise(f float32) {
	size := float64(g.grid.size)
	ff := float64(f)
	forRows(g.grid.size, func(i int) {
		for j := range g.grid.size {
			n := g.noise.Eval3(ff*float64(i)/size, ff*float64(j)/size, 0)
			g.grid.Add(i, j, float32((n+1)/2))
		}
	})
	g.halveOvershoot()
}

// Perturb domain-warps the grid by displacement d.
func (g *Generator) Perturb(f, d float32) {
	Perturb(g.grid, g.noise, f, d, nil)
}

// Erode runs one thermal erosion pass, reusing a scratch grid across passes.
func (g *Generator) Erode(smoothness float32) {
	if g.scratch == nil {
		g.scratch = g.grid.Clone()
	} else if err := g.scratch.CopyFrom(g.grid); err != nil {
		g.scratch = g.grid.Clone()
	}
	erode(g.grid, g.scratch, smoothness)
}

// Smoothen box-blurs the interior cells.
func (g *Generator) Smoothen() {
	Smoothen(g.grid, nil)
}

func (g *Generator) halveOvershoot() {
	_, hi := g.grid.Range()
	for hi > 1 {
		for k := range g.grid.cells {
			g.grid.cells[k] /= 2
		}
		hi /= 2
	}
}

func (g *Generator) addCoarse() error {
	coarseSize := g.grid.size / 4
	if coarseSize < MinSize {
		return nil
	}
	opts := g.opts
	opts.Fractal = false
	opts.ErosionPasses = 0
	sub, err := NewGenerator(coarseSize, g.rng, opts)
	if err != nil {
		return err
	}
	coarse, err := sub.Generate()
	if err != nil {
		return err
	}

	ratio := float32(coarseSize-1) / float32(g.grid.size-1)
	amp := g.opts.CoarseAmplitude
	forRows(g.grid.size, func(i int) {
		for j := range g.grid.size {
			g.grid.Add(i, j, amp*coarse.bilinear(float32(i)*ratio, float32(j)*ratio))
		}
	})
	g.halveOvershoot()
	return nil
}

// Locker reports cells that smoothing and perturbing must leave untouched.
type Locker interface {
	Locked(i, j int) bool
}

// Perturb warps grid: cell (i, j) takes the value at (i + n0*d, j + n1*d) where
// n0 and n1 are noise samples at z=0 and z=1. Source indices clamp to edges.
func Perturb(grid *Grid, noise Noise, f, d float32, lock Locker) {
	src := grid.Clone()
	size := float64(grid.size)
	ff, dd := float64(f), float64(d)
	forRows(grid.size, func(i int) {
		for j := range grid.size {
			if lock != nil && lock.Locked(i, j) {
				continue
			}
			x, z := ff*float64(i)/size, ff*float64(j)/size
			u := i + int(noise.Eval3(x, z, 0)*dd)
			v := j + int(noise.Eval3(x, z, 1)*dd)
			grid.cells[i*grid.size+j] = src.At(u, v)
		}
	})
}

// Erode moves half the drop from each interior cell to its steepest lower
// neighbour when 0 < drop <= smoothness/size. Drops are read from a snapshot
// taken at the start of the pass.
func Erode(grid *Grid, smoothness float32) {
	erode(grid, grid.Clone(), smoothness)
}

// erode reads heights from src, a copy of grid, and writes moves into grid.
func erode(grid, src *Grid, smoothness float32) {
	size := grid.size
	limit := smoothness / float32(size)
	for i := 1; i < size-1; i++ {
		for j := 1; j < size-1; j++ {
			h := src.cells[i*size+j]
			var dMax float32
			mu, mv := 0, 0
			for u := -1; u <= 1; u++ {
				for v := -1; v <= 1; v++ {
					if u == 0 && v == 0 {
						continue
					}
					if d := h - src.cells[(i+u)*size+j+v]; d > dMax {
						dMax, mu, mv = d, u, v
					}
				}
			}
			if dMax > 0 && dMax <= limit {
				dh := dMax / 2
				grid.cells[i*size+j] -= dh
				grid.cells[(i+mu)*size+j+mv] += dh
			}
		}
	}
}

// Smoothen replaces each interior cell with the mean of its 3x3 block.
// Edge cells are left as they are.
func Smoothen(grid *Grid, lock Locker) {
	src := grid.Clone()
	size := grid.size
	forRows(size, func(i int) {
		if i == 0 || i == size-1 {
			return
		}
		for j := 1; j < size-1; j++ {
			if lock != nil && lock.Locked(i, j) {
				continue
			}
			var total float32
			for u := -1; u <= 1; u++ {
				for v := -1; v <= 1; v++ {
					total += src.cells[(i+u)*size+j+v]
				}
			}
			grid.cells[i*size+j] = total / 9
		}
	})
}

// bilinear samples in cell-index space, clamping to the grid.
func (g *Grid) bilinear(x, z float32) float32 {
	x = clampf(x, 0, float32(g.size-1))
	z = clampf(z, 0, float32(g.size-1))
	x0, z0 := int(x), int(z)
	fx, fz := x-float32(x0), z-float32(z0)
	h00, h10 := g.At(x0, z0), g.At(x0+1, z0)
	h01, h11 := g.At(x0, z0+1), g.At(x0+1, z0+1)
	south := h00 + (h10-h00)*fx
	north := h01 + (h11-h01)*fx
	return south + (north-south)*fz
}

// forRows runs fn for every row index, spread across GOMAXPROCS workers.
// Each call must only write cells of its own row.
func forRows(n int, fn func(i int)) {
	var eg errgroup.Group
	workers := runtime.GOMAXPROCS(0)
	eg.SetLimit(workers)
	chunk := int(math.Ceil(float64(n) / float64(workers)))
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		eg.Go(func() error {
			for i := start; i < end; i++ {
				fn(i)
			}
			return nil
		})
	}
	_ = eg.Wait()
}
