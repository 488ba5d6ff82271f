// Package navmesh builds the drivable triangle ribbon that follows a race
// track and answers vertical raycast queries against it.
//
// Each cross-section i of the ribbon has a left vertex L_i and a right vertex
// R_i. The quad between sections i and i+1 is split along R_i-L_{i+1}:
//
//	triangle 2i   = (L_i, R_i, L_{i+1})      AC runs forward on the left edge
//	triangle 2i+1 = (R_{i+1}, L_{i+1}, R_i)  AC runs backward on the right edge
//
// The ribbon is a closed loop, so a mesh of n sections has 2n triangles.
package navmesh

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/rally/pkg/track"
)

// Build errors.
var (
	ErrInvalidWidth  = errors.New("navmesh: corridor width must be positive")
	ErrInvalidScale  = errors.New("navmesh: scale components must be positive")
	ErrRibbonLengths = errors.New("navmesh: ribbon edges must have equal length of at least 2")
)

// Adjacency names the triangles reached from a triangle when a point
// projects below 0 (Before) or above 1 (After) on its AC edge, and the other
// half of the same quad (Across).
type Adjacency struct {
	Before int
	After  int
	Across int
}

// NavMesh is an immutable triangle ribbon. It is safe for concurrent readers.
type NavMesh struct {
	left      []mgl32.Vec3
	right     []mgl32.Vec3
	triangles []Triangle
	adjacency []Adjacency
	index     *Index
}

// Build rasterizes curve into samples cross-sections, offsets each by
// ±width along the lateral axis and scales every vertex component-wise.
// width is in curve units, before scaling.
func Build(curve *track.Curve, samples int, width float32, scale mgl32.Vec3) (*NavMesh, error) {
	raster, err := curve.Rasterize(samples)
	if err != nil {
		return nil, err
	}
	return FromRasterization(raster, width, scale)
}

// FromRasterization builds a mesh with one cross-section per sample of
// raster, so section i lines up with sample i.
func FromRasterization(raster *track.Rasterization, width float32, scale mgl32.Vec3) (*NavMesh, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidWidth, width)
	}
	if scale.X() <= 0 || scale.Y() <= 0 || scale.Z() <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidScale, scale)
	}

	left := make([]mgl32.Vec3, raster.Len())
	right := make([]mgl32.Vec3, raster.Len())
	for i, s := range raster.Points {
		lat := track.Lateral(s.Heading).Mul(width)
		left[i] = mulVec(scale, s.Position.Add(lat))
		right[i] = mulVec(scale, s.Position.Sub(lat))
	}
	return FromRibbon(left, right)
}

// FromRibbon builds a mesh from world-space left and right edge vertices.
func FromRibbon(left, right []mgl32.Vec3) (*NavMesh, error) {
	n := len(left)
	if n < 2 || len(right) != n {
		return nil, fmt.Errorf("%w: left %d, right %d", ErrRibbonLengths, len(left), len(right))
	}

	m := &NavMesh{
		left:      append([]mgl32.Vec3(nil), left...),
		right:     append([]mgl32.Vec3(nil), right...),
		triangles: make([]Triangle, 2*n),
		adjacency: make([]Adjacency, 2*n),
	}

	var g errgroup.Group
	chunk := max(1, (n+runtime.GOMAXPROCS(0)-1)/runtime.GOMAXPROCS(0))
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := m.buildSection(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.index = NewIndex(m.triangles)
	return m, nil
}

// buildSection fills triangles 2i and 2i+1 and their adjacency.
func (m *NavMesh) buildSection(i int) error {
	n := len(m.left)
	next := (i + 1) % n

	even, err := NewTriangle(m.left[i], m.right[i], m.left[next])
	if err != nil {
		return fmt.Errorf("section %d: %w", i, err)
	}
	odd, err := NewTriangle(m.right[next], m.left[next], m.right[i])
	if err != nil {
		return fmt.Errorf("section %d: %w", i, err)
	}

	count := 2 * n
	e, o := 2*i, 2*i+1
	m.triangles[e] = even
	m.triangles[o] = odd
	m.adjacency[e] = Adjacency{
		Before: wrap(e-2, count),
		After:  wrap(e+2, count),
		Across: o,
	}
	m.adjacency[o] = Adjacency{
		Before: wrap(o+2, count),
		After:  wrap(o-2, count),
		Across: e,
	}
	return nil
}

// Len returns the number of triangles.
func (m *NavMesh) Len() int { return len(m.triangles) }

// Sections returns the number of cross-sections.
func (m *NavMesh) Sections() int { return len(m.left) }

// Wrap maps any triangle index onto the loop.
func (m *NavMesh) Wrap(i int) int { return wrap(i, len(m.triangles)) }

// Triangle returns triangle i, wrapping around the loop.
func (m *NavMesh) Triangle(i int) *Triangle {
	return &m.triangles[wrap(i, len(m.triangles))]
}

// Triangles returns the triangle slice. Callers must not modify it.
func (m *NavMesh) Triangles() []Triangle { return m.triangles }

// Adjacent returns the neighbours of triangle i.
func (m *NavMesh) Adjacent(i int) Adjacency {
	return m.adjacency[wrap(i, len(m.adjacency))]
}

// Ribbon returns copies of the left and right edge vertices.
func (m *NavMesh) Ribbon() (left, right []mgl32.Vec3) {
	return append([]mgl32.Vec3(nil), m.left...), append([]mgl32.Vec3(nil), m.right...)
}

// Index returns the spatial index over the triangles.
func (m *NavMesh) Index() *Index { return m.index }

// Locate casts vertical rays from pos against the triangles the spatial
// index returns for it. The hit closest to pos wins; on a tie the higher
// index wins.
func (m *NavMesh) Locate(pos mgl32.Vec3) (Hit, bool) {
	return m.nearest(pos, m.index.Candidates(pos.X(), pos.Z()), false)
}

// LocateLinear is Locate over every triangle, without the index.
func (m *NavMesh) LocateLinear(pos mgl32.Vec3) (Hit, bool) {
	return m.nearest(pos, nil, true)
}

// CastAt tests a single triangle.
func (m *NavMesh) CastAt(i int, pos mgl32.Vec3) (Hit, bool) {
	i = wrap(i, len(m.triangles))
	p, d, ok := m.triangles[i].CastVertical(pos)
	if !ok {
		return Hit{}, false
	}
	return Hit{Index: i, Point: p, Distance: d}, true
}

func (m *NavMesh) nearest(pos mgl32.Vec3, candidates []int, all bool) (Hit, bool) {
	var (
		best  Hit
		found bool
	)
	test := func(i int) {
		h, ok := m.CastAt(i, pos)
		if ok && (!found || h.Distance <= best.Distance) {
			best, found = h, true
		}
	}
	if all {
		for i := range m.triangles {
			test(i)
		}
	} else {
		for _, i := range candidates {
			test(i)
		}
	}
	return best, found
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}

func mulVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
