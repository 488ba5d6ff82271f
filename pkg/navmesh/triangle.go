package navmesh

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrDegenerateTriangle is returned when three vertices are collinear.
var ErrDegenerateTriangle = errors.New("navmesh: degenerate triangle")

// containsEpsilon is the barycentric slack on every side of a triangle, so a
// point on a shared edge is inside both neighbours despite float32 rounding.
// It also pads the XZ bounds by the same fraction of their extent.
const containsEpsilon = 1e-4

// Triangle is one face of the drivable ribbon with its precomputed plane.
type Triangle struct {
	Vertices [3]mgl32.Vec3
	AB       mgl32.Vec3 // v1 - v0
	AC       mgl32.Vec3 // v2 - v0, runs along the track
	Normal   mgl32.Vec3 // unit, Y >= 0
	Distance float32    // plane: dot(Normal, p) == Distance

	// XZ bounds
	Min mgl32.Vec2
	Max mgl32.Vec2
}

// NewTriangle precomputes the plane, edge vectors and bounds of a, b, c.
func NewTriangle(a, b, c mgl32.Vec3) (Triangle, error) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	n := ab.Cross(ac)
	l := n.Len()
	if l <= 1e-6*ab.Len()*ac.Len() || l == 0 {
		return Triangle{}, fmt.Errorf("%w: %v %v %v", ErrDegenerateTriangle, a, b, c)
	}
	n = n.Mul(1 / l)
	if n.Y() < 0 {
		n = n.Mul(-1)
	}

	lo := mgl32.Vec2{min(a.X(), b.X(), c.X()), min(a.Z(), b.Z(), c.Z())}
	hi := mgl32.Vec2{max(a.X(), b.X(), c.X()), max(a.Z(), b.Z(), c.Z())}
	pad := containsEpsilon * max(hi.X()-lo.X(), hi.Y()-lo.Y())
	pad = max(pad, containsEpsilon)

	t := Triangle{
		Vertices: [3]mgl32.Vec3{a, b, c},
		AB:       ab,
		AC:       ac,
		Normal:   n,
		Distance: n.Dot(a),
		Min:      lo.Sub(mgl32.Vec2{pad, pad}),
		Max:      hi.Add(mgl32.Vec2{pad, pad}),
	}
	return t, nil
}

// Covers reports whether (x, z) lies inside the padded XZ bounds.
func (t *Triangle) Covers(x, z float32) bool {
	return x >= t.Min.X() && x <= t.Max.X() && z >= t.Min.Y() && z <= t.Max.Y()
}

// Contains tests a point already on the triangle's plane. r and s are its
// signed barycentric coordinates along AB and AC; the point is rejected when
// r < 0, s < 0 or r+s > 1, each with containsEpsilon of slack.
func (t *Triangle) Contains(p mgl32.Vec3) bool {
	r, s := t.Barycentric(p)
	return r >= -containsEpsilon && s >= -containsEpsilon && r+s <= 1+containsEpsilon
}

// Barycentric returns the coordinates (r, s) of p projected onto the plane,
// so that p ≈ v0 + r*AB + s*AC.
func (t *Triangle) Barycentric(p mgl32.Vec3) (r, s float32) {
	w := p.Sub(t.Vertices[0])
	uu := float64(t.AB.Dot(t.AB))
	uv := float64(t.AB.Dot(t.AC))
	vv := float64(t.AC.Dot(t.AC))
	wu := float64(w.Dot(t.AB))
	wv := float64(w.Dot(t.AC))
	denom := uu*vv - uv*uv
	return float32((vv*wu - uv*wv) / denom), float32((uu*wv - uv*wu) / denom)
}

// Project returns the position of p along AC: 0 at v0, 1 at v2.
func (t *Triangle) Project(p mgl32.Vec3) float32 {
	return p.Sub(t.Vertices[0]).Dot(t.AC) / t.AC.Dot(t.AC)
}

// PointAt returns v0 + coord*AC.
func (t *Triangle) PointAt(coord float32) mgl32.Vec3 {
	return t.Vertices[0].Add(t.AC.Mul(coord))
}
