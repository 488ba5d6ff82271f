// Package track builds closed spline race tracks and samples them.
package track

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Curve errors.
var (
	ErrTooFewNodes        = errors.New("track: curve needs at least 2 nodes")
	ErrInvalidSampleCount = errors.New("track: rasterization needs at least 2 samples")
)

// Up is the world up axis.
var Up = mgl32.Vec3{0, 1, 0}

// CurveNode is a control point of a closed curve.
type CurveNode struct {
	Position mgl32.Vec3
	Tangent  mgl32.Vec3
}

// Curve is a closed cubic Hermite spline through its nodes.
// Node i is reached at t = i/N and the curve wraps back to node 0 at t = 1.
type Curve struct {
	nodes []CurveNode
}

// NewCurve creates a closed curve through nodes with explicit tangents.
func NewCurve(nodes []CurveNode) (*Curve, error) {
	if len(nodes) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewNodes, len(nodes))
	}
	c := &Curve{nodes: make([]CurveNode, len(nodes))}
	copy(c.nodes, nodes)
	return c, nil
}

// NewCatmullRomCurve creates a closed curve whose tangents are
// (p[i+1] - p[i-1]) / 2.
func NewCatmullRomCurve(points []mgl32.Vec3) (*Curve, error) {
	n := len(points)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewNodes, n)
	}
	nodes := make([]CurveNode, n)
	for i, p := range points {
		next := points[(i+1)%n]
		prev := points[(i-1+n)%n]
		nodes[i] = CurveNode{Position: p, Tangent: next.Sub(prev).Mul(0.5)}
	}
	return &Curve{nodes: nodes}, nil
}

// Nodes returns a copy of the control nodes.
func (c *Curve) Nodes() []CurveNode {
	out := make([]CurveNode, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Len returns the number of control nodes.
func (c *Curve) Len() int { return len(c.nodes) }

// Point evaluates the curve at t. t is wrapped into [0, 1).
func (c *Curve) Point(t float32) mgl32.Vec3 {
	n := len(c.nodes)
	t = Wrap(t)
	scaled := t * float32(n)
	idx := int(scaled)
	if idx >= n {
		idx = n - 1
	}
	s := scaled - float32(idx)

	a := c.nodes[idx]
	b := c.nodes[(idx+1)%n]

	s2 := s * s
	s3 := s2 * s
	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2

	return a.Position.Mul(h00).
		Add(a.Tangent.Mul(h10)).
		Add(b.Position.Mul(h01)).
		Add(b.Tangent.Mul(h11))
}

// Sample is one rasterized point of a curve.
type Sample struct {
	Position mgl32.Vec3
	Heading  mgl32.Vec3
}

// Rasterization is a curve sampled at n evenly spaced parameter steps.
type Rasterization struct {
	Points []Sample
}

// Rasterize samples the curve at t = i/n for i in [0, n). Each Heading is the
// normalized direction to the following sample, wrapping at the end.
// Every consumer of a track's samples must go through here so indices agree.
func (c *Curve) Rasterize(n int) (*Rasterization, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSampleCount, n)
	}
	points := make([]Sample, n)
	for i := range n {
		points[i].Position = c.Point(float32(i) / float32(n))
	}
	for i := range n {
		d := points[(i+1)%n].Position.Sub(points[i].Position)
		points[i].Heading = safeNormalize(d, c.tangentAt(float32(i)/float32(n)))
	}
	return &Rasterization{Points: points}, nil
}

// Len returns the number of samples.
func (r *Rasterization) Len() int { return len(r.Points) }

// At returns sample i, wrapping around the loop.
func (r *Rasterization) At(i int) Sample {
	n := len(r.Points)
	return r.Points[((i%n)+n)%n]
}

// Lateral returns the unit vector heading x up, the sideways axis of the road.
func Lateral(heading mgl32.Vec3) mgl32.Vec3 {
	return safeNormalize(heading.Cross(Up), mgl32.Vec3{1, 0, 0})
}

// Wrap maps t into [0, 1).
func Wrap(t float32) float32 {
	w := t - float32(math.Floor(float64(t)))
	if w >= 1 {
		return 0
	}
	return w
}

// tangentAt returns a finite-difference direction, used when two samples coincide.
func (c *Curve) tangentAt(t float32) mgl32.Vec3 {
	const dt = 1e-4
	return c.Point(t + dt).Sub(c.Point(t - dt))
}

func safeNormalize(v, fallback mgl32.Vec3) mgl32.Vec3 {
	if l := v.Len(); l > 1e-12 {
		return v.Mul(1 / l)
	}
	if l := fallback.Len(); l > 1e-12 {
		return fallback.Mul(1 / l)
	}
	return mgl32.Vec3{0, 0, 1}
}
