// Package surface keeps moving bodies glued to a navmesh ribbon.
package surface

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rally/pkg/navmesh"
)

// Body is the part of an entity the tracker reads and corrects each tick.
type Body struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// State is the result of one tracker tick.
type State int

// Tracker states.
const (
	// OnTrack means a vertical ray hit the ribbon this tick.
	OnTrack State = iota
	// Recovering means every ray missed and the body was moved back onto
	// the ribbon from the last known triangle.
	Recovering
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case OnTrack:
		return "on-track"
	case Recovering:
		return "recovering"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Tracker resolves one body against a shared navmesh. It is not safe for
// concurrent use; give each entity its own tracker.
type Tracker struct {
	mesh   *navmesh.NavMesh
	last   int
	state  State
	linear bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLinearScan tests every triangle each tick instead of using the spatial index.
func WithLinearScan() Option {
	return func(t *Tracker) { t.linear = true }
}

// WithStart sets the initial last-known triangle.
func WithStart(index int) Option {
	return func(t *Tracker) { t.last = index }
}

// NewTracker creates a tracker on mesh, starting at triangle 0.
func NewTracker(mesh *navmesh.NavMesh, opts ...Option) *Tracker {
	t := &Tracker{mesh: mesh}
	for _, opt := range opts {
		opt(t)
	}
	t.last = t.mesh.Wrap(t.last)
	return t
}

// Last returns the last triangle the body rested on.
func (t *Tracker) Last() int { return t.last }

// State returns the result of the most recent Update.
func (t *Tracker) State() State { return t.state }

// Reset forgets the history and places the body on triangle index. A body
// not above or below that triangle is snapped onto its AC edge.
func (t *Tracker) Reset(b *Body, index int) {
	t.last = t.mesh.Wrap(index)
	t.state = OnTrack
	if h, ok := t.mesh.CastAt(t.last, b.Position); ok {
		t.apply(b, h)
		return
	}
	t.snap(b, t.last)
}

// Update moves b onto the ribbon. It never fails: when no ray hits, the body
// is projected onto the AC edge of the last triangle or one of its
// neighbours.
func (t *Tracker) Update(b *Body) State {
	var (
		h  navmesh.Hit
		ok bool
	)
	if t.linear {
		h, ok = t.mesh.LocateLinear(b.Position)
	} else {
		h, ok = t.mesh.Locate(b.Position)
	}
	if ok {
		t.apply(b, h)
		t.state = OnTrack
		return t.state
	}

	t.recover(b)
	t.state = Recovering
	return t.state
}

func (t *Tracker) recover(b *Body) {
	tri := t.mesh.Triangle(t.last)
	adj := t.mesh.Adjacent(t.last)
	coord := tri.Project(b.Position)

	candidate := adj.Across
	crossed := coord < 0 || coord > 1
	switch {
	case coord < 0:
		candidate = adj.Before
	case coord > 1:
		candidate = adj.After
	}

	if h, ok := t.mesh.CastAt(candidate, b.Position); ok {
		t.apply(b, h)
		return
	}
	if crossed {
		t.last = candidate
	}
	t.snap(b, t.last)
}

// snap clamps the body's projection onto triangle i's AC edge.
func (t *Tracker) snap(b *Body, i int) {
	tri := t.mesh.Triangle(i)
	coord := mgl32.Clamp(tri.Project(b.Position), 0, 1)
	b.Position = tri.PointAt(coord)
	b.Normal = tri.Normal
}

func (t *Tracker) apply(b *Body, h navmesh.Hit) {
	b.Position = h.Point
	b.Normal = t.mesh.Triangle(h.Index).Normal
	t.last = h.Index
}
