package surface

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rally/pkg/navmesh"
	"github.com/Faultbox/rally/pkg/track"
)

// DefaultGhostLap is how long the ghost takes for one lap.
const DefaultGhostLap = 1020 * time.Second

// ghostWheelRadius converts travelled distance to wheel rotation.
const ghostWheelRadius = 10.4725

// GhostFrame is the ghost car's pose for one tick.
type GhostFrame struct {
	Body
	Heading       mgl32.Vec3
	WheelRotation float32
	// OnTrack is false when no triangle lies above or below the curve point.
	OnTrack bool
}

// Ghost drives along the curve at a constant parameter speed and rests on the
// first triangle its vertical rays hit.
type Ghost struct {
	curve *track.Curve
	mesh  *navmesh.NavMesh
	scale mgl32.Vec3
	lap   time.Duration

	prev    mgl32.Vec3
	wheel   float32
	started bool
}

// NewGhost creates a ghost that completes a lap every lap. A non-positive lap
// uses DefaultGhostLap.
func NewGhost(curve *track.Curve, mesh *navmesh.NavMesh, scale mgl32.Vec3, lap time.Duration) *Ghost {
	if lap <= 0 {
		lap = DefaultGhostLap
	}
	return &Ghost{curve: curve, mesh: mesh, scale: scale, lap: lap}
}

// Param returns the curve parameter reached after elapsed.
func (g *Ghost) Param(elapsed time.Duration) float32 {
	return track.Wrap(float32(elapsed.Seconds() / g.lap.Seconds()))
}

// Frame returns the ghost pose at elapsed.
func (g *Ghost) Frame(elapsed time.Duration) GhostFrame {
	t := g.Param(elapsed)
	pos := scaleVec(g.scale, g.curve.Point(t))
	ahead := scaleVec(g.scale, g.curve.Point(t+0.01))

	f := GhostFrame{
		Body:    Body{Position: pos, Normal: navmesh.Up},
		Heading: safeNormalize(ahead.Sub(pos)),
	}
	for _, i := range g.mesh.Index().Candidates(pos.X(), pos.Z()) {
		if h, ok := g.mesh.CastAt(i, pos); ok {
			f.Position = h.Point
			f.Normal = g.mesh.Triangle(i).Normal
			f.OnTrack = true
			break
		}
	}

	if g.started {
		g.wheel -= f.Position.Sub(g.prev).Len() / ghostWheelRadius
	}
	g.prev, g.started = f.Position, true
	f.WheelRotation = g.wheel
	return f
}

func scaleVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func safeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	if l := v.Len(); l > 1e-12 {
		return v.Mul(1 / l)
	}
	return mgl32.Vec3{0, 0, 1}
}
