package navmesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertical ray directions.
var (
	Down = mgl32.Vec3{0, -1, 0}
	Up   = mgl32.Vec3{0, 1, 0}
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3 // Normalized direction
}

// At returns the point at distance d along the ray.
func (r Ray) At(d float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(d))
}

// IntersectPlane intersects the ray with the plane dot(normal, p) == dist.
// Returns the distance along the ray and whether the intersection is valid.
func (r Ray) IntersectPlane(normal mgl32.Vec3, dist float32) (float32, bool) {
	denom := normal.Dot(r.Direction)
	if math.Abs(float64(denom)) < 1e-6 {
		return 0, false // Ray parallel to plane
	}
	d := (dist - normal.Dot(r.Origin)) / denom
	if d < 0 {
		return 0, false // Intersection behind ray origin
	}
	return d, true
}

// Hit is a ray/triangle intersection.
type Hit struct {
	Index    int
	Point    mgl32.Vec3
	Distance float32
}

// Raycast intersects r with the triangle's plane and keeps the point only if
// it lies inside the triangle.
func (t *Triangle) Raycast(r Ray) (mgl32.Vec3, float32, bool) {
	d, ok := r.IntersectPlane(t.Normal, t.Distance)
	if !ok {
		return mgl32.Vec3{}, 0, false
	}
	p := r.At(d)
	if !t.Covers(p.X(), p.Z()) || !t.Contains(p) {
		return mgl32.Vec3{}, 0, false
	}
	return p, d, true
}

// CastVertical casts one ray down and one up from pos. The down ray is tried
// first; the up ray only reports a hit when the down ray misses.
func (t *Triangle) CastVertical(pos mgl32.Vec3) (mgl32.Vec3, float32, bool) {
	if p, d, ok := t.Raycast(Ray{Origin: pos, Direction: Down}); ok {
		return p, d, true
	}
	return t.Raycast(Ray{Origin: pos, Direction: Up})
}
