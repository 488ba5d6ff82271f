package level

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// lightRange is the reach of a track light in world units.
const lightRange = 450

// Tree is a decorative tree placed beside the road.
type Tree struct {
	Position mgl32.Vec3 // world space, resting on the terrain
	Scale    float32
	Rotation float32 // radians around Y
}

// Light is a point light hung above the track.
type Light struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	Range    float32
}

// PlaceScenery scatters count trees just off the road. Each tree picks a
// random navmesh triangle and steps outside it across the AB edge, so trees
// line the corridor without standing on it.
func (l *Level) PlaceScenery(rng *rand.Rand, count int) []Tree {
	trees := make([]Tree, 0, count)
	for range count {
		tri := l.Mesh.Triangle(rng.Intn(l.Mesh.Len()))
		v := float32(rng.Float64())
		u := float32(rng.Float64()) - 0.5
		if u < 0 {
			u -= 0.5
		} else {
			u += 1.5
		}

		world := tri.Vertices[0].Add(tri.AB.Mul(u)).Add(tri.AC.Mul(v))
		x, z := world.X()/l.Scale.X(), world.Z()/l.Scale.Z()
		h := l.Terrain.Sample(x, z)

		trees = append(trees, Tree{
			Position: mgl32.Vec3{world.X(), h * l.Scale.Y(), world.Z()},
			Scale:    1 + 4*float32(rng.Float64()),
			Rotation: float32(2 * math.Pi * rng.Float64()),
		})
	}
	return trees
}

// LightAnchors hangs one light height world units above every sample of the
// track rasterization, each with a random pale color.
func (l *Level) LightAnchors(rng *rand.Rand, height float32) []Light {
	raster := l.Track.Rasterization
	lights := make([]Light, raster.Len())
	offset := mgl32.Vec3{0, height, 0}
	for i, s := range raster.Points {
		p := s.Position
		lights[i] = Light{
			Position: mgl32.Vec3{p.X() * l.Scale.X(), p.Y() * l.Scale.Y(), p.Z() * l.Scale.Z()}.Add(offset),
			Color: mgl32.Vec3{
				0.6 + 0.4*float32(rng.Float64()),
				0.6 + 0.4*float32(rng.Float64()),
				0.6 + 0.4*float32(rng.Float64()),
			},
			Range: lightRange,
		}
	}
	return lights
}
