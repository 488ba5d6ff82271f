package track

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// Options shapes a randomly generated race track.
type Options struct {
	// Nodes is the number of control nodes around the loop.
	Nodes int
	// Height is the normalized terrain height the track runs at.
	Height float32
	// Variation scales tangent magnitude; 1 reproduces a Catmull-Rom loop.
	Variation float32
	// TangentJitter is the maximum random yaw applied to each tangent, in radians.
	TangentJitter float32
	// RadiusJitter randomly moves nodes in or out by up to this fraction of the radius.
	RadiusJitter float32
	// Samples is the size of the cached rasterization.
	Samples int
}

// DefaultOptions returns the four-node loop used by the game.
func DefaultOptions() Options {
	return Options{
		Nodes:         4,
		Height:        0.2,
		Variation:     1,
		TangentJitter: math.Pi / 4,
		Samples:       1500,
	}
}

// RaceTrack is a closed curve laid out over a terrain, plus its cached samples.
type RaceTrack struct {
	Curve         *Curve
	Rasterization *Rasterization
	TerrainSize   int
}

// NewRaceTrack places opts.Nodes control nodes on a circle of radius
// terrainSize/8 around the origin, starting at -Z and running toward +X.
// Each tangent follows the direction of travel and is yawed by a random angle
// in [-TangentJitter, TangentJitter] drawn from rng.
func NewRaceTrack(terrainSize int, rng *rand.Rand, opts Options) (*RaceTrack, error) {
	if opts.Nodes < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewNodes, opts.Nodes)
	}
	radius := float32(terrainSize) / 8
	n := opts.Nodes
	tangentLen := radius * float32(math.Sin(2*math.Pi/float64(n))) * opts.Variation
	if n == 2 {
		tangentLen = radius * opts.Variation
	}

	nodes := make([]CurveNode, n)
	for i := range n {
		theta := 2 * math.Pi * float64(i) / float64(n)
		sin, cos := math.Sincos(theta)

		r := radius
		if opts.RadiusJitter > 0 {
			r *= 1 + opts.RadiusJitter*float32(2*rng.Float64()-1)
		}

		yaw := opts.TangentJitter * float32(2*rng.Float64()-1)
		dir := mgl32.Vec3{float32(cos), 0, float32(sin)}.Mul(tangentLen)

		nodes[i] = CurveNode{
			Position: mgl32.Vec3{r * float32(sin), opts.Height, -r * float32(cos)},
			Tangent:  mgl32.Rotate3DY(yaw).Mul3x1(dir),
		}
	}

	curve, err := NewCurve(nodes)
	if err != nil {
		return nil, err
	}
	raster, err := curve.Rasterize(opts.Samples)
	if err != nil {
		return nil, err
	}
	return &RaceTrack{Curve: curve, Rasterization: raster, TerrainSize: terrainSize}, nil
}

// Checkpoints rasterizes the curve into n evenly spaced gates. It uses the
// same parameter stepping as the cached rasterization and the navmesh.
func (rt *RaceTrack) Checkpoints(n int) (*Rasterization, error) {
	return rt.Curve.Rasterize(n)
}

// Pose is a position with a yaw around the up axis.
type Pose struct {
	Position mgl32.Vec3
	Heading  mgl32.Vec3
	// Yaw is measured so that a model facing -Z points along Heading.
	Yaw float32
}

// StartPose returns the start line pose scaled into world space.
func (rt *RaceTrack) StartPose(scale mgl32.Vec3) Pose {
	p := rt.Curve.Point(0)
	h := rt.Curve.Point(0.001).Sub(p)
	yaw := math.Atan2(float64(h.X()), float64(h.Z())) - math.Atan2(0, -1)
	return Pose{
		Position: mulVec(scale, p),
		Heading:  safeNormalize(h, mgl32.Vec3{0, 0, 1}),
		Yaw:      float32(yaw),
	}
}

func mulVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
