package heightfield

import (
	"fmt"
	"math/rand"

	perlin "github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Noise is a smooth 3D gradient noise returning values roughly in [-1, 1].
type Noise interface {
	Eval3(x, y, z float64) float64
}

// Basis names a noise implementation.
type Basis string

// Supported noise bases.
const (
	BasisPerlin  Basis = "perlin"
	BasisSimplex Basis = "simplex"
)

// Perlin parameters for a single octave: n=1 makes alpha and beta irrelevant.
const (
	perlinAlpha   = 2
	perlinBeta    = 2
	perlinOctaves = 1
)

type perlinNoise struct {
	p *perlin.Perlin
}

func (n perlinNoise) Eval3(x, y, z float64) float64 {
	return n.p.Noise3D(x, y, z)
}

// NewNoise builds a noise source of the given basis seeded from rng.
func NewNoise(basis Basis, rng *rand.Rand) (Noise, error) {
	seed := rng.Int63()
	switch basis {
	case BasisPerlin, "":
		return perlinNoise{p: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed)}, nil
	case BasisSimplex:
		return opensimplex.New(seed), nil
	default:
		return nil, fmt.Errorf("heightfield: unknown noise basis %q", basis)
	}
}
