package level

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Faultbox/rally/pkg/heightfield"
	"github.com/Faultbox/rally/pkg/navmesh"
	"github.com/Faultbox/rally/pkg/terrain"
	"github.com/Faultbox/rally/pkg/track"
)

// Level cache errors.
var (
	ErrInvalidMagic       = errors.New("invalid level cache magic: expected 'RLVL'")
	ErrUnsupportedVersion = errors.New("unsupported level cache version")
	ErrTruncated          = errors.New("truncated level cache data")
	ErrCorrupt            = errors.New("corrupt level cache data")
)

const (
	cacheMagic   = "RLVL"
	cacheVersion = 1
)

// Field numbers of the cache body. Float arrays are packed fixed32.
const (
	fieldSeed protowire.Number = iota + 1
	fieldSize
	fieldTerrain
	fieldMask
	fieldScale
	fieldLeft
	fieldRight
	fieldNodes
	fieldSamples
	fieldTrees
	fieldLights
)

const (
	floatsPerNode  = 6
	floatsPerTree  = 5
	floatsPerLight = 7
)

// Marshal encodes the level as a cache file: the 4-byte magic, a version byte
// and a protobuf wire body. Derived data (triangles, adjacency, index) is
// rebuilt on load.
func (l *Level) Marshal() []byte {
	left, right := l.Mesh.Ribbon()

	buf := make([]byte, 0, 5+8*len(l.Terrain.Values()))
	buf = append(buf, cacheMagic...)
	buf = append(buf, cacheVersion)

	buf = protowire.AppendTag(buf, fieldSeed, protowire.VarintType)
	buf = protowire.AppendVarint(buf, protowire.EncodeZigZag(l.Seed))
	buf = protowire.AppendTag(buf, fieldSize, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(l.Terrain.Size()))
	buf = appendFloats(buf, fieldTerrain, l.Terrain.Values())
	if l.Mask != nil {
		buf = appendFloats(buf, fieldMask, l.Mask.Values())
	}
	buf = appendFloats(buf, fieldScale, l.Scale[:])
	buf = appendFloats(buf, fieldLeft, flattenVecs(left))
	buf = appendFloats(buf, fieldRight, flattenVecs(right))

	nodes := l.Track.Curve.Nodes()
	flat := make([]float32, 0, floatsPerNode*len(nodes))
	for _, n := range nodes {
		flat = append(flat, n.Position[:]...)
		flat = append(flat, n.Tangent[:]...)
	}
	buf = appendFloats(buf, fieldNodes, flat)
	buf = protowire.AppendTag(buf, fieldSamples, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(l.Track.Rasterization.Len()))

	flat = make([]float32, 0, floatsPerTree*len(l.Trees))
	for _, t := range l.Trees {
		flat = append(flat, t.Position[:]...)
		flat = append(flat, t.Scale, t.Rotation)
	}
	buf = appendFloats(buf, fieldTrees, flat)

	flat = make([]float32, 0, floatsPerLight*len(l.Lights))
	for _, lt := range l.Lights {
		flat = append(flat, lt.Position[:]...)
		flat = append(flat, lt.Color[:]...)
		flat = append(flat, lt.Range)
	}
	return appendFloats(buf, fieldLights, flat)
}

// Save writes the level cache to path.
func (l *Level) Save(path string) error {
	if err := os.WriteFile(path, l.Marshal(), 0644); err != nil {
		return fmt.Errorf("writing level cache: %w", err)
	}
	return nil
}

// LoadFile reads and parses a level cache from path.
func LoadFile(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading level cache: %w", err)
	}
	return Parse(data)
}

type cacheBody struct {
	seed                int64
	size, samples       int
	terrain, mask       []float32
	scale, left, right  []float32
	nodes, trees, light []float32
}

// Parse decodes a level cache and rebuilds the derived navmesh.
func Parse(data []byte) (*Level, error) {
	if len(data) < 5 {
		return nil, ErrTruncated
	}
	if string(data[0:4]) != cacheMagic {
		return nil, ErrInvalidMagic
	}
	if data[4] != cacheVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[4])
	}

	body, err := parseBody(data[5:])
	if err != nil {
		return nil, err
	}
	return body.level()
}

func parseBody(b []byte) (*cacheBody, error) {
	var c cacheBody
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: reading tag", ErrTruncated)
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: reading field %d", ErrTruncated, num)
			}
			b = b[n:]
			switch num {
			case fieldSeed:
				c.seed = protowire.DecodeZigZag(v)
			case fieldSize:
				c.size = int(v)
			case fieldSamples:
				c.samples = int(v)
			}
		case typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: reading field %d", ErrTruncated, num)
			}
			b = b[n:]
			floats, err := decodeFloats(v)
			if err != nil {
				return nil, fmt.Errorf("field %d: %w", num, err)
			}
			switch num {
			case fieldTerrain:
				c.terrain = floats
			case fieldMask:
				c.mask = floats
			case fieldScale:
				c.scale = floats
			case fieldLeft:
				c.left = floats
			case fieldRight:
				c.right = floats
			case fieldNodes:
				c.nodes = floats
			case fieldTrees:
				c.trees = floats
			case fieldLights:
				c.light = floats
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: skipping field %d", ErrTruncated, num)
			}
			b = b[n:]
		}
	}
	return &c, nil
}

func (c *cacheBody) level() (*Level, error) {
	grid, err := heightfield.FromValues(c.size, c.terrain)
	if err != nil {
		return nil, fmt.Errorf("terrain: %w", err)
	}
	lvl := &Level{Seed: c.seed, Terrain: grid}
	if c.mask != nil {
		m, err := heightfield.FromValues(c.size, c.mask)
		if err != nil {
			return nil, fmt.Errorf("mask: %w", err)
		}
		lvl.Mask = &terrain.RoadMask{Grid: m}
	}

	if len(c.scale) != 3 {
		return nil, fmt.Errorf("%w: scale has %d components", ErrTruncated, len(c.scale))
	}
	lvl.Scale = mgl32.Vec3{c.scale[0], c.scale[1], c.scale[2]}

	// The navmesh has one ribbon section per track sample.
	if sections := len(c.left) / 3; c.samples != sections {
		return nil, fmt.Errorf("%w: %d track samples for %d ribbon sections", ErrCorrupt, c.samples, sections)
	}

	if len(c.nodes)%floatsPerNode != 0 {
		return nil, fmt.Errorf("%w: curve nodes", ErrTruncated)
	}
	nodes := make([]track.CurveNode, len(c.nodes)/floatsPerNode)
	for i := range nodes {
		f := c.nodes[i*floatsPerNode:]
		nodes[i] = track.CurveNode{
			Position: mgl32.Vec3{f[0], f[1], f[2]},
			Tangent:  mgl32.Vec3{f[3], f[4], f[5]},
		}
	}
	curve, err := track.NewCurve(nodes)
	if err != nil {
		return nil, err
	}
	raster, err := curve.Rasterize(c.samples)
	if err != nil {
		return nil, err
	}
	lvl.Track = &track.RaceTrack{Curve: curve, Rasterization: raster, TerrainSize: c.size}

	left, err := unflattenVecs(c.left)
	if err != nil {
		return nil, fmt.Errorf("left ribbon: %w", err)
	}
	right, err := unflattenVecs(c.right)
	if err != nil {
		return nil, fmt.Errorf("right ribbon: %w", err)
	}
	lvl.Mesh, err = navmesh.FromRibbon(left, right)
	if err != nil {
		return nil, err
	}

	if len(c.trees)%floatsPerTree != 0 {
		return nil, fmt.Errorf("%w: trees", ErrTruncated)
	}
	lvl.Trees = make([]Tree, len(c.trees)/floatsPerTree)
	for i := range lvl.Trees {
		f := c.trees[i*floatsPerTree:]
		lvl.Trees[i] = Tree{Position: mgl32.Vec3{f[0], f[1], f[2]}, Scale: f[3], Rotation: f[4]}
	}

	if len(c.light)%floatsPerLight != 0 {
		return nil, fmt.Errorf("%w: lights", ErrTruncated)
	}
	lvl.Lights = make([]Light, len(c.light)/floatsPerLight)
	for i := range lvl.Lights {
		f := c.light[i*floatsPerLight:]
		lvl.Lights[i] = Light{
			Position: mgl32.Vec3{f[0], f[1], f[2]},
			Color:    mgl32.Vec3{f[3], f[4], f[5]},
			Range:    f[6],
		}
	}
	return lvl, nil
}

func appendFloats(buf []byte, num protowire.Number, values []float32) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	buf = protowire.AppendVarint(buf, uint64(4*len(values)))
	for _, v := range values {
		buf = protowire.AppendFixed32(buf, math.Float32bits(v))
	}
	return buf
}

func decodeFloats(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: packed floats of %d bytes", ErrTruncated, len(b))
	}
	out := make([]float32, 0, len(b)/4)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return nil, ErrTruncated
		}
		out = append(out, math.Float32frombits(v))
		b = b[n:]
	}
	return out, nil
}

func flattenVecs(vs []mgl32.Vec3) []float32 {
	out := make([]float32, 0, 3*len(vs))
	for _, v := range vs {
		out = append(out, v[:]...)
	}
	return out
}

func unflattenVecs(f []float32) ([]mgl32.Vec3, error) {
	if len(f)%3 != 0 {
		return nil, fmt.Errorf("%w: %d floats is not a vector list", ErrTruncated, len(f))
	}
	out := make([]mgl32.Vec3, len(f)/3)
	for i := range out {
		out[i] = mgl32.Vec3{f[3*i], f[3*i+1], f[3*i+2]}
	}
	return out, nil
}

// Equal reports whether two cache encodings describe the same level.
func Equal(a, b *Level) bool {
	return bytes.Equal(a.Marshal(), b.Marshal())
}
