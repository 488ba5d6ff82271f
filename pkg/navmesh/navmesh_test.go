package navmesh

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rally/pkg/track"
)

var worldScale = mgl32.Vec3{50, 7500, 50}

// hillLoop is a closed loop that rises and falls so triangles are not all coplanar.
func hillLoop(t *testing.T) *track.Curve {
	t.Helper()
	const n = 8
	pts := make([]mgl32.Vec3, n)
	for i := range n {
		a := 2 * math.Pi * float64(i) / n
		y := 0.2 + 0.05*float32(math.Sin(2*a))
		pts[i] = mgl32.Vec3{20 * float32(math.Sin(a)), y, -20 * float32(math.Cos(a))}
	}
	c, err := track.NewCatmullRomCurve(pts)
	if err != nil {
		t.Fatalf("NewCatmullRomCurve: %v", err)
	}
	return c
}

func buildMesh(t *testing.T, samples int) *NavMesh {
	t.Helper()
	m, err := Build(hillLoop(t), samples, 3, worldScale)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func TestBuild_TriangleCount(t *testing.T) {
	for _, samples := range []int{2, 16, 300} {
		m := buildMesh(t, samples)
		if m.Len() != 2*samples {
			t.Errorf("samples=%d: %d triangles, want %d", samples, m.Len(), 2*samples)
		}
		if m.Sections() != samples {
			t.Errorf("samples=%d: %d sections", samples, m.Sections())
		}
		for i, tri := range m.Triangles() {
			if tri.AB.Cross(tri.AC).Len() == 0 {
				t.Fatalf("triangle %d is degenerate", i)
			}
			if tri.Normal.Y() < 0 || math.Abs(float64(tri.Normal.Len()-1)) > 1e-4 {
				t.Fatalf("triangle %d normal %v", i, tri.Normal)
			}
		}
	}
}

func TestBuild_Errors(t *testing.T) {
	curve := hillLoop(t)
	tests := []struct {
		name    string
		samples int
		width   float32
		scale   mgl32.Vec3
		want    error
	}{
		{"zero width", 16, 0, worldScale, ErrInvalidWidth},
		{"negative scale", 16, 3, mgl32.Vec3{50, -1, 50}, ErrInvalidScale},
		{"one sample", 1, 3, worldScale, track.ErrInvalidSampleCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(curve, tt.samples, tt.width, tt.scale); !errors.Is(err, tt.want) {
				t.Errorf("Build error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFromRibbon_Errors(t *testing.T) {
	left := []mgl32.Vec3{{0, 0, 0}, {0, 0, 1}, {0, 0, 2}}
	if _, err := FromRibbon(left, left[:2]); !errors.Is(err, ErrRibbonLengths) {
		t.Errorf("mismatched ribbon: %v, want ErrRibbonLengths", err)
	}
	// Left and right coincide, so every triangle collapses to a line.
	if _, err := FromRibbon(left, left); !errors.Is(err, ErrDegenerateTriangle) {
		t.Errorf("collapsed ribbon: %v, want ErrDegenerateTriangle", err)
	}
}

func TestAdjacency(t *testing.T) {
	m := buildMesh(t, 32)
	n := m.Len()

	for i := range n {
		tri := m.Triangle(i)
		adj := m.Adjacent(i)

		if adj.Before%2 != i%2 || adj.After%2 != i%2 {
			t.Fatalf("triangle %d: Before %d / After %d change parity", i, adj.Before, adj.After)
		}
		if adj.Across != i^1 {
			t.Fatalf("triangle %d: Across = %d", i, adj.Across)
		}
		// AC edges chain end to start along the same ribbon edge.
		if m.Triangle(adj.After).Vertices[0] != tri.Vertices[2] {
			t.Fatalf("triangle %d: After %d does not start where AC ends", i, adj.After)
		}
		if m.Triangle(adj.Before).Vertices[2] != tri.Vertices[0] {
			t.Fatalf("triangle %d: Before %d does not end where AC starts", i, adj.Before)
		}
	}

	seam := []struct {
		idx, before, after int
	}{
		{0, n - 2, 2},
		{n - 2, n - 4, 0},
		{1, 3, n - 1},
		{n - 1, 1, n - 3},
	}
	for _, tt := range seam {
		adj := m.Adjacent(tt.idx)
		if adj.Before != tt.before || adj.After != tt.after {
			t.Errorf("Adjacent(%d) = %+v, want Before %d After %d", tt.idx, adj, tt.before, tt.after)
		}
	}
}

func TestTriangle_Contains(t *testing.T) {
	tri, err := NewTriangle(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{4, 0, 0}, mgl32.Vec3{0, 0, 4})
	if err != nil {
		t.Fatalf("NewTriangle: %v", err)
	}
	tests := []struct {
		p    mgl32.Vec3
		want bool
	}{
		{mgl32.Vec3{1, 0, 1}, true},
		{mgl32.Vec3{0, 0, 0}, true},
		{mgl32.Vec3{2, 0, 2}, true},
		{mgl32.Vec3{3, 0, 3}, false},
		{mgl32.Vec3{-1, 0, 1}, false},
		{mgl32.Vec3{1, 0, -1}, false},
		{mgl32.Vec3{5, 0, 0}, false},
	}
	for _, tt := range tests {
		if got := tri.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if tri.Normal != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("normal = %v, want up", tri.Normal)
	}
	if got := tri.Project(mgl32.Vec3{3, 0, 2}); got != 0.5 {
		t.Errorf("Project = %v, want 0.5", got)
	}
}

func TestRay_IntersectPlane(t *testing.T) {
	up := mgl32.Vec3{0, 1, 0}
	tests := []struct {
		name string
		ray  Ray
		ok   bool
		dist float32
	}{
		{"down onto plane", Ray{Origin: mgl32.Vec3{0, 5, 0}, Direction: Down}, true, 3},
		{"pointing away", Ray{Origin: mgl32.Vec3{0, 5, 0}, Direction: Up}, false, 0},
		{"parallel", Ray{Origin: mgl32.Vec3{0, 5, 0}, Direction: mgl32.Vec3{1, 0, 0}}, false, 0},
		{"on plane", Ray{Origin: mgl32.Vec3{7, 2, 1}, Direction: Up}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := tt.ray.IntersectPlane(up, 2)
			if ok != tt.ok || (ok && d != tt.dist) {
				t.Errorf("IntersectPlane = (%v, %v), want (%v, %v)", d, ok, tt.dist, tt.ok)
			}
		})
	}
}

func TestLocate_Centerline(t *testing.T) {
	curve := hillLoop(t)
	m := buildMesh(t, 200)

	for i := range 50 {
		// Off the cross-section lines and the quad diagonals.
		tt := (float32(i) + 0.3) / 50
		p := curve.Point(tt)
		lat := track.Lateral(curve.Point(tt + 0.001).Sub(p))
		center := mulVec(worldScale, p.Add(lat.Mul(0.4)))
		for _, dy := range []float32{300, -300} {
			h, ok := m.Locate(center.Add(mgl32.Vec3{0, dy, 0}))
			if !ok {
				t.Fatalf("t=%v dy=%v: no hit", tt, dy)
			}
			if math.Abs(float64(h.Point.Y()-center.Y())) > 30 {
				t.Errorf("t=%v: hit height %v, centerline %v", tt, h.Point.Y(), center.Y())
			}
			if h.Point.X() != center.X() || h.Point.Z() != center.Z() {
				t.Errorf("t=%v: vertical hit moved sideways to %v", tt, h.Point)
			}
		}
	}
}

func TestLocate_MatchesLinearScan(t *testing.T) {
	m := buildMesh(t, 120)
	for x := float32(-1300); x <= 1300; x += 37 {
		for z := float32(-1300); z <= 1300; z += 41 {
			pos := mgl32.Vec3{x, 1500, z}
			a, okA := m.Locate(pos)
			b, okB := m.LocateLinear(pos)
			if okA != okB || a != b {
				t.Fatalf("at %v: indexed (%+v, %v), linear (%+v, %v)", pos, a, okA, b, okB)
			}
		}
	}
}

func TestLocate_OffTrack(t *testing.T) {
	m := buildMesh(t, 64)
	if _, ok := m.Locate(mgl32.Vec3{0, 1500, 0}); ok {
		t.Error("loop center should not hit the ribbon")
	}
	if _, ok := m.Locate(mgl32.Vec3{1e5, 0, 1e5}); ok {
		t.Error("far point should not hit the ribbon")
	}
}

func TestRibbon_RoundTrip(t *testing.T) {
	m := buildMesh(t, 40)
	left, right := m.Ribbon()
	again, err := FromRibbon(left, right)
	if err != nil {
		t.Fatalf("FromRibbon: %v", err)
	}
	for i := range m.Len() {
		if *m.Triangle(i) != *again.Triangle(i) {
			t.Fatalf("triangle %d differs after rebuilding from ribbon", i)
		}
	}
}

func TestLocate_SectionSeams(t *testing.T) {
	m := buildMesh(t, 300)
	lift := mgl32.Vec3{0, 5, 0}

	for i := range m.Sections() {
		even := 2 * i
		odd := m.Wrap(even - 1)
		tri := m.Triangle(even)
		// Interior points of L_i–R_i, the edge triangle 2i shares with 2i-1.
		// The end vertices also touch other triangles.
		for _, s := range []float32{0.05, 0.25, 0.5, 0.75, 0.95} {
			p := tri.Vertices[0].Add(tri.AB.Mul(s))
			if !tri.Contains(p) || !m.Triangle(odd).Contains(p) {
				t.Fatalf("section %d s=%v: seam point %v not inside both neighbours", i, s, p)
			}
			for name, locate := range map[string]func(mgl32.Vec3) (Hit, bool){
				"indexed": m.Locate,
				"linear":  m.LocateLinear,
			} {
				h, ok := locate(p.Add(lift))
				if !ok {
					t.Fatalf("%s: section %d s=%v: seam point missed", name, i, s)
				}
				if h.Index != even && h.Index != odd {
					t.Errorf("%s: section %d s=%v: hit triangle %d, want %d or %d", name, i, s, h.Index, even, odd)
				}
				if dx, dz := h.Point.X()-p.X(), h.Point.Z()-p.Z(); dx*dx+dz*dz > 1e-4 {
					t.Errorf("%s: section %d s=%v: hit %v moved away from %v", name, i, s, h.Point, p)
				}
			}
		}
	}
}

func TestTriangle_ContainsFarFromOrigin(t *testing.T) {
	// A long thin world-space triangle, like a ribbon quad half at default scale.
	v0 := mgl32.Vec3{3217.31, 1500.27, -3190.83}
	tri, err := NewTriangle(v0, v0.Add(mgl32.Vec3{-421.7, 3.1, -426.9}), v0.Add(mgl32.Vec3{9.43, 0.6, -9.21}))
	if err != nil {
		t.Fatalf("NewTriangle: %v", err)
	}
	for _, s := range []float32{0, 0.001, 0.3, 0.7, 0.999, 1} {
		for name, p := range map[string]mgl32.Vec3{
			"ab": v0.Add(tri.AB.Mul(s)),
			"ac": v0.Add(tri.AC.Mul(s)),
			"bc": tri.Vertices[1].Add(tri.Vertices[2].Sub(tri.Vertices[1]).Mul(s)),
		} {
			if !tri.Contains(p) {
				t.Errorf("edge %s at %v: %v not contained", name, s, p)
			}
			if !tri.Covers(p.X(), p.Z()) {
				t.Errorf("edge %s at %v: %v outside bounds", name, s, p)
			}
		}
	}
	outside := []mgl32.Vec3{
		v0.Sub(tri.AC.Mul(0.05)),
		v0.Sub(tri.AB.Mul(0.01)),
		tri.Vertices[1].Add(tri.AC.Mul(0.05)),
	}
	for _, p := range outside {
		if tri.Contains(p) {
			t.Errorf("%v should be outside", p)
		}
	}
}

func TestFromRasterization_Alignment(t *testing.T) {
	raster, err := hillLoop(t).Rasterize(90)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	m, err := FromRasterization(raster, 3, worldScale)
	if err != nil {
		t.Fatalf("FromRasterization: %v", err)
	}
	if m.Sections() != raster.Len() {
		t.Fatalf("sections = %d, want %d", m.Sections(), raster.Len())
	}
	left, right := m.Ribbon()
	for i, s := range raster.Points {
		mid := left[i].Add(right[i]).Mul(0.5)
		if want := mulVec(worldScale, s.Position); !mid.ApproxEqualThreshold(want, 1e-2) {
			t.Errorf("section %d centered at %v, sample at %v", i, mid, want)
		}
	}
	if _, err := FromRasterization(raster, 0, worldScale); !errors.Is(err, ErrInvalidWidth) {
		t.Errorf("zero width: %v, want ErrInvalidWidth", err)
	}
}
