package surface

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rally/pkg/navmesh"
	"github.com/Faultbox/rally/pkg/track"
)

const (
	ringSections = 16
	outerRadius  = 110
	innerRadius  = 90
)

// ringMesh is a banked, rolling ribbon between radius 90 and 110.
func ringMesh(t *testing.T) *navmesh.NavMesh {
	t.Helper()
	left := make([]mgl32.Vec3, ringSections)
	right := make([]mgl32.Vec3, ringSections)
	for i := range ringSections {
		a := 2 * math.Pi * float64(i) / ringSections
		s, c := float32(math.Sin(a)), float32(math.Cos(a))
		y := 5 + 3*float32(math.Sin(2*a))
		left[i] = mgl32.Vec3{outerRadius * s, y + 2, -outerRadius * c}
		right[i] = mgl32.Vec3{innerRadius * s, y, -innerRadius * c}
	}
	m, err := navmesh.FromRibbon(left, right)
	if err != nil {
		t.Fatalf("FromRibbon: %v", err)
	}
	return m
}

func radial(p mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{p.X(), 0, p.Z()}.Normalize()
}

func centroid(tri *navmesh.Triangle) mgl32.Vec3 {
	return tri.Vertices[0].Add(tri.Vertices[1]).Add(tri.Vertices[2]).Mul(1.0 / 3)
}

// edgeDistance returns the distance from p to tri's AC segment.
func edgeDistance(tri *navmesh.Triangle, p mgl32.Vec3) float32 {
	c := mgl32.Clamp(tri.Project(p), 0, 1)
	return tri.PointAt(c).Sub(p).Len()
}

func TestTracker_Idempotent(t *testing.T) {
	m := ringMesh(t)
	tr := NewTracker(m)

	for _, k := range []int{0, 1, 7, 20, m.Len() - 1} {
		tri := m.Triangle(k)
		b := &Body{Position: centroid(tri)}

		if s := tr.Update(b); s != OnTrack {
			t.Fatalf("triangle %d: state %s, want on-track", k, s)
		}
		if tr.Last() != k {
			t.Errorf("triangle %d: Last() = %d", k, tr.Last())
		}
		if !b.Position.ApproxEqualThreshold(centroid(tri), 1e-3) {
			t.Errorf("triangle %d: position moved to %v", k, b.Position)
		}
		if b.Normal != tri.Normal {
			t.Errorf("triangle %d: normal %v, want %v", k, b.Normal, tri.Normal)
		}

		first := *b
		tr.Update(b)
		if !b.Position.ApproxEqualThreshold(first.Position, 1e-4) || b.Normal != first.Normal {
			t.Errorf("triangle %d: second update changed %+v to %+v", k, first, *b)
		}
	}
}

func TestTracker_SnapsAboveAndBelow(t *testing.T) {
	m := ringMesh(t)
	tr := NewTracker(m)
	tri := m.Triangle(9)
	c := centroid(tri)

	for _, dy := range []float32{50, -50} {
		b := &Body{Position: c.Add(mgl32.Vec3{0, dy, 0})}
		if s := tr.Update(b); s != OnTrack {
			t.Fatalf("dy=%v: state %s", dy, s)
		}
		if !b.Position.ApproxEqualThreshold(c, 1e-3) {
			t.Errorf("dy=%v: position %v, want %v", dy, b.Position, c)
		}
	}
}

func TestTracker_Recovery(t *testing.T) {
	m := ringMesh(t)
	n := m.Len()

	tests := []struct {
		name  string
		start int
		// off returns a position off the ribbon for the start triangle.
		off  func(tri *navmesh.Triangle) mgl32.Vec3
		want int
	}{
		{
			name:  "past the end of a left triangle",
			start: 4,
			off: func(tri *navmesh.Triangle) mgl32.Vec3 {
				end := tri.Vertices[2]
				return end.Add(tri.AC.Mul(0.5)).Add(radial(end).Mul(20))
			},
			want: 6,
		},
		{
			name:  "before the start of a left triangle",
			start: 4,
			off: func(tri *navmesh.Triangle) mgl32.Vec3 {
				start := tri.Vertices[0]
				return start.Sub(tri.AC.Mul(0.5)).Add(radial(start).Mul(20))
			},
			want: 2,
		},
		{
			name:  "past the end of a right triangle",
			start: 5,
			off: func(tri *navmesh.Triangle) mgl32.Vec3 {
				end := tri.Vertices[2]
				return end.Add(tri.AC.Mul(0.5)).Sub(radial(end).Mul(20))
			},
			want: 3,
		},
		{
			name:  "left triangle across the loop seam",
			start: n - 2,
			off: func(tri *navmesh.Triangle) mgl32.Vec3 {
				end := tri.Vertices[2]
				return end.Add(tri.AC.Mul(0.5)).Add(radial(end).Mul(20))
			},
			want: 0,
		},
		{
			name:  "right triangle across the loop seam",
			start: 1,
			off: func(tri *navmesh.Triangle) mgl32.Vec3 {
				end := tri.Vertices[2]
				return end.Add(tri.AC.Mul(0.5)).Sub(radial(end).Mul(20))
			},
			want: n - 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(m, WithStart(tt.start))
			start := m.Triangle(tt.start)
			pre := tt.off(start)
			if c := start.Project(pre); c >= 0 && c <= 1 {
				t.Fatalf("setup: coord %v is inside [0, 1]", c)
			}
			if _, ok := m.LocateLinear(pre); ok {
				t.Fatalf("setup: %v is on the ribbon", pre)
			}

			b := &Body{Position: pre}
			if s := tr.Update(b); s != Recovering {
				t.Fatalf("state %s, want recovering", s)
			}
			if tr.Last() != tt.want {
				t.Fatalf("Last() = %d, want %d", tr.Last(), tt.want)
			}
			if b.Position == pre {
				t.Fatal("position left at its off-ribbon value")
			}
			got := m.Triangle(tt.want)
			if d := edgeDistance(got, b.Position); d > 1e-3 {
				t.Errorf("position %v is %v away from the AC edge of %d", b.Position, d, tt.want)
			}
			if b.Normal != got.Normal {
				t.Errorf("normal %v, want %v", b.Normal, got.Normal)
			}
		})
	}
}

func TestTracker_RecoveryInsideEdgeStays(t *testing.T) {
	m := ringMesh(t)
	tr := NewTracker(m, WithStart(8))
	tri := m.Triangle(8)

	mid := tri.PointAt(0.5)
	pre := mid.Add(radial(mid).Mul(25))
	b := &Body{Position: pre}

	if s := tr.Update(b); s != Recovering {
		t.Fatalf("state %s, want recovering", s)
	}
	if tr.Last() != 8 {
		t.Errorf("Last() = %d, want 8", tr.Last())
	}
	if d := edgeDistance(tri, b.Position); d > 1e-3 {
		t.Errorf("position %v not on the AC edge", b.Position)
	}
	if c := tri.Project(b.Position); c < 0 || c > 1 {
		t.Errorf("coord %v outside [0, 1]", c)
	}
}

func TestTracker_IndexMatchesLinear(t *testing.T) {
	m := ringMesh(t)
	indexed := NewTracker(m)
	linear := NewTracker(m, WithLinearScan())
	rng := rand.New(rand.NewSource(11))

	for step := range 500 {
		pos := mgl32.Vec3{
			float32(rng.Float64()*260 - 130),
			float32(rng.Float64()*40 - 10),
			float32(rng.Float64()*260 - 130),
		}
		a, b := &Body{Position: pos}, &Body{Position: pos}
		sa, sb := indexed.Update(a), linear.Update(b)
		if sa != sb || *a != *b || indexed.Last() != linear.Last() {
			t.Fatalf("step %d at %v: indexed (%s, %+v, %d), linear (%s, %+v, %d)",
				step, pos, sa, *a, indexed.Last(), sb, *b, linear.Last())
		}
	}
}

func TestTracker_NeverLeavesRibbon(t *testing.T) {
	m := ringMesh(t)
	tr := NewTracker(m)
	rng := rand.New(rand.NewSource(5))
	b := &Body{Position: centroid(m.Triangle(0))}

	for step := range 300 {
		b.Position = b.Position.Add(mgl32.Vec3{
			float32(rng.Float64()*30 - 15),
			float32(rng.Float64()*6 - 3),
			float32(rng.Float64()*30 - 15),
		})
		switch tr.Update(b) {
		case OnTrack:
			if _, ok := m.CastAt(tr.Last(), b.Position); !ok {
				t.Fatalf("step %d: on-track body %v not on triangle %d", step, b.Position, tr.Last())
			}
		case Recovering:
			if _, ok := m.CastAt(tr.Last(), b.Position); ok {
				break
			}
			if d := edgeDistance(m.Triangle(tr.Last()), b.Position); d > 1e-2 {
				t.Fatalf("step %d: recovered body %v is %v off triangle %d", step, b.Position, d, tr.Last())
			}
		}
		if math.IsNaN(float64(b.Position.Len())) {
			t.Fatalf("step %d: NaN position", step)
		}
	}
}

func TestTracker_Reset(t *testing.T) {
	m := ringMesh(t)
	tr := NewTracker(m)

	b := &Body{Position: mgl32.Vec3{0, 0, 0}}
	tr.Reset(b, 3+m.Len())
	if tr.Last() != 3 {
		t.Errorf("Last() = %d, want 3", tr.Last())
	}
	if d := edgeDistance(m.Triangle(3), b.Position); d > 1e-3 {
		t.Errorf("reset position %v not on triangle 3", b.Position)
	}

	c := centroid(m.Triangle(12))
	b.Position = c.Add(mgl32.Vec3{0, 10, 0})
	tr.Reset(b, 12)
	if !b.Position.ApproxEqualThreshold(c, 1e-3) || tr.State() != OnTrack {
		t.Errorf("reset above triangle 12 gave %v, state %s", b.Position, tr.State())
	}
}

func TestGhost(t *testing.T) {
	const n = 8
	pts := make([]mgl32.Vec3, n)
	for i := range n {
		a := 2 * math.Pi * float64(i) / n
		pts[i] = mgl32.Vec3{20 * float32(math.Sin(a)), 0.2, -20 * float32(math.Cos(a))}
	}
	curve, err := track.NewCatmullRomCurve(pts)
	if err != nil {
		t.Fatalf("NewCatmullRomCurve: %v", err)
	}
	scale := mgl32.Vec3{50, 7500, 50}
	mesh, err := navmesh.Build(curve, 200, 3, scale)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	const lap = 1000 * time.Second
	g := NewGhost(curve, mesh, scale, lap)

	// 3.7s is 0.74 of a section in, clear of the quad diagonal.
	offset := 3700 * time.Millisecond
	first := g.Frame(offset)
	if !first.OnTrack {
		t.Fatal("ghost not on the ribbon")
	}
	if math.Abs(float64(first.Position.Y()-1500)) > 1 {
		t.Errorf("ghost height %v, want about 1500", first.Position.Y())
	}
	if first.Normal.Y() < 0.99 {
		t.Errorf("ghost normal %v on flat ribbon", first.Normal)
	}
	if l := first.Heading.Len(); math.Abs(float64(l-1)) > 1e-4 {
		t.Errorf("heading length %v", l)
	}

	quarter := g.Frame(lap/4 + offset)
	want := curve.Point(0.25 + 0.0037)
	if math.Abs(float64(quarter.Position.X()-want.X()*50)) > 1 || math.Abs(float64(quarter.Position.Z()-want.Z()*50)) > 1 {
		t.Errorf("quarter-lap position %v, want near %v", quarter.Position, want.Mul(50))
	}
	if quarter.WheelRotation >= 0 {
		t.Errorf("wheel rotation %v after moving, want negative", quarter.WheelRotation)
	}

	again := g.Frame(lap + offset)
	if !again.Position.ApproxEqualThreshold(first.Position, 1e-1) {
		t.Errorf("next lap position %v, want %v", again.Position, first.Position)
	}
	if g.Param(lap) != 0 {
		t.Errorf("Param(lap) = %v, want 0", g.Param(lap))
	}
}

func TestState_String(t *testing.T) {
	if OnTrack.String() != "on-track" || Recovering.String() != "recovering" || State(7).String() != "State(7)" {
		t.Error("unexpected state names")
	}
}

func TestTracker_SectionSeamStaysOnTrack(t *testing.T) {
	m := ringMesh(t)
	for _, linear := range []bool{false, true} {
		for i := range m.Sections() {
			even := 2 * i
			tri := m.Triangle(even)
			for _, s := range []float32{0.1, 0.5, 0.9} {
				opts := []Option{WithStart(even)}
				if linear {
					opts = append(opts, WithLinearScan())
				}
				tr := NewTracker(m, opts...)

				p := tri.Vertices[0].Add(tri.AB.Mul(s))
				b := &Body{Position: p.Add(mgl32.Vec3{0, 5, 0})}
				if st := tr.Update(b); st != OnTrack {
					t.Fatalf("linear=%v section %d s=%v: state %s", linear, i, s, st)
				}
				if !b.Position.ApproxEqualThreshold(p, 1e-3) {
					t.Errorf("linear=%v section %d s=%v: moved to %v, want %v", linear, i, s, b.Position, p)
				}
				if last := tr.Last(); last != even && last != m.Wrap(even-1) {
					t.Errorf("linear=%v section %d s=%v: Last() = %d", linear, i, s, last)
				}
			}
		}
	}
}
