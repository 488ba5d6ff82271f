package navmesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// maxIndexCells caps the bucket grid resolution per axis.
const maxIndexCells = 256

// Index buckets triangles on a uniform XZ grid. Each bucket lists every
// triangle whose XZ bounds overlap it, in ascending index order, so scanning
// a bucket visits the same covering triangles as a full scan would.
type Index struct {
	min      mgl32.Vec2
	max      mgl32.Vec2
	cellSize mgl32.Vec2
	width    int
	height   int
	cells    [][]int
}

// NewIndex builds a bucket grid sized to roughly one bucket per triangle.
func NewIndex(tris []Triangle) *Index {
	idx := &Index{width: 1, height: 1}
	if len(tris) == 0 {
		idx.cells = make([][]int, 1)
		return idx
	}

	lo, hi := tris[0].Min, tris[0].Max
	for i := range tris {
		lo = mgl32.Vec2{min(lo.X(), tris[i].Min.X()), min(lo.Y(), tris[i].Min.Y())}
		hi = mgl32.Vec2{max(hi.X(), tris[i].Max.X()), max(hi.Y(), tris[i].Max.Y())}
	}

	side := int(math.Ceil(math.Sqrt(float64(len(tris)))))
	side = min(max(side, 1), maxIndexCells)
	idx.width, idx.height = side, side
	idx.min, idx.max = lo, hi
	idx.cellSize = mgl32.Vec2{
		max((hi.X()-lo.X())/float32(side), 1e-6),
		max((hi.Y()-lo.Y())/float32(side), 1e-6),
	}
	idx.cells = make([][]int, side*side)

	for i := range tris {
		x0, z0 := idx.cell(tris[i].Min.X(), tris[i].Min.Y())
		x1, z1 := idx.cell(tris[i].Max.X(), tris[i].Max.Y())
		for cz := z0; cz <= z1; cz++ {
			for cx := x0; cx <= x1; cx++ {
				c := cz*idx.width + cx
				idx.cells[c] = append(idx.cells[c], i)
			}
		}
	}
	return idx
}

// Candidates returns the triangles whose bounds may cover (x, z), ascending.
// The slice is shared and must not be modified.
func (idx *Index) Candidates(x, z float32) []int {
	if x < idx.min.X() || z < idx.min.Y() || x > idx.max.X() || z > idx.max.Y() {
		return nil
	}
	cx, cz := idx.cell(x, z)
	return idx.cells[cz*idx.width+cx]
}

// cell returns the clamped bucket coordinates of (x, z).
func (idx *Index) cell(x, z float32) (int, int) {
	cx := int((x - idx.min.X()) / idx.cellSize.X())
	cz := int((z - idx.min.Y()) / idx.cellSize.Y())
	return min(max(cx, 0), idx.width-1), min(max(cz, 0), idx.height-1)
}
