package heightfield

// Sample returns the terrain height at a curve-space position.
//
// Each grid square is split along the (x1,z0)-(x0,z1) diagonal, matching the
// two triangles a terrain mesh builds per square, and the height is
// interpolated on whichever triangle contains the point. Positions outside
// the grid clamp to the nearest edge square.
func (g *Grid) Sample(x, z float32) float32 {
	half := g.Half()
	fx := x + half
	fz := z + half

	x0 := int(fx)
	z0 := int(fz)
	if fx < 0 {
		x0 = 0
	}
	if fz < 0 {
		z0 = 0
	}
	if x0 >= g.size-1 {
		x0 = g.size - 2
	}
	if z0 >= g.size-1 {
		z0 = g.size - 2
	}

	u := clampf(fx-float32(x0), 0, 1)
	v := clampf(fz-float32(z0), 0, 1)

	h00 := g.At(x0, z0)
	h10 := g.At(x0+1, z0)
	h01 := g.At(x0, z0+1)
	h11 := g.At(x0+1, z0+1)

	if u+v <= 1 {
		return h00 + u*(h10-h00) + v*(h01-h00)
	}
	return h11 + (1-u)*(h01-h11) + (1-v)*(h10-h11)
}
