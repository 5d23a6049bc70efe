package emitter

import "github.com/go-gl/mathgl/mgl32"

// AABB is an axis-aligned box in world space. The zero value is empty.
type AABB struct {
	Min, Max mgl32.Vec3
	Valid    bool
}

// Extend grows the box to contain a sphere of radius r around p.
func (b *AABB) Extend(p mgl32.Vec3, r float32) {
	lo := p.Sub(mgl32.Vec3{r, r, r})
	hi := p.Add(mgl32.Vec3{r, r, r})
	if !b.Valid {
		b.Min, b.Max, b.Valid = lo, hi, true
		return
	}
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], lo[i])
		b.Max[i] = max(b.Max[i], hi[i])
	}
}

// Contains reports whether p lies inside the box.
func (b AABB) Contains(p mgl32.Vec3) bool {
	if !b.Valid {
		return false
	}
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Center returns the middle of the box.
func (b AABB) Center() mgl32.Vec3 { return b.Min.Add(b.Max).Mul(0.5) }

func (in *Instance) updateBounds() {
	in.bounds = AABB{}
	for i := 0; i < in.pool.Active(); i++ {
		r := in.pool.Record(in.pool.At(i))
		s := r.Size()
		radius := max(s[0], s[1], s[2]) * 0.5
		in.bounds.Extend(in.worldLocation(r.Location()), radius)
	}
}

// worldLocation converts a stored particle location into world space.
func (in *Instance) worldLocation(p mgl32.Vec3) mgl32.Vec3 {
	if in.LocalSpace() {
		return p.Add(in.location)
	}
	return p
}
