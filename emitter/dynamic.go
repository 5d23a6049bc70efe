package emitter

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/pthm-cable/plume/module"
	"github.com/pthm-cable/plume/particle"
)

// Sprite is one camera-facing particle in a snapshot.
type Sprite struct {
	Location          mgl32.Vec3
	OldLocation       mgl32.Vec3
	Size              mgl32.Vec3
	Rotation          float32
	Color             mgl32.Vec4
	RelativeTime      float32
	SubImage          float32
	DynamicParameters mgl32.Vec4
}

// MeshInstance is one mesh particle in a snapshot.
type MeshInstance struct {
	Location mgl32.Vec3
	Size     mgl32.Vec3
	Rotation mgl32.Quat
	Color    mgl32.Vec4
}

// StripPoint is one point of a chained strip, head first.
type StripPoint struct {
	Location     mgl32.Vec3
	Tangent      mgl32.Vec3
	Up           mgl32.Vec3
	Size         mgl32.Vec3
	Color        mgl32.Vec4
	RelativeTime float32
	Interpolated bool

	FirstEdge          mgl32.Vec3
	SecondEdge         mgl32.Vec3
	FirstEdgeVelocity  mgl32.Vec3
	SecondEdgeVelocity mgl32.Vec3
}

// Strip is one chain in a snapshot.
type Strip struct {
	Trail  int
	Dead   bool
	Points []StripPoint
}

// DynamicData is a render snapshot. It shares no memory with the instance.
type DynamicData struct {
	InstanceID uuid.UUID
	Template   string
	Kind       Kind
	Mesh       string
	LOD        int
	Selected   bool
	Bounds     AABB
	// Tiling is the ribbon texture repeat distance.
	Tiling float32

	Sprites []Sprite
	Meshes  []MeshInstance
	Strips  []Strip
}

func (d *DynamicData) reset() {
	d.Sprites = d.Sprites[:0]
	d.Meshes = d.Meshes[:0]
	d.Strips = d.Strips[:0]
}

// IsDynamicDataRequired reports whether a renderer needs a snapshot at this LOD.
func (in *Instance) IsDynamicDataRequired(lod int) bool {
	if in.state == StateUninitialized || in.pool == nil || in.pool.Active() == 0 {
		return false
	}
	if lod < 0 || lod >= len(in.tmpl.LODLevels) {
		return false
	}
	l := in.tmpl.LODLevels[lod]
	return !l.Disabled && l.Required.RenderMode != RenderNone
}

// GetDynamicData builds a fresh snapshot, or returns false when none is needed.
func (in *Instance) GetDynamicData(selected bool) (*DynamicData, bool) {
	if !in.IsDynamicDataRequired(in.lodIndex) {
		return nil, false
	}
	d := &DynamicData{}
	in.UpdateDynamicData(d, selected)
	return d, true
}

// UpdateDynamicData refills an existing snapshot in place, reusing its slices.
func (in *Instance) UpdateDynamicData(d *DynamicData, selected bool) bool {
	if d == nil || !in.IsDynamicDataRequired(in.lodIndex) {
		return false
	}
	d.reset()
	d.InstanceID = in.id
	d.Template = in.tmpl.Name
	d.Kind = in.tmpl.Kind
	d.Mesh = in.tmpl.Mesh.Mesh
	d.LOD = in.lodIndex
	d.Selected = selected
	d.Bounds = in.bounds
	d.Tiling = in.tmpl.Trail.TilingDistance
	in.variant.fill(in, d)
	in.lastDynamic = d.byteSize()
	return true
}

func (d *DynamicData) byteSize() int {
	n := cap(d.Sprites)*int(unsafe.Sizeof(Sprite{})) + cap(d.Meshes)*int(unsafe.Sizeof(MeshInstance{}))
	for _, s := range d.Strips {
		n += cap(s.Points) * int(unsafe.Sizeof(StripPoint{}))
	}
	return n + cap(d.Strips)*int(unsafe.Sizeof(Strip{}))
}

// drawCount caps n by the LOD's MaxDrawCount.
func (in *Instance) drawCount(n int) int {
	if c := in.lod.Required.MaxDrawCount; c > 0 && c < n {
		return c
	}
	return n
}

// renderLocation is the world position a particle is drawn at.
func (in *Instance) renderLocation(p particle.Index) mgl32.Vec3 {
	loc := in.worldLocation(in.pool.Record(p).Location())
	for _, s := range in.offsetter {
		loc = loc.Add(s.m.LocationOffset(in.view(p, s.entry)))
	}
	return loc
}

// firstModule finds the first module of the current LOD implementing T.
func firstModule[T any](in *Instance) (T, int, bool) {
	for i, m := range in.lod.Modules {
		if c, ok := m.(T); ok {
			return c, i + 1, true
		}
	}
	var zero T
	return zero, 0, false
}

func (in *Instance) fillSprites(d *DynamicData) {
	sub, subE, hasSub := firstModule[module.SubImager](in)
	dyn, dynE, hasDyn := firstModule[module.DynamicParameterer](in)
	n := in.drawCount(in.pool.Active())
	for i := 0; i < n; i++ {
		p := in.pool.At(i)
		r := in.pool.Record(p)
		s := Sprite{
			Location:     in.renderLocation(p),
			OldLocation:  in.worldLocation(r.OldLocation()),
			Size:         r.Size(),
			Rotation:     r.Rotation(),
			Color:        r.Color(),
			RelativeTime: r.RelativeTime(),
		}
		if hasSub {
			s.SubImage = sub.SubImage(in.view(p, subE))
		}
		if hasDyn {
			s.DynamicParameters = dyn.DynamicParameters(in.view(p, dynE))
		}
		d.Sprites = append(d.Sprites, s)
	}
}

func (in *Instance) fillMeshes(d *DynamicData) {
	rot, rotE, hasRot := firstModule[module.MeshRotator](in)
	n := in.drawCount(in.pool.Active())
	for i := 0; i < n; i++ {
		p := in.pool.At(i)
		r := in.pool.Record(p)
		m := MeshInstance{
			Location: in.renderLocation(p),
			Size:     r.Size(),
			Rotation: mgl32.QuatRotate(r.Rotation(), mgl32.Vec3{0, 0, 1}),
			Color:    r.Color(),
		}
		if hasRot {
			m.Rotation = rot.MeshRotation(in.view(p, rotE))
		}
		d.Meshes = append(d.Meshes, m)
	}
}

// fillStrips snapshots every chain head to tail. extra adds kind-specific fields.
func (in *Instance) fillStrips(d *DynamicData, set *ChainSet, extra func(p particle.Index, sp *StripPoint)) {
	budget := in.drawCount(in.pool.Active())
	for _, ch := range set.All() {
		if budget <= 0 {
			return
		}
		strip := Strip{Trail: ch.Trail, Dead: ch.Dead}
		set.Walk(ch, func(p particle.Index) bool {
			r := in.pool.Record(p)
			sp := StripPoint{
				Location:     in.renderLocation(p),
				Tangent:      set.Tangent(p),
				Size:         r.Size(),
				Color:        r.Color(),
				RelativeTime: r.RelativeTime(),
				Interpolated: set.Interpolated(p),
			}
			if extra != nil {
				extra(p, &sp)
			}
			strip.Points = append(strip.Points, sp)
			budget--
			return budget > 0
		})
		d.Strips = append(d.Strips, strip)
	}
}

// GetAllocatedSize returns the bytes in use by live particles and the bytes
// held by the pool, both including the instance block.
func (in *Instance) GetAllocatedSize() (used, capacity int) {
	if in.pool == nil {
		return 0, 0
	}
	perSlot := in.pool.Stride() + 8
	used = in.pool.Active()*perSlot + len(in.block)
	capacity = in.pool.AllocatedBytes() + len(in.block)
	return used, capacity
}

// GetResourceSize reports memory owned by the instance. Exclusive counts only
// particle storage and the instance block; inclusive adds the instance itself,
// the last snapshot buffers and chain bookkeeping.
func (in *Instance) GetResourceSize(exclusive bool) int {
	_, n := in.GetAllocatedSize()
	if exclusive {
		return n
	}
	n += int(unsafe.Sizeof(*in)) + in.lastDynamic
	if c := in.Chains(); c != nil {
		n += c.Len() * int(unsafe.Sizeof(Chain{}))
	}
	return n
}
