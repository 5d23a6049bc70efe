// Package particle provides the packed particle record, the pool that owns record storage,
// and the layout table that assigns module payload regions inside each record.
package particle

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Index is a physical slot in a pool's record buffer.
// It stays stable for the lifetime of the particle occupying it.
type Index int32

// None marks an absent physical index (e.g. the end of a chain).
const None Index = -1

// Base field offsets. Every record starts with these.
const (
	offLocation         = 0
	offOldLocation      = 12
	offVelocity         = 24
	offBaseVelocity     = 36
	offRotation         = 48
	offBaseRotation     = 52
	offRotationRate     = 56
	offBaseRotationRate = 60
	offSize             = 64
	offBaseSize         = 76
	offColor            = 88
	offBaseColor        = 104
	offRelativeTime     = 120
	offOneOverMaxLife   = 124
	offFlags            = 128
	offPlacement        = 132

	// BaseSize is the size of the base fields, padded to the record alignment.
	BaseSize = 144
)

// RecordAlign is the alignment applied to the total stride.
const RecordAlign = 16

// Flag bits stored in the base flags field.
const (
	// FlagKill requests removal in the next kill pass.
	FlagKill uint32 = 1 << iota
	// FlagFreeze stops kinematic integration for the particle.
	FlagFreeze
)

// Record is a view of one particle's bytes. Its length is the pool stride.
type Record []byte

func (r Record) f32(off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(r[off:]))
}

func (r Record) putF32(off int, v float32) {
	binary.LittleEndian.PutUint32(r[off:], math.Float32bits(v))
}

func (r Record) vec3(off int) mgl32.Vec3 {
	return mgl32.Vec3{r.f32(off), r.f32(off + 4), r.f32(off + 8)}
}

func (r Record) putVec3(off int, v mgl32.Vec3) {
	r.putF32(off, v[0])
	r.putF32(off+4, v[1])
	r.putF32(off+8, v[2])
}

func (r Record) vec4(off int) mgl32.Vec4 {
	return mgl32.Vec4{r.f32(off), r.f32(off + 4), r.f32(off + 8), r.f32(off + 12)}
}

func (r Record) putVec4(off int, v mgl32.Vec4) {
	for i := 0; i < 4; i++ {
		r.putF32(off+i*4, v[i])
	}
}

func (r Record) Location() mgl32.Vec3          { return r.vec3(offLocation) }
func (r Record) SetLocation(v mgl32.Vec3)      { r.putVec3(offLocation, v) }
func (r Record) OldLocation() mgl32.Vec3       { return r.vec3(offOldLocation) }
func (r Record) SetOldLocation(v mgl32.Vec3)   { r.putVec3(offOldLocation, v) }
func (r Record) Velocity() mgl32.Vec3          { return r.vec3(offVelocity) }
func (r Record) SetVelocity(v mgl32.Vec3)      { r.putVec3(offVelocity, v) }
func (r Record) BaseVelocity() mgl32.Vec3      { return r.vec3(offBaseVelocity) }
func (r Record) SetBaseVelocity(v mgl32.Vec3)  { r.putVec3(offBaseVelocity, v) }
func (r Record) Rotation() float32             { return r.f32(offRotation) }
func (r Record) SetRotation(v float32)         { r.putF32(offRotation, v) }
func (r Record) BaseRotation() float32         { return r.f32(offBaseRotation) }
func (r Record) SetBaseRotation(v float32)     { r.putF32(offBaseRotation, v) }
func (r Record) RotationRate() float32         { return r.f32(offRotationRate) }
func (r Record) SetRotationRate(v float32)     { r.putF32(offRotationRate, v) }
func (r Record) BaseRotationRate() float32     { return r.f32(offBaseRotationRate) }
func (r Record) SetBaseRotationRate(v float32) { r.putF32(offBaseRotationRate, v) }
func (r Record) Size() mgl32.Vec3              { return r.vec3(offSize) }
func (r Record) SetSize(v mgl32.Vec3)          { r.putVec3(offSize, v) }
func (r Record) BaseSize() mgl32.Vec3          { return r.vec3(offBaseSize) }
func (r Record) SetBaseSize(v mgl32.Vec3)      { r.putVec3(offBaseSize, v) }
func (r Record) Color() mgl32.Vec4             { return r.vec4(offColor) }
func (r Record) SetColor(v mgl32.Vec4)         { r.putVec4(offColor, v) }
func (r Record) BaseColor() mgl32.Vec4         { return r.vec4(offBaseColor) }
func (r Record) SetBaseColor(v mgl32.Vec4)     { r.putVec4(offBaseColor, v) }

// RelativeTime is the elapsed fraction of the particle's lifetime, in [0,1).
func (r Record) RelativeTime() float32     { return r.f32(offRelativeTime) }
func (r Record) SetRelativeTime(v float32) { r.putF32(offRelativeTime, v) }

func (r Record) OneOverMaxLifetime() float32     { return r.f32(offOneOverMaxLife) }
func (r Record) SetOneOverMaxLifetime(v float32) { r.putF32(offOneOverMaxLife, v) }

func (r Record) Placement() float32     { return r.f32(offPlacement) }
func (r Record) SetPlacement(v float32) { r.putF32(offPlacement, v) }

func (r Record) Flags() uint32 { return binary.LittleEndian.Uint32(r[offFlags:]) }

func (r Record) SetFlags(v uint32) { binary.LittleEndian.PutUint32(r[offFlags:], v) }

// HasFlag reports whether all bits in f are set.
func (r Record) HasFlag(f uint32) bool { return r.Flags()&f == f }

// Kill marks the particle for removal in the next kill pass.
func (r Record) Kill() { r.SetFlags(r.Flags() | FlagKill) }

// CopyBase copies the base fields of src into r.
func (r Record) CopyBase(src Record) {
	copy(r[:BaseSize], src[:BaseSize])
}
