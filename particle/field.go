package particle

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

var strict atomic.Bool

// SetStrict turns layout violations into panics. Off by default, in which case
// a violating read yields the zero value and a violating write is dropped.
func SetStrict(on bool) { strict.Store(on) }

// Strict reports whether layout violations panic.
func Strict() bool { return strict.Load() }

func violation(kind string, off, width, limit int) {
	if strict.Load() {
		panic(fmt.Sprintf("particle: %s access at offset %d (width %d) outside region of %d bytes", kind, off, width, limit))
	}
}

// Region is a contiguous byte range assigned by the layout table, either inside a
// particle record (payload) or inside an instance data block.
// The zero Region is unregistered; every field derived from it is invalid.
type Region struct {
	Offset int
	Size   int
}

// Valid reports whether the region was registered with a non-zero size.
func (r Region) Valid() bool { return r.Size > 0 }

// FloatField addresses a float32 inside a record or block.
type FloatField struct{ off int }

// Vec3Field addresses three consecutive float32 values.
type Vec3Field struct{ off int }

// Vec4Field addresses four consecutive float32 values.
type Vec4Field struct{ off int }

// Int32Field addresses an int32.
type Int32Field struct{ off int }

// Uint32Field addresses a uint32.
type Uint32Field struct{ off int }

func (r Region) field(rel, width int) int {
	if !r.Valid() || rel < 0 || rel+width > r.Size {
		violation("field", rel, width, r.Size)
		return -1
	}
	return r.Offset + rel
}

// Float returns a handle to the float32 at rel bytes into the region.
func (r Region) Float(rel int) FloatField { return FloatField{r.field(rel, 4)} }

// Vec3 returns a handle to the vec3 at rel bytes into the region.
func (r Region) Vec3(rel int) Vec3Field { return Vec3Field{r.field(rel, 12)} }

// Vec4 returns a handle to the vec4 at rel bytes into the region.
func (r Region) Vec4(rel int) Vec4Field { return Vec4Field{r.field(rel, 16)} }

// Int32 returns a handle to the int32 at rel bytes into the region.
func (r Region) Int32(rel int) Int32Field { return Int32Field{r.field(rel, 4)} }

// Uint32 returns a handle to the uint32 at rel bytes into the region.
func (r Region) Uint32(rel int) Uint32Field { return Uint32Field{r.field(rel, 4)} }

// Valid reports whether the handle points at registered storage.
func (f FloatField) Valid() bool  { return f.off >= 0 }
func (f Vec3Field) Valid() bool   { return f.off >= 0 }
func (f Vec4Field) Valid() bool   { return f.off >= 0 }
func (f Int32Field) Valid() bool  { return f.off >= 0 }
func (f Uint32Field) Valid() bool { return f.off >= 0 }

// Bytes is any byte storage addressed by field handles: a Record or an instance block.
type Bytes []byte

func (b Bytes) ok(off, width int) bool {
	if off < 0 || off+width > len(b) {
		violation("storage", off, width, len(b))
		return false
	}
	return true
}

func (b Bytes) Float(f FloatField) float32 {
	if !b.ok(f.off, 4) {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b[f.off:]))
}

func (b Bytes) SetFloat(f FloatField, v float32) {
	if b.ok(f.off, 4) {
		binary.LittleEndian.PutUint32(b[f.off:], math.Float32bits(v))
	}
}

func (b Bytes) Vec3(f Vec3Field) mgl32.Vec3 {
	if !b.ok(f.off, 12) {
		return mgl32.Vec3{}
	}
	r := Record(b)
	return r.vec3(f.off)
}

func (b Bytes) SetVec3(f Vec3Field, v mgl32.Vec3) {
	if b.ok(f.off, 12) {
		Record(b).putVec3(f.off, v)
	}
}

func (b Bytes) Vec4(f Vec4Field) mgl32.Vec4 {
	if !b.ok(f.off, 16) {
		return mgl32.Vec4{}
	}
	return Record(b).vec4(f.off)
}

func (b Bytes) SetVec4(f Vec4Field, v mgl32.Vec4) {
	if b.ok(f.off, 16) {
		Record(b).putVec4(f.off, v)
	}
}

func (b Bytes) Int32(f Int32Field) int32 {
	if !b.ok(f.off, 4) {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b[f.off:]))
}

func (b Bytes) SetInt32(f Int32Field, v int32) {
	if b.ok(f.off, 4) {
		binary.LittleEndian.PutUint32(b[f.off:], uint32(v))
	}
}

func (b Bytes) Uint32(f Uint32Field) uint32 {
	if !b.ok(f.off, 4) {
		return 0
	}
	return binary.LittleEndian.Uint32(b[f.off:])
}

func (b Bytes) SetUint32(f Uint32Field, v uint32) {
	if b.ok(f.off, 4) {
		binary.LittleEndian.PutUint32(b[f.off:], v)
	}
}

// View is what modules see of a particle: its record, its physical slot and the
// payload region the layout table assigned to the calling module.
type View struct {
	Record  Record
	Index   Index
	Payload Region
}

func (v View) bytes() Bytes { return Bytes(v.Record) }

// Float reads the float32 at rel bytes into the module payload.
func (v View) Float(rel int) float32 { return v.bytes().Float(v.Payload.Float(rel)) }

func (v View) SetFloat(rel int, x float32) { v.bytes().SetFloat(v.Payload.Float(rel), x) }

func (v View) Vec3(rel int) mgl32.Vec3 { return v.bytes().Vec3(v.Payload.Vec3(rel)) }

func (v View) SetVec3(rel int, x mgl32.Vec3) { v.bytes().SetVec3(v.Payload.Vec3(rel), x) }

func (v View) Vec4(rel int) mgl32.Vec4 { return v.bytes().Vec4(v.Payload.Vec4(rel)) }

func (v View) SetVec4(rel int, x mgl32.Vec4) { v.bytes().SetVec4(v.Payload.Vec4(rel), x) }

func (v View) Int32(rel int) int32 { return v.bytes().Int32(v.Payload.Int32(rel)) }

func (v View) SetInt32(rel int, x int32) { v.bytes().SetInt32(v.Payload.Int32(rel), x) }

// Block is a module's slice of the instance data block.
type Block struct {
	Data   Bytes
	Region Region
}

func (b Block) Float(rel int) float32 { return b.Data.Float(b.Region.Float(rel)) }

func (b Block) SetFloat(rel int, x float32) { b.Data.SetFloat(b.Region.Float(rel), x) }

func (b Block) Vec3(rel int) mgl32.Vec3 { return b.Data.Vec3(b.Region.Vec3(rel)) }

func (b Block) SetVec3(rel int, x mgl32.Vec3) { b.Data.SetVec3(b.Region.Vec3(rel), x) }

func (b Block) Uint32(rel int) uint32 { return b.Data.Uint32(b.Region.Uint32(rel)) }

func (b Block) SetUint32(rel int, x uint32) { b.Data.SetUint32(b.Region.Uint32(rel), x) }
