package components

import "github.com/go-gl/mathgl/mgl32"

// Position represents an entity's world position.
type Position struct {
	X, Y, Z float32
}

// Vec returns the position as a vector.
func (p Position) Vec() mgl32.Vec3 { return mgl32.Vec3{p.X, p.Y, p.Z} }

// Velocity represents an entity's velocity in units per second.
type Velocity struct {
	X, Y, Z float32
}

// Vec returns the velocity as a vector.
func (v Velocity) Vec() mgl32.Vec3 { return mgl32.Vec3{v.X, v.Y, v.Z} }

// Sweep swings an edge pair around its entity to feed an anim trail.
// A swing lasts Duration seconds and covers Arc radians; Pause seconds
// separate swings.
type Sweep struct {
	Length   float32 // distance between the two edges
	Arc      float32 // radians per swing
	Duration float32 // seconds per swing
	Pause    float32 // seconds between swings
	Elapsed  float32 // seconds into the current swing or pause
	Swinging bool
}
