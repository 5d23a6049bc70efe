// Package camera provides the viewer that drives LOD selection and culling.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is the scene viewer. LOD distances are measured from Position and
// divided by Zoom, so zooming in raises detail without moving the camera.
type Camera struct {
	// Position is the viewer location in world coordinates
	Position mgl32.Vec3

	// Zoom level (1.0 = no bias, 2.0 = effects read as half as far)
	Zoom float32

	// Zoom constraints
	MinZoom, MaxZoom float32

	// FarClip culls effects whose bounds lie entirely beyond it and stops
	// effects placed beyond it from spawning (0 = unlimited)
	FarClip float32

	// Orbit circles Target at OrbitRadius, OrbitSpeed radians per second,
	// OrbitHeight above it. A zero radius keeps the camera fixed.
	Target      mgl32.Vec3
	OrbitRadius float32
	OrbitSpeed  float32
	OrbitHeight float32
	angle       float32

	home mgl32.Vec3
}

// New creates a fixed camera at pos with no zoom bias.
func New(pos mgl32.Vec3) *Camera {
	return &Camera{
		Position: pos,
		Zoom:     1.0,
		MinZoom:  0.25,
		MaxZoom:  4.0,
		home:     pos,
	}
}

// SetOrbit starts circling target. The camera is placed on the orbit at once.
func (c *Camera) SetOrbit(target mgl32.Vec3, radius, speed, height float32) {
	c.Target = target
	c.OrbitRadius = radius
	c.OrbitSpeed = speed
	c.OrbitHeight = height
	c.angle = 0
	if radius > 0 {
		c.placeOnOrbit()
	}
}

// Update advances the orbit by dt seconds.
func (c *Camera) Update(dt float32) {
	if c.OrbitRadius <= 0 {
		return
	}
	c.angle = float32(math.Mod(float64(c.angle+c.OrbitSpeed*dt), 2*math.Pi))
	c.placeOnOrbit()
}

func (c *Camera) placeOnOrbit() {
	s, co := math.Sincos(float64(c.angle))
	c.Position = c.Target.Add(mgl32.Vec3{
		c.OrbitRadius * float32(co),
		c.OrbitRadius * float32(s),
		c.OrbitHeight,
	})
}

// MoveTo places the camera at pos and stops any orbit.
func (c *Camera) MoveTo(pos mgl32.Vec3) {
	c.Position = pos
	c.OrbitRadius = 0
}

// LODDistance returns the zoom-adjusted distance used to pick a detail level.
func (c *Camera) LODDistance(p mgl32.Vec3) float32 {
	return p.Sub(c.Position).Len() / c.Zoom
}

// IsVisible reports whether a sphere is at least partly inside the far clip.
func (c *Camera) IsVisible(center mgl32.Vec3, radius float32) bool {
	if c.FarClip <= 0 {
		return true
	}
	return center.Sub(c.Position).Len()-radius <= c.FarClip
}

// IsBoxVisible reports whether an axis-aligned box is at least partly inside the far clip.
func (c *Camera) IsBoxVisible(min, max mgl32.Vec3) bool {
	center := min.Add(max).Mul(0.5)
	return c.IsVisible(center, max.Sub(center).Len())
}

// Pan moves the camera and its orbit target by d.
func (c *Camera) Pan(d mgl32.Vec3) {
	c.Position = c.Position.Add(d)
	c.Target = c.Target.Add(d)
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to its starting position and zoom and stops orbiting.
func (c *Camera) Reset() {
	c.Position = c.home
	c.Zoom = 1.0
	c.OrbitRadius = 0
	c.angle = 0
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
