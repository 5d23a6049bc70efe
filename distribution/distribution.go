// Package distribution provides the scalar and vector value sources modules sample from:
// constants, uniform ranges and curves over a particle's relative time.
//
// All types are immutable after construction and safe to share between instances.
// Randomness always comes from the caller's generator.
package distribution

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/interp"
)

// Float produces a scalar for a curve position t (usually relative time in [0,1]).
type Float interface {
	Value(t float32, rng *rand.Rand) float32
}

// Vector produces a vec3 for a curve position t.
type Vector interface {
	Value(t float32, rng *rand.Rand) mgl32.Vec3
}

// Constant always returns the same value.
type Constant float32

func (c Constant) Value(float32, *rand.Rand) float32 { return float32(c) }

// Uniform picks a value in [Min, Max).
type Uniform struct {
	Min, Max float32
}

func (u Uniform) Value(_ float32, rng *rand.Rand) float32 {
	return lerp(u.Min, u.Max, frac(rng))
}

// Point is one curve key.
type Point struct {
	T, V float32
}

// ErrEmptyCurve is returned when a curve has no keys.
var ErrEmptyCurve = errors.New("distribution: curve needs at least one point")

// ErrUnsortedCurve is returned when curve keys are not strictly increasing in T.
var ErrUnsortedCurve = errors.New("distribution: curve keys must have strictly increasing t")

// Curve interpolates linearly between keys and clamps outside the key range.
type Curve struct {
	fit   interp.PiecewiseLinear
	first float32
	last  float32
	t0    float32
	t1    float32
	n     int
}

// NewCurve builds a curve from keys sorted by T. Keys must have strictly
// increasing T.
func NewCurve(points []Point) (*Curve, error) {
	if len(points) == 0 {
		return nil, ErrEmptyCurve
	}
	c := &Curve{
		first: points[0].V,
		last:  points[len(points)-1].V,
		t0:    points[0].T,
		t1:    points[len(points)-1].T,
		n:     len(points),
	}
	if len(points) == 1 {
		return c, nil
	}
	for i := 1; i < len(points); i++ {
		if p := points[i]; p.T <= points[i-1].T {
			return nil, fmt.Errorf("curve key %d at t=%v: %w", i, p.T, ErrUnsortedCurve)
		}
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.T)
		ys[i] = float64(p.V)
	}
	if err := c.fit.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fitting curve: %w", err)
	}
	return c, nil
}

// MustCurve is like NewCurve but panics on error.
func MustCurve(points ...Point) *Curve {
	c, err := NewCurve(points)
	if err != nil {
		panic(err)
	}
	return c
}

// At evaluates the curve at t.
func (c *Curve) At(t float32) float32 {
	switch {
	case c.n == 1 || t <= c.t0:
		return c.first
	case t >= c.t1:
		return c.last
	}
	return float32(c.fit.Predict(float64(t)))
}

func (c *Curve) Value(t float32, _ *rand.Rand) float32 { return c.At(t) }

// UniformCurve picks a value between two curves evaluated at t.
type UniformCurve struct {
	Min, Max *Curve
}

func (u UniformCurve) Value(t float32, rng *rand.Rand) float32 {
	return lerp(u.Min.At(t), u.Max.At(t), frac(rng))
}

// ConstantVector always returns the same vector.
type ConstantVector mgl32.Vec3

func (c ConstantVector) Value(float32, *rand.Rand) mgl32.Vec3 { return mgl32.Vec3(c) }

// UniformVector picks each component independently in [Min, Max).
type UniformVector struct {
	Min, Max mgl32.Vec3
}

func (u UniformVector) Value(_ float32, rng *rand.Rand) mgl32.Vec3 {
	var out mgl32.Vec3
	for i := range out {
		out[i] = lerp(u.Min[i], u.Max[i], frac(rng))
	}
	return out
}

// ComponentVector samples one Float per axis.
type ComponentVector struct {
	X, Y, Z Float
}

func (c ComponentVector) Value(t float32, rng *rand.Rand) mgl32.Vec3 {
	return mgl32.Vec3{sample(c.X, t, rng), sample(c.Y, t, rng), sample(c.Z, t, rng)}
}

// Sample evaluates f, treating a nil distribution as zero.
func Sample(f Float, t float32, rng *rand.Rand) float32 {
	return sample(f, t, rng)
}

// SampleVector evaluates v, treating a nil distribution as the zero vector.
func SampleVector(v Vector, t float32, rng *rand.Rand) mgl32.Vec3 {
	if v == nil {
		return mgl32.Vec3{}
	}
	return v.Value(t, rng)
}

func sample(f Float, t float32, rng *rand.Rand) float32 {
	if f == nil {
		return 0
	}
	return f.Value(t, rng)
}

func frac(rng *rand.Rand) float32 {
	if rng == nil {
		return 0.5
	}
	return rng.Float32()
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
