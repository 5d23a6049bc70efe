package distribution

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// FloatSpec is the YAML form of a Float. It accepts a bare number, or a mapping
// with exactly one of constant, uniform: [min, max], curve: [[t, v], ...] or
// uniform_curve: {min: [[t, v]...], max: [[t, v]...]}.
type FloatSpec struct {
	Constant     *float32          `yaml:"constant,omitempty"`
	Uniform      []float32         `yaml:"uniform,omitempty"`
	Curve        [][2]float32      `yaml:"curve,omitempty"`
	UniformCurve *UniformCurveSpec `yaml:"uniform_curve,omitempty"`
}

// UniformCurveSpec bounds a UniformCurve.
type UniformCurveSpec struct {
	Min [][2]float32 `yaml:"min"`
	Max [][2]float32 `yaml:"max"`
}

// UnmarshalYAML accepts the scalar shorthand as well as the mapping form.
func (s *FloatSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var v float32
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("line %d: decoding constant: %w", node.Line, err)
		}
		*s = FloatSpec{Constant: &v}
		return nil
	}
	type plain FloatSpec
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = FloatSpec(p)
	return nil
}

// Const is a FloatSpec shorthand.
func Const(v float32) FloatSpec { return FloatSpec{Constant: &v} }

// IsZero reports whether the spec is empty.
func (s FloatSpec) IsZero() bool {
	return s.Constant == nil && s.Uniform == nil && s.Curve == nil && s.UniformCurve == nil
}

// Build converts the spec into a Float. An empty spec yields a nil Float.
func (s FloatSpec) Build() (Float, error) {
	switch {
	case s.IsZero():
		return nil, nil
	case s.Constant != nil:
		return Constant(*s.Constant), nil
	case s.Uniform != nil:
		if len(s.Uniform) != 2 {
			return nil, fmt.Errorf("uniform needs [min, max], got %d values", len(s.Uniform))
		}
		return Uniform{Min: s.Uniform[0], Max: s.Uniform[1]}, nil
	case s.Curve != nil:
		c, err := NewCurve(points(s.Curve))
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		lo, err := NewCurve(points(s.UniformCurve.Min))
		if err != nil {
			return nil, fmt.Errorf("uniform_curve min: %w", err)
		}
		hi, err := NewCurve(points(s.UniformCurve.Max))
		if err != nil {
			return nil, fmt.Errorf("uniform_curve max: %w", err)
		}
		return UniformCurve{Min: lo, Max: hi}, nil
	}
}

func points(keys [][2]float32) []Point {
	out := make([]Point, len(keys))
	for i, k := range keys {
		out[i] = Point{T: k[0], V: k[1]}
	}
	return out
}

// VectorSpec is the YAML form of a Vector: a bare [x, y, z] sequence, or a mapping
// with constant, uniform: {min, max}, or per-axis x/y/z FloatSpecs.
type VectorSpec struct {
	Constant *[3]float32 `yaml:"constant,omitempty"`
	Uniform  *RangeSpec  `yaml:"uniform,omitempty"`
	X        *FloatSpec  `yaml:"x,omitempty"`
	Y        *FloatSpec  `yaml:"y,omitempty"`
	Z        *FloatSpec  `yaml:"z,omitempty"`
}

// RangeSpec bounds a UniformVector.
type RangeSpec struct {
	Min [3]float32 `yaml:"min"`
	Max [3]float32 `yaml:"max"`
}

func (s *VectorSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var v [3]float32
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("line %d: decoding vector: %w", node.Line, err)
		}
		*s = VectorSpec{Constant: &v}
		return nil
	}
	type plain VectorSpec
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = VectorSpec(p)
	return nil
}

// ConstVec is a VectorSpec shorthand.
func ConstVec(x, y, z float32) VectorSpec {
	v := [3]float32{x, y, z}
	return VectorSpec{Constant: &v}
}

func (s VectorSpec) IsZero() bool {
	return s.Constant == nil && s.Uniform == nil && s.X == nil && s.Y == nil && s.Z == nil
}

// Build converts the spec into a Vector. An empty spec yields a nil Vector.
func (s VectorSpec) Build() (Vector, error) {
	switch {
	case s.IsZero():
		return nil, nil
	case s.Constant != nil:
		return ConstantVector(mgl32.Vec3(*s.Constant)), nil
	case s.Uniform != nil:
		return UniformVector{Min: mgl32.Vec3(s.Uniform.Min), Max: mgl32.Vec3(s.Uniform.Max)}, nil
	}
	var cv ComponentVector
	var err error
	for _, axis := range []struct {
		spec *FloatSpec
		dst  *Float
		name string
	}{{s.X, &cv.X, "x"}, {s.Y, &cv.Y, "y"}, {s.Z, &cv.Z, "z"}} {
		if axis.spec == nil {
			continue
		}
		if *axis.dst, err = axis.spec.Build(); err != nil {
			return nil, fmt.Errorf("axis %s: %w", axis.name, err)
		}
	}
	return cv, nil
}
