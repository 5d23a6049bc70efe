package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-3
}

func TestNew(t *testing.T) {
	cam := New(mgl32.Vec3{1, 2, 3})

	if cam.Position != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("expected camera at (1, 2, 3), got %v", cam.Position)
	}
	if cam.Zoom != 1.0 {
		t.Errorf("expected zoom 1.0, got %f", cam.Zoom)
	}
}

func TestLODDistanceZoom(t *testing.T) {
	cam := New(mgl32.Vec3{})
	p := mgl32.Vec3{300, 400, 0}

	if d := cam.LODDistance(p); !near(d, 500) {
		t.Errorf("expected distance 500, got %f", d)
	}

	cam.SetZoom(2)
	if d := cam.LODDistance(p); !near(d, 250) {
		t.Errorf("expected zoomed distance 250, got %f", d)
	}
}

func TestZoomClamp(t *testing.T) {
	cam := New(mgl32.Vec3{})

	cam.SetZoom(100)
	if cam.Zoom != cam.MaxZoom {
		t.Errorf("expected zoom clamped to %f, got %f", cam.MaxZoom, cam.Zoom)
	}

	cam.ZoomBy(0.0001)
	if cam.Zoom != cam.MinZoom {
		t.Errorf("expected zoom clamped to %f, got %f", cam.MinZoom, cam.Zoom)
	}
}

func TestOrbit(t *testing.T) {
	cam := New(mgl32.Vec3{})
	cam.SetOrbit(mgl32.Vec3{10, 0, 0}, 100, math.Pi, 50)

	if !near(cam.Position.X(), 110) || !near(cam.Position.Z(), 50) {
		t.Errorf("expected camera at (110, 0, 50), got %v", cam.Position)
	}

	// Half a second at pi rad/s is a quarter turn
	cam.Update(0.5)
	if !near(cam.Position.X(), 10) || !near(cam.Position.Y(), 100) {
		t.Errorf("expected camera at (10, 100, 50), got %v", cam.Position)
	}

	// Distance to the target stays fixed
	flat := cam.Position.Sub(cam.Target)
	flat[2] = 0
	if !near(flat.Len(), 100) {
		t.Errorf("expected orbit radius 100, got %f", flat.Len())
	}
}

func TestMoveToStopsOrbit(t *testing.T) {
	cam := New(mgl32.Vec3{})
	cam.SetOrbit(mgl32.Vec3{}, 100, 1, 0)
	cam.MoveTo(mgl32.Vec3{5, 5, 5})
	cam.Update(1)

	if cam.Position != (mgl32.Vec3{5, 5, 5}) {
		t.Errorf("expected camera to stay at (5, 5, 5), got %v", cam.Position)
	}
}

func TestVisibility(t *testing.T) {
	cam := New(mgl32.Vec3{})

	if !cam.IsVisible(mgl32.Vec3{1e6, 0, 0}, 1) {
		t.Error("expected everything visible without a far clip")
	}

	cam.FarClip = 100
	if !cam.IsVisible(mgl32.Vec3{105, 0, 0}, 10) {
		t.Error("expected sphere overlapping the far clip to be visible")
	}
	if cam.IsVisible(mgl32.Vec3{200, 0, 0}, 10) {
		t.Error("expected distant sphere to be culled")
	}
	if !cam.IsBoxVisible(mgl32.Vec3{90, -5, -5}, mgl32.Vec3{150, 5, 5}) {
		t.Error("expected box straddling the far clip to be visible")
	}
}

func TestPanAndReset(t *testing.T) {
	cam := New(mgl32.Vec3{1, 1, 1})
	cam.Pan(mgl32.Vec3{10, 0, 0})
	if cam.Position != (mgl32.Vec3{11, 1, 1}) {
		t.Errorf("expected camera at (11, 1, 1), got %v", cam.Position)
	}

	cam.SetZoom(3)
	cam.Reset()
	if cam.Position != (mgl32.Vec3{1, 1, 1}) || cam.Zoom != 1 {
		t.Errorf("expected reset to (1, 1, 1) zoom 1, got %v zoom %f", cam.Position, cam.Zoom)
	}
}
