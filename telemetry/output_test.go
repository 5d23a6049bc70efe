package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

func TestNewOutputManager_Disabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if om != nil {
		t.Fatal("expected nil manager for empty dir")
	}
	// Nil manager is safe to use.
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if err := om.WriteEvent(Event{}); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if om.Dir() != "" {
		t.Errorf("expected empty dir, got %q", om.Dir())
	}
	if err := om.Close(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestOutputManager_HeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	for i := int32(1); i <= 3; i++ {
		if err := om.WriteTelemetry(WindowStats{WindowEndTick: i * 10, Particles: int(i)}); err != nil {
			t.Fatalf("WriteTelemetry: %v", err)
		}
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, TelemetryFile))
	if err != nil {
		t.Fatalf("reading telemetry: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "window_end,") {
		t.Errorf("expected header row, got %q", lines[0])
	}
	if strings.Count(string(data), "window_end") != 1 {
		t.Error("expected the header exactly once")
	}
}

func TestOutputManager_EventsSkipParticles(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	id := uuid.New()

	events := []Event{
		NewPlacedEvent(1, id, "sparks", mgl32.Vec3{1, 2, 3}),
		{Type: EventParticleSpawn, Tick: 1, Instance: id, Effect: "sparks"},
		NewLODSwitchEvent(2, id, "sparks", 1),
		{Type: EventParticleDeath, Tick: 2, Instance: id, Effect: "sparks"},
		NewCompletedEvent(3, id, "sparks"),
	}
	for _, e := range events {
		if err := om.WriteEvent(e); err != nil {
			t.Fatalf("WriteEvent: %v", err)
		}
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, EventFile))
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 scene events, got %d lines", len(lines))
	}
	for i, want := range []string{"placed", "lod_switch", "completed"} {
		if !strings.Contains(lines[i+1], ","+want+",") {
			t.Errorf("row %d: expected type %s, got %q", i+1, want, lines[i+1])
		}
	}
	if !strings.Contains(lines[1], id.String()) {
		t.Errorf("expected instance id in row, got %q", lines[1])
	}
}

func TestEventToCSV(t *testing.T) {
	id := uuid.New()
	row := NewLODSwitchEvent(7, id, "smoke", 2).ToCSV()
	if row.Type != "lod_switch" {
		t.Errorf("expected lod_switch, got %s", row.Type)
	}
	if row.Instance != id.String() {
		t.Errorf("expected %s, got %s", id, row.Instance)
	}
	if row.LOD != 2 || row.Tick != 7 {
		t.Errorf("expected tick 7 lod 2, got tick %d lod %d", row.Tick, row.LOD)
	}
}
