package telemetry

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	id := uuid.New()
	snapshot := &Snapshot{
		Version:    SnapshotVersion,
		RNGSeed:    42,
		Tick:       1000,
		SimTimeSec: 16.6,
		Camera:     Vec3{0, -50, 10},
		Effects: []EffectState{
			{
				ID:          id,
				Effect:      "sparks",
				State:       "active",
				LOD:         1,
				Position:    Vec3{1, 2, 3},
				EmitterTime: 0.75,
				Loops:       2,
				BoundsMin:   Vec3{-1, -1, -1},
				BoundsMax:   Vec3{1, 1, 1},
				Particles: []ParticleState{
					{Location: Vec3{0.5, 0, 0}, Velocity: Vec3{1, 0, 0}, Size: Vec3{1, 1, 1}, RelativeTime: 0.25},
					{Location: Vec3{0, 0.5, 0}, RelativeTime: 0.5},
				},
				Lifetime: &LifetimeStats{
					ID:            id.String(),
					Effect:        "sparks",
					BirthTick:     100,
					PeakParticles: 40,
				},
			},
		},
		Bookmark: &Bookmark{
			Type:        BookmarkSurge,
			Tick:        1000,
			Description: "Test bookmark",
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if !reflect.DeepEqual(loaded, snapshot) {
		t.Errorf("expected round trip to preserve the snapshot\ngot  %+v\nwant %+v", loaded, snapshot)
	}
	if loaded.ParticleCount() != 2 {
		t.Errorf("expected 2 particles, got %d", loaded.ParticleCount())
	}
}

func TestSnapshotName(t *testing.T) {
	tests := []struct {
		snap *Snapshot
		want string
	}{
		{&Snapshot{Tick: 3000}, "snapshot_3000.json"},
		{&Snapshot{Tick: 5000, Bookmark: &Bookmark{Type: BookmarkQuiet}}, "snapshot_5000_scene_quiet.json"},
		{&Snapshot{Tick: 12, Bookmark: &Bookmark{Type: BookmarkSaturation}}, "snapshot_12_pool_saturation.json"},
	}
	dir := t.TempDir()
	for _, tt := range tests {
		if got := SnapshotName(tt.snap); got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
		path, err := SaveSnapshot(tt.snap, dir)
		if err != nil {
			t.Fatalf("SaveSnapshot failed: %v", err)
		}
		if path != filepath.Join(dir, tt.want) {
			t.Errorf("expected path %s, got %s", filepath.Join(dir, tt.want), path)
		}
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing snapshot")
	}
}

func TestSaveSnapshotLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := SaveSnapshot(&Snapshot{Version: SnapshotVersion, Tick: 7}, dir); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "snapshot_7.json" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("expected only snapshot_7.json, got %v", names)
	}
}

func TestLoadSnapshotNewerVersion(t *testing.T) {
	path, err := SaveSnapshot(&Snapshot{Version: SnapshotVersion + 1, Tick: 1}, t.TempDir())
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected error for a snapshot from a newer version")
	}
}
