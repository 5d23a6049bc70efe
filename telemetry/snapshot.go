package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the scene state at one tick.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`

	Tick       int32   `json:"tick"`
	SimTimeSec float64 `json:"sim_time"`
	Camera     Vec3    `json:"camera"`

	Effects []EffectState `json:"effects"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// Vec3 is a JSON-friendly vector.
type Vec3 [3]float32

// EffectState holds one placed effect.
type EffectState struct {
	ID     uuid.UUID `json:"id"`
	Effect string    `json:"effect"`
	State  string    `json:"state"`
	LOD    int       `json:"lod"`

	Position Vec3 `json:"position"`
	Velocity Vec3 `json:"velocity"`

	EmitterTime float32 `json:"emitter_time"`
	Loops       int     `json:"loops"`
	BoundsMin   Vec3    `json:"bounds_min"`
	BoundsMax   Vec3    `json:"bounds_max"`

	Particles []ParticleState `json:"particles"`
	Chains    int             `json:"chains,omitempty"`

	Lifetime *LifetimeStats `json:"lifetime,omitempty"`
}

// ParticleState holds one live particle.
type ParticleState struct {
	Location     Vec3    `json:"location"`
	Velocity     Vec3    `json:"velocity"`
	Size         Vec3    `json:"size"`
	RelativeTime float32 `json:"relative_time"`
}

// ParticleCount returns the number of particles across all effects.
func (s *Snapshot) ParticleCount() int {
	n := 0
	for _, e := range s.Effects {
		n += len(e.Particles)
	}
	return n
}

// SnapshotName returns the file name a snapshot is saved under.
func SnapshotName(s *Snapshot) string {
	if s.Bookmark == nil {
		return fmt.Sprintf("snapshot_%d.json", s.Tick)
	}
	return fmt.Sprintf("snapshot_%d_%s.json", s.Tick, s.Bookmark.Type)
}

// SaveSnapshot writes snapshot into dir and returns its path. The file is
// written under a temporary name and renamed, so readers never see a partial
// snapshot.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		tmp.Close()
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	path := filepath.Join(dir, SnapshotName(snapshot))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot saved by SaveSnapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	defer f.Close()

	var snapshot Snapshot
	if err := json.NewDecoder(f).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snapshot.Version > SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported %d", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}
