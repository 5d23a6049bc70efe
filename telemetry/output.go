package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/plume/config"
)

// Output file names inside the run directory.
const (
	TelemetryFile = "telemetry.csv"
	PerfFile      = "perf.csv"
	BookmarkFile  = "bookmarks.csv"
	InstanceFile  = "instances.csv"
	EventFile     = "events.csv"
	ConfigFile    = "config.yaml"
)

// csvSink appends rows to one CSV file. The header goes out with the first row.
type csvSink struct {
	name   string
	file   *os.File
	header bool
}

func openSink(dir, name string) (*csvSink, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvSink{name: name, file: f}, nil
}

// append marshals rows, which must be a slice of csv-tagged structs.
func (s *csvSink) append(rows any) error {
	marshal := gocsv.MarshalWithoutHeaders
	if !s.header {
		marshal = gocsv.Marshal
	}
	if err := marshal(rows, s.file); err != nil {
		return fmt.Errorf("writing %s: %w", s.name, err)
	}
	s.header = true
	return nil
}

// OutputManager writes a run's window statistics, perf samples, bookmarks,
// finished instances and scene events to CSV files in one directory.
type OutputManager struct {
	dir       string
	telemetry *csvSink
	perf      *csvSink
	bookmarks *csvSink
	instances *csvSink
	events    *csvSink
}

// NewOutputManager creates dir and opens the output files.
// It returns nil without error when dir is empty.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	for _, slot := range []struct {
		name string
		dst  **csvSink
	}{
		{TelemetryFile, &om.telemetry},
		{PerfFile, &om.perf},
		{BookmarkFile, &om.bookmarks},
		{InstanceFile, &om.instances},
		{EventFile, &om.events},
	} {
		sink, err := openSink(dir, slot.name)
		if err != nil {
			om.Close()
			return nil, err
		}
		*slot.dst = sink
	}
	return om, nil
}

// WriteConfig saves the resolved configuration next to the CSV files.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, ConfigFile))
}

// WriteTelemetry appends a closed stats window.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	return om.telemetry.append([]WindowStats{stats})
}

// WritePerf appends the perf summary for the window ending at windowEnd.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}
	return om.perf.append([]PerfStatsCSV{stats.ToCSV(windowEnd)})
}

// WriteBookmark appends a detected bookmark.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	return om.bookmarks.append([]Bookmark{b})
}

// WriteInstance appends the lifetime record of an effect leaving the scene.
func (om *OutputManager) WriteInstance(ls *LifetimeStats) error {
	if om == nil || ls == nil {
		return nil
	}
	return om.instances.append([]*LifetimeStats{ls})
}

// WriteEvent appends a scene event. Particle events are not written; they
// only feed the window counters.
func (om *OutputManager) WriteEvent(e Event) error {
	if om == nil || e.Type == EventParticleSpawn || e.Type == EventParticleDeath {
		return nil
	}
	return om.events.append([]EventCSV{e.ToCSV()})
}

// Dir returns the output directory, or "" when output is disabled.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes every open file and reports all failures.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var errs []error
	for _, s := range []*csvSink{om.telemetry, om.perf, om.bookmarks, om.instances, om.events} {
		if s == nil {
			continue
		}
		if err := s.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
