package scene

import (
	"log/slog"
	"sort"
)

// LogState logs the current scene state: live effects grouped by template,
// particle totals and pool memory.
func (s *Scene) LogState() {
	type effectTally struct {
		instances int
		particles int
		bytes     int
	}
	tallies := make(map[string]*effectTally)
	var particles, allocated int

	query := s.effectFilter.Query()
	for query.Next() {
		_, _, eff := query.Get()
		t := tallies[eff.Name]
		if t == nil {
			t = &effectTally{}
			tallies[eff.Name] = t
		}
		n := eff.Instance.Active()
		_, capacity := eff.Instance.GetAllocatedSize()
		t.instances++
		t.particles += n
		t.bytes += capacity
		particles += n
		allocated += capacity
	}

	s.logger.Info("scene state",
		"tick", s.tick,
		"effects", s.effectCount,
		"completed", s.completedCount,
		"particles", particles,
		"allocated_bytes", allocated,
	)

	names := make([]string, 0, len(tallies))
	for name := range tallies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := tallies[name]
		s.logger.Info("effect state",
			slog.String("effect", name),
			slog.Int("instances", t.instances),
			slog.Int("particles", t.particles),
			slog.Int("allocated_bytes", t.bytes),
		)
	}
}
