package scene

import (
	"log/slog"

	"github.com/pthm-cable/plume/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Scene) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	// Flush the stats window
	stats := s.collector.Flush(s.tick, s.sampleScene())
	perfStats := s.perfCollector.Stats()

	// Call stats callback if provided
	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV if output manager is enabled
	if s.outputManager != nil {
		if err := s.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := s.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	// Check for bookmarks
	bookmarks := s.bookmarkDetector.Check(stats)
	for _, bm := range bookmarks {
		if s.logStats {
			bm.LogBookmark()
		}

		if s.outputManager != nil {
			if err := s.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}

		// Save snapshot on bookmark
		if s.snapshotDir != "" {
			s.saveSnapshot(&bm)
		}
	}
}

// sampleScene collects per-effect particle counts and particle ages.
func (s *Scene) sampleScene() telemetry.SceneSample {
	var sample telemetry.SceneSample

	query := s.effectFilter.Query()
	for query.Next() {
		_, _, eff := query.Get()
		inst := eff.Instance
		sample.ParticleCounts = append(sample.ParticleCounts, float64(inst.Active()))

		pool := inst.Pool()
		if pool == nil {
			continue
		}
		for i := 0; i < pool.Active(); i++ {
			sample.Ages = append(sample.Ages, float64(pool.Record(pool.At(i)).RelativeTime()))
		}
		sample.AllocatedBytes += pool.AllocatedBytes()
	}
	return sample
}

// SaveSnapshot writes the current scene state to dir and returns the file path.
func (s *Scene) SaveSnapshot(dir string) (string, error) {
	return telemetry.SaveSnapshot(s.createSnapshot(nil), dir)
}

// saveSnapshot creates and saves a snapshot to disk.
func (s *Scene) saveSnapshot(bookmark *telemetry.Bookmark) {
	path, err := telemetry.SaveSnapshot(s.createSnapshot(bookmark), s.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}

	slog.Info("snapshot saved", "path", path, "tick", s.tick)
}

// createSnapshot builds a snapshot from the current state.
func (s *Scene) createSnapshot(bookmark *telemetry.Bookmark) *telemetry.Snapshot {
	snapshot := &telemetry.Snapshot{
		Version:    telemetry.SnapshotVersion,
		RNGSeed:    s.rngSeed,
		Tick:       s.tick,
		SimTimeSec: float64(s.tick) * s.cfg.Simulation.DT,
		Camera:     telemetry.Vec3(s.camera.Position),
		Bookmark:   bookmark,
	}

	query := s.effectFilter.Query()
	for query.Next() {
		pos, vel, eff := query.Get()
		inst := eff.Instance
		bounds := inst.Bounds()

		state := telemetry.EffectState{
			ID:          eff.ID,
			Effect:      eff.Name,
			State:       inst.State().String(),
			LOD:         inst.CurrentLODIndex(),
			Position:    telemetry.Vec3{pos.X, pos.Y, pos.Z},
			Velocity:    telemetry.Vec3{vel.X, vel.Y, vel.Z},
			EmitterTime: inst.EmitterTime(),
			Loops:       inst.LoopCount(),
			BoundsMin:   telemetry.Vec3(bounds.Min),
			BoundsMax:   telemetry.Vec3(bounds.Max),
		}
		if ls := s.lifetimeTracker.Get(eff.ID); ls != nil {
			copied := *ls
			state.Lifetime = &copied
		}
		if c := inst.Chains(); c != nil {
			state.Chains = c.Len()
		}

		if pool := inst.Pool(); pool != nil {
			origin := inst.Location()
			state.Particles = make([]telemetry.ParticleState, 0, pool.Active())
			for i := 0; i < pool.Active(); i++ {
				rec := pool.Record(pool.At(i))
				loc := rec.Location()
				if inst.LocalSpace() {
					loc = loc.Add(origin)
				}
				state.Particles = append(state.Particles, telemetry.ParticleState{
					Location:     telemetry.Vec3(loc),
					Velocity:     telemetry.Vec3(rec.Velocity()),
					Size:         telemetry.Vec3(rec.Size()),
					RelativeTime: rec.RelativeTime(),
				})
			}
		}

		snapshot.Effects = append(snapshot.Effects, state)
	}

	return snapshot
}

// recordEvent counts a scene event and appends it to events.csv.
func (s *Scene) recordEvent(e telemetry.Event) {
	s.collector.Record(e)
	if err := s.outputManager.WriteEvent(e); err != nil {
		s.logger.Error("failed to write event", "error", err)
	}
}
