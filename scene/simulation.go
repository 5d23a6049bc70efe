package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/telemetry"
)

// Step runs a single tick of the scene.
func (s *Scene) Step() {
	dt := s.cfg.Derived.DT32
	s.perfCollector.StartTick()

	// 1. Move hosts and the camera
	s.perfCollector.StartPhase(telemetry.PhaseMove)
	s.updateMovers(dt)
	s.camera.Update(dt)

	// 2. Pick detail levels from camera distance
	s.perfCollector.StartPhase(telemetry.PhaseLOD)
	s.updateLOD()

	// 3. Feed anim-trail sweeps
	s.perfCollector.StartPhase(telemetry.PhaseSamples)
	s.updateSweeps(dt)

	// 4. Tick emitter instances
	s.tickEffects(dt)

	// 5. Remove completed effects
	s.perfCollector.StartPhase(telemetry.PhaseCleanup)
	s.cleanupCompleted()

	s.tick++

	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry()

	s.perfCollector.EndTick()
}

// updateMovers integrates host velocity and moves each instance's host.
func (s *Scene) updateMovers(dt float32) {
	query := s.effectFilter.Query()
	for query.Next() {
		pos, vel, eff := query.Get()
		if vel.X != 0 || vel.Y != 0 || vel.Z != 0 {
			pos.X += vel.X * dt
			pos.Y += vel.Y * dt
			pos.Z += vel.Z * dt
		}
		eff.Host.MoveTo(pos.Vec())
	}
}

// updateLOD switches each instance to the detail level its camera distance calls for.
func (s *Scene) updateLOD() {
	query := s.effectFilter.Query()
	for query.Next() {
		pos, _, eff := query.Get()
		inst := eff.Instance
		lod := inst.Template().LODFor(s.camera.LODDistance(pos.Vec()))
		if lod == inst.CurrentLODIndex() {
			continue
		}
		inst.SetCurrentLODIndex(lod, true)
		s.recordEvent(telemetry.NewLODSwitchEvent(s.tick, eff.ID, eff.Name, lod))
	}
}

// updateSweeps swings each sweep's edge pair and queues the samples on its anim trail.
func (s *Scene) updateSweeps(dt float32) {
	query := s.sweepFilter.Query()
	for query.Next() {
		pos, eff, sw := query.Get()
		if eff.Stopped {
			continue
		}
		inst := eff.Instance

		if !sw.Swinging {
			sw.Elapsed += dt
			if sw.Elapsed < sw.Pause {
				continue
			}
			sw.Swinging = true
			sw.Elapsed = 0
			inst.BeginAnimTrail()
		}

		t := float32(1)
		if sw.Duration > 0 {
			t = min(sw.Elapsed/sw.Duration, 1)
		}
		angle := float64(-sw.Arc/2 + sw.Arc*t)
		dir := mgl32.Vec3{float32(math.Cos(angle)), float32(math.Sin(angle)), 0}
		center := pos.Vec()
		inst.AddAnimSample(
			center.Add(dir.Mul(sw.Length*0.5)),
			center.Add(dir.Mul(sw.Length*1.5)),
		)

		sw.Elapsed += dt
		if t >= 1 {
			inst.EndAnimTrail()
			sw.Swinging = false
			sw.Elapsed = 0
		}
	}
}

// tickEffects ticks every instance, on the worker pool once enough effects
// are live, then applies the results serially.
func (s *Scene) tickEffects(dt float32) {
	p := s.parallel

	// Collect on this goroutine; the ECS is not touched again until apply.
	// Instances past the far clip keep simulating but spawn nothing.
	p.jobs = p.jobs[:0]
	query := s.effectFilter.Query()
	for query.Next() {
		pos, _, eff := query.Get()
		p.jobs = append(p.jobs, tickJob{
			Entity:   query.Entity(),
			Effect:   eff,
			Suppress: !s.camera.IsVisible(pos.Vec(), 0),
		})
	}

	if len(p.jobs) < s.cfg.Scene.ParallelThreshold || p.numWorkers < 2 {
		s.timer.target = s.perfCollector
		p.tickChunk(0, len(p.jobs), dt)
	} else {
		s.timer.target = nil
		s.perfCollector.StartPhase(telemetry.PhaseWorkers)
		p.computeParallel(dt)
	}
	s.timer.target = nil

	// Apply in query order so telemetry is the same for any worker count.
	s.applyResults(dt)
}

// applyResults drains each instance's events and counters into telemetry and
// handles timed deactivation.
func (s *Scene) applyResults(dt float32) {
	for i := range s.parallel.jobs {
		eff := s.parallel.jobs[i].Effect

		for _, e := range eff.Events.Drain() {
			s.collector.Record(telemetry.FromModuleEvent(s.tick, eff.ID, eff.Name, e))
		}

		cur := eff.Instance.Stats()
		s.collector.RecordStats(telemetry.StatsDelta(eff.LastStats, cur))
		eff.LastStats = cur
		s.lifetimeTracker.Update(eff.ID, s.tick, dt, cur)

		eff.Age += dt
		if eff.ActiveFor > 0 && !eff.Stopped && eff.Age >= eff.ActiveFor {
			eff.Instance.Deactivate()
			eff.Stopped = true
			s.logger.Debug("effect deactivated", "effect", eff.Name, "instance", eff.ID.String(), "age", eff.Age)
		}
	}
}
