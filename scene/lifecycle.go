package scene

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/plume/components"
	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/emitter"
	"github.com/pthm-cable/plume/module"
	"github.com/pthm-cable/plume/telemetry"
)

// Anim-trail sweep timing for placements that set a sweep width.
const (
	sweepArc      = math.Pi
	sweepDuration = 0.4 // seconds per swing
	sweepPause    = 0.6 // seconds between swings
)

// placeInitial places every configured placement.
func (s *Scene) placeInitial() error {
	for i := range s.cfg.Placements {
		if _, err := s.PlaceConfig(&s.cfg.Placements[i]); err != nil {
			return fmt.Errorf("placement %d: %w", i, err)
		}
	}
	return nil
}

// Place creates an effect entity at pos moving with vel.
func (s *Scene) Place(effect string, pos, vel mgl32.Vec3) (ecs.Entity, error) {
	return s.PlaceConfig(&config.PlacementConfig{
		Effect:   effect,
		Position: [3]float32(pos),
		Velocity: [3]float32(vel),
	})
}

// PlaceConfig creates an effect entity from a placement entry.
func (s *Scene) PlaceConfig(pc *config.PlacementConfig) (ecs.Entity, error) {
	tmpl, err := s.catalog.Template(pc.Effect)
	if err != nil {
		return ecs.Entity{}, err
	}

	pos := components.Position{X: pc.Position[0], Y: pc.Position[1], Z: pc.Position[2]}
	vel := components.Velocity{X: pc.Velocity[0], Y: pc.Velocity[1], Z: pc.Velocity[2]}

	offsets := make([]mgl32.Vec3, len(pc.Sources))
	for i, o := range pc.Sources {
		offsets[i] = mgl32.Vec3(o)
	}
	host := components.NewHost(pos.Vec(), offsets)
	events := &components.EventBuffer{}

	inst := emitter.New(tmpl, host, emitter.Options{
		Seed:              s.rng.Int63(),
		Logger:            s.logger,
		Timer:             s.timer,
		OnEvent:           func(_ uuid.UUID, e module.Event) { events.Add(e) },
		MaxResize:         s.cfg.Pool.MaxParticleResize,
		ResizeWarn:        s.cfg.Pool.MaxParticleResizeWarn,
		InitialAllocation: s.cfg.Pool.InitialAllocation,
	})
	if err := inst.Init(); err != nil {
		return ecs.Entity{}, fmt.Errorf("initializing %s: %w", pc.Effect, err)
	}

	// Start at the LOD the camera calls for so the first tick does not switch.
	if lod := tmpl.LODFor(s.camera.LODDistance(pos.Vec())); lod != 0 {
		inst.SetCurrentLODIndex(lod, false)
	}

	eff := components.Effect{
		ID:        inst.ID(),
		Name:      tmpl.Name,
		Instance:  inst,
		Host:      host,
		Events:    events,
		BirthTick: s.tick,
		ActiveFor: pc.ActiveFor,
		Dynamic:   &emitter.DynamicData{},
	}

	var entity ecs.Entity
	if pc.Sweep > 0 && tmpl.Kind == emitter.KindAnimTrail {
		sweep := components.Sweep{
			Length:   pc.Sweep * 2,
			Arc:      sweepArc,
			Duration: sweepDuration,
			Pause:    sweepPause,
		}
		entity = s.sweepMapper.NewEntity(&pos, &vel, &eff, &sweep)
	} else {
		entity = s.effectMapper.NewEntity(&pos, &vel, &eff)
	}
	s.effectCount++

	s.lifetimeTracker.Register(eff.ID, eff.Name, s.tick)
	s.recordEvent(telemetry.NewPlacedEvent(s.tick, eff.ID, eff.Name, pos.Vec()))

	s.logger.Debug("effect placed",
		"effect", eff.Name,
		"instance", eff.ID.String(),
		"kind", tmpl.Kind.String(),
		"lod", inst.CurrentLODIndex(),
	)
	return entity, nil
}

// Deactivate stops an effect from spawning. It is removed once its particles die.
func (s *Scene) Deactivate(entity ecs.Entity) bool {
	if !s.world.Alive(entity) {
		return false
	}
	eff := s.effectMap.Get(entity)
	if eff == nil || eff.Stopped {
		return false
	}
	eff.Instance.Deactivate()
	eff.Stopped = true
	return true
}

// cleanupCompleted removes effects whose instances have completed.
func (s *Scene) cleanupCompleted() {
	// First pass: collect completed entities (must complete before modifying)
	type doneInfo struct {
		entity ecs.Entity
		id     uuid.UUID
		name   string
	}
	var toRemove []doneInfo

	query := s.effectFilter.Query()
	for query.Next() {
		_, _, eff := query.Get()
		if eff.Instance.HasCompleted() {
			toRemove = append(toRemove, doneInfo{entity: query.Entity(), id: eff.ID, name: eff.Name})
		}
	}

	// Second pass: remove entities (query iteration complete)
	for _, done := range toRemove {
		s.recordEvent(telemetry.NewCompletedEvent(s.tick, done.id, done.name))

		s.lifetimeTracker.MarkCompleted(done.id)
		if ls := s.lifetimeTracker.Remove(done.id); ls != nil && s.outputManager != nil {
			if err := s.outputManager.WriteInstance(ls); err != nil {
				s.logger.Error("failed to write instance", "error", err)
			}
		}

		s.world.RemoveEntity(done.entity)
		s.effectCount--
		s.completedCount++
	}
}
