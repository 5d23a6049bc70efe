package emitter

import "github.com/pthm-cable/plume/particle"

const maxLoopWraps = 8

// Tick advances the simulation by dt seconds. suppressSpawning skips the spawn
// phase for this tick only.
func (in *Instance) Tick(dt float32, suppressSpawning bool) {
	if in.state == StateUninitialized || in.state == StateCompleted || in.state == StateKilledOnDeactivate {
		return
	}
	if dt < 0 {
		dt = 0
	}

	in.phase(PhaseTime)
	spawnDT := in.tickTime(dt)

	in.phase(PhaseSpawn)
	in.firstNew = in.pool.Active()
	if !suppressSpawning && in.canSpawn() && !in.variant.spawn(in, spawnDT) {
		in.spawnByRate(spawnDT)
	}
	if a := in.pool.Active(); a > in.stats.PeakActive {
		in.stats.PeakActive = a
	}
	in.checkGrowth()

	in.phase(PhasePreUpdate)
	in.preUpdate(dt)

	in.phase(PhaseUpdate)
	in.update(dt)

	in.phase(PhasePostUpdate)
	in.postUpdate(dt)

	in.phase(PhaseFinalUpdate)
	in.finalUpdate(dt)

	in.phase(PhaseKill)
	in.kill()

	in.phase(PhaseBounds)
	in.updateBounds()

	in.phase(PhaseChains)
	in.variant.finish(in, dt)

	in.settle()
}

func (in *Instance) phase(name string) {
	if in.opts.Timer != nil {
		in.opts.Timer.StartPhase(name)
	}
}

// tickTime advances the clocks, wraps loops and returns the part of dt that
// falls after the delay.
func (in *Instance) tickTime(dt float32) float32 {
	cur := in.location
	if in.host != nil {
		cur = in.host.Location()
	}
	if in.located {
		in.oldLocation = in.location
	} else {
		in.oldLocation = cur
		in.located = true
	}
	in.location = cur

	in.secondsSinceCreation += dt
	in.emitterTime += dt

	for wraps := 0; wraps < maxLoopWraps; wraps++ {
		duration := in.durations[in.lodIndex]
		loopLen := duration + in.delay
		if duration <= 0 || in.emitterTime < loopLen {
			break
		}
		in.emitterTime -= loopLen
		// Surviving particles keep the clock running after the last loop.
		if in.loopsFinished() {
			continue
		}
		in.loopCount++
		in.stats.Loops++
		in.resetBursts()
		r := &in.lod.Required
		if r.DurationRecalcEachLoop || r.DelayFirstLoopOnly {
			in.setupDurations()
		}
		for _, s := range in.loopObs {
			s.m.EmitterLooped(in)
		}
	}

	eff := in.emitterTime - in.delay
	switch {
	case eff < 0:
		return 0
	case eff < dt:
		return eff
	}
	return dt
}

// preUpdate ages particles spawned before this tick and restores per-tick
// values from their bases.
func (in *Instance) preUpdate(dt float32) {
	for i := 0; i < in.pool.Active(); i++ {
		r := in.pool.Record(in.pool.At(i))
		if i < in.firstNew {
			r.SetRelativeTime(r.RelativeTime() + r.OneOverMaxLifetime()*dt)
			r.SetOldLocation(r.Location())
		}
		r.SetVelocity(r.BaseVelocity())
		r.SetSize(r.BaseSize())
		r.SetRotationRate(r.BaseRotationRate())
	}
}

func (in *Instance) update(dt float32) {
	for _, s := range in.updaters {
		for i := 0; i < in.pool.Active(); i++ {
			s.m.Update(in, in.view(in.pool.At(i), s.entry), dt)
		}
	}
}

// postUpdate integrates motion. New particles were already placed by PostSpawn.
func (in *Instance) postUpdate(dt float32) {
	for i := 0; i < in.firstNew && i < in.pool.Active(); i++ {
		r := in.pool.Record(in.pool.At(i))
		if r.HasFlag(particle.FlagFreeze) {
			continue
		}
		r.SetLocation(r.Location().Add(r.Velocity().Mul(dt)))
		r.SetRotation(r.Rotation() + r.RotationRate()*dt)
	}
	in.variant.postUpdate(in, dt)
}

func (in *Instance) finalUpdate(dt float32) {
	for _, s := range in.finals {
		for i := 0; i < in.pool.Active(); i++ {
			s.m.FinalUpdate(in, in.view(in.pool.At(i), s.entry), dt)
		}
	}
}

// kill flags expired particles, lets the variant extend the set, then removes
// flagged particles from the highest logical index down.
func (in *Instance) kill() {
	for i := 0; i < in.pool.Active(); i++ {
		r := in.pool.Record(in.pool.At(i))
		if r.RelativeTime() >= 1 {
			r.Kill()
		}
	}
	in.variant.markKills(in)
	for i := in.pool.Active() - 1; i >= 0; i-- {
		phys := in.pool.At(i)
		if !in.pool.Record(phys).HasFlag(particle.FlagKill) {
			continue
		}
		for _, s := range in.killObs {
			s.m.Killed(in, in.view(phys, s.entry))
		}
		in.variant.release(in, phys)
		in.pool.Release(i)
		in.stats.Killed++
	}
}

func (in *Instance) checkGrowth() {
	if in.warnedGrow || in.opts.ResizeWarn <= 0 || in.pool.Capacity() <= in.opts.ResizeWarn {
		return
	}
	in.warnedGrow = true
	in.log.Warn("particle pool grew past warn threshold",
		"capacity", in.pool.Capacity(),
		"threshold", in.opts.ResizeWarn,
		"max", in.pool.MaxActive())
}
