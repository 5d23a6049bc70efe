package emitter

import "log/slog"

// State is the lifecycle state of an instance.
type State uint8

const (
	StateUninitialized State = iota
	StateActive
	StateDeactivating
	StateCompleted
	StateKilledOnDeactivate
)

var stateNames = [...]string{"uninitialized", "active", "deactivating", "completed", "killed_on_deactivate"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Stats counts what the instance has done since Init.
type Stats struct {
	Spawned     int
	Killed      int
	Dropped     int
	BurstsFired int
	Loops       int
	PeakActive  int
	LODSwitches int
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("spawned", s.Spawned),
		slog.Int("killed", s.Killed),
		slog.Int("dropped", s.Dropped),
		slog.Int("bursts", s.BurstsFired),
		slog.Int("loops", s.Loops),
		slog.Int("peak_active", s.PeakActive),
	)
}

// Tick phase names reported to a PhaseTimer.
const (
	PhaseTime        = "time"
	PhaseSpawn       = "spawn"
	PhasePreUpdate   = "pre_update"
	PhaseUpdate      = "update"
	PhasePostUpdate  = "post_update"
	PhaseFinalUpdate = "final_update"
	PhaseKill        = "kill"
	PhaseBounds      = "bounds"
	PhaseChains      = "chains"
)

// Phases lists the tick phases in execution order.
var Phases = []string{
	PhaseTime, PhaseSpawn, PhasePreUpdate, PhaseUpdate, PhasePostUpdate,
	PhaseFinalUpdate, PhaseKill, PhaseBounds, PhaseChains,
}

// PhaseTimer receives phase boundaries from Tick. telemetry.PerfCollector satisfies it.
type PhaseTimer interface {
	StartPhase(name string)
}

// Activate starts or restarts a finished or deactivating instance.
func (in *Instance) Activate() {
	switch in.state {
	case StateUninitialized:
		return
	case StateCompleted, StateKilledOnDeactivate:
		in.Rewind()
	}
	in.state = StateActive
	in.haltSpawning = false
}

// Deactivate stops spawning. Live particles finish their lives unless the
// template kills them on deactivation.
func (in *Instance) Deactivate() {
	if in.state != StateActive {
		return
	}
	if in.lod.Required.KillOnDeactivate {
		in.KillParticlesForced()
		in.state = StateKilledOnDeactivate
		return
	}
	in.state = StateDeactivating
	in.variant.deactivate(in)
}

// SetHaltSpawning stops or resumes spawning without changing state.
func (in *Instance) SetHaltSpawning(halt bool) { in.haltSpawning = halt }

// State returns the lifecycle state.
func (in *Instance) State() State { return in.state }

// HasCompleted reports whether the instance will never produce particles again
// and has none left alive.
func (in *Instance) HasCompleted() bool {
	switch in.state {
	case StateCompleted, StateKilledOnDeactivate:
		return true
	case StateUninitialized:
		return false
	}
	if in.pool.Active() > 0 {
		return false
	}
	return in.state == StateDeactivating || in.loopsFinished()
}

func (in *Instance) loopsFinished() bool {
	loops := in.lod.Required.Loops
	return loops > 0 && in.loopCount >= loops
}

// settle advances the state machine at the end of a tick.
func (in *Instance) settle() {
	switch in.state {
	case StateDeactivating:
		if in.pool.Active() == 0 {
			in.state = StateCompleted
		}
	case StateActive:
		if !in.loopsFinished() {
			return
		}
		if in.lod.Required.KillOnCompleted && in.pool.Active() > 0 {
			in.KillParticlesForced()
		}
		if in.pool.Active() == 0 {
			in.state = StateCompleted
		}
	}
}
