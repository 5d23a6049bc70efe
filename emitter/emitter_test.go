package emitter

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/module"
	"github.com/pthm-cable/plume/particle"
)

type fixedHost struct{ loc mgl32.Vec3 }

func (h *fixedHost) Location() mgl32.Vec3 { return h.loc }

func spriteTemplate(rate float32, mods ...module.Module) *Template {
	t := &Template{
		Name:      "test",
		LODLevels: []*LODLevel{{Spawn: Spawn{Rate: distribution.Constant(rate)}}},
	}
	for _, m := range mods {
		t.AddModule(0, m)
	}
	return t
}

func start(t *testing.T, tmpl *Template, host Host) *Instance {
	t.Helper()
	if host == nil {
		host = &fixedHost{}
	}
	in := New(tmpl, host, Options{Seed: 1})
	require.NoError(t, in.Init())
	return in
}

func run(in *Instance, dt float32, ticks int) {
	for i := 0; i < ticks; i++ {
		in.Tick(dt, false)
	}
}

func TestInit_RejectsEmptyTemplate(t *testing.T) {
	in := New(&Template{Name: "empty"}, &fixedHost{}, Options{})
	assert.ErrorIs(t, in.Init(), ErrNoLODLevels)
	assert.Equal(t, StateUninitialized, in.State())
}

func TestInit_RejectsMismatchedLODModules(t *testing.T) {
	tmpl := &Template{Name: "bad", LODLevels: []*LODLevel{
		{Modules: []module.Module{&module.Lifetime{}}},
		{Modules: []module.Module{&module.Drag{}}},
	}}
	assert.ErrorIs(t, New(tmpl, nil, Options{}).Init(), ErrInconsistentLOD)
}

func TestTick_BeforeInitIsNoop(t *testing.T) {
	in := New(spriteTemplate(10), &fixedHost{}, Options{})
	in.Tick(0.1, false)
	assert.Equal(t, 0, in.Active())
}

func TestSteadyRate_TwentyAfterTwoSeconds(t *testing.T) {
	in := start(t, spriteTemplate(10, &module.Lifetime{Lifetime: distribution.Constant(10)}), nil)
	run(in, 0.05, 40)
	assert.InDelta(t, 20, in.Active(), 1)
}

func TestSpawnFraction_CarriedAcrossTicks(t *testing.T) {
	const rate, dt, ticks = 7.3, 0.016, 1000
	in := start(t, spriteTemplate(rate), nil)
	run(in, dt, ticks)

	want := math.Floor(rate * dt * ticks)
	assert.InDelta(t, want, in.Stats().Spawned, 1)
	assert.Less(t, in.SpawnFraction(), float32(1))
}

func TestBackpressure_CapsAndDropsExcess(t *testing.T) {
	tmpl := spriteTemplate(1000, &module.Lifetime{Lifetime: distribution.Constant(0.25)})
	tmpl.MaxParticles = 5
	in := start(t, tmpl, nil)

	in.Tick(0.1, false)
	assert.Equal(t, 5, in.Active())
	assert.Equal(t, 95, in.Stats().Dropped)
	assert.InDelta(t, 0, in.SpawnFraction(), 1e-3)

	in.Tick(0.1, false)
	in.Tick(0.1, false)
	assert.Equal(t, 0, in.Active(), "first batch expires")

	in.Tick(0.1, false)
	assert.Equal(t, 5, in.Active(), "refills to the cap without a catch-up burst")
}

func TestInit_DefaultCapLeavesTemplateUntouched(t *testing.T) {
	tmpl := spriteTemplate(20000)
	in := start(t, tmpl, nil)
	assert.Zero(t, tmpl.MaxParticles, "init does not write defaults into the shared template")

	in.Tick(0.1, false)
	assert.Equal(t, DefaultMaxParticles, in.Active())
	assert.Equal(t, 2000-DefaultMaxParticles, in.Stats().Dropped)
}

func TestKillPass_ActiveMatchesSpawnsMinusKills(t *testing.T) {
	in := start(t, spriteTemplate(200,
		&module.Lifetime{Lifetime: distribution.Uniform{Min: 0.05, Max: 0.5}},
		&module.KillBox{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}},
		&module.InitialLocation{Offset: distribution.UniformVector{
			Min: mgl32.Vec3{-1.5, -1.5, -1.5}, Max: mgl32.Vec3{1.5, 1.5, 1.5},
		}},
	), nil)

	for i := 0; i < 100; i++ {
		in.Tick(0.033, false)
		st := in.Stats()
		require.Equal(t, st.Spawned-st.Killed, in.Active())
		p := in.Pool()
		for j := 0; j < p.Active(); j++ {
			r := p.Record(p.At(j))
			require.Less(t, r.RelativeTime(), float32(1))
			require.False(t, r.HasFlag(particle.FlagKill))
		}
	}
	assert.Greater(t, in.Stats().Killed, 0)
}

func burstTemplate(duration float32, loops int) *Template {
	return &Template{
		Name: "burst",
		LODLevels: []*LODLevel{{
			Required: Required{Duration: duration, Loops: loops},
			Spawn:    Spawn{Bursts: []Burst{{Time: 0.5, Count: 3, CountLow: -1}}},
		}},
	}
}

func TestBurst_FiresOncePerLoop(t *testing.T) {
	in := start(t, burstTemplate(1, 0), nil)

	run(in, 0.1, 25)
	assert.Equal(t, 2, in.Stats().BurstsFired, "partial third loop does not fire")
	assert.Equal(t, 6, in.Active())
	assert.Equal(t, 2, in.LoopCount())

	run(in, 0.1, 10)
	assert.Equal(t, 3, in.Stats().BurstsFired)
	assert.Equal(t, 9, in.Active())
}

func TestBurst_SameTimestampFireTogether(t *testing.T) {
	tmpl := burstTemplate(0, 0)
	tmpl.LODLevels[0].Spawn.Bursts = []Burst{
		{Time: 0.1, Count: 2, CountLow: -1},
		{Time: 0.1, Count: 4, CountLow: -1},
	}
	in := start(t, tmpl, nil)
	run(in, 0.15, 1)
	assert.Equal(t, 6, in.Active())
	assert.Equal(t, 2, in.Stats().BurstsFired)
}

func TestBurst_CountRange(t *testing.T) {
	tmpl := burstTemplate(0, 0)
	tmpl.LODLevels[0].Spawn.Bursts = []Burst{{Time: 0, Count: 8, CountLow: 4}}
	in := start(t, tmpl, nil)
	run(in, 0.1, 1)
	assert.GreaterOrEqual(t, in.Active(), 4)
	assert.LessOrEqual(t, in.Active(), 8)
}

func TestDelay_HoldsSpawning(t *testing.T) {
	tmpl := spriteTemplate(10)
	tmpl.LODLevels[0].Required.Delay = 0.5
	in := start(t, tmpl, nil)

	run(in, 0.1, 4)
	assert.Equal(t, 0, in.Active())
	run(in, 0.1, 6)
	assert.InDelta(t, 5, in.Active(), 1)
}

func TestLoops_CompleteAfterLastParticleDies(t *testing.T) {
	tmpl := spriteTemplate(20, &module.Lifetime{Lifetime: distribution.Constant(0.2)})
	tmpl.LODLevels[0].Required.Duration = 0.5
	tmpl.LODLevels[0].Required.Loops = 1
	in := start(t, tmpl, nil)

	run(in, 0.05, 8)
	assert.Greater(t, in.Active(), 0)
	assert.False(t, in.HasCompleted())

	run(in, 0.05, 20)
	assert.Equal(t, 0, in.Active())
	assert.True(t, in.HasCompleted())
	assert.Equal(t, StateCompleted, in.State())
}

func TestLoops_KillOnCompleted(t *testing.T) {
	tmpl := spriteTemplate(20, &module.Lifetime{Lifetime: distribution.Constant(100)})
	tmpl.LODLevels[0].Required.Duration = 0.5
	tmpl.LODLevels[0].Required.Loops = 1
	tmpl.LODLevels[0].Required.KillOnCompleted = true
	in := start(t, tmpl, nil)

	run(in, 0.05, 12)
	assert.Equal(t, 0, in.Active())
	assert.Equal(t, StateCompleted, in.State())
}

func TestDeactivate_LetsParticlesFinish(t *testing.T) {
	in := start(t, spriteTemplate(20, &module.Lifetime{Lifetime: distribution.Constant(0.3)}), nil)
	run(in, 0.05, 5)
	require.Greater(t, in.Active(), 0)

	in.Deactivate()
	assert.Equal(t, StateDeactivating, in.State())
	spawned := in.Stats().Spawned
	run(in, 0.05, 10)
	assert.Equal(t, spawned, in.Stats().Spawned, "no spawning while deactivating")
	assert.Equal(t, StateCompleted, in.State())
	assert.True(t, in.HasCompleted())

	in.Activate()
	assert.Equal(t, StateActive, in.State())
	run(in, 0.05, 2)
	assert.Greater(t, in.Active(), 0)
}

func TestDeactivate_KillOnDeactivate(t *testing.T) {
	tmpl := spriteTemplate(20)
	tmpl.LODLevels[0].Required.KillOnDeactivate = true
	in := start(t, tmpl, nil)
	run(in, 0.1, 3)

	in.Deactivate()
	assert.Equal(t, StateKilledOnDeactivate, in.State())
	assert.Equal(t, 0, in.Active())
	assert.True(t, in.HasCompleted())
}

func TestHaltAndSuppressSpawning(t *testing.T) {
	in := start(t, spriteTemplate(10), nil)
	in.SetHaltSpawning(true)
	run(in, 0.1, 5)
	assert.Equal(t, 0, in.Active())

	in.SetHaltSpawning(false)
	in.Tick(0.1, true)
	assert.Equal(t, 0, in.Active())
	in.Tick(0.1, false)
	assert.Equal(t, 1, in.Active())
}

func TestRewind_ResetsClock(t *testing.T) {
	in := start(t, burstTemplate(1, 0), nil)
	run(in, 0.1, 8)
	require.Equal(t, 1, in.Stats().BurstsFired)

	in.Rewind()
	assert.Equal(t, float32(0), in.EmitterTime())
	assert.Equal(t, 0, in.LoopCount())
	run(in, 0.1, 8)
	assert.Equal(t, 2, in.Stats().BurstsFired, "burst re-armed")
}

func TestIntegration_MovesByVelocity(t *testing.T) {
	in := start(t, burstTemplate(0, 0), nil)
	in.tmpl.LODLevels[0].Spawn.Bursts[0].Time = 0
	in.Tick(0.1, false)
	require.Equal(t, 3, in.Active())

	r := in.Pool().Record(in.Pool().At(0))
	r.SetBaseVelocity(mgl32.Vec3{1, 0, 0})
	in.Tick(0.5, false)
	assert.InDelta(t, 0.5, r.Location().X(), 1e-5)
	assert.InDelta(t, 0, r.OldLocation().X(), 1e-5)

	r.SetFlags(r.Flags() | particle.FlagFreeze)
	in.Tick(0.5, false)
	assert.InDelta(t, 0.5, r.Location().X(), 1e-5, "frozen particles do not move")
}

func TestSpawn_WorldSpaceInterpolatesAlongMove(t *testing.T) {
	host := &fixedHost{}
	in := start(t, spriteTemplate(100), host)
	in.Tick(0.1, false)
	before := in.Active()

	host.loc = mgl32.Vec3{10, 0, 0}
	in.Tick(0.1, false)
	xs := map[float32]bool{}
	p := in.Pool()
	for i := before; i < p.Active(); i++ {
		x := p.Record(p.At(i)).Location().X()
		assert.GreaterOrEqual(t, x, float32(0))
		assert.LessOrEqual(t, x, float32(10))
		xs[x] = true
	}
	assert.Greater(t, len(xs), 1, "spawns are spread along the path")
}

func TestEvents_ReachOnEvent(t *testing.T) {
	tmpl := spriteTemplate(10, &module.EventGenerator{EventName: "puff", OnSpawn: true})
	var got []module.Event
	var ids []uuid.UUID
	in := New(tmpl, &fixedHost{}, Options{Seed: 1, OnEvent: func(id uuid.UUID, e module.Event) {
		ids = append(ids, id)
		got = append(got, e)
	}})
	require.NoError(t, in.Init())
	run(in, 0.1, 5)

	assert.Len(t, got, in.Stats().Spawned)
	require.NotEmpty(t, ids)
	assert.Equal(t, in.ID(), ids[0])
	assert.Equal(t, "puff", got[0].Name)
}

func TestLoopNotifier_Called(t *testing.T) {
	n := &loopCounter{}
	tmpl := spriteTemplate(0, n)
	tmpl.LODLevels[0].Required.Duration = 0.25
	in := start(t, tmpl, nil)
	run(in, 0.1, 10)
	assert.Equal(t, in.LoopCount(), n.loops)
	assert.GreaterOrEqual(t, n.loops, 3)
}

func TestLoops_StopCountingAfterLastLoop(t *testing.T) {
	n := &loopCounter{}
	tmpl := spriteTemplate(20, &module.Lifetime{Lifetime: distribution.Constant(100)}, n)
	tmpl.LODLevels[0].Required.Duration = 0.25
	tmpl.LODLevels[0].Required.Loops = 1
	in := start(t, tmpl, nil)

	run(in, 0.1, 20)
	require.Greater(t, in.Active(), 0, "long-lived particles outlast the loops")
	assert.False(t, in.HasCompleted())
	assert.Equal(t, 1, in.LoopCount())
	assert.Equal(t, 1, in.Stats().Loops)
	assert.Equal(t, 1, n.loops)
}

type loopCounter struct{ loops int }

func (l *loopCounter) Name() string               { return "loop_counter" }
func (l *loopCounter) EmitterLooped(module.Owner) { l.loops++ }

type phaseRecorder struct{ phases []string }

func (p *phaseRecorder) StartPhase(name string) { p.phases = append(p.phases, name) }

func TestTick_ReportsPhasesInOrder(t *testing.T) {
	rec := &phaseRecorder{}
	in := New(spriteTemplate(10), &fixedHost{}, Options{Timer: rec})
	require.NoError(t, in.Init())
	in.Tick(0.1, false)
	assert.Equal(t, Phases, rec.phases)
}

func TestAllocatedSize(t *testing.T) {
	in := start(t, spriteTemplate(100), nil)
	run(in, 0.1, 3)
	used, capacity := in.GetAllocatedSize()
	assert.Greater(t, used, 0)
	assert.LessOrEqual(t, used, capacity)
	assert.Greater(t, in.GetResourceSize(false), in.GetResourceSize(true))
}
