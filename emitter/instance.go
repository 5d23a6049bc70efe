package emitter

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/pthm-cable/plume/module"
	"github.com/pthm-cable/plume/particle"
)

// Host places an instance in the world.
type Host interface {
	Location() mgl32.Vec3
}

// TrailSource is optionally implemented by hosts that feed ribbons from more
// than one moving point. ok false means the source is gone this tick.
type TrailSource interface {
	SourceCount() int
	SourcePoint(i int) (p mgl32.Vec3, ok bool)
}

// Options tune an instance beyond its template.
type Options struct {
	// Seed overrides the template seed when non-zero.
	Seed   int64
	Logger *slog.Logger
	Timer  PhaseTimer
	// OnEvent receives module events (spawn/death).
	OnEvent func(id uuid.UUID, e module.Event)
	// MaxResize is a hard cap on the pool size across all templates. Zero disables.
	MaxResize int
	// ResizeWarn logs once when the pool grows past this many slots. Zero disables.
	ResizeWarn int
	// InitialAllocation overrides the template's initial pool size when > 0.
	InitialAllocation int
}

// slot binds a module capability to its layout entry.
type slot[T any] struct {
	m     T
	entry int
}

// Instance is one running emitter. It is not safe for concurrent use; distinct
// instances may tick on different goroutines.
type Instance struct {
	id      uuid.UUID
	tmpl    *Template
	host    Host
	opts    Options
	log     *slog.Logger
	rng     *rand.Rand
	variant variant

	state        State
	haltSpawning bool

	lodIndex int
	lod      *LODLevel
	layout   particle.Layout
	pool     *particle.Pool
	block    particle.Bytes
	entries  map[module.Module]int

	spawners  []slot[module.Spawner]
	updaters  []slot[module.Updater]
	finals    []slot[module.FinalUpdater]
	killObs   []slot[module.KillObserver]
	loopObs   []slot[module.LoopNotifier]
	sources   []slot[module.SpawnSource]
	preppers  []slot[module.InstancePrepper]
	offsetter []slot[module.LocationOffsetter]

	emitterTime          float32
	secondsSinceCreation float32
	loopCount            int
	durations            []float32
	delay                float32
	spawnFraction        float32
	fired                [][]bool

	location    mgl32.Vec3
	oldLocation mgl32.Vec3
	located     bool
	firstNew    int

	bounds      AABB
	stats       Stats
	warnedGrow  bool
	lastDynamic int
}

// New creates an uninitialised instance. Call Init before ticking.
func New(t *Template, host Host, opts Options) *Instance {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = t.Seed
	}
	id := uuid.New()
	return &Instance{
		id:      id,
		tmpl:    t,
		host:    host,
		opts:    opts,
		log:     opts.Logger.With("emitter", t.Name, "instance", id.String()),
		rng:     rand.New(rand.NewSource(seed)),
		variant: newVariant(t),
	}
}

// Init validates the template, builds the layout and pool, and activates.
func (in *Instance) Init() error {
	if err := in.tmpl.Validate(); err != nil {
		return err
	}
	if in.lodIndex < 0 || in.lodIndex >= len(in.tmpl.LODLevels) {
		in.lodIndex = 0
	}
	in.lod = in.tmpl.LODLevels[in.lodIndex]
	in.bindModules()
	in.layout = in.buildLayout()

	in.pool = particle.NewPool(in.layout.Stride, in.maxActive())
	alloc := in.tmpl.InitialAllocation
	if in.opts.InitialAllocation > 0 {
		alloc = in.opts.InitialAllocation
	}
	if alloc > 0 {
		if alloc > in.pool.MaxActive() {
			alloc = in.pool.MaxActive()
		}
		if _, err := in.pool.Resize(alloc); err != nil {
			in.log.Warn("initial allocation failed", "size", alloc, "error", err)
			return fmt.Errorf("init %q: %w", in.tmpl.Name, err)
		}
	}

	in.block = make(particle.Bytes, in.layout.InstanceSize)
	in.resetTime()
	in.prepBlock(nil)
	in.variant.reset(in)
	in.stats = Stats{}
	in.state = StateActive
	in.log.Debug("instance initialised",
		"kind", in.tmpl.Kind.String(),
		"stride", in.layout.Stride,
		"instance_bytes", in.layout.InstanceSize,
		"lod", in.lodIndex)
	return nil
}

func (in *Instance) maxActive() int {
	n := in.tmpl.maxParticles(in.lod)
	if in.opts.MaxResize > 0 && n > in.opts.MaxResize {
		n = in.opts.MaxResize
	}
	if n < 1 {
		n = 1
	}
	return n
}

// buildLayout puts the variant first, then every module in list order.
func (in *Instance) buildLayout() particle.Layout {
	reqs := make([]particle.Sizer, 0, len(in.lod.Modules)+1)
	reqs = append(reqs, in.variant)
	for _, m := range in.lod.Modules {
		reqs = append(reqs, module.Sizes(m))
	}
	return particle.BuildLayout(particle.BaseSize, reqs)
}

func (in *Instance) bindModules() {
	in.entries = make(map[module.Module]int, len(in.lod.Modules))
	in.spawners, in.updaters, in.finals = in.spawners[:0], in.updaters[:0], in.finals[:0]
	in.killObs, in.loopObs, in.sources = in.killObs[:0], in.loopObs[:0], in.sources[:0]
	in.preppers, in.offsetter = in.preppers[:0], in.offsetter[:0]
	for i, m := range in.lod.Modules {
		e := i + 1
		in.entries[m] = e
		if c, ok := m.(module.Spawner); ok {
			in.spawners = append(in.spawners, slot[module.Spawner]{c, e})
		}
		if c, ok := m.(module.Updater); ok {
			in.updaters = append(in.updaters, slot[module.Updater]{c, e})
		}
		if c, ok := m.(module.FinalUpdater); ok {
			in.finals = append(in.finals, slot[module.FinalUpdater]{c, e})
		}
		if c, ok := m.(module.KillObserver); ok {
			in.killObs = append(in.killObs, slot[module.KillObserver]{c, e})
		}
		if c, ok := m.(module.LoopNotifier); ok {
			in.loopObs = append(in.loopObs, slot[module.LoopNotifier]{c, e})
		}
		if c, ok := m.(module.SpawnSource); ok {
			in.sources = append(in.sources, slot[module.SpawnSource]{c, e})
		}
		if c, ok := m.(module.InstancePrepper); ok {
			in.preppers = append(in.preppers, slot[module.InstancePrepper]{c, e})
		}
		if c, ok := m.(module.LocationOffsetter); ok {
			in.offsetter = append(in.offsetter, slot[module.LocationOffsetter]{c, e})
		}
	}
}

// prepBlock runs PrepInstanceBlock for every module whose entry is not in keep.
func (in *Instance) prepBlock(keep map[int]bool) {
	for _, s := range in.preppers {
		if keep[s.entry] {
			continue
		}
		s.m.PrepInstanceBlock(in, in.blockFor(s.entry))
	}
}

func (in *Instance) resetTime() {
	in.emitterTime = 0
	in.secondsSinceCreation = 0
	in.loopCount = 0
	in.spawnFraction = 0
	in.located = false
	in.durations = make([]float32, len(in.tmpl.LODLevels))
	in.fired = make([][]bool, len(in.tmpl.LODLevels))
	for i, l := range in.tmpl.LODLevels {
		in.fired[i] = make([]bool, len(l.Spawn.Bursts))
	}
	in.setupDurations()
}

// setupDurations picks this loop's duration for every LOD and the current delay.
func (in *Instance) setupDurations() {
	for i, l := range in.tmpl.LODLevels {
		r := &l.Required
		d := r.Duration
		if r.DurationLow > 0 && r.DurationLow < r.Duration {
			d = r.DurationLow + in.rng.Float32()*(r.Duration-r.DurationLow)
		}
		in.durations[i] = d
	}
	r := &in.lod.Required
	switch {
	case r.DelayFirstLoopOnly && in.loopCount > 0:
		in.delay = 0
	case r.DelayLow > 0 && r.DelayLow < r.Delay:
		in.delay = r.DelayLow + in.rng.Float32()*(r.Delay-r.DelayLow)
	default:
		in.delay = r.Delay
	}
}

func (in *Instance) resetBursts() {
	for _, f := range in.fired {
		clear(f)
	}
}

// Rewind restarts the time line. Live particles are kept.
func (in *Instance) Rewind() {
	if in.state == StateUninitialized {
		return
	}
	in.resetTime()
	in.prepBlock(nil)
	in.variant.reset(in)
	in.rebuildChains()
}

// KillParticlesForced removes every particle without notifying observers.
func (in *Instance) KillParticlesForced() {
	if in.pool == nil {
		return
	}
	in.stats.Killed += in.pool.Active()
	in.pool.Clear()
	in.variant.reset(in)
	in.bounds = AABB{}
}

func (in *Instance) view(phys particle.Index, entry int) particle.View {
	return particle.View{Record: in.pool.Record(phys), Index: phys, Payload: in.layout.Entry(entry).Payload}
}

func (in *Instance) blockFor(entry int) particle.Block {
	return particle.Block{Data: in.block, Region: in.layout.Entry(entry).Instance}
}

// rebuildChains lets chained variants re-derive bookkeeping from payload links.
func (in *Instance) rebuildChains() {
	if c := in.Chains(); c != nil {
		c.rebuild()
	}
}

// ID implements module.Owner.
func (in *Instance) ID() uuid.UUID { return in.id }

// Rand implements module.Owner.
func (in *Instance) Rand() *rand.Rand { return in.rng }

// EmitterTime is the time into the current loop past the delay, never negative.
func (in *Instance) EmitterTime() float32 {
	if t := in.emitterTime - in.delay; t > 0 {
		return t
	}
	return 0
}

// SecondsSinceCreation implements module.Owner.
func (in *Instance) SecondsSinceCreation() float32 { return in.secondsSinceCreation }

// LoopCount implements module.Owner.
func (in *Instance) LoopCount() int { return in.loopCount }

// Location is the emitter position sampled at the start of the current tick.
func (in *Instance) Location() mgl32.Vec3 {
	if !in.located && in.host != nil {
		return in.host.Location()
	}
	return in.location
}

// LocalSpace implements module.Owner.
func (in *Instance) LocalSpace() bool { return in.lod != nil && in.lod.Required.LocalSpace }

// InstanceBlock implements module.Owner.
func (in *Instance) InstanceBlock(m module.Module) particle.Block {
	e, ok := in.entries[m]
	if !ok {
		return particle.Block{}
	}
	return in.blockFor(e)
}

// Emit implements module.Owner.
func (in *Instance) Emit(e module.Event) {
	if in.opts.OnEvent != nil {
		in.opts.OnEvent(in.id, e)
	}
}

// Template returns the shared template.
func (in *Instance) Template() *Template { return in.tmpl }

// Active returns the live particle count.
func (in *Instance) Active() int {
	if in.pool == nil {
		return 0
	}
	return in.pool.Active()
}

// Pool exposes the particle pool for inspection.
func (in *Instance) Pool() *particle.Pool { return in.pool }

// Layout returns the current layout table.
func (in *Instance) Layout() particle.Layout { return in.layout }

// Stats returns a copy of the counters.
func (in *Instance) Stats() Stats { return in.stats }

// CurrentLODIndex returns the active LOD.
func (in *Instance) CurrentLODIndex() int { return in.lodIndex }

// Bounds returns the bounding box computed by the last tick.
func (in *Instance) Bounds() AABB { return in.bounds }

// SpawnFraction is the fractional spawn demand carried into the next tick.
func (in *Instance) SpawnFraction() float32 { return in.spawnFraction }

// Chains returns the chain bookkeeping, or nil for unchained kinds.
func (in *Instance) Chains() *ChainSet {
	if c, ok := in.variant.(interface{ chains() *ChainSet }); ok {
		return c.chains()
	}
	return nil
}
