package scene

import (
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/plume/components"
	"github.com/pthm-cable/plume/emitter"
)

// chunksPerWorker splits a step's jobs finer than one chunk per worker so a
// few heavy instances do not leave the other workers idle.
const chunksPerWorker = 4

// phaseSwitch forwards emitter phase marks to target. The scene detaches the
// target while instances tick on workers.
type phaseSwitch struct {
	target emitter.PhaseTimer
}

// StartPhase implements emitter.PhaseTimer.
func (p *phaseSwitch) StartPhase(name string) {
	if p.target != nil {
		p.target.StartPhase(name)
	}
}

// tickJob is one instance to tick this step. Component pointers stay valid
// because no entity is added or removed while jobs run.
type tickJob struct {
	Entity   ecs.Entity
	Effect   *components.Effect
	Suppress bool // spawn nothing this tick
}

type workChunk struct {
	start, end int
	dt         float32
}

// parallelState is the worker pool that ticks instances. Instances share no
// mutable state, so any split of the jobs gives the same result.
type parallelState struct {
	jobs       []tickJob
	numWorkers int

	work    chan workChunk
	pending sync.WaitGroup // chunks of the current dispatch
	workers sync.WaitGroup
	running bool
}

func newParallelState(workers int) *parallelState {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &parallelState{
		numWorkers: workers,
		jobs:       make([]tickJob, 0, 64),
	}
}

func (p *parallelState) startWorkers() {
	if p.running {
		return
	}
	p.work = make(chan workChunk, p.numWorkers*chunksPerWorker)
	p.running = true
	p.workers.Add(p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		go p.worker()
	}
}

// stopWorkers closes the work channel and waits for every worker to exit.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}
	close(p.work)
	p.workers.Wait()
	p.running = false
}

func (p *parallelState) worker() {
	defer p.workers.Done()
	for chunk := range p.work {
		p.tickChunk(chunk.start, chunk.end, chunk.dt)
		p.pending.Done()
	}
}

func (p *parallelState) tickChunk(i0, i1 int, dt float32) {
	for i := i0; i < i1; i++ {
		job := &p.jobs[i]
		job.Effect.Instance.Tick(dt, job.Suppress)
	}
}

// computeParallel ticks every job on the pool and returns when all are done.
func (p *parallelState) computeParallel(dt float32) {
	n := len(p.jobs)
	if n == 0 {
		return
	}
	p.startWorkers()

	size := max(1, (n+p.numWorkers*chunksPerWorker-1)/(p.numWorkers*chunksPerWorker))
	for start := 0; start < n; start += size {
		p.pending.Add(1)
		p.work <- workChunk{start: start, end: min(start+size, n), dt: dt}
	}
	p.pending.Wait()
}
