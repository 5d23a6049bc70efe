package emitter

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/particle"
)

// Chain payload, shared by every chained kind. Kind-specific fields follow at chainExtra.
const (
	chainFlags     = 0
	chainPrev      = 4
	chainNext      = 8
	chainID        = 12
	chainBirth     = 16
	chainTangent   = 20
	chainExtra     = 32
	chainPayloadSz = chainExtra
)

const chainInterpolated uint32 = 1

// minTangentDelta stands in for a zero birth-time difference between neighbours.
const minTangentDelta = 0.0032

// Direction selects which link GetParticleInTrail follows.
// Prev walks toward the head (newer particles), Next toward the tail.
type Direction uint8

const (
	Prev Direction = iota
	Next
)

// TrailOption selects what GetParticleInTrail looks for.
type TrailOption uint8

const (
	// TrailAny returns the first neighbour in the given direction.
	TrailAny TrailOption = iota
	// TrailSpawned returns the first neighbour that was sampled from its source.
	TrailSpawned
	// TrailInterpolated returns the first neighbour placed by resampling.
	TrailInterpolated
	// TrailStart walks to the head of the chain, ignoring direction.
	TrailStart
	// TrailEnd walks to the tail of the chain, ignoring direction.
	TrailEnd
)

// Chain is the bookkeeping for one linked run of particles.
type Chain struct {
	ID    int32
	Trail int
	Head  particle.Index
	Tail  particle.Index
	Count int
	// Dead chains accept no new particles and fade out.
	Dead bool
}

// ChainSet tracks the chains threaded through an instance's pool.
type ChainSet struct {
	in      *Instance
	list    []*Chain
	byID    map[int32]*Chain
	current []*Chain
	nextID  int32
}

func newChainSet(in *Instance, trails int) *ChainSet {
	c := &ChainSet{in: in}
	c.reset(trails)
	return c
}

func (c *ChainSet) reset(trails int) {
	c.list = c.list[:0]
	c.byID = make(map[int32]*Chain)
	if trails < 1 {
		trails = 1
	}
	c.current = make([]*Chain, trails)
	c.nextID = 0
}

// Len returns the number of chains with at least one particle.
func (c *ChainSet) Len() int { return len(c.list) }

// All returns the chains in creation order. The slice must not be modified.
func (c *ChainSet) All() []*Chain { return c.list }

// Current returns the live chain fed by the given trail, or nil.
func (c *ChainSet) Current(trail int) *Chain {
	if trail < 0 || trail >= len(c.current) {
		return nil
	}
	return c.current[trail]
}

// Of returns the chain holding a live particle, or nil.
func (c *ChainSet) Of(p particle.Index) *Chain {
	if !c.in.pool.IsLive(p) {
		return nil
	}
	return c.byID[c.id(p)]
}

func (c *ChainSet) region() particle.Region { return c.in.layout.Entry(0).Payload }

func (c *ChainSet) bytes(p particle.Index) particle.Bytes { return particle.Bytes(c.in.pool.Record(p)) }

func (c *ChainSet) link(p particle.Index, off int) particle.Index {
	return particle.Index(c.bytes(p).Int32(c.region().Int32(off)))
}

func (c *ChainSet) setLink(p particle.Index, off int, v particle.Index) {
	c.bytes(p).SetInt32(c.region().Int32(off), int32(v))
}

func (c *ChainSet) prev(p particle.Index) particle.Index { return c.link(p, chainPrev) }
func (c *ChainSet) next(p particle.Index) particle.Index { return c.link(p, chainNext) }

func (c *ChainSet) id(p particle.Index) int32 { return c.bytes(p).Int32(c.region().Int32(chainID)) }

// Birth is the instance time a chain particle was born at.
func (c *ChainSet) Birth(p particle.Index) float32 {
	return c.bytes(p).Float(c.region().Float(chainBirth))
}

// Tangent returns the tangent computed by the last tick.
func (c *ChainSet) Tangent(p particle.Index) mgl32.Vec3 {
	return c.bytes(p).Vec3(c.region().Vec3(chainTangent))
}

// Interpolated reports whether a particle was placed by resampling.
func (c *ChainSet) Interpolated(p particle.Index) bool {
	return c.bytes(p).Uint32(c.region().Uint32(chainFlags))&chainInterpolated != 0
}

// Start opens a new chain for a trail, retiring the trail's previous chain.
func (c *ChainSet) Start(trail int) *Chain {
	for trail >= len(c.current) {
		c.current = append(c.current, nil)
	}
	if old := c.current[trail]; old != nil {
		old.Dead = true
	}
	ch := &Chain{ID: c.nextID, Trail: trail, Head: particle.None, Tail: particle.None}
	c.nextID++
	c.list = append(c.list, ch)
	c.byID[ch.ID] = ch
	c.current[trail] = ch
	return ch
}

// Open creates a chain that no trail feeds, such as a beam.
func (c *ChainSet) Open() *Chain {
	ch := &Chain{ID: c.nextID, Trail: -1, Head: particle.None, Tail: particle.None}
	c.nextID++
	c.list = append(c.list, ch)
	c.byID[ch.ID] = ch
	return ch
}

// Retire marks a chain dead so no new particles join it.
func (c *ChainSet) Retire(ch *Chain) {
	if ch == nil {
		return
	}
	ch.Dead = true
	if ch.Trail >= 0 && ch.Trail < len(c.current) && c.current[ch.Trail] == ch {
		c.current[ch.Trail] = nil
	}
}

// RetireAll retires every live chain.
func (c *ChainSet) RetireAll() {
	for _, ch := range c.list {
		c.Retire(ch)
	}
}

// Push links a freshly spawned particle in as the new head of ch.
func (c *ChainSet) Push(ch *Chain, p particle.Index, birth float32, interpolated bool) {
	b, r := c.bytes(p), c.region()
	flags := uint32(0)
	if interpolated {
		flags |= chainInterpolated
	}
	b.SetUint32(r.Uint32(chainFlags), flags)
	b.SetInt32(r.Int32(chainID), ch.ID)
	b.SetFloat(r.Float(chainBirth), birth)
	c.setLink(p, chainPrev, particle.None)
	c.setLink(p, chainNext, ch.Head)
	if ch.Head != particle.None {
		c.setLink(ch.Head, chainPrev, p)
	} else {
		ch.Tail = p
	}
	ch.Head = p
	ch.Count++
}

// Append links a particle in as the new tail of ch.
func (c *ChainSet) Append(ch *Chain, p particle.Index, birth float32) {
	b, r := c.bytes(p), c.region()
	b.SetUint32(r.Uint32(chainFlags), 0)
	b.SetInt32(r.Int32(chainID), ch.ID)
	b.SetFloat(r.Float(chainBirth), birth)
	c.setLink(p, chainNext, particle.None)
	c.setLink(p, chainPrev, ch.Tail)
	if ch.Tail != particle.None {
		c.setLink(ch.Tail, chainNext, p)
	} else {
		ch.Head = p
	}
	ch.Tail = p
	ch.Count++
}

// unlink patches the neighbours of a particle about to be freed.
func (c *ChainSet) unlink(p particle.Index) {
	pool := c.in.pool
	prev, next := c.prev(p), c.next(p)
	if pool.IsLive(prev) && c.next(prev) == p {
		c.setLink(prev, chainNext, next)
	} else {
		prev = particle.None
	}
	if pool.IsLive(next) && c.prev(next) == p {
		c.setLink(next, chainPrev, prev)
	} else {
		next = particle.None
	}
	ch := c.byID[c.id(p)]
	if ch == nil {
		return
	}
	if ch.Head == p {
		ch.Head = next
	}
	if ch.Tail == p {
		ch.Tail = prev
	}
	ch.Count--
	if ch.Count <= 0 || ch.Head == particle.None {
		c.remove(ch)
	}
}

func (c *ChainSet) remove(ch *Chain) {
	c.Retire(ch)
	delete(c.byID, ch.ID)
	for i, x := range c.list {
		if x == ch {
			c.list = append(c.list[:i], c.list[i+1:]...)
			break
		}
	}
}

// Walk visits the particles of ch from head to tail until fn returns false.
// It stops at a broken link and never takes more than Active steps.
func (c *ChainSet) Walk(ch *Chain, fn func(p particle.Index) bool) {
	pool := c.in.pool
	p := ch.Head
	for steps := 0; steps < pool.Active() && pool.IsLive(p) && c.id(p) == ch.ID; steps++ {
		if !fn(p) {
			return
		}
		p = c.next(p)
	}
}

// GetParticleInTrail walks from start along the chain looking for a particle
// matching opt. It reports false when the walk runs off the chain or hits a
// link to a slot that is no longer live.
func (c *ChainSet) GetParticleInTrail(start particle.Index, dir Direction, opt TrailOption) (particle.Index, bool) {
	pool := c.in.pool
	if !pool.IsLive(start) {
		return particle.None, false
	}
	cur := start
	for steps := 0; steps < pool.Active(); steps++ {
		var nxt particle.Index
		switch {
		case opt == TrailStart, opt != TrailEnd && dir == Prev:
			nxt = c.prev(cur)
		default:
			nxt = c.next(cur)
		}
		if nxt == particle.None {
			if opt == TrailStart || opt == TrailEnd {
				return cur, true
			}
			return particle.None, false
		}
		if !pool.IsLive(nxt) || c.id(nxt) != c.id(cur) {
			return particle.None, false
		}
		cur = nxt
		switch opt {
		case TrailAny:
			return cur, true
		case TrailSpawned:
			if !c.Interpolated(cur) {
				return cur, true
			}
		case TrailInterpolated:
			if c.Interpolated(cur) {
				return cur, true
			}
		}
	}
	return particle.None, false
}

// CapLength flags the oldest particles of ch so at most n stay alive.
func (c *ChainSet) CapLength(ch *Chain, n int) {
	if n <= 0 {
		return
	}
	alive := 0
	c.Walk(ch, func(p particle.Index) bool {
		if !c.in.pool.Record(p).HasFlag(particle.FlagKill) {
			alive++
		}
		return true
	})
	excess := alive - n
	p := ch.Tail
	for steps := 0; excess > 0 && steps < c.in.pool.Active() && c.in.pool.IsLive(p); steps++ {
		r := c.in.pool.Record(p)
		if !r.HasFlag(particle.FlagKill) {
			r.Kill()
			excess--
		}
		p = c.prev(p)
	}
}

// UpdateTangents recomputes every chain tangent from neighbour positions and
// birth times.
func (c *ChainSet) UpdateTangents() {
	pool := c.in.pool
	for _, ch := range c.list {
		c.Walk(ch, func(p particle.Index) bool {
			prev, next := c.prev(p), c.next(p)
			hasPrev := prev != particle.None && pool.IsLive(prev)
			hasNext := next != particle.None && pool.IsLive(next)
			var a, b particle.Index
			switch {
			case hasPrev && hasNext:
				a, b = prev, next
			case hasNext:
				a, b = p, next
			case hasPrev:
				a, b = prev, p
			default:
				c.bytes(p).SetVec3(c.region().Vec3(chainTangent), mgl32.Vec3{})
				return true
			}
			dt := c.Birth(a) - c.Birth(b)
			if dt < 0 {
				dt = -dt
			}
			if dt == 0 {
				dt = minTangentDelta
			}
			d := pool.Record(a).Location().Sub(pool.Record(b).Location())
			c.bytes(p).SetVec3(c.region().Vec3(chainTangent), d.Mul(1/dt))
			return true
		})
	}
}

// remap follows chain particles into their new slots after a compaction.
// Links to dropped particles are cut; rebuild then splits broken chains.
func (c *ChainSet) remap(m []particle.Index) {
	at := func(p particle.Index) particle.Index {
		if p < 0 || int(p) >= len(m) {
			return particle.None
		}
		return m[p]
	}
	for _, ch := range c.list {
		ch.Head = at(ch.Head)
	}
	pool := c.in.pool
	for i := 0; i < pool.Active(); i++ {
		p := pool.At(i)
		c.setLink(p, chainPrev, at(c.prev(p)))
		c.setLink(p, chainNext, at(c.next(p)))
	}
	c.rebuild()
}

// rebuild re-derives chain bookkeeping from the links stored in the pool. A
// chain split by lost particles keeps its identity on the fragment holding its
// head; other fragments become new dead chains.
func (c *ChainSet) rebuild() {
	pool := c.in.pool
	for i := 0; i < pool.Active(); i++ {
		p := pool.At(i)
		if q := c.prev(p); q != particle.None && (!pool.IsLive(q) || c.id(q) != c.id(p) || c.next(q) != p) {
			c.setLink(p, chainPrev, particle.None)
		}
		if q := c.next(p); q != particle.None && (!pool.IsLive(q) || c.id(q) != c.id(p) || c.prev(q) != p) {
			c.setLink(p, chainNext, particle.None)
		}
	}

	old := c.byID
	oldCurrent := c.current
	c.list = c.list[:0]
	c.byID = make(map[int32]*Chain)
	c.current = make([]*Chain, len(oldCurrent))

	for i := 0; i < pool.Active(); i++ {
		head := pool.At(i)
		if c.prev(head) != particle.None {
			continue
		}
		id := c.id(head)
		prevCh := old[id]
		ch := &Chain{ID: id, Head: head, Tail: head, Dead: true}
		if prevCh != nil {
			ch.Trail = prevCh.Trail
		}
		if prevCh != nil && prevCh.Head == head && c.byID[id] == nil {
			ch.Dead = prevCh.Dead
		} else {
			ch.ID = c.freshID(old)
		}
		p := head
		for steps := 0; steps < pool.Active() && p != particle.None; steps++ {
			if ch.ID != id {
				c.bytes(p).SetInt32(c.region().Int32(chainID), ch.ID)
			}
			ch.Tail = p
			ch.Count++
			p = c.next(p)
		}
		c.list = append(c.list, ch)
		c.byID[ch.ID] = ch
		if !ch.Dead && ch.Trail >= 0 && ch.Trail < len(c.current) && prevCh != nil && oldCurrent[ch.Trail] == prevCh {
			c.current[ch.Trail] = ch
		}
	}
}

func (c *ChainSet) freshID(old map[int32]*Chain) int32 {
	for {
		id := c.nextID
		c.nextID++
		if old[id] == nil && c.byID[id] == nil {
			return id
		}
	}
}
