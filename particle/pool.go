package particle

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCapacity is returned when a resize asks for an impossible capacity.
var ErrInvalidCapacity = errors.New("particle: invalid pool capacity")

// Pool owns the packed record buffer and the index array for one emitter instance.
//
// indices[0:active] are the physical slots of live particles in logical order;
// indices[active:] are free slots. slots is the inverse map (physical -> logical,
// -1 when free), which makes liveness checks on stored links O(1).
type Pool struct {
	stride    int
	data      []byte
	indices   []Index
	slots     []int32
	active    int
	maxActive int
}

// NewPool creates an empty pool. maxActive is the hard cap used for backpressure;
// storage grows on demand up to it.
func NewPool(stride, maxActive int) *Pool {
	if stride < BaseSize {
		stride = BaseSize
	}
	if maxActive < 1 {
		maxActive = 1
	}
	return &Pool{stride: stride, maxActive: maxActive}
}

// Stride is the record size in bytes.
func (p *Pool) Stride() int { return p.stride }

// Active is the number of live particles.
func (p *Pool) Active() int { return p.active }

// Capacity is the number of allocated slots.
func (p *Pool) Capacity() int { return len(p.indices) }

// MaxActive is the hard cap on live particles.
func (p *Pool) MaxActive() int { return p.maxActive }

// SetMaxActive changes the cap. Live particles above a lowered cap are kept until
// they die; no new ones are acquired until the count is below the cap again.
func (p *Pool) SetMaxActive(n int) {
	if n < 1 {
		n = 1
	}
	p.maxActive = n
}

// At returns the physical slot of the i-th live particle.
func (p *Pool) At(logical int) Index { return p.indices[logical] }

// Record returns the bytes of the particle in the given physical slot.
func (p *Pool) Record(i Index) Record {
	off := int(i) * p.stride
	return Record(p.data[off : off+p.stride : off+p.stride])
}

// IsLive reports whether a physical slot currently holds a live particle.
func (p *Pool) IsLive(i Index) bool {
	return i >= 0 && int(i) < len(p.slots) && p.slots[i] >= 0
}

// LogicalOf returns the logical position of a live physical slot, or -1.
func (p *Pool) LogicalOf(i Index) int {
	if !p.IsLive(i) {
		return -1
	}
	return int(p.slots[i])
}

// GrowthTarget is the capacity the pool grows to when it runs out of slots with n live.
func GrowthTarget(n int) int {
	return n + int(math.Sqrt(float64(n))) + 1
}

// Acquire takes a free slot, zeroes it, and appends it to the live set.
// It returns false when the pool is at its cap.
func (p *Pool) Acquire() (Index, bool) {
	if p.active >= p.maxActive {
		return None, false
	}
	if p.active == len(p.indices) {
		target := GrowthTarget(p.active)
		if target > p.maxActive {
			target = p.maxActive
		}
		p.grow(target)
	}
	phys := p.indices[p.active]
	p.slots[phys] = int32(p.active)
	p.active++
	clear(p.Record(phys))
	return phys, true
}

// Release removes the particle at the given logical position by swapping the
// last live entry into its place. Physical storage of survivors does not move.
// It returns the physical slot that was freed.
func (p *Pool) Release(logical int) Index {
	last := p.active - 1
	phys := p.indices[logical]
	moved := p.indices[last]

	p.indices[logical] = moved
	p.slots[moved] = int32(logical)
	p.indices[last] = phys
	p.slots[phys] = -1
	p.active--
	return phys
}

// ReleaseIndex removes a live particle by physical slot.
func (p *Pool) ReleaseIndex(i Index) bool {
	logical := p.LogicalOf(i)
	if logical < 0 {
		return false
	}
	p.Release(logical)
	return true
}

// Clear releases every particle without touching storage.
func (p *Pool) Clear() {
	for i := range p.indices {
		p.indices[i] = Index(i)
		p.slots[i] = -1
	}
	p.active = 0
}

func (p *Pool) grow(capacity int) {
	old := len(p.indices)
	if capacity <= old {
		return
	}
	data := make([]byte, capacity*p.stride)
	copy(data, p.data)
	p.data = data
	for i := old; i < capacity; i++ {
		p.indices = append(p.indices, Index(i))
		p.slots = append(p.slots, -1)
	}
}

// Resize changes the allocated capacity. Growing keeps every particle in place and
// returns a nil remap. Shrinking compacts live particles into the low slots,
// dropping those that do not fit, and returns the old-to-new physical map.
// On error the pool is untouched.
func (p *Pool) Resize(capacity int) ([]Index, error) {
	if capacity <= 0 || capacity > p.maxActive {
		return nil, fmt.Errorf("resize to %d (max %d): %w", capacity, p.maxActive, ErrInvalidCapacity)
	}
	if capacity >= len(p.indices) {
		p.grow(capacity)
		return nil, nil
	}
	return p.compact(p.stride, capacity, nil), nil
}

// Restride rebuilds storage with a new record size. Live particles are visited in
// logical order; copyFn fills the new record from the old one and may reject it.
// A nil copyFn copies the common prefix. Returns the old-to-new physical map,
// with None for dropped particles.
func (p *Pool) Restride(stride, capacity int, copyFn func(dst, src Record) bool) ([]Index, error) {
	if stride < BaseSize {
		return nil, fmt.Errorf("restride to %d bytes: %w", stride, ErrInvalidCapacity)
	}
	if capacity <= 0 || capacity > p.maxActive {
		return nil, fmt.Errorf("restride capacity %d (max %d): %w", capacity, p.maxActive, ErrInvalidCapacity)
	}
	return p.compact(stride, capacity, copyFn), nil
}

func (p *Pool) compact(stride, capacity int, copyFn func(dst, src Record) bool) []Index {
	remap := make([]Index, len(p.indices))
	for i := range remap {
		remap[i] = None
	}
	data := make([]byte, capacity*stride)
	kept := 0
	for i := 0; i < p.active && kept < capacity; i++ {
		phys := p.indices[i]
		src := p.Record(phys)
		dst := Record(data[kept*stride : (kept+1)*stride : (kept+1)*stride])
		if copyFn != nil {
			if !copyFn(dst, src) {
				clear(dst)
				continue
			}
		} else {
			copy(dst, src)
		}
		remap[phys] = Index(kept)
		kept++
	}

	p.stride = stride
	p.data = data
	p.indices = make([]Index, capacity)
	p.slots = make([]int32, capacity)
	for i := 0; i < capacity; i++ {
		p.indices[i] = Index(i)
		if i < kept {
			p.slots[i] = int32(i)
		} else {
			p.slots[i] = -1
		}
	}
	p.active = kept
	return remap
}

// AllocatedBytes is the memory held by record storage and both index maps.
func (p *Pool) AllocatedBytes() int {
	return len(p.data) + len(p.indices)*4 + len(p.slots)*4
}
