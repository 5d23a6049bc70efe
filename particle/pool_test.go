package particle

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_AcquireGrowsUpToCap(t *testing.T) {
	p := NewPool(BaseSize, 10)

	for i := 0; i < 10; i++ {
		_, ok := p.Acquire()
		require.True(t, ok, "acquire %d", i)
	}
	assert.Equal(t, 10, p.Active())
	assert.LessOrEqual(t, p.Capacity(), 10)

	_, ok := p.Acquire()
	assert.False(t, ok, "acquire past the cap must fail")
	assert.Equal(t, 10, p.Active())
}

func TestPool_GrowthTarget(t *testing.T) {
	assert.Equal(t, 1, GrowthTarget(0))
	assert.Equal(t, 3, GrowthTarget(1))
	assert.Equal(t, 111, GrowthTarget(100))
}

func TestPool_AcquireZeroesReusedSlot(t *testing.T) {
	p := NewPool(BaseSize, 4)
	i, _ := p.Acquire()
	p.Record(i).SetLocation(mgl32.Vec3{1, 2, 3})
	p.Release(0)

	j, ok := p.Acquire()
	require.True(t, ok)
	assert.Equal(t, i, j)
	assert.Equal(t, mgl32.Vec3{}, p.Record(j).Location())
}

func TestPool_ReleaseSwapsWithLast(t *testing.T) {
	p := NewPool(BaseSize, 8)
	var phys []Index
	for i := 0; i < 4; i++ {
		idx, _ := p.Acquire()
		p.Record(idx).SetPlacement(float32(i))
		phys = append(phys, idx)
	}

	freed := p.Release(1)

	assert.Equal(t, phys[1], freed)
	assert.Equal(t, 3, p.Active())
	assert.Equal(t, phys[3], p.At(1), "last entry moves into the hole")
	assert.False(t, p.IsLive(phys[1]))
	assert.True(t, p.IsLive(phys[3]))
	assert.Equal(t, 1, p.LogicalOf(phys[3]))
	// Survivors keep their physical storage.
	assert.Equal(t, float32(3), p.Record(phys[3]).Placement())
}

func TestPool_RandomSpawnKillKeepsMapsConsistent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := NewPool(BaseSize, 64)
	spawned, killed := 0, 0

	for step := 0; step < 2000; step++ {
		if rng.Intn(3) > 0 {
			if _, ok := p.Acquire(); ok {
				spawned++
			}
		} else if p.Active() > 0 {
			p.Release(rng.Intn(p.Active()))
			killed++
		}

		require.Equal(t, spawned-killed, p.Active())
		for i := 0; i < p.Active(); i++ {
			require.Equal(t, i, p.LogicalOf(p.At(i)))
		}
	}
}

func TestPool_ResizeFailureLeavesPoolUntouched(t *testing.T) {
	p := NewPool(BaseSize, 8)
	idx, _ := p.Acquire()
	p.Record(idx).SetPlacement(42)
	capBefore := p.Capacity()

	_, err := p.Resize(100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCapacity))

	_, err = p.Resize(0)
	require.Error(t, err)

	assert.Equal(t, capBefore, p.Capacity())
	assert.Equal(t, 1, p.Active())
	assert.Equal(t, float32(42), p.Record(idx).Placement())
}

func TestPool_ShrinkCompacts(t *testing.T) {
	p := NewPool(BaseSize, 16)
	_, err := p.Resize(8)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		idx, _ := p.Acquire()
		p.Record(idx).SetPlacement(float32(i))
	}
	p.Release(0)
	p.Release(0)

	remap, err := p.Resize(3)
	require.NoError(t, err)
	require.NotNil(t, remap)

	assert.Equal(t, 3, p.Capacity())
	assert.Equal(t, 3, p.Active())
	dropped := 0
	for _, r := range remap {
		if r == None {
			dropped++
		}
	}
	// 8 slots, 3 kept.
	assert.Equal(t, 5, dropped)
	for i := 0; i < p.Active(); i++ {
		assert.True(t, p.IsLive(p.At(i)))
	}
}

func TestPool_RestrideCopiesBaseAndDropsRejected(t *testing.T) {
	p := NewPool(BaseSize, 8)
	for i := 0; i < 4; i++ {
		idx, _ := p.Acquire()
		p.Record(idx).SetPlacement(float32(i))
	}

	remap, err := p.Restride(BaseSize+16, 8, func(dst, src Record) bool {
		if src.Placement() == 2 {
			return false
		}
		dst.CopyBase(src)
		return true
	})
	require.NoError(t, err)

	assert.Equal(t, BaseSize+16, p.Stride())
	assert.Equal(t, 3, p.Active())
	assert.Equal(t, None, remap[2])
	got := map[float32]bool{}
	for i := 0; i < p.Active(); i++ {
		got[p.Record(p.At(i)).Placement()] = true
	}
	assert.Equal(t, map[float32]bool{0: true, 1: true, 3: true}, got)
}

func TestPool_AllocatedBytes(t *testing.T) {
	p := NewPool(BaseSize, 4)
	_, err := p.Resize(4)
	require.NoError(t, err)
	assert.Equal(t, 4*BaseSize+4*4+4*4, p.AllocatedBytes())
}
