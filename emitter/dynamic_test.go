package emitter

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/module"
)

func movingSprites() *Template {
	return spriteTemplate(10, &module.InitialVelocity{Velocity: distribution.ConstantVector{1, 0, 0}})
}

func TestDynamicData_NotRequiredWhenEmpty(t *testing.T) {
	in := start(t, movingSprites(), nil)
	_, ok := in.GetDynamicData(false)
	assert.False(t, ok)

	in.Tick(0.1, false)
	d, ok := in.GetDynamicData(true)
	require.True(t, ok)
	assert.Equal(t, in.ID(), d.InstanceID)
	assert.Equal(t, KindSprite, d.Kind)
	assert.True(t, d.Selected)
	assert.Len(t, d.Sprites, 1)
}

func TestDynamicData_RenderNone(t *testing.T) {
	tmpl := movingSprites()
	tmpl.LODLevels[0].Required.RenderMode = RenderNone
	in := start(t, tmpl, nil)
	run(in, 0.1, 3)
	require.Equal(t, 3, in.Active())

	assert.False(t, in.IsDynamicDataRequired(0))
	_, ok := in.GetDynamicData(false)
	assert.False(t, ok)
}

func TestDynamicData_SnapshotIsIndependent(t *testing.T) {
	in := start(t, movingSprites(), nil)
	run(in, 0.1, 3)
	d, ok := in.GetDynamicData(false)
	require.True(t, ok)
	before := make([]Sprite, len(d.Sprites))
	copy(before, d.Sprites)

	run(in, 0.1, 3)
	assert.Equal(t, before, d.Sprites, "ticking does not reach into a taken snapshot")

	d.Sprites[0].Location = mgl32.Vec3{99, 99, 99}
	for i := 0; i < in.Pool().Active(); i++ {
		assert.NotEqual(t, mgl32.Vec3{99, 99, 99}, in.Pool().Record(in.Pool().At(i)).Location())
	}
}

func TestDynamicData_MaxDrawCount(t *testing.T) {
	tmpl := movingSprites()
	tmpl.LODLevels[0].Required.MaxDrawCount = 4
	in := start(t, tmpl, nil)
	run(in, 0.1, 10)
	require.Equal(t, 10, in.Active())

	d, ok := in.GetDynamicData(false)
	require.True(t, ok)
	assert.Len(t, d.Sprites, 4)
}

func TestDynamicData_LocalSpaceAddsHost(t *testing.T) {
	tmpl := spriteTemplate(10, &module.InitialLocation{Offset: distribution.ConstantVector{1, 0, 0}})
	tmpl.LODLevels[0].Required.LocalSpace = true
	in := start(t, tmpl, &fixedHost{loc: mgl32.Vec3{5, 0, 0}})
	in.Tick(0.1, false)

	assert.Equal(t, mgl32.Vec3{1, 0, 0}, in.Pool().Record(in.Pool().At(0)).Location())
	d, ok := in.GetDynamicData(false)
	require.True(t, ok)
	require.Len(t, d.Sprites, 1)
	assert.InDelta(t, 6, d.Sprites[0].Location.X(), 1e-5)
}

func TestDynamicData_UpdateReusesSnapshot(t *testing.T) {
	in := start(t, movingSprites(), nil)
	run(in, 0.1, 5)
	d, ok := in.GetDynamicData(false)
	require.True(t, ok)
	require.Len(t, d.Sprites, 5)

	in.KillParticlesForced()
	assert.False(t, in.UpdateDynamicData(d, false))

	in.Tick(0.1, false)
	require.True(t, in.UpdateDynamicData(d, false))
	assert.NotEmpty(t, d.Sprites)
	assert.LessOrEqual(t, len(d.Sprites), 2)
	assert.GreaterOrEqual(t, cap(d.Sprites), 5, "slices are refilled in place")
	assert.False(t, in.UpdateDynamicData(nil, false))
}

func TestDynamicData_SubImage(t *testing.T) {
	in := start(t, spriteTemplate(10,
		&module.Lifetime{Lifetime: distribution.Constant(1)},
		&module.SubUV{Frames: 4},
	), nil)
	run(in, 0.1, 7)

	d, ok := in.GetDynamicData(false)
	require.True(t, ok)
	var hi float32
	for _, s := range d.Sprites {
		assert.GreaterOrEqual(t, s.SubImage, float32(0))
		assert.LessOrEqual(t, s.SubImage, float32(3))
		if s.SubImage > hi {
			hi = s.SubImage
		}
	}
	assert.GreaterOrEqual(t, hi, float32(1), "older particles advance through the flipbook")
}

func TestDynamicData_MeshRotation(t *testing.T) {
	tmpl := spriteTemplate(10, &module.MeshRotation{Rotation: distribution.ConstantVector{0, 0, 0.25}})
	tmpl.Kind = KindMesh
	tmpl.Mesh.Mesh = "rock"
	in := start(t, tmpl, nil)
	in.Tick(0.1, false)

	d, ok := in.GetDynamicData(false)
	require.True(t, ok)
	assert.Equal(t, "rock", d.Mesh)
	require.Len(t, d.Meshes, 1)
	assert.Empty(t, d.Sprites)

	x := d.Meshes[0].Rotation.Rotate(mgl32.Vec3{1, 0, 0})
	assert.InDelta(t, 0, x.X(), 1e-4)
	assert.InDelta(t, 1, x.Y(), 1e-4)
}

func TestDynamicData_TrailStripsHeadFirst(t *testing.T) {
	in := start(t, trailTemplate(10, 0, &module.InitialVelocity{Velocity: distribution.ConstantVector{1, 0, 0}}), nil)
	run(in, 0.1, 4)

	d, ok := in.GetDynamicData(false)
	require.True(t, ok)
	require.Len(t, d.Strips, 1)
	pts := d.Strips[0].Points
	require.Len(t, pts, 4)
	for i := 1; i < len(pts); i++ {
		assert.Greater(t, pts[i].Location.X(), pts[i-1].Location.X(), "older points have travelled further")
	}
	assert.False(t, d.Strips[0].Dead)
}

func TestDynamicData_ResourceSize(t *testing.T) {
	in := start(t, movingSprites(), nil)
	run(in, 0.1, 3)
	exclusive := in.GetResourceSize(true)
	_, capacity := in.GetAllocatedSize()
	assert.Equal(t, capacity, exclusive)

	_, ok := in.GetDynamicData(false)
	require.True(t, ok)
	assert.Greater(t, in.GetResourceSize(false), exclusive)
}

func TestKind_ParseRoundTrip(t *testing.T) {
	for k := KindSprite; k <= KindAnimTrail; k++ {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	got, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindSprite, got)
	_, err = ParseKind("smoke")
	assert.Error(t, err)
	assert.True(t, KindRibbon.Chained())
	assert.False(t, KindMesh.Chained())
}
