package catalog

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/emitter"
	"github.com/pthm-cable/plume/module"
)

type originHost struct{}

func (originHost) Location() mgl32.Vec3 { return mgl32.Vec3{} }

func parseEffect(t *testing.T, src string) *config.EffectConfig {
	t.Helper()
	var ec config.EffectConfig
	require.NoError(t, yaml.Unmarshal([]byte(src), &ec))
	return &ec
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	c := New()
	require.NoError(t, c.Load(cfg))
	assert.Len(t, c.Names(), len(cfg.Effects))

	sparks, err := c.Template("sparks")
	require.NoError(t, err)
	assert.Equal(t, emitter.KindSprite, sparks.Kind)
	require.Len(t, sparks.LODLevels, 2)
	assert.Len(t, sparks.LODLevels[0].Modules, 7)

	bursts := sparks.LODLevels[0].Spawn.Bursts
	require.Len(t, bursts, 2)
	assert.Equal(t, emitter.Burst{Time: 0, Count: 40, CountLow: 25}, bursts[0])
	assert.Equal(t, -1, bursts[1].CountLow, "missing count_low fires exactly count")

	debris, err := c.Template("debris")
	require.NoError(t, err)
	assert.Equal(t, emitter.KindMesh, debris.Kind)
	assert.Equal(t, "rock_chunk", debris.Mesh.Mesh)

	zap, err := c.Template("zap")
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{300, 0, 0}, zap.Beam.Target)
}

func TestLoad_DefaultsRun(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	c := New()
	require.NoError(t, c.Load(cfg))

	tmpl, err := c.Template("sparks")
	require.NoError(t, err)
	in := emitter.New(tmpl, originHost{}, emitter.Options{})
	require.NoError(t, in.Init())
	for i := 0; i < 30; i++ {
		in.Tick(1.0/60, false)
	}
	assert.Greater(t, in.Active(), 0)
	assert.Equal(t, 1, in.Stats().BurstsFired)
}

func TestTemplate_UnknownEffect(t *testing.T) {
	_, err := New().Template("nope")
	assert.True(t, errors.Is(err, ErrUnknownEffect))
}

func TestBuild_UnknownModule(t *testing.T) {
	ec := parseEffect(t, `
name: bad
lod_levels:
  - modules:
      - {type: warp_drive}
`)
	_, err := New().Build(ec, config.PoolConfig{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownModule))
	assert.Contains(t, err.Error(), "warp_drive")
}

func TestBuild_UnknownKind(t *testing.T) {
	ec := parseEffect(t, `
name: bad
kind: fountain
lod_levels:
  - {}
`)
	_, err := New().Build(ec, config.PoolConfig{})
	assert.Error(t, err)
}

func TestBuild_NoLODLevels(t *testing.T) {
	_, err := New().Build(&config.EffectConfig{Name: "empty"}, config.PoolConfig{})
	assert.True(t, errors.Is(err, emitter.ErrNoLODLevels))
}

func TestBuild_InconsistentLOD(t *testing.T) {
	ec := parseEffect(t, `
name: mismatch
lod_levels:
  - modules:
      - {type: lifetime, lifetime: 1}
      - {type: drag, coefficient: 0.5}
  - modules:
      - {type: drag, coefficient: 0.5}
      - {type: lifetime, lifetime: 1}
`)
	_, err := New().Build(ec, config.PoolConfig{})
	assert.True(t, errors.Is(err, emitter.ErrInconsistentLOD))
}

func TestBuild_RequiredAndPool(t *testing.T) {
	ec := parseEffect(t, `
name: quiet
kind: sprite
lod_levels:
  - required:
      duration: 2
      duration_low: 1
      loops: 3
      kill_on_deactivate: true
      max_draw_count: 10
      render_mode: none
    spawn:
      rate: {uniform: [5, 10]}
      rate_scale: 0.5
`)
	tmpl, err := New().Build(ec, config.PoolConfig{InitialAllocation: 64})
	require.NoError(t, err)

	req := tmpl.LODLevels[0].Required
	assert.Equal(t, float32(2), req.Duration)
	assert.Equal(t, float32(1), req.DurationLow)
	assert.Equal(t, 3, req.Loops)
	assert.True(t, req.KillOnDeactivate)
	assert.Equal(t, 10, req.MaxDrawCount)
	assert.Equal(t, emitter.RenderNone, req.RenderMode)
	assert.Equal(t, 64, tmpl.InitialAllocation, "pool default fills a missing initial allocation")
	assert.Equal(t, emitter.DefaultMaxParticles, tmpl.MaxParticles, "build fills a zero cap")

	spawn := tmpl.LODLevels[0].Spawn
	assert.Equal(t, distribution.Uniform{Min: 5, Max: 10}, spawn.Rate)
	assert.Equal(t, distribution.Constant(0.5), spawn.RateScale)
}

func TestBuild_BadRenderMode(t *testing.T) {
	ec := parseEffect(t, `
name: bad
lod_levels:
  - required: {render_mode: wireframe}
`)
	_, err := New().Build(ec, config.PoolConfig{})
	assert.Error(t, err)
}

func TestBuild_BadBurst(t *testing.T) {
	ec := parseEffect(t, `
name: bad
lod_levels:
  - spawn:
      bursts:
        - {time: 0, count: 5, count_low: 9}
`)
	_, err := New().Build(ec, config.PoolConfig{})
	assert.Error(t, err)
}

func TestBuild_BadDistribution(t *testing.T) {
	ec := parseEffect(t, `
name: bad
lod_levels:
  - modules:
      - {type: lifetime, lifetime: {uniform: [1, 2, 3]}}
`)
	_, err := New().Build(ec, config.PoolConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lifetime")
}

func TestBuild_ModuleParams(t *testing.T) {
	ec := parseEffect(t, `
name: params
lod_levels:
  - modules:
      - {type: sphere_location, radius: 12, surface_only: true}
      - {type: kill_box, min: [-1, -2, -3], max: [1, 2, 3], kill_inside: true}
      - {type: dynamic_parameter, params: [1, {uniform: [0, 1]}], spawn_only: true}
      - {type: event_generator, on_spawn: true}
`)
	tmpl, err := New().Build(ec, config.PoolConfig{})
	require.NoError(t, err)
	mods := tmpl.LODLevels[0].Modules
	require.Len(t, mods, 4)

	sphere, ok := mods[0].(*module.SphereLocation)
	require.True(t, ok)
	assert.Equal(t, distribution.Constant(12), sphere.Radius)
	assert.True(t, sphere.SurfaceOnly)

	box, ok := mods[1].(*module.KillBox)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{-1, -2, -3}, box.Min)
	assert.True(t, box.KillInside)

	dyn, ok := mods[2].(*module.DynamicParameter)
	require.True(t, ok)
	assert.Equal(t, distribution.Constant(1), dyn.Params[0])
	assert.Equal(t, distribution.Uniform{Min: 0, Max: 1}, dyn.Params[1])
	assert.Nil(t, dyn.Params[2])
	assert.True(t, dyn.SpawnOnly)

	gen, ok := mods[3].(*module.EventGenerator)
	require.True(t, ok)
	assert.Equal(t, "params", gen.EventName, "defaults name events after the template")
	assert.True(t, gen.OnSpawn)
	assert.False(t, gen.OnDeath)
}

func TestRegistry_EveryTypeBuildsWithDefaults(t *testing.T) {
	reg := NewModuleRegistry()
	require.Len(t, reg.All(), 22)
	for _, typ := range reg.Types() {
		m, err := reg.Build(&config.ModuleConfig{Type: typ})
		require.NoError(t, err, typ)
		assert.Equal(t, typ, m.Name())
	}
}

func TestRegistry_Categories(t *testing.T) {
	reg := NewModuleRegistry()
	kills := reg.ByCategory("kill")
	require.Len(t, kills, 2)
	assert.Equal(t, "kill_box", kills[0].Type)

	info, ok := reg.Get("noise")
	require.True(t, ok)
	assert.Equal(t, "motion", info.Category)
}

func TestRegistry_Override(t *testing.T) {
	reg := NewModuleRegistry()
	n := len(reg.All())
	reg.Register(ModuleInfo{Type: "lifetime", Category: "spawn", Build: func(*config.ModuleConfig) (module.Module, error) {
		return &module.Lifetime{Lifetime: distribution.Constant(9)}, nil
	}})
	assert.Len(t, reg.All(), n)

	m, err := reg.Build(&config.ModuleConfig{Type: "lifetime"})
	require.NoError(t, err)
	assert.Equal(t, distribution.Constant(9), m.(*module.Lifetime).Lifetime)
}
