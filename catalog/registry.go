package catalog

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/distribution"
	"github.com/pthm-cable/plume/module"
)

// BuildFunc decodes a module entry into a module.
type BuildFunc func(mc *config.ModuleConfig) (module.Module, error)

// ModuleInfo describes a buildable module type.
type ModuleInfo struct {
	Type        string // Value of the "type" key in config
	Description string // What this module does
	Category    string // Grouping (e.g., "spawn", "motion", "appearance")
	Build       BuildFunc
}

// ModuleRegistry holds every module type the catalog can build.
type ModuleRegistry struct {
	modules []ModuleInfo
	byType  map[string]ModuleInfo
}

// NewModuleRegistry creates a registry with all stock modules.
func NewModuleRegistry() *ModuleRegistry {
	reg := &ModuleRegistry{
		byType: make(map[string]ModuleInfo),
	}
	reg.registerDefaults()
	return reg
}

// registerDefaults adds all stock modules to the registry.
// Update this when adding new modules.
func (r *ModuleRegistry) registerDefaults() {
	// Spawn
	r.Register(ModuleInfo{Type: "lifetime", Description: "Sets the particle lifetime", Category: "spawn", Build: buildLifetime})
	r.Register(ModuleInfo{Type: "initial_location", Description: "Offsets the spawn location", Category: "spawn", Build: buildInitialLocation})
	r.Register(ModuleInfo{Type: "sphere_location", Description: "Spawns inside or on a sphere", Category: "spawn", Build: buildSphereLocation})
	r.Register(ModuleInfo{Type: "spawn_per_unit", Description: "Spawns by distance travelled", Category: "spawn", Build: buildSpawnPerUnit})

	// Motion
	r.Register(ModuleInfo{Type: "initial_velocity", Description: "Sets the starting velocity", Category: "motion", Build: buildInitialVelocity})
	r.Register(ModuleInfo{Type: "acceleration", Description: "Applies constant acceleration", Category: "motion", Build: buildAcceleration})
	r.Register(ModuleInfo{Type: "drag", Description: "Damps velocity", Category: "motion", Build: buildDrag})
	r.Register(ModuleInfo{Type: "point_attractor", Description: "Pulls particles toward a point", Category: "motion", Build: buildPointAttractor})
	r.Register(ModuleInfo{Type: "orbit", Description: "Circles particles around their path", Category: "motion", Build: buildOrbit})
	r.Register(ModuleInfo{Type: "noise", Description: "Simplex turbulence", Category: "motion", Build: buildNoise})

	// Appearance
	r.Register(ModuleInfo{Type: "initial_size", Description: "Sets the starting size", Category: "appearance", Build: buildInitialSize})
	r.Register(ModuleInfo{Type: "size_by_life", Description: "Scales size over life", Category: "appearance", Build: buildSizeByLife})
	r.Register(ModuleInfo{Type: "initial_color", Description: "Sets the starting color", Category: "appearance", Build: buildInitialColor})
	r.Register(ModuleInfo{Type: "color_over_life", Description: "Drives color over life", Category: "appearance", Build: buildColorOverLife})
	r.Register(ModuleInfo{Type: "initial_rotation", Description: "Sets the sprite rotation", Category: "appearance", Build: buildInitialRotation})
	r.Register(ModuleInfo{Type: "rotation_rate", Description: "Spins sprites", Category: "appearance", Build: buildRotationRate})
	r.Register(ModuleInfo{Type: "sub_uv", Description: "Selects flipbook frames", Category: "appearance", Build: buildSubUV})
	r.Register(ModuleInfo{Type: "dynamic_parameter", Description: "Feeds four material values", Category: "appearance", Build: buildDynamicParameter})
	r.Register(ModuleInfo{Type: "mesh_rotation", Description: "Rotates mesh particles", Category: "appearance", Build: buildMeshRotation})

	// Kill
	r.Register(ModuleInfo{Type: "kill_box", Description: "Kills particles by box", Category: "kill", Build: buildKillBox})
	r.Register(ModuleInfo{Type: "kill_height", Description: "Kills particles by height", Category: "kill", Build: buildKillHeight})

	// Events
	r.Register(ModuleInfo{Type: "event_generator", Description: "Reports spawn and death events", Category: "events", Build: buildEventGenerator})
}

// Register adds a module type, replacing any previous entry with the same type.
func (r *ModuleRegistry) Register(info ModuleInfo) {
	if _, ok := r.byType[info.Type]; !ok {
		r.modules = append(r.modules, info)
	} else {
		for i := range r.modules {
			if r.modules[i].Type == info.Type {
				r.modules[i] = info
			}
		}
	}
	r.byType[info.Type] = info
}

// Get returns module info by type.
func (r *ModuleRegistry) Get(typ string) (ModuleInfo, bool) {
	info, ok := r.byType[typ]
	return info, ok
}

// Build decodes one module entry.
func (r *ModuleRegistry) Build(mc *config.ModuleConfig) (module.Module, error) {
	info, ok := r.byType[mc.Type]
	if !ok {
		return nil, fmt.Errorf("%q: %w", mc.Type, ErrUnknownModule)
	}
	m, err := info.Build(mc)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", mc.Type, err)
	}
	return m, nil
}

// All returns all registered modules in registration order.
func (r *ModuleRegistry) All() []ModuleInfo {
	return r.modules
}

// ByCategory returns modules filtered by category.
func (r *ModuleRegistry) ByCategory(category string) []ModuleInfo {
	var result []ModuleInfo
	for _, info := range r.modules {
		if info.Category == category {
			result = append(result, info)
		}
	}
	return result
}

// Types returns all module types, sorted.
func (r *ModuleRegistry) Types() []string {
	types := make([]string, len(r.modules))
	for i, info := range r.modules {
		types[i] = info.Type
	}
	sort.Strings(types)
	return types
}

// specs builds distributions, keeping the first error.
type specs struct {
	err error
}

func (s *specs) float(field string, fs distribution.FloatSpec) distribution.Float {
	if s.err != nil {
		return nil
	}
	f, err := fs.Build()
	if err != nil {
		s.err = fmt.Errorf("%s: %w", field, err)
	}
	return f
}

func (s *specs) vector(field string, vs distribution.VectorSpec) distribution.Vector {
	if s.err != nil {
		return nil
	}
	v, err := vs.Build()
	if err != nil {
		s.err = fmt.Errorf("%s: %w", field, err)
	}
	return v
}

func decode(mc *config.ModuleConfig, v interface{}) error {
	if err := mc.Decode(v); err != nil {
		return fmt.Errorf("decoding params: %w", err)
	}
	return nil
}

func buildLifetime(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Lifetime distribution.FloatSpec `yaml:"lifetime"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.Lifetime{Lifetime: s.float("lifetime", p.Lifetime)}
	return m, s.err
}

func buildInitialLocation(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Offset distribution.VectorSpec `yaml:"offset"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.InitialLocation{Offset: s.vector("offset", p.Offset)}
	return m, s.err
}

func buildSphereLocation(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Radius        distribution.FloatSpec `yaml:"radius"`
		SurfaceOnly   bool                   `yaml:"surface_only"`
		Velocity      bool                   `yaml:"velocity"`
		VelocityScale distribution.FloatSpec `yaml:"velocity_scale"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.SphereLocation{
		Radius:        s.float("radius", p.Radius),
		SurfaceOnly:   p.SurfaceOnly,
		Velocity:      p.Velocity,
		VelocityScale: s.float("velocity_scale", p.VelocityScale),
	}
	return m, s.err
}

func buildSpawnPerUnit(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		UnitScalar       float32                `yaml:"unit_scalar"`
		PerUnit          distribution.FloatSpec `yaml:"per_unit"`
		MaxFrameDistance float32                `yaml:"max_frame_distance"`
		IgnoreSpawnRate  bool                   `yaml:"ignore_spawn_rate"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.SpawnPerUnit{
		UnitScalar:       p.UnitScalar,
		PerUnit:          s.float("per_unit", p.PerUnit),
		MaxFrameDistance: p.MaxFrameDistance,
		IgnoreSpawnRate:  p.IgnoreSpawnRate,
	}
	return m, s.err
}

func buildInitialVelocity(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Velocity distribution.VectorSpec `yaml:"velocity"`
		Radial   distribution.FloatSpec  `yaml:"radial"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.InitialVelocity{
		Velocity: s.vector("velocity", p.Velocity),
		Radial:   s.float("radial", p.Radial),
	}
	return m, s.err
}

func buildAcceleration(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Acceleration distribution.VectorSpec `yaml:"acceleration"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.Acceleration{Acceleration: s.vector("acceleration", p.Acceleration)}
	return m, s.err
}

func buildDrag(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Coefficient distribution.FloatSpec `yaml:"coefficient"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.Drag{Coefficient: s.float("coefficient", p.Coefficient)}
	return m, s.err
}

func buildPointAttractor(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Position           distribution.VectorSpec `yaml:"position"`
		Range              distribution.FloatSpec  `yaml:"range"`
		Strength           distribution.FloatSpec  `yaml:"strength"`
		StrengthByDistance bool                    `yaml:"strength_by_distance"`
		Relative           bool                    `yaml:"relative"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.PointAttractor{
		Position:           s.vector("position", p.Position),
		Range:              s.float("range", p.Range),
		Strength:           s.float("strength", p.Strength),
		StrengthByDistance: p.StrengthByDistance,
		Relative:           p.Relative,
	}
	return m, s.err
}

func buildOrbit(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Offset       distribution.VectorSpec `yaml:"offset"`
		RotationRate distribution.VectorSpec `yaml:"rotation_rate"`
		Rotation     distribution.VectorSpec `yaml:"rotation"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.Orbit{
		Offset:       s.vector("offset", p.Offset),
		RotationRate: s.vector("rotation_rate", p.RotationRate),
		Rotation:     s.vector("rotation", p.Rotation),
	}
	return m, s.err
}

func buildNoise(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Seed      int64                  `yaml:"seed"`
		Frequency float32                `yaml:"frequency"`
		Strength  distribution.FloatSpec `yaml:"strength"`
		TimeScale *float32               `yaml:"time_scale"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := module.NewNoise(p.Seed, p.Frequency, s.float("strength", p.Strength))
	if p.TimeScale != nil {
		m.TimeScale = *p.TimeScale
	}
	return m, s.err
}

func buildInitialSize(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Size distribution.VectorSpec `yaml:"size"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.InitialSize{Size: s.vector("size", p.Size)}
	return m, s.err
}

func buildSizeByLife(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Scale distribution.VectorSpec `yaml:"scale"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.SizeByLife{Scale: s.vector("scale", p.Scale)}
	return m, s.err
}

func buildInitialColor(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Color distribution.VectorSpec `yaml:"color"`
		Alpha distribution.FloatSpec  `yaml:"alpha"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.InitialColor{
		Color: s.vector("color", p.Color),
		Alpha: s.float("alpha", p.Alpha),
	}
	return m, s.err
}

func buildColorOverLife(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Color distribution.VectorSpec `yaml:"color"`
		Alpha distribution.FloatSpec  `yaml:"alpha"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.ColorOverLife{
		Color: s.vector("color", p.Color),
		Alpha: s.float("alpha", p.Alpha),
	}
	return m, s.err
}

func buildInitialRotation(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Rotation distribution.FloatSpec `yaml:"rotation"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.InitialRotation{Rotation: s.float("rotation", p.Rotation)}
	return m, s.err
}

func buildRotationRate(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Rate distribution.FloatSpec `yaml:"rate"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.RotationRate{Rate: s.float("rate", p.Rate)}
	return m, s.err
}

func buildSubUV(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Frames               int                    `yaml:"frames"`
		Index                distribution.FloatSpec `yaml:"index"`
		RandomChangesPerLife int                    `yaml:"random_changes_per_life"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	if p.Frames < 0 {
		return nil, fmt.Errorf("frames must not be negative, got %d", p.Frames)
	}
	var s specs
	m := &module.SubUV{
		Frames:               p.Frames,
		Index:                s.float("index", p.Index),
		RandomChangesPerLife: p.RandomChangesPerLife,
	}
	return m, s.err
}

func buildDynamicParameter(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Params    []distribution.FloatSpec `yaml:"params"`
		SpawnOnly bool                     `yaml:"spawn_only"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	if len(p.Params) > 4 {
		return nil, fmt.Errorf("at most 4 params, got %d", len(p.Params))
	}
	var s specs
	m := &module.DynamicParameter{SpawnOnly: p.SpawnOnly}
	for i, fs := range p.Params {
		m.Params[i] = s.float(fmt.Sprintf("params[%d]", i), fs)
	}
	return m, s.err
}

func buildMeshRotation(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Rotation     distribution.VectorSpec `yaml:"rotation"`
		RotationRate distribution.VectorSpec `yaml:"rotation_rate"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	var s specs
	m := &module.MeshRotation{
		Rotation:     s.vector("rotation", p.Rotation),
		RotationRate: s.vector("rotation_rate", p.RotationRate),
	}
	return m, s.err
}

func buildKillBox(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Min        [3]float32 `yaml:"min"`
		Max        [3]float32 `yaml:"max"`
		KillInside bool       `yaml:"kill_inside"`
		Relative   bool       `yaml:"relative"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	for i := 0; i < 3; i++ {
		if p.Min[i] > p.Max[i] {
			return nil, fmt.Errorf("min %v exceeds max %v", p.Min, p.Max)
		}
	}
	return &module.KillBox{
		Min:        mgl32.Vec3(p.Min),
		Max:        mgl32.Vec3(p.Max),
		KillInside: p.KillInside,
		Relative:   p.Relative,
	}, nil
}

func buildKillHeight(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		Height   float32 `yaml:"height"`
		Floor    bool    `yaml:"floor"`
		Relative bool    `yaml:"relative"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	return &module.KillHeight{Height: p.Height, Floor: p.Floor, Relative: p.Relative}, nil
}

func buildEventGenerator(mc *config.ModuleConfig) (module.Module, error) {
	var p struct {
		EventName string `yaml:"event_name"`
		OnSpawn   bool   `yaml:"on_spawn"`
		OnDeath   bool   `yaml:"on_death"`
	}
	if err := decode(mc, &p); err != nil {
		return nil, err
	}
	return &module.EventGenerator{EventName: p.EventName, OnSpawn: p.OnSpawn, OnDeath: p.OnDeath}, nil
}
