package scene

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/plume/emitter"
)

// Frame refreshes the render snapshot of every effect that needs one and
// passes it to draw. Effects beyond the camera's far clip are skipped.
// Snapshots are reused between frames; draw must not keep them. The effect on
// selected is flagged in its snapshot.
func (s *Scene) Frame(selected ecs.Entity, draw func(*emitter.DynamicData)) int {
	s.perfCollector.RecordFrame()

	drawn := 0
	query := s.effectFilter.Query()
	for query.Next() {
		_, _, eff := query.Get()
		if b := eff.Instance.Bounds(); b.Valid && !s.camera.IsBoxVisible(b.Min, b.Max) {
			continue
		}
		if !eff.Instance.UpdateDynamicData(eff.Dynamic, query.Entity() == selected) {
			continue
		}
		drawn++
		if draw != nil {
			draw(eff.Dynamic)
		}
	}
	return drawn
}
