package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkSaturation  BookmarkType = "pool_saturation"
	BookmarkSurge       BookmarkType = "particle_surge"
	BookmarkQuiet       BookmarkType = "scene_quiet"
	BookmarkSteadyState BookmarkType = "steady_state"
)

// Detection thresholds.
const (
	surgeFactor     = 2.0 // particles over the history mean
	surgeMin        = 50  // particles needed before a surge counts
	steadyMin       = 10  // particles needed before a scene counts as steady
	steadySpan      = 4   // windows compared for stability
	steadyMaxCV     = 0.2
	steadyRunLength = 5 // stable windows before the bookmark fires
)

// Bookmark marks a window worth a closer look.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        int32        `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// windowRing keeps the last len(buf) windows.
type windowRing struct {
	buf  []WindowStats
	next int
	full bool
}

func (r *windowRing) push(w WindowStats) {
	r.buf[r.next] = w
	r.next = (r.next + 1) % len(r.buf)
	r.full = r.full || r.next == 0
}

func (r *windowRing) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// ordered returns the windows oldest first.
func (r *windowRing) ordered() []WindowStats {
	if !r.full {
		return r.buf[:r.next]
	}
	return append(append(make([]WindowStats, 0, len(r.buf)), r.buf[r.next:]...), r.buf[:r.next]...)
}

// particles returns the particle counts of the windows, oldest first.
func (r *windowRing) particles() []float64 {
	h := r.ordered()
	out := make([]float64, len(h))
	for i, w := range h {
		out[i] = float64(w.Particles)
	}
	return out
}

// BookmarkDetector watches closed windows for saturation, surges, quiet
// periods and steady state. Each kind fires once per episode.
type BookmarkDetector struct {
	history windowRing

	peak      int  // highest particle count since the scene last went quiet
	saturated bool // previous window dropped spawns
	steadyRun int  // consecutive stable windows
}

// NewBookmarkDetector keeps size windows of history, at least steadyRunLength.
func NewBookmarkDetector(size int) *BookmarkDetector {
	size = max(size, steadyRunLength)
	return &BookmarkDetector{history: windowRing{buf: make([]WindowStats, size)}}
}

// Check evaluates a closed window against the history before it and returns
// the bookmarks it triggers.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var out []Bookmark
	add := func(b *Bookmark) {
		if b != nil {
			out = append(out, *b)
		}
	}

	add(bd.saturation(stats))
	if bd.history.len() > 0 {
		add(bd.surge(stats))
		add(bd.quiet(stats))
		add(bd.steady(stats))
	}

	bd.history.push(stats)
	bd.peak = max(bd.peak, stats.Particles)
	return out
}

// saturation fires on the first window that drops spawns after one that did not.
func (bd *BookmarkDetector) saturation(stats WindowStats) *Bookmark {
	was := bd.saturated
	bd.saturated = stats.Dropped > 0
	if !bd.saturated || was {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkSaturation,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d spawns dropped (%.0f%% of demand)", stats.Dropped, stats.DropRate*100),
	}
}

// surge fires when particles more than double the history mean.
func (bd *BookmarkDetector) surge(stats WindowStats) *Bookmark {
	counts := bd.history.particles()
	if len(counts) < 3 {
		return nil
	}
	mean := stat.Mean(counts, nil)
	n := float64(stats.Particles)
	if mean == 0 || n <= mean*surgeFactor || stats.Particles < surgeMin {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkSurge,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d particles is %.1fx average (%.0f)", stats.Particles, n/mean, mean),
	}
}

// quiet fires when the scene empties after having particles.
func (bd *BookmarkDetector) quiet(stats WindowStats) *Bookmark {
	if bd.peak == 0 || stats.Particles > 0 {
		return nil
	}
	peak := bd.peak
	bd.peak = 0
	return &Bookmark{
		Type:        BookmarkQuiet,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Scene went quiet after peaking at %d particles", peak),
	}
}

// steady fires once the last steadySpan windows have stayed stable for
// steadyRunLength checks in a row.
func (bd *BookmarkDetector) steady(stats WindowStats) *Bookmark {
	if stats.Effects == 0 || stats.Particles < steadyMin {
		bd.steadyRun = 0
		return nil
	}
	counts := bd.history.particles()
	if len(counts) < steadySpan {
		return nil
	}
	if CoefficientOfVariation(counts[len(counts)-steadySpan:]) < steadyMaxCV {
		bd.steadyRun++
	} else {
		bd.steadyRun = 0
	}
	if bd.steadyRun != steadyRunLength {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkSteadyState,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Steady at %d particles across %d effects over %d+ windows", stats.Particles, stats.Effects, steadyRunLength),
	}
}
