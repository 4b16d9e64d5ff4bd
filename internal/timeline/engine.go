package timeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// MediaHandle is the slice of a media element the engine drives. Implementors
// bridge to whatever actually plays the video.
type MediaHandle interface {
	CurrentTime() time.Duration
	Duration() time.Duration
	Seek(to time.Duration)
	SetRate(rate float64)
	Play()
	Pause()
	// Ready reports whether enough data is buffered to advance playback.
	Ready() bool
}

const (
	// hardSeekThreshold is the drift beyond which a seek is cheaper than
	// waiting for a rate correction to converge.
	hardSeekThreshold = 500 * time.Millisecond
	// softThreshold is the drift below which playback runs at exactly 1.0;
	// chasing sub-frame drift with rate changes causes audible warble.
	softThreshold = 15 * time.Millisecond
	rateGain      = 0.15
	minRate       = 0.95
	maxRate       = 1.05
)

type attachedView struct {
	view  View
	media MediaHandle
	// active is false while the playhead is outside this view's coverage
	active bool
}

// Engine locks any number of views to a single virtual playhead. The playhead
// is an accumulator advanced on Tick, never derived from any one media
// element's clock, so a buffering view stalls everyone instead of desyncing.
type Engine struct {
	clock  clockwork.Clock
	logger *slog.Logger

	mu        sync.Mutex
	views     map[string]*attachedView
	window    Window
	playing   bool
	scrubbing bool
	elapsedMs float64
	lastTick  time.Time
}

func NewEngine(clock clockwork.Clock, logger *slog.Logger) *Engine {
	return &Engine{
		clock:  clock,
		logger: logger,
		views:  make(map[string]*attachedView),
	}
}

func (e *Engine) Attach(view View, media MediaHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.views[view.ID] = &attachedView{view: view, media: media}
	e.recomputeWindowLocked()
	e.syncAllLocked(true)
}

func (e *Engine) Detach(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if av, ok := e.views[id]; ok {
		av.media.Pause()
		delete(e.views, id)
	}
	e.recomputeWindowLocked()
}

func (e *Engine) Window() Window {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.window
}

// PlayheadMs is the virtual playhead position relative to the window start.
func (e *Engine) PlayheadMs() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.elapsedMs
}

func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.playing
}

func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.playing {
		return
	}

	e.playing = true
	e.lastTick = e.clock.Now()
	for _, av := range e.views {
		if av.active {
			av.media.Play()
		}
	}
}

func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pauseLocked()
}

func (e *Engine) pauseLocked() {
	e.playing = false
	for _, av := range e.views {
		av.media.Pause()
	}
}

// SeekTo moves the virtual playhead and force-syncs every view to it.
func (e *Engine) SeekTo(ms float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seekToLocked(ms)
}

func (e *Engine) seekToLocked(ms float64) {
	if ms < 0 {
		ms = 0
	}
	if max := float64(e.window.GlobalDurationMs); ms > max {
		ms = max
	}

	e.elapsedMs = ms
	e.lastTick = e.clock.Now()
	e.syncAllLocked(true)
}

// BeginScrub pauses everything while the user drags the playhead. Tick keeps
// running but the accumulator holds until EndScrub.
func (e *Engine) BeginScrub() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.scrubbing = true
	for _, av := range e.views {
		av.media.Pause()
	}
}

func (e *Engine) EndScrub(ms float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.scrubbing = false
	e.seekToLocked(ms)
	if e.playing {
		for _, av := range e.views {
			if av.active {
				av.media.Play()
			}
		}
	}
}

// Tick advances the playhead and corrects each view's drift against it. The
// host calls it on its render cadence.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	dt := now.Sub(e.lastTick)
	e.lastTick = now

	if !e.playing || e.scrubbing {
		return
	}

	// a single buffering view holds the whole timeline
	for _, av := range e.views {
		if av.active && !av.media.Ready() {
			return
		}
	}

	e.elapsedMs += float64(dt) / float64(time.Millisecond)

	if e.elapsedMs >= float64(e.window.GlobalDurationMs) {
		e.elapsedMs = float64(e.window.GlobalDurationMs)
		e.syncAllLocked(true)
		e.pauseLocked()
		return
	}

	e.syncAllLocked(false)
}

func (e *Engine) recomputeWindowLocked() {
	views := make([]View, 0, len(e.views))
	for _, av := range e.views {
		views = append(views, av.view)
	}
	e.window = ComputeWindow(views)
}

// localTarget maps the virtual playhead to a position inside the view.
func (e *Engine) localTarget(v View) time.Duration {
	offsetMs := float64(e.window.StartMs - v.effectiveStartMs())
	return time.Duration((e.elapsedMs + offsetMs) * float64(time.Millisecond))
}

// syncAllLocked drives every view toward its local target. With force set,
// views are seeked outright instead of rate-corrected.
func (e *Engine) syncAllLocked(force bool) {
	for _, av := range e.views {
		target := e.localTarget(av.view)

		if target < 0 || target > av.media.Duration() {
			if av.active {
				av.media.Pause()
				av.active = false
			}
			continue
		}

		if !av.active {
			av.active = true
			av.media.Seek(target)
			av.media.SetRate(1.0)
			if e.playing && !e.scrubbing {
				av.media.Play()
			}
			continue
		}

		if force {
			av.media.Seek(target)
			av.media.SetRate(1.0)
			continue
		}

		e.correct(av.media, target)
	}
}

// correct nudges a view toward target. Large drift seeks, moderate drift is
// absorbed with a bounded rate change, small drift is left alone.
func (e *Engine) correct(media MediaHandle, target time.Duration) {
	drift := media.CurrentTime() - target

	abs := drift
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs > hardSeekThreshold:
		media.Seek(target)
		media.SetRate(1.0)
	case abs > softThreshold:
		rate := 1.0 - drift.Seconds()*rateGain
		if rate < minRate {
			rate = minRate
		}
		if rate > maxRate {
			rate = maxRate
		}
		media.SetRate(rate)
	default:
		media.SetRate(1.0)
	}
}
