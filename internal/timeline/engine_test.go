package timeline

import (
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMedia struct {
	current  time.Duration
	duration time.Duration
	rate     float64
	playing  bool
	ready    bool
	seeks    int
}

func newFakeMedia(duration time.Duration) *fakeMedia {
	return &fakeMedia{duration: duration, rate: 1.0, ready: true}
}

func (f *fakeMedia) CurrentTime() time.Duration { return f.current }
func (f *fakeMedia) Duration() time.Duration    { return f.duration }
func (f *fakeMedia) Seek(to time.Duration)      { f.current = to; f.seeks++ }
func (f *fakeMedia) SetRate(rate float64)       { f.rate = rate }
func (f *fakeMedia) Play()                      { f.playing = true }
func (f *fakeMedia) Pause()                     { f.playing = false }
func (f *fakeMedia) Ready() bool                { return f.ready }

func TestComputeWindow(t *testing.T) {
	views := []View{
		{ID: "a", StartTimeMs: 1000, DurationMs: 5000},
		{ID: "b", StartTimeMs: 1500, DurationMs: 4800},
	}

	w := ComputeWindow(views)
	assert.Equal(t, int64(1500), w.StartMs)
	assert.Equal(t, int64(6000), w.EndMs)
	assert.Equal(t, int64(4500), w.GlobalDurationMs)
}

func TestComputeWindowAppliesOffsets(t *testing.T) {
	views := []View{
		{ID: "a", StartTimeMs: 1000, DurationMs: 5000, OffsetMs: 700},
		{ID: "b", StartTimeMs: 1500, DurationMs: 4800},
	}

	w := ComputeWindow(views)
	assert.Equal(t, int64(1700), w.StartMs, "offset shifts the effective start")
	assert.Equal(t, int64(6300), w.EndMs)
}

func TestComputeWindowDegenerateOverlap(t *testing.T) {
	views := []View{
		{ID: "a", StartTimeMs: 0, DurationMs: 1000},
		{ID: "b", StartTimeMs: 5000, DurationMs: 1000},
	}

	w := ComputeWindow(views)
	assert.Equal(t, int64(minGlobalDurationMs), w.GlobalDurationMs, "no overlap still yields a playable window")
}

func TestComputeWindowEmpty(t *testing.T) {
	w := ComputeWindow(nil)
	assert.Equal(t, int64(minGlobalDurationMs), w.GlobalDurationMs)
}

func newTestEngine() (*Engine, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewEngine(clock, slog.Default()), clock
}

func TestAttachSeeksToLocalTarget(t *testing.T) {
	e, _ := newTestEngine()

	early := newFakeMedia(5 * time.Second)
	late := newFakeMedia(5 * time.Second)

	e.Attach(View{ID: "early", StartTimeMs: 1000, DurationMs: 5000}, early)
	e.Attach(View{ID: "late", StartTimeMs: 1500, DurationMs: 4800}, late)

	// the early recorder has 500ms of footage before the shared window opens
	assert.Equal(t, 500*time.Millisecond, early.current)
	assert.Equal(t, time.Duration(0), late.current)
}

func TestCorrectHardSeek(t *testing.T) {
	e, _ := newTestEngine()

	media := newFakeMedia(10 * time.Second)
	media.current = 1600 * time.Millisecond
	media.rate = 1.02

	e.correct(media, 1*time.Second) // drift +600ms
	assert.Equal(t, 1*time.Second, media.current, "drift above the hard threshold seeks")
	assert.Equal(t, 1.0, media.rate)
}

func TestCorrectProportionalRate(t *testing.T) {
	e, _ := newTestEngine()

	media := newFakeMedia(10 * time.Second)
	media.current = 1100 * time.Millisecond

	e.correct(media, 1*time.Second) // drift +100ms
	assert.Equal(t, 0, media.seeks)
	assert.InDelta(t, 0.985, media.rate, 1e-9)

	media.current = 900 * time.Millisecond
	e.correct(media, 1*time.Second) // drift -100ms
	assert.InDelta(t, 1.015, media.rate, 1e-9)
}

func TestCorrectRateClamped(t *testing.T) {
	e, _ := newTestEngine()

	media := newFakeMedia(10 * time.Second)
	media.current = 1400 * time.Millisecond

	e.correct(media, 1*time.Second) // drift +400ms wants rate 0.94
	assert.Equal(t, minRate, media.rate)

	media.current = 600 * time.Millisecond
	e.correct(media, 1*time.Second) // drift -400ms wants rate 1.06
	assert.Equal(t, maxRate, media.rate)
}

func TestCorrectDeadband(t *testing.T) {
	e, _ := newTestEngine()

	media := newFakeMedia(10 * time.Second)
	media.current = 1005 * time.Millisecond
	media.rate = 0.985

	e.correct(media, 1*time.Second) // drift +5ms
	assert.Equal(t, 0, media.seeks)
	assert.Equal(t, 1.0, media.rate, "small drift resets the rate to exactly 1.0")
}

func TestTickAdvancesPlayhead(t *testing.T) {
	e, clock := newTestEngine()

	media := newFakeMedia(10 * time.Second)
	e.Attach(View{ID: "a", StartTimeMs: 0, DurationMs: 10000}, media)

	e.Play()
	require.True(t, media.playing)

	clock.Advance(1 * time.Second)
	e.Tick()

	assert.InDelta(t, 1000, e.PlayheadMs(), 1)
}

func TestTickHoldsWhileBuffering(t *testing.T) {
	e, clock := newTestEngine()

	media := newFakeMedia(10 * time.Second)
	e.Attach(View{ID: "a", StartTimeMs: 0, DurationMs: 10000}, media)

	e.Play()
	media.ready = false

	clock.Advance(2 * time.Second)
	e.Tick()
	assert.Equal(t, float64(0), e.PlayheadMs(), "buffering view must hold the playhead")

	// once buffered the playhead resumes from where it held
	media.ready = true
	clock.Advance(1 * time.Second)
	e.Tick()
	assert.InDelta(t, 1000, e.PlayheadMs(), 1)
}

func TestTickStopsAtWindowEnd(t *testing.T) {
	e, clock := newTestEngine()

	media := newFakeMedia(2 * time.Second)
	e.Attach(View{ID: "a", StartTimeMs: 0, DurationMs: 2000}, media)

	e.Play()
	clock.Advance(3 * time.Second)
	e.Tick()

	assert.False(t, e.Playing())
	assert.False(t, media.playing)
	assert.Equal(t, float64(2000), e.PlayheadMs())
	assert.Equal(t, 2*time.Second, media.current, "final sync pins every view to the end")
}

func TestOutOfCoverageViewPauses(t *testing.T) {
	e, _ := newTestEngine()

	// claims five seconds but the media only holds one
	short := newFakeMedia(1 * time.Second)
	long := newFakeMedia(5 * time.Second)
	e.Attach(View{ID: "short", StartTimeMs: 0, DurationMs: 5000}, short)
	e.Attach(View{ID: "long", StartTimeMs: 0, DurationMs: 5000}, long)

	e.Play()
	e.SeekTo(2000)

	assert.False(t, short.playing, "view without footage at the playhead pauses")
	assert.True(t, long.playing)
	assert.Equal(t, 2*time.Second, long.current)
}

func TestScrubHoldsAndResumes(t *testing.T) {
	e, clock := newTestEngine()

	media := newFakeMedia(10 * time.Second)
	e.Attach(View{ID: "a", StartTimeMs: 0, DurationMs: 10000}, media)

	e.Play()
	e.BeginScrub()
	assert.False(t, media.playing)

	clock.Advance(5 * time.Second)
	e.Tick()
	assert.Equal(t, float64(0), e.PlayheadMs(), "scrubbing holds the accumulator")

	e.EndScrub(3000)
	assert.Equal(t, float64(3000), e.PlayheadMs())
	assert.True(t, media.playing, "playback resumes after the scrub")
	assert.Equal(t, 3*time.Second, media.current)
}
