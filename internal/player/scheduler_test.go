// ABOUTME: Tests for the gapless playback scheduler
// ABOUTME: Fake clock and sink verify timeline math, preemption and gain
package player

import (
	"sync"
	"testing"
	"time"

	"github.com/evelyn-voice/evelyn-go/internal/audio"
)

// fakeClock is a manually advanced output clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// fakeVoice records gain changes and stops.
type fakeVoice struct {
	mu      sync.Mutex
	gain    float64
	stopped bool
}

func (v *fakeVoice) SetGain(gain float64) {
	v.mu.Lock()
	v.gain = gain
	v.mu.Unlock()
}

func (v *fakeVoice) Stop() {
	v.mu.Lock()
	v.stopped = true
	v.mu.Unlock()
}

// fakeSink records every started chunk.
type fakeSink struct {
	mu     sync.Mutex
	voices []*fakeVoice
	gains  []float64
}

func (s *fakeSink) Play(samples []float32, gain float64) (Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := &fakeVoice{gain: gain}
	s.voices = append(s.voices, v)
	s.gains = append(s.gains, gain)
	return v, nil
}

func (s *fakeSink) Close() error { return nil }

func (s *fakeSink) started() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}

func newTestScheduler(opts ...Option) (*Scheduler, *fakeSink, *fakeClock) {
	sink := &fakeSink{}
	clock := &fakeClock{}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	s := NewScheduler(sink, audio.OutputFormat(), opts...)
	return s, sink, clock
}

// samplesFor builds a buffer of the given duration at the output rate.
func samplesFor(d time.Duration) []float32 {
	n := int(d * audio.OutputRate / time.Second)
	return make([]float32, n)
}

func TestGaplessScheduling(t *testing.T) {
	s, _, clock := newTestScheduler()

	d1 := 100 * time.Millisecond
	d2 := 150 * time.Millisecond
	d3 := 80 * time.Millisecond

	// Chunks arrive with jitter: the second while the first still plays,
	// the third after a long gap in arrival time but before the timeline
	// catches up.
	s.Schedule(samplesFor(d1))
	if got := s.NextStart(); got != d1 {
		t.Errorf("after chunk 1: expected timeline %v, got %v", d1, got)
	}

	clock.Advance(30 * time.Millisecond)
	s.Schedule(samplesFor(d2))
	if got := s.NextStart(); got != d1+d2 {
		t.Errorf("after chunk 2: expected timeline %v, got %v", d1+d2, got)
	}

	clock.Advance(20 * time.Millisecond)
	s.Schedule(samplesFor(d3))
	if got := s.NextStart(); got != d1+d2+d3 {
		t.Errorf("after chunk 3: expected timeline %v, got %v", d1+d2+d3, got)
	}

	// start2 = start1 + d1 and start3 = start2 + d2.
	s.mu.Lock()
	starts := make(map[uint64]time.Duration)
	for id, c := range s.active {
		starts[id] = c.startAt
	}
	s.mu.Unlock()

	if starts[2] != starts[1]+d1 {
		t.Errorf("expected start2 = start1 + d1, got %v and %v", starts[2], starts[1]+d1)
	}
	if starts[3] != starts[2]+d2 {
		t.Errorf("expected start3 = start2 + d2, got %v and %v", starts[3], starts[2]+d2)
	}
}

func TestScheduleAfterStall(t *testing.T) {
	s, sink, clock := newTestScheduler()

	s.Schedule(samplesFor(100 * time.Millisecond))

	// The first chunk finishes and the stream stalls; the next chunk must
	// start "now", never in the past.
	clock.Advance(300 * time.Millisecond)
	s.step()
	s.Schedule(samplesFor(50 * time.Millisecond))

	if got := s.NextStart(); got != 350*time.Millisecond {
		t.Errorf("expected timeline %v after stall, got %v", 350*time.Millisecond, got)
	}
	if sink.started() != 2 {
		t.Errorf("expected both chunks started, got %d", sink.started())
	}
}

func TestChunkLifecycle(t *testing.T) {
	s, sink, clock := newTestScheduler()

	s.Schedule(samplesFor(100 * time.Millisecond))
	if s.ActiveCount() != 1 {
		t.Fatalf("expected 1 active chunk, got %d", s.ActiveCount())
	}
	if sink.started() != 1 {
		t.Fatalf("expected chunk to start immediately, got %d", sink.started())
	}
	if !s.Speaking() {
		t.Error("expected speaking while a chunk plays")
	}

	clock.Advance(100 * time.Millisecond)
	s.step()

	if s.ActiveCount() != 0 {
		t.Errorf("expected chunk retired after its duration, got %d active", s.ActiveCount())
	}
	if s.Speaking() {
		t.Error("expected speaking cleared once the set empties")
	}
	// Timeline does not reset on natural completion.
	if got := s.NextStart(); got != 100*time.Millisecond {
		t.Errorf("expected timeline %v, got %v", 100*time.Millisecond, got)
	}
}

func TestInterruptClearsEverything(t *testing.T) {
	var speakingLog []bool
	s, sink, clock := newTestScheduler(WithSpeakingCallback(func(on bool) {
		speakingLog = append(speakingLog, on)
	}))

	s.Schedule(samplesFor(100 * time.Millisecond))
	clock.Advance(10 * time.Millisecond)
	s.Schedule(samplesFor(100 * time.Millisecond))
	s.Schedule(samplesFor(100 * time.Millisecond))

	s.Interrupt()

	if s.ActiveCount() != 0 {
		t.Errorf("expected empty active set after interrupt, got %d", s.ActiveCount())
	}
	if got := s.NextStart(); got != 0 {
		t.Errorf("expected timeline reset to zero, got %v", got)
	}
	if s.Speaking() {
		t.Error("expected speaking false after interrupt")
	}

	// The started chunk was hard-stopped.
	sink.mu.Lock()
	stopped := sink.voices[0].stopped
	sink.mu.Unlock()
	if !stopped {
		t.Error("expected playing voice to be stopped")
	}

	if len(speakingLog) < 2 || speakingLog[len(speakingLog)-1] != false {
		t.Errorf("expected speaking transitions ending false, got %v", speakingLog)
	}
}

func TestGainAppliesImmediately(t *testing.T) {
	s, sink, clock := newTestScheduler()

	s.Schedule(samplesFor(100 * time.Millisecond))
	s.SetGain(0.3)

	sink.mu.Lock()
	gain := sink.voices[0].gain
	sink.mu.Unlock()
	if gain != 0.3 {
		t.Errorf("expected live gain update to 0.3, got %v", gain)
	}

	// Future chunks start at the new gain.
	clock.Advance(100 * time.Millisecond)
	s.Schedule(samplesFor(50 * time.Millisecond))
	sink.mu.Lock()
	startGain := sink.gains[1]
	sink.mu.Unlock()
	if startGain != 0.3 {
		t.Errorf("expected new chunk to start at 0.3, got %v", startGain)
	}

	s.SetGain(1.5)
	if s.Gain() != 1.0 {
		t.Errorf("expected gain clamped to 1.0, got %v", s.Gain())
	}
	s.SetGain(-0.5)
	if s.Gain() != 0 {
		t.Errorf("expected gain clamped to 0, got %v", s.Gain())
	}
}

func TestFastDelivery(t *testing.T) {
	s, sink, _ := newTestScheduler()

	// Network faster than real time: many chunks in flight at once.
	for i := 0; i < 5; i++ {
		s.Schedule(samplesFor(100 * time.Millisecond))
	}

	if s.ActiveCount() != 5 {
		t.Errorf("expected 5 chunks in flight, got %d", s.ActiveCount())
	}
	// Only the first is due; the rest wait their scheduled start.
	if sink.started() != 1 {
		t.Errorf("expected only the first chunk started, got %d", sink.started())
	}
	if got := s.NextStart(); got != 500*time.Millisecond {
		t.Errorf("expected timeline %v, got %v", 500*time.Millisecond, got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s, _, _ := newTestScheduler()
	s.Schedule(samplesFor(100 * time.Millisecond))

	s.Stop()
	s.Stop()

	if s.ActiveCount() != 0 || s.NextStart() != 0 {
		t.Error("expected stop to clear the timeline")
	}
}
