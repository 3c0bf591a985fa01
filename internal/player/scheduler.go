// ABOUTME: Gapless playback scheduler for inbound audio chunks
// ABOUTME: Back-to-back timeline, active source tracking and hard preemption
package player

import (
	"sync"
	"time"

	"github.com/evelyn-voice/evelyn-go/internal/audio"
)

// chunk is one inbound buffer on the playback timeline.
type chunk struct {
	id      uint64
	samples []float32
	startAt time.Duration
	endAt   time.Duration
	voice   Voice // nil until the chunk actually starts
}

// SchedulerStats tracks scheduler counters.
type SchedulerStats struct {
	Received int64
	Played   int64
}

// Scheduler plays chunks in arrival order with no gap and no overlap. Each
// chunk starts at max(timeline, now) and advances the timeline by its own
// duration, so chunks queue back-to-back regardless of arrival jitter. An
// interruption stops everything and resets the timeline to zero.
type Scheduler struct {
	sink   Sink
	format audio.Format
	clock  func() time.Duration

	mu              sync.Mutex
	nextStart       time.Duration
	pending         []*chunk
	active          map[uint64]*chunk
	nextID          uint64
	gain            float64
	speaking        bool
	speakingChanged bool
	stats           SchedulerStats

	onSpeaking func(bool)

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock substitutes the output clock (used by tests).
func WithClock(clock func() time.Duration) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// WithSpeakingCallback registers a callback fired when the scheduler starts
// or stops being audible.
func WithSpeakingCallback(fn func(bool)) Option {
	return func(s *Scheduler) { s.onSpeaking = fn }
}

// NewScheduler creates a scheduler playing through sink in the given format.
func NewScheduler(sink Sink, format audio.Format, opts ...Option) *Scheduler {
	epoch := time.Now()
	s := &Scheduler{
		sink:   sink,
		format: format,
		clock:  func() time.Duration { return time.Since(epoch) },
		active: make(map[uint64]*chunk),
		gain:   1.0,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drives the timeline until Stop. Due chunks are started and finished
// chunks retired on a short tick.
func (s *Scheduler) Run() {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.step()
		}
	}
}

// Schedule queues one chunk on the timeline. The chunk joins the active set
// immediately; playback begins at max(timeline, now).
func (s *Scheduler) Schedule(samples []float32) {
	duration := s.format.Duration(len(samples))

	s.mu.Lock()
	now := s.clock()
	startAt := s.nextStart
	if now > startAt {
		startAt = now
	}

	s.nextID++
	c := &chunk{
		id:      s.nextID,
		samples: samples,
		startAt: startAt,
		endAt:   startAt + duration,
	}
	s.nextStart = c.endAt
	s.pending = append(s.pending, c)
	s.active[c.id] = c
	s.stats.Received++
	s.mu.Unlock()

	s.step()
}

// step starts due chunks and retires finished ones.
func (s *Scheduler) step() {
	s.mu.Lock()
	now := s.clock()

	// Pending chunks are ordered by start time because the timeline is
	// monotonic while connected.
	for len(s.pending) > 0 && s.pending[0].startAt <= now {
		c := s.pending[0]
		s.pending = s.pending[1:]

		voice, err := s.sink.Play(c.samples, s.gain)
		if err != nil {
			delete(s.active, c.id)
			continue
		}
		c.voice = voice
		s.stats.Played++
	}

	for id, c := range s.active {
		if c.voice != nil && c.endAt <= now {
			c.voice.Stop()
			delete(s.active, id)
		}
	}

	s.refreshSpeakingLocked()
	cb, speaking := s.onSpeaking, s.speaking
	changed := s.speakingChanged
	s.speakingChanged = false
	s.mu.Unlock()

	if changed && cb != nil {
		cb(speaking)
	}
}

// Interrupt hard-stops all scheduled and playing chunks and resets the
// timeline. No fade-out, no draining.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	for id, c := range s.active {
		if c.voice != nil {
			c.voice.Stop()
		}
		delete(s.active, id)
	}
	s.pending = nil
	s.nextStart = 0

	s.refreshSpeakingLocked()
	cb, speaking := s.onSpeaking, s.speaking
	changed := s.speakingChanged
	s.speakingChanged = false
	s.mu.Unlock()

	if changed && cb != nil {
		cb(speaking)
	}
}

// SetGain updates the shared gain in [0, 1]. Applies immediately to chunks
// already playing and to everything scheduled later.
func (s *Scheduler) SetGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	if gain > 1 {
		gain = 1
	}

	s.mu.Lock()
	s.gain = gain
	for _, c := range s.active {
		if c.voice != nil {
			c.voice.SetGain(gain)
		}
	}
	s.mu.Unlock()
}

// Gain returns the current gain.
func (s *Scheduler) Gain() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain
}

// Speaking reports whether anything is scheduled or audible.
func (s *Scheduler) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// NextStart exposes the playback timeline position.
func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

// ActiveCount reports the number of scheduled-or-playing chunks.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Stats returns scheduler counters.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Stop interrupts playback and ends the Run loop. Idempotent.
func (s *Scheduler) Stop() {
	s.Interrupt()
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Scheduler) refreshSpeakingLocked() {
	now := len(s.active) > 0
	if now != s.speaking {
		s.speaking = now
		s.speakingChanged = true
	}
}
