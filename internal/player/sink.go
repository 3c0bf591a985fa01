// ABOUTME: Audio output sink using oto
// ABOUTME: Per-chunk players with software gain applied live
package player

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/evelyn-voice/evelyn-go/internal/audio"
)

// Voice is one chunk playing (or queued) on the output device.
type Voice interface {
	// SetGain updates the chunk's volume in [0, 1] while it plays.
	SetGain(gain float64)

	// Stop cuts the chunk off immediately and releases it.
	Stop()
}

// Sink turns PCM sample buffers into audible output.
type Sink interface {
	// Play starts a chunk at the given gain and returns its handle.
	Play(samples []float32, gain float64) (Voice, error)

	// Close releases the output device.
	Close() error
}

// OtoSink plays chunks through the oto audio context. Each chunk gets its
// own player, created when the scheduler starts it and closed when it ends.
type OtoSink struct {
	ctx    *oto.Context
	format audio.Format

	mu     sync.Mutex
	closed bool
}

// NewOtoSink initializes the output device for the given format.
func NewOtoSink(format audio.Format) (*OtoSink, error) {
	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}

	select {
	case <-readyChan:
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("audio output never became ready")
	}

	return &OtoSink{ctx: ctx, format: format}, nil
}

// Play starts one chunk immediately.
func (s *OtoSink) Play(samples []float32, gain float64) (Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("output closed")
	}

	player := s.ctx.NewPlayer(bytes.NewReader(audio.EncodePCM16(samples)))
	player.SetVolume(gain)
	player.Play()

	return &otoVoice{player: player}, nil
}

// Close suspends the output context. The context itself cannot be recreated
// within a process, so it is suspended rather than destroyed.
func (s *OtoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.ctx.Suspend()
}

type otoVoice struct {
	mu      sync.Mutex
	player  *oto.Player
	stopped bool
}

func (v *otoVoice) SetGain(gain float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.stopped {
		v.player.SetVolume(gain)
	}
}

func (v *otoVoice) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return
	}
	v.stopped = true
	_ = v.player.Close()
}
