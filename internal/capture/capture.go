// ABOUTME: Microphone capture interface and backend selection
// ABOUTME: Prefers the malgo callback backend, falls back to portaudio
package capture

import (
	"errors"
	"fmt"
	"log"
	"strings"
)

// Sentinel errors separate "user must grant access" from "no usable device".
var (
	// ErrAccessDenied means microphone permission was refused.
	ErrAccessDenied = errors.New("microphone access denied")

	// ErrUnavailable means no capture device could be acquired.
	ErrUnavailable = errors.New("capture device unavailable")
)

// Producer delivers fixed-size float frames from the default microphone.
// Frames arrive on the callback in capture order, one channel, at the
// configured sample rate. Implementations must tolerate Stop being called
// more than once.
type Producer interface {
	// Start begins capture. onFrame receives frames of exactly frameSize
	// samples until Stop is called.
	Start(onFrame func([]float32)) error

	// Stop ends capture and releases the device. Safe to call twice.
	Stop() error

	// Name identifies the backend for logging.
	Name() string
}

// Config holds capture parameters.
type Config struct {
	SampleRate int
	FrameSize  int

	// Backend pins a specific backend ("malgo" or "portaudio").
	// Empty selects automatically.
	Backend string
}

// Open selects a capture backend. The malgo callback backend is tried first;
// if it cannot acquire a device the blocking portaudio backend is used when
// compiled in. Both emit identical frames, so downstream stages cannot tell
// them apart.
func Open(cfg Config) (Producer, error) {
	switch cfg.Backend {
	case "malgo":
		return openMalgo(cfg)
	case "portaudio":
		return openPortAudio(cfg)
	case "":
	default:
		return nil, fmt.Errorf("%w: unknown capture backend %q", ErrUnavailable, cfg.Backend)
	}

	producer, err := openMalgo(cfg)
	if err == nil {
		return producer, nil
	}
	if errors.Is(err, ErrAccessDenied) {
		return nil, err
	}

	log.Printf("Capture: malgo backend unavailable (%v), trying portaudio", err)
	fallback, fbErr := openPortAudio(cfg)
	if fbErr != nil {
		// Report the primary failure; the fallback is best-effort.
		return nil, err
	}
	return fallback, nil
}

// classify maps a raw device error onto the capture error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "access denied") || strings.Contains(msg, "permission") {
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
