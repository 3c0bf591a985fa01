// ABOUTME: Tests for input level measurement
// ABOUTME: Silence, steady tones and clipping input
package audio

import (
	"math"
	"testing"
)

func TestLevelSilence(t *testing.T) {
	if got := Level(make([]float32, 256)); got != 0 {
		t.Errorf("expected 0 for silence, got %v", got)
	}
	if got := Level(nil); got != 0 {
		t.Errorf("expected 0 for empty frame, got %v", got)
	}
}

func TestLevelSteadyAmplitude(t *testing.T) {
	frame := make([]float32, 256)
	for i := range frame {
		frame[i] = 0.5
	}
	if got := Level(frame); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("expected 0.5 for steady half amplitude, got %v", got)
	}

	// Alternating sign has the same energy.
	for i := range frame {
		if i%2 == 1 {
			frame[i] = -0.5
		}
	}
	if got := Level(frame); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("expected 0.5 for alternating half amplitude, got %v", got)
	}
}

func TestLevelClamped(t *testing.T) {
	frame := make([]float32, 64)
	for i := range frame {
		frame[i] = 1.5
	}
	if got := Level(frame); got != 1 {
		t.Errorf("expected clamp to 1, got %v", got)
	}
}
