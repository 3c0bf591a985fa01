// ABOUTME: Tests for capture error classification and backend selection
// ABOUTME: Device-free tests; real devices are exercised manually
package capture

import (
	"errors"
	"testing"
)

func TestClassifyPermission(t *testing.T) {
	err := classify(errors.New("miniaudio: Access denied"))
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}

	err = classify(errors.New("open /dev/snd: permission denied"))
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
}

func TestClassifyUnavailable(t *testing.T) {
	err := classify(errors.New("no capture device found"))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if errors.Is(err, ErrAccessDenied) {
		t.Error("device failure must not look like a permission failure")
	}
}

func TestClassifyNil(t *testing.T) {
	if err := classify(nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(Config{SampleRate: 16000, FrameSize: 4096, Backend: "pulse"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for unknown backend, got %v", err)
	}
}
