// ABOUTME: Tests for PCM conversion and wire blobs
// ABOUTME: Covers round-trip accuracy, clamping and base64 payloads
package audio

import (
	"encoding/base64"
	"testing"
)

func TestSampleToInt16Clamping(t *testing.T) {
	if got := SampleToInt16(1.0); got != 32767 {
		t.Errorf("expected +1.0 to clamp to 32767, got %d", got)
	}
	if got := SampleToInt16(-1.0); got != -32768 {
		t.Errorf("expected -1.0 to map to -32768, got %d", got)
	}
	if got := SampleToInt16(2.5); got != 32767 {
		t.Errorf("expected overdriven sample to clamp to 32767, got %d", got)
	}
	if got := SampleToInt16(-2.5); got != -32768 {
		t.Errorf("expected overdriven sample to clamp to -32768, got %d", got)
	}
	if got := SampleToInt16(0); got != 0 {
		t.Errorf("expected silence to stay 0, got %d", got)
	}
}

func TestPCMRoundTrip(t *testing.T) {
	inputs := []float32{0, 0.5, -0.5, 0.25, -0.25, 0.999, -0.999, 1.0, -1.0}

	encoded := EncodePCM16(inputs)
	if len(encoded) != len(inputs)*2 {
		t.Fatalf("expected %d bytes, got %d", len(inputs)*2, len(encoded))
	}

	decoded := DecodePCM16(encoded)
	if len(decoded) != len(inputs) {
		t.Fatalf("expected %d samples, got %d", len(inputs), len(decoded))
	}

	// Quantization loses at most one 16-bit step.
	const lsb = 1.0 / 32768
	for i, in := range inputs {
		want := in
		if want > 32767.0/32768 {
			want = 32767.0 / 32768
		}
		diff := decoded[i] - want
		if diff < 0 {
			diff = -diff
		}
		if diff > lsb {
			t.Errorf("sample %d: round-trip error %v exceeds 1 LSB (in=%v out=%v)", i, diff, in, decoded[i])
		}
	}
}

func TestNewInputBlob(t *testing.T) {
	samples := []float32{0, 0.5, -0.5}
	blob := NewInputBlob(samples)

	if blob.MIMEType != "audio/pcm;rate=16000" {
		t.Errorf("unexpected MIME type: %s", blob.MIMEType)
	}

	raw, err := base64.StdEncoding.DecodeString(blob.Data)
	if err != nil {
		t.Fatalf("blob data is not valid base64: %v", err)
	}
	if len(raw) != len(samples)*2 {
		t.Errorf("expected %d payload bytes, got %d", len(samples)*2, len(raw))
	}
}

func TestDecodeBlobData(t *testing.T) {
	samples := []float32{0.25, -0.75}
	blob := NewInputBlob(samples)

	decoded, err := DecodeBlobData(blob.Data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(decoded))
	}

	if _, err := DecodeBlobData("not base64!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestFormatDuration(t *testing.T) {
	f := OutputFormat()

	// 24000 samples at 24kHz is exactly one second.
	if got := f.Duration(24000); got.Seconds() != 1.0 {
		t.Errorf("expected 1s, got %v", got)
	}

	// One capture frame at 16kHz is 256ms.
	in := InputFormat()
	if got := in.Duration(FrameSize); got.Milliseconds() != 256 {
		t.Errorf("expected 256ms, got %v", got)
	}
}
