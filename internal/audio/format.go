// ABOUTME: Audio format definitions for the Evelyn voice pipeline
// ABOUTME: Fixed wire rates, frame size and duration math
package audio

import "time"

const (
	// InputRate is the microphone/wire rate for outbound audio.
	InputRate = 16000

	// OutputRate is the wire rate for synthesized audio from the service.
	OutputRate = 24000

	// Channels is the channel count on both directions of the wire.
	Channels = 1

	// FrameSize is the number of samples in one outbound capture frame.
	FrameSize = 4096

	// InputMIMEType tags outbound PCM blobs.
	InputMIMEType = "audio/pcm;rate=16000"
)

// Format describes a PCM stream.
type Format struct {
	SampleRate int
	Channels   int
}

// InputFormat returns the outbound capture format.
func InputFormat() Format {
	return Format{SampleRate: InputRate, Channels: Channels}
}

// OutputFormat returns the inbound playback format.
func OutputFormat() Format {
	return Format{SampleRate: OutputRate, Channels: Channels}
}

// Duration returns the play time of sampleCount mono samples in this format.
func (f Format) Duration(sampleCount int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(sampleCount) * time.Second / time.Duration(f.SampleRate)
}
