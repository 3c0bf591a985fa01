// ABOUTME: PCM sample conversion between float32 and int16 little-endian
// ABOUTME: Base64 wire blobs for the realtime session protocol
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// SampleToInt16 converts a float sample in [-1, 1] to a signed 16-bit value.
// The sample is scaled by 32768 and clamped so +1.0 cannot wrap around.
func SampleToInt16(sample float32) int16 {
	scaled := sample * 32768
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(scaled)
}

// SampleFromInt16 converts a signed 16-bit value back to a float in [-1, 1).
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768
}

// EncodePCM16 converts float samples to int16 little-endian PCM bytes.
func EncodePCM16(samples []float32) []byte {
	output := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(SampleToInt16(sample)))
	}
	return output
}

// DecodePCM16 converts int16 little-endian PCM bytes to float samples.
func DecodePCM16(data []byte) []float32 {
	numSamples := len(data) / 2
	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		samples[i] = SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	return samples
}

// Blob is an opaque base64 media chunk tagged with its MIME descriptor.
type Blob struct {
	MIMEType string
	Data     string
}

// NewInputBlob encodes one capture frame as an outbound wire blob.
func NewInputBlob(samples []float32) Blob {
	return Blob{
		MIMEType: InputMIMEType,
		Data:     base64.StdEncoding.EncodeToString(EncodePCM16(samples)),
	}
}

// DecodeBlobData decodes base64 int16le PCM payload data into float samples.
func DecodeBlobData(data string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("invalid audio payload: %w", err)
	}
	return DecodePCM16(raw), nil
}
