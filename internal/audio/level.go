// ABOUTME: Microphone input level measurement
// ABOUTME: Root-mean-square amplitude of one capture frame
package audio

import "math"

// Level measures a frame's loudness as root-mean-square amplitude,
// clamped to [0, 1]. An empty frame is silence.
func Level(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms > 1 {
		return 1
	}
	return rms
}
