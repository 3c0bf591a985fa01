// ABOUTME: Fixed-size frame chunker for capture audio
// ABOUTME: Accumulates samples and emits full frames, buffering the remainder
package audio

// Chunker accumulates incoming samples and cuts them into frames of exactly
// frameSize samples. Partial frames are held until enough samples arrive.
type Chunker struct {
	frameSize int
	buffer    []float32
}

// NewChunker creates a chunker emitting frames of frameSize samples.
func NewChunker(frameSize int) *Chunker {
	return &Chunker{
		frameSize: frameSize,
		buffer:    make([]float32, 0, frameSize*2),
	}
}

// Push appends samples and returns every complete frame now available.
// Each returned frame is an independent copy of frameSize samples.
func (c *Chunker) Push(samples []float32) [][]float32 {
	c.buffer = append(c.buffer, samples...)

	var frames [][]float32
	for len(c.buffer) >= c.frameSize {
		frame := make([]float32, c.frameSize)
		copy(frame, c.buffer[:c.frameSize])
		frames = append(frames, frame)
		c.buffer = append(c.buffer[:0], c.buffer[c.frameSize:]...)
	}
	return frames
}

// Buffered returns the number of samples waiting for the next frame.
func (c *Chunker) Buffered() int {
	return len(c.buffer)
}

// Reset discards any buffered samples.
func (c *Chunker) Reset() {
	c.buffer = c.buffer[:0]
}
