//go:build portaudio

// ABOUTME: PortAudio capture backend
// ABOUTME: Synchronous fixed-block reads on a dedicated goroutine
package capture

import (
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio captures microphone audio with blocking fixed-size reads. Every
// read fills exactly one frame, so no chunker is needed on this path.
type PortAudio struct {
	cfg Config

	mu      sync.Mutex
	stream  *portaudio.Stream
	buffer  []float32
	done    chan struct{}
	wg      sync.WaitGroup
	running bool
}

func openPortAudio(cfg Config) (Producer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, classify(err)
	}
	return &PortAudio{
		cfg:    cfg,
		buffer: make([]float32, cfg.FrameSize),
	}, nil
}

// Name identifies the backend.
func (p *PortAudio) Name() string { return "portaudio" }

// Start opens the default input stream and reads one frame per iteration.
func (p *PortAudio) Start(onFrame func([]float32)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(p.cfg.SampleRate), len(p.buffer), p.buffer)
	if err != nil {
		return classify(err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return classify(err)
	}

	p.stream = stream
	p.done = make(chan struct{})
	p.running = true

	p.wg.Add(1)
	go p.readLoop(stream, onFrame)

	return nil
}

func (p *PortAudio) readLoop(stream *portaudio.Stream, onFrame func([]float32)) {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			return
		}

		frame := make([]float32, len(p.buffer))
		copy(frame, p.buffer)
		onFrame(frame)
	}
}

// Stop halts the read loop and releases the stream.
func (p *PortAudio) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.done)
	stream := p.stream
	p.stream = nil
	p.mu.Unlock()

	_ = stream.Abort()
	p.wg.Wait()

	err := stream.Close()
	if termErr := portaudio.Terminate(); err == nil {
		err = termErr
	}
	return err
}
