// ABOUTME: Malgo (miniaudio) capture backend
// ABOUTME: Asynchronous device callback feeding the frame chunker
package capture

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/evelyn-voice/evelyn-go/internal/audio"
)

// Malgo captures microphone audio through miniaudio. The device delivers
// samples on its own thread in arbitrary block sizes; the chunker re-cuts
// them into full frames before they reach the pipeline.
type Malgo struct {
	cfg Config

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	chunker *audio.Chunker
	running bool
}

func openMalgo(cfg Config) (Producer, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, classify(err)
	}

	return &Malgo{
		cfg:     cfg,
		ctx:     ctx,
		chunker: audio.NewChunker(cfg.FrameSize),
	}, nil
}

// Name identifies the backend.
func (m *Malgo) Name() string { return "malgo" }

// Start opens the default capture device and begins delivering frames.
func (m *Malgo) Start(onFrame func([]float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}
	if m.ctx == nil {
		return ErrUnavailable
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = audio.Channels
	deviceConfig.SampleRate = uint32(m.cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	onRecvFrames := func(_, pSample []byte, framecount uint32) {
		if framecount == 0 {
			return
		}
		samples := make([]float32, int(framecount)*audio.Channels)
		for i := range samples {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(pSample[i*4:]))
		}

		m.mu.Lock()
		if !m.running {
			m.mu.Unlock()
			return
		}
		frames := m.chunker.Push(samples)
		m.mu.Unlock()

		for _, frame := range frames {
			onFrame(frame)
		}
	}

	device, err := malgo.InitDevice(m.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		return classify(err)
	}

	m.device = device
	m.running = true

	if err := device.Start(); err != nil {
		m.running = false
		device.Uninit()
		m.device = nil
		return classify(err)
	}

	return nil
}

// Stop halts capture and releases the device and context. The device is
// released outside the lock: uninit waits for the data callback, and the
// callback takes the same lock.
func (m *Malgo) Stop() error {
	m.mu.Lock()
	m.running = false
	m.chunker.Reset()
	device := m.device
	ctx := m.ctx
	m.device = nil
	m.ctx = nil
	m.mu.Unlock()

	if device != nil {
		device.Uninit()
	}
	if ctx != nil {
		_ = ctx.Uninit()
		ctx.Free()
	}
	return nil
}
