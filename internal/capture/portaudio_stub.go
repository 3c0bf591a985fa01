//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Compile-time placeholder so backend selection still links
package capture

import "fmt"

func openPortAudio(cfg Config) (Producer, error) {
	return nil, fmt.Errorf("%w: portaudio support not compiled in (build with -tags portaudio)", ErrUnavailable)
}
