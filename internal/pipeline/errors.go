// ABOUTME: User-facing failure text for session errors
// ABOUTME: Maps the capture, credential and transport taxonomies to messages
package pipeline

import (
	"errors"
	"fmt"

	"github.com/evelyn-voice/evelyn-go/internal/capture"
	"github.com/evelyn-voice/evelyn-go/internal/credentials"
)

// failureText renders an error the way the status line shows it.
func failureText(err error) string {
	switch {
	case errors.Is(err, capture.ErrAccessDenied):
		return "Microphone permission denied. Please allow microphone access in your system settings."
	case errors.Is(err, capture.ErrUnavailable):
		return "Failed to start the session. Please check your microphone and try again."
	case errors.Is(err, credentials.ErrUnavailable):
		return "No API key available. Set GEMINI_API_KEY or configure a session endpoint."
	default:
		return fmt.Sprintf("An API error occurred: %v", err)
	}
}
