// ABOUTME: Duplex websocket session against the Gemini Live service
// ABOUTME: Handles dial, setup handshake, outbound audio and inbound routing
package transport

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/evelyn-voice/evelyn-go/internal/audio"
)

// DefaultHost is the hosted service endpoint.
const DefaultHost = "generativelanguage.googleapis.com"

// DefaultModel is the conversational speech model spoken to.
const DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"

const livePath = "/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// Config holds session parameters.
type Config struct {
	// APIKey authenticates the connection.
	APIKey string

	// Model overrides DefaultModel when set.
	Model string

	// Voice is the prebuilt voice name for synthesized replies.
	Voice string

	// SystemInstruction is the persona prompt sent at setup.
	SystemInstruction string

	// URL overrides the full websocket URL (used by tests). When empty the
	// hosted endpoint is derived from DefaultHost and APIKey.
	URL string
}

// Session is one duplex connection to the remote speech service. Inbound
// events are routed onto typed channels; outbound audio waits for the setup
// handshake to resolve and is dropped silently once the session is torn down.
type Session struct {
	config Config

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu        sync.RWMutex
	connected bool

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once

	// Inbound event channels, exposed through accessors.
	audioCh        chan []float32
	interruptedCh  chan struct{}
	inputTextCh    chan string
	outputTextCh   chan string
	turnCompleteCh chan struct{}
	closedCh       chan error
}

// NewSession creates a session for the given configuration.
func NewSession(config Config) *Session {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	return &Session{
		config:         config,
		ready:          make(chan struct{}),
		done:           make(chan struct{}),
		audioCh:        make(chan []float32, 32),
		interruptedCh:  make(chan struct{}, 4),
		inputTextCh:    make(chan string, 16),
		outputTextCh:   make(chan string, 16),
		turnCompleteCh: make(chan struct{}, 4),
		closedCh:       make(chan error, 1),
	}
}

// Audio delivers decoded inbound audio chunks in arrival order.
func (s *Session) Audio() <-chan []float32 { return s.audioCh }

// Interrupted signals a barge-in reported by the service.
func (s *Session) Interrupted() <-chan struct{} { return s.interruptedCh }

// InputText delivers user speech transcription fragments.
func (s *Session) InputText() <-chan string { return s.inputTextCh }

// OutputText delivers synthesized speech transcription fragments.
func (s *Session) OutputText() <-chan string { return s.outputTextCh }

// TurnComplete signals the end of a conversational turn.
func (s *Session) TurnComplete() <-chan struct{} { return s.turnCompleteCh }

// Closed delivers exactly one value when the remote side ends the session:
// nil for a clean close, the error otherwise. Local Close does not emit.
func (s *Session) Closed() <-chan error { return s.closedCh }

func (s *Session) endpoint() string {
	if s.config.URL != "" {
		return s.config.URL
	}
	u := url.URL{
		Scheme:   "wss",
		Host:     DefaultHost,
		Path:     livePath,
		RawQuery: url.Values{"key": {s.config.APIKey}}.Encode(),
	}
	return u.String()
}

// Connect dials the service and sends the setup frame. The session is not
// ready for audio until the server acknowledges setup; SendAudio waits for
// that acknowledgement.
func (s *Session) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.endpoint(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	setup := clientMessage{
		Setup: &setupPayload{
			Model: s.config.Model,
			GenerationConfig: &generationConfig{
				ResponseModalities: []string{"AUDIO"},
				SpeechConfig: &speechConfig{
					VoiceConfig: &voiceConfig{
						PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: s.config.Voice},
					},
				},
			},
			InputAudioTranscription:  &transcriptionConfig{},
			OutputAudioTranscription: &transcriptionConfig{},
		},
	}
	if s.config.SystemInstruction != "" {
		setup.Setup.SystemInstruction = &content{
			Parts: []part{{Text: s.config.SystemInstruction}},
		}
	}

	if err := s.writeJSON(setup); err != nil {
		s.Close()
		return fmt.Errorf("setup failed: %w", err)
	}

	go s.readLoop()

	return nil
}

// Ready resolves once the server has acknowledged the setup frame.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// SendAudio transmits one capture frame. It waits for the session handle to
// resolve; frames sent after teardown are dropped, not queued.
func (s *Session) SendAudio(samples []float32) error {
	select {
	case <-s.ready:
	case <-s.done:
		return nil
	}

	select {
	case <-s.done:
		return nil
	default:
	}

	blob := audio.NewInputBlob(samples)
	msg := clientMessage{
		RealtimeInput: &realtimeInput{
			MediaChunks: []mediaChunk{{MIMEType: blob.MIMEType, Data: blob.Data}},
		},
	}
	return s.writeJSON(msg)
}

func (s *Session) writeJSON(msg clientMessage) error {
	s.mu.RLock()
	connected := s.connected
	conn := s.conn
	s.mu.RUnlock()

	if !connected || conn == nil {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// readLoop reads and routes inbound frames until the connection ends.
func (s *Session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.finish(err)
			return
		}
		s.dispatch(data)
	}
}

// dispatch routes one inbound frame. All payload concerns are handled
// independently; a single frame may carry several at once.
func (s *Session) dispatch(data []byte) {
	msg, err := parseServerMessage(data)
	if err != nil {
		log.Printf("Session: dropping unparseable frame: %v", err)
		return
	}

	if msg.SetupComplete != nil {
		s.readyOnce.Do(func() { close(s.ready) })
	}

	sc := msg.ServerContent
	if sc == nil {
		return
	}

	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			samples, err := audio.DecodeBlobData(p.InlineData.Data)
			if err != nil {
				log.Printf("Session: bad audio payload: %v", err)
				continue
			}
			select {
			case s.audioCh <- samples:
			case <-s.done:
				return
			}
		}
	}

	if sc.Interrupted {
		select {
		case s.interruptedCh <- struct{}{}:
		case <-s.done:
			return
		}
	}

	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		select {
		case s.inputTextCh <- sc.InputTranscription.Text:
		case <-s.done:
			return
		}
	}

	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		select {
		case s.outputTextCh <- sc.OutputTranscription.Text:
		case <-s.done:
			return
		}
	}

	if sc.TurnComplete {
		select {
		case s.turnCompleteCh <- struct{}{}:
		case <-s.done:
			return
		}
	}
}

// finish reports how the remote side ended the session, unless the session
// was closed locally first.
func (s *Session) finish(err error) {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()

	if !connected {
		return
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		err = nil
	}

	select {
	case s.closedCh <- err:
	default:
	}

	s.Close()
}

// Close tears the session down. Idempotent; sends issued afterwards no-op.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.connected = false
		conn := s.conn
		s.mu.Unlock()

		close(s.done)

		if conn != nil {
			s.writeMu.Lock()
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			s.writeMu.Unlock()
			_ = conn.Close()
		}
	})
	return nil
}
