// ABOUTME: Conversation engine tying capture, transport, playback and state
// ABOUTME: One session at a time with generation-guarded teardown
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evelyn-voice/evelyn-go/internal/audio"
	"github.com/evelyn-voice/evelyn-go/internal/capture"
	"github.com/evelyn-voice/evelyn-go/internal/persona"
	"github.com/evelyn-voice/evelyn-go/internal/player"
	"github.com/evelyn-voice/evelyn-go/internal/store"
	"github.com/evelyn-voice/evelyn-go/internal/transcript"
	"github.com/evelyn-voice/evelyn-go/internal/transport"
)

// State is the coarse conversation state.
type State string

const (
	// StateIdle means no session exists.
	StateIdle State = "idle"

	// StateConnecting means a session is being established.
	StateConnecting State = "connecting"

	// StateConnected means the duplex session is live.
	StateConnected State = "connected"

	// StateError means the last session ended with a failure.
	StateError State = "error"
)

// Status line texts for the non-error states.
const (
	StatusIdle       = "Tap to start conversation"
	StatusConnecting = "Connecting to Evelyn..."
	StatusListening  = "Listening..."
	StatusSpeaking   = "Evelyn is speaking..."
)

// Conn is the duplex session surface the engine drives. Satisfied by
// transport.Session.
type Conn interface {
	Connect(ctx context.Context) error
	Ready() <-chan struct{}
	SendAudio(samples []float32) error
	Close() error

	Audio() <-chan []float32
	Interrupted() <-chan struct{}
	InputText() <-chan string
	OutputText() <-chan string
	TurnComplete() <-chan struct{}
	Closed() <-chan error
}

// KeyFetcher resolves the API key for a new session.
type KeyFetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Config wires the engine's collaborators. NewConn and NewProducer default
// to the real transport and capture backends.
type Config struct {
	Credentials KeyFetcher
	Store       *store.Store
	Sink        player.Sink

	Model          string
	CaptureBackend string

	NewConn     func(transport.Config) Conn
	NewProducer func(capture.Config) (capture.Producer, error)

	// OnStatus fires on every state or status line change.
	OnStatus func(State, string)

	// OnTranscript fires with the entries added by a completed turn.
	OnTranscript func([]transcript.Entry)

	// OnSpeaking fires when synthesized playback starts or stops.
	OnSpeaking func(bool)

	// OnLevel fires with the smoothed microphone input level in [0, 1],
	// once per capture frame and with 0 when capture stops.
	OnLevel func(float64)
}

// levelSmoothing weights the previous level against the newest frame, the
// same smoothing the reference client's analyser applied.
const levelSmoothing = 0.8

// Engine runs one conversation session at a time. Starting tears down any
// previous session first; a generation counter keeps async continuations of
// a dead session from touching a live one.
type Engine struct {
	config    Config
	scheduler *player.Scheduler
	acc       *transcript.Accumulator
	history   *transcript.Log

	mu             sync.Mutex
	state          State
	status         string
	prefs          store.Preferences
	generation     uint64
	conn           Conn
	producer       capture.Producer
	stop           chan struct{}
	conversationID string
	level          float64
}

// New creates an engine and starts its playback timeline.
func New(config Config) *Engine {
	if config.NewConn == nil {
		config.NewConn = func(tc transport.Config) Conn { return transport.NewSession(tc) }
	}
	if config.NewProducer == nil {
		config.NewProducer = capture.Open
	}

	e := &Engine{
		config:         config,
		acc:            transcript.NewAccumulator(),
		state:          StateIdle,
		status:         StatusIdle,
		conversationID: uuid.NewString(),
	}

	if config.Store != nil {
		e.prefs = config.Store.LoadPreferences()
		e.history = transcript.NewLog(config.Store.LoadHistory())
	} else {
		e.prefs = store.DefaultPreferences()
		e.history = transcript.NewLog(nil)
	}

	e.scheduler = player.NewScheduler(config.Sink, audio.OutputFormat(),
		player.WithSpeakingCallback(e.onSpeakingChange))
	e.scheduler.SetGain(e.prefs.Volume)
	go e.scheduler.Run()

	return e
}

// Start establishes a new session, tearing down any existing one first.
// On failure the engine lands in StateError with a user-facing status.
func (e *Engine) Start(ctx context.Context) error {
	e.teardown(0)

	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.conversationID = uuid.NewString()
	id := e.conversationID
	voice := e.prefs.SelectedVoice
	instruction := persona.PersonalityByID(e.prefs.SelectedPersonality).Instruction
	e.mu.Unlock()

	e.setStatus(StateConnecting, StatusConnecting)
	log.Printf("Engine: starting conversation %s (voice=%s)", id, voice)

	key, err := e.config.Credentials.Fetch(ctx)
	if err != nil {
		return e.fail(gen, err)
	}

	producer, err := e.config.NewProducer(capture.Config{
		SampleRate: audio.InputRate,
		FrameSize:  audio.FrameSize,
		Backend:    e.config.CaptureBackend,
	})
	if err != nil {
		return e.fail(gen, err)
	}

	conn := e.config.NewConn(transport.Config{
		APIKey:            key,
		Model:             e.config.Model,
		Voice:             voice,
		SystemInstruction: instruction,
	})
	if err := conn.Connect(ctx); err != nil {
		producer.Stop()
		return e.fail(gen, err)
	}

	stop := make(chan struct{})
	e.mu.Lock()
	if e.generation != gen {
		// Torn down while connecting; release everything quietly.
		e.mu.Unlock()
		conn.Close()
		producer.Stop()
		return nil
	}
	e.conn = conn
	e.producer = producer
	e.stop = stop
	e.mu.Unlock()

	// Capture frames route through a buffered channel so the device
	// callback never blocks on the network.
	frames := make(chan []float32, 64)
	go e.sendLoop(conn, frames, stop)

	if err := producer.Start(func(frame []float32) {
		e.observeLevel(frame)
		select {
		case frames <- frame:
		default:
			log.Printf("Engine: dropping capture frame, send queue full")
		}
	}); err != nil {
		return e.fail(gen, err)
	}

	go e.eventLoop(gen, conn, stop)

	log.Printf("Engine: conversation %s connected via %s", id, producer.Name())
	e.setStatus(StateConnected, StatusListening)
	return nil
}

// Stop tears down the current session, if any. Idempotent.
func (e *Engine) Stop() {
	e.teardown(0)
	e.setStatus(StateIdle, StatusIdle)
}

// Close stops the session and releases the playback sink and store.
func (e *Engine) Close() {
	e.Stop()
	e.scheduler.Stop()
	if e.config.Sink != nil {
		e.config.Sink.Close()
	}
	if e.config.Store != nil {
		e.config.Store.Flush()
	}
}

// teardown releases the session owned by generation gen; gen 0 means the
// current one. Returns false when that session was already gone.
func (e *Engine) teardown(gen uint64) bool {
	e.mu.Lock()
	if gen != 0 && e.generation != gen {
		e.mu.Unlock()
		return false
	}
	e.generation++
	conn := e.conn
	producer := e.producer
	stop := e.stop
	e.conn = nil
	e.producer = nil
	e.stop = nil
	e.level = 0
	e.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if producer != nil {
		if err := producer.Stop(); err != nil {
			log.Printf("Engine: capture stop failed: %v", err)
		}
	}
	if conn != nil {
		conn.Close()
	}
	e.scheduler.Interrupt()
	e.flushTranscript()
	if cb := e.config.OnLevel; cb != nil {
		cb(0)
	}
	return true
}

// observeLevel folds one capture frame into the smoothed input level.
func (e *Engine) observeLevel(frame []float32) {
	rms := audio.Level(frame)
	e.mu.Lock()
	e.level = levelSmoothing*e.level + (1-levelSmoothing)*rms
	level := e.level
	e.mu.Unlock()

	if cb := e.config.OnLevel; cb != nil {
		cb(level)
	}
}

func (e *Engine) fail(gen uint64, err error) error {
	if e.teardown(gen) {
		e.setStatus(StateError, "Error: "+failureText(err))
	}
	log.Printf("Engine: session failed: %v", err)
	return err
}

// sendLoop forwards capture frames to the session in arrival order.
func (e *Engine) sendLoop(conn Conn, frames <-chan []float32, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case frame := <-frames:
			if err := conn.SendAudio(frame); err != nil {
				log.Printf("Engine: send failed: %v", err)
			}
		}
	}
}

// eventLoop routes inbound session events until the session ends.
func (e *Engine) eventLoop(gen uint64, conn Conn, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case samples := <-conn.Audio():
			e.scheduler.Schedule(samples)
		case <-conn.Interrupted():
			e.scheduler.Interrupt()
		case text := <-conn.InputText():
			e.acc.AddUser(text)
		case text := <-conn.OutputText():
			e.acc.AddModel(text)
		case <-conn.TurnComplete():
			e.flushTranscript()
		case err := <-conn.Closed():
			if e.teardown(gen) {
				if err != nil {
					e.setStatus(StateError, "Error: "+failureText(err))
					log.Printf("Engine: session ended with error: %v", err)
				} else {
					e.setStatus(StateIdle, StatusIdle)
					log.Printf("Engine: session closed by remote")
				}
			}
			return
		}
	}
}

// flushTranscript turns accumulated fragments into history entries.
func (e *Engine) flushTranscript() {
	entries := e.acc.Flush(time.Now())
	if len(entries) == 0 {
		return
	}
	e.history.Append(entries...)
	if e.config.Store != nil {
		e.config.Store.SaveHistory(e.history.Entries())
	}
	if cb := e.config.OnTranscript; cb != nil {
		cb(entries)
	}
}

func (e *Engine) onSpeakingChange(speaking bool) {
	if cb := e.config.OnSpeaking; cb != nil {
		cb(speaking)
	}

	e.mu.Lock()
	connected := e.state == StateConnected
	e.mu.Unlock()
	if !connected {
		return
	}
	if speaking {
		e.setStatus(StateConnected, StatusSpeaking)
	} else {
		e.setStatus(StateConnected, StatusListening)
	}
}

func (e *Engine) setStatus(state State, status string) {
	e.mu.Lock()
	e.state = state
	e.status = status
	cb := e.config.OnStatus
	e.mu.Unlock()

	if cb != nil {
		cb(state, status)
	}
}

// State returns the current conversation state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status returns the current status line text.
func (e *Engine) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Speaking reports whether synthesized audio is playing.
func (e *Engine) Speaking() bool {
	return e.scheduler.Speaking()
}

// Level returns the smoothed microphone input level, 0 when not capturing.
func (e *Engine) Level() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.level
}

// Volume returns the playback volume in [0, 1].
func (e *Engine) Volume() float64 {
	return e.scheduler.Gain()
}

// SetVolume updates playback volume, applying to chunks already playing,
// and persists the preference.
func (e *Engine) SetVolume(volume float64) {
	e.scheduler.SetGain(volume)

	e.mu.Lock()
	e.prefs.Volume = e.scheduler.Gain()
	prefs := e.prefs
	e.mu.Unlock()
	e.savePrefs(prefs)
}

// Preferences returns the current preferences snapshot.
func (e *Engine) Preferences() store.Preferences {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prefs
}

// SetVoice selects the synthesis voice. Takes effect on the next session.
func (e *Engine) SetVoice(name string) {
	v := persona.VoiceByName(name)
	e.mu.Lock()
	e.prefs.SelectedVoice = v.Name
	prefs := e.prefs
	e.mu.Unlock()
	e.savePrefs(prefs)
}

// SetPersonality selects the persona. Takes effect on the next session.
func (e *Engine) SetPersonality(id string) {
	p := persona.PersonalityByID(id)
	e.mu.Lock()
	e.prefs.SelectedPersonality = p.ID
	prefs := e.prefs
	e.mu.Unlock()
	e.savePrefs(prefs)
}

// CycleVoice advances to the next voice in the catalog and returns it.
func (e *Engine) CycleVoice() persona.Voice {
	e.mu.Lock()
	v := persona.NextVoice(e.prefs.SelectedVoice)
	e.prefs.SelectedVoice = v.Name
	prefs := e.prefs
	e.mu.Unlock()
	e.savePrefs(prefs)
	return v
}

// CyclePersonality advances to the next persona and returns it.
func (e *Engine) CyclePersonality() persona.Personality {
	e.mu.Lock()
	p := persona.NextPersonality(e.prefs.SelectedPersonality)
	e.prefs.SelectedPersonality = p.ID
	prefs := e.prefs
	e.mu.Unlock()
	e.savePrefs(prefs)
	return p
}

func (e *Engine) savePrefs(prefs store.Preferences) {
	if e.config.Store != nil {
		e.config.Store.SavePreferences(prefs)
	}
}

// History returns the conversation log.
func (e *Engine) History() []transcript.Entry {
	return e.history.Entries()
}

// ExportTranscript writes the conversation log to the data directory as a
// JSON document tagged with the conversation ID, returning the file path.
func (e *Engine) ExportTranscript(now time.Time) (string, error) {
	if e.config.Store == nil {
		return "", errors.New("no data store configured")
	}

	e.mu.Lock()
	id := e.conversationID
	e.mu.Unlock()

	data, err := e.history.Export(id, now).JSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript: %w", err)
	}
	path, err := e.config.Store.WriteExport("transcript-"+id+".json", data)
	if err != nil {
		return "", err
	}
	log.Printf("Engine: conversation %s exported to %s", id, path)
	return path, nil
}

// ClearHistory empties the conversation log and its persisted copy.
func (e *Engine) ClearHistory() error {
	e.history.Clear()
	if e.config.Store != nil {
		return e.config.Store.ClearHistory()
	}
	return nil
}
