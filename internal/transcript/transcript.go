// ABOUTME: Transcript accumulation and the capped conversation log
// ABOUTME: Fragments build per-turn buffers flushed on turn completion
package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Speaker identifies who said an entry.
type Speaker string

const (
	// SpeakerUser is the human side of the conversation.
	SpeakerUser Speaker = "user"

	// SpeakerEvelyn is the synthesized side.
	SpeakerEvelyn Speaker = "evelyn"
)

// MaxEntries caps the persisted log to the most recent entries.
const MaxEntries = 100

// Entry is one persisted transcript line.
type Entry struct {
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// Accumulator gathers incremental transcription fragments for the current
// turn. Fragments concatenate in arrival order; Flush drains the live
// buffers, never a stale snapshot.
type Accumulator struct {
	mu    sync.Mutex
	user  strings.Builder
	model strings.Builder
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// AddUser appends a user speech-to-text fragment.
func (a *Accumulator) AddUser(fragment string) {
	a.mu.Lock()
	a.user.WriteString(fragment)
	a.mu.Unlock()
}

// AddModel appends a synthesized speech-to-text fragment.
func (a *Accumulator) AddModel(fragment string) {
	a.mu.Lock()
	a.model.WriteString(fragment)
	a.mu.Unlock()
}

// Flush converts the non-empty buffers into log entries, user first, and
// resets both. Called on the turn-complete signal.
func (a *Accumulator) Flush(now time.Time) []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	var entries []Entry
	if text := a.user.String(); text != "" {
		entries = append(entries, Entry{Speaker: SpeakerUser, Text: text, Timestamp: now.UnixMilli()})
	}
	if text := a.model.String(); text != "" {
		entries = append(entries, Entry{Speaker: SpeakerEvelyn, Text: text, Timestamp: now.UnixMilli()})
	}
	a.user.Reset()
	a.model.Reset()
	return entries
}

// Reset discards both buffers without producing entries.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	a.user.Reset()
	a.model.Reset()
	a.mu.Unlock()
}

// Pending reports whether any fragment is buffered.
func (a *Accumulator) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user.Len() > 0 || a.model.Len() > 0
}

// Log is the ordered conversation history, capped to MaxEntries.
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

// NewLog creates a log seeded with existing entries.
func NewLog(entries []Entry) *Log {
	l := &Log{}
	l.Append(entries...)
	return l
}

// Append adds entries in order, dropping the oldest beyond the cap.
func (l *Log) Append(entries ...Entry) {
	if len(entries) == 0 {
		return
	}
	l.mu.Lock()
	l.entries = append(l.entries, entries...)
	if len(l.entries) > MaxEntries {
		l.entries = append([]Entry(nil), l.entries[len(l.entries)-MaxEntries:]...)
	}
	l.mu.Unlock()
}

// Entries returns a copy of the log.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// Export is a snapshot of the log tagged with the conversation it belongs
// to, the document written by the transcript export command.
type Export struct {
	Conversation string  `json:"conversation"`
	ExportedAt   int64   `json:"exportedAt"`
	Entries      []Entry `json:"entries"`
}

// Export snapshots the log under a conversation ID.
func (l *Log) Export(conversation string, now time.Time) Export {
	return Export{
		Conversation: conversation,
		ExportedAt:   now.UnixMilli(),
		Entries:      l.Entries(),
	}
}

// JSON renders the export as indented JSON.
func (x Export) JSON() ([]byte, error) {
	return json.MarshalIndent(x, "", "  ")
}

// ExportJSON renders the log as indented JSON.
func (l *Log) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(l.Entries(), "", "  ")
}

// ExportText renders the log as a readable conversation.
func (l *Log) ExportText() string {
	var b strings.Builder
	for i, entry := range l.Entries() {
		if i > 0 {
			b.WriteString("\n\n")
		}
		name := "You"
		if entry.Speaker == SpeakerEvelyn {
			name = "Evelyn"
		}
		fmt.Fprintf(&b, "%s: %s", name, entry.Text)
	}
	return b.String()
}
