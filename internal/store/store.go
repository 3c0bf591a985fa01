// ABOUTME: Local persistence for preferences and conversation history
// ABOUTME: JSON files with explicit debounced writes and a shutdown flush
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/evelyn-voice/evelyn-go/internal/persona"
	"github.com/evelyn-voice/evelyn-go/internal/transcript"
)

const (
	preferencesFile = "preferences.json"
	historyFile     = "history.json"

	// Write debounce windows, matching the reference client's policy.
	preferencesDelay = 500 * time.Millisecond
	historyDelay     = time.Second
)

// Preferences is the persisted user preferences record.
type Preferences struct {
	SelectedVoice       string  `json:"selectedVoice"`
	SelectedPersonality string  `json:"selectedPersonality"`
	Volume              float64 `json:"volume"`
}

// DefaultPreferences returns the out-of-box preferences.
func DefaultPreferences() Preferences {
	return Preferences{
		SelectedVoice:       persona.DefaultVoice,
		SelectedPersonality: persona.DefaultPersonality,
		Volume:              1,
	}
}

// DefaultDir returns the per-user data directory.
func DefaultDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "evelyn"), nil
}

// Store persists preferences and history. Saves are debounced; Flush forces
// any pending write, and is required before process exit.
type Store struct {
	dir string

	mu             sync.Mutex
	prefsTimer     *time.Timer
	pendingPrefs   *Preferences
	historyTimer   *time.Timer
	pendingHistory []transcript.Entry

	prefsDelay   time.Duration
	historyDelay time.Duration
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{
		dir:          dir,
		prefsDelay:   preferencesDelay,
		historyDelay: historyDelay,
	}, nil
}

// LoadPreferences reads the preferences record, falling back to defaults
// when the file is missing or unreadable.
func (s *Store) LoadPreferences() Preferences {
	prefs := DefaultPreferences()

	data, err := os.ReadFile(filepath.Join(s.dir, preferencesFile))
	if err != nil {
		return prefs
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		log.Printf("Store: ignoring corrupt preferences: %v", err)
		return DefaultPreferences()
	}
	return prefs
}

// SavePreferences schedules a debounced write of the preferences record.
func (s *Store) SavePreferences(prefs Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := prefs
	s.pendingPrefs = &p

	if s.prefsTimer != nil {
		s.prefsTimer.Stop()
	}
	s.prefsTimer = time.AfterFunc(s.prefsDelay, s.writePreferences)
}

func (s *Store) writePreferences() {
	s.mu.Lock()
	pending := s.pendingPrefs
	s.pendingPrefs = nil
	s.mu.Unlock()

	if pending == nil {
		return
	}
	data, err := json.Marshal(pending)
	if err != nil {
		log.Printf("Store: failed to encode preferences: %v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(s.dir, preferencesFile), data, 0644); err != nil {
		log.Printf("Store: failed to save preferences: %v", err)
	}
}

// LoadHistory reads the conversation history, empty when missing.
func (s *Store) LoadHistory() []transcript.Entry {
	data, err := os.ReadFile(filepath.Join(s.dir, historyFile))
	if err != nil {
		return nil
	}
	var entries []transcript.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("Store: ignoring corrupt history: %v", err)
		return nil
	}
	return entries
}

// SaveHistory schedules a debounced write of the history, capped to the
// most recent entries.
func (s *Store) SaveHistory(entries []transcript.Entry) {
	if len(entries) > transcript.MaxEntries {
		entries = entries[len(entries)-transcript.MaxEntries:]
	}
	pending := make([]transcript.Entry, len(entries))
	copy(pending, entries)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pendingHistory = pending
	if s.historyTimer != nil {
		s.historyTimer.Stop()
	}
	s.historyTimer = time.AfterFunc(s.historyDelay, s.writeHistory)
}

func (s *Store) writeHistory() {
	s.mu.Lock()
	pending := s.pendingHistory
	s.pendingHistory = nil
	s.mu.Unlock()

	if pending == nil {
		return
	}
	data, err := json.Marshal(pending)
	if err != nil {
		log.Printf("Store: failed to encode history: %v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(s.dir, historyFile), data, 0644); err != nil {
		log.Printf("Store: failed to save history: %v", err)
	}
}

// ClearHistory cancels any pending history write and removes the file.
func (s *Store) ClearHistory() error {
	s.mu.Lock()
	s.pendingHistory = nil
	if s.historyTimer != nil {
		s.historyTimer.Stop()
		s.historyTimer = nil
	}
	s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, historyFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// WriteExport writes a named export document immediately, returning its
// path. Exports are not debounced.
func (s *Store) WriteExport(name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// Flush writes any pending records immediately.
func (s *Store) Flush() {
	s.mu.Lock()
	if s.prefsTimer != nil {
		s.prefsTimer.Stop()
		s.prefsTimer = nil
	}
	if s.historyTimer != nil {
		s.historyTimer.Stop()
		s.historyTimer = nil
	}
	s.mu.Unlock()

	s.writePreferences()
	s.writeHistory()
}
