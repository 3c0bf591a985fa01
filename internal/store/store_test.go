// ABOUTME: Tests for the JSON preference and history store
// ABOUTME: Covers defaults, debounced writes, caps, clearing and flush
package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evelyn-voice/evelyn-go/internal/transcript"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	// Short debounce windows so tests do not sleep for real durations.
	s.prefsDelay = 10 * time.Millisecond
	s.historyDelay = 10 * time.Millisecond
	return s
}

func TestLoadPreferencesDefaults(t *testing.T) {
	s := newTestStore(t)

	prefs := s.LoadPreferences()
	if prefs.SelectedVoice != "Kore" {
		t.Errorf("expected default voice Kore, got %s", prefs.SelectedVoice)
	}
	if prefs.SelectedPersonality != "supportive" {
		t.Errorf("expected default personality supportive, got %s", prefs.SelectedPersonality)
	}
	if prefs.Volume != 1 {
		t.Errorf("expected default volume 1, got %v", prefs.Volume)
	}
}

func TestSavePreferencesDebounced(t *testing.T) {
	s := newTestStore(t)

	prefs := DefaultPreferences()
	prefs.SelectedVoice = "Zephyr"
	prefs.Volume = 0.5
	s.SavePreferences(prefs)

	// Not yet on disk.
	if _, err := os.Stat(filepath.Join(s.dir, preferencesFile)); !os.IsNotExist(err) {
		t.Error("expected write to be deferred")
	}

	waitFor(t, func() bool {
		_, err := os.Stat(filepath.Join(s.dir, preferencesFile))
		return err == nil
	})

	loaded := s.LoadPreferences()
	if loaded.SelectedVoice != "Zephyr" || loaded.Volume != 0.5 {
		t.Errorf("unexpected loaded preferences: %+v", loaded)
	}
}

func TestSavePreferencesCoalesces(t *testing.T) {
	s := newTestStore(t)

	for _, voice := range []string{"Zephyr", "Puck", "Charon"} {
		prefs := DefaultPreferences()
		prefs.SelectedVoice = voice
		s.SavePreferences(prefs)
	}

	waitFor(t, func() bool {
		_, err := os.Stat(filepath.Join(s.dir, preferencesFile))
		return err == nil
	})

	if got := s.LoadPreferences().SelectedVoice; got != "Charon" {
		t.Errorf("expected last save to win, got %s", got)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	s := newTestStore(t)

	entries := []transcript.Entry{
		{Speaker: transcript.SpeakerUser, Text: "hello", Timestamp: 1},
		{Speaker: transcript.SpeakerEvelyn, Text: "hi", Timestamp: 2},
	}
	s.SaveHistory(entries)
	s.Flush()

	loaded := s.LoadHistory()
	if len(loaded) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(loaded))
	}
	if loaded[0].Text != "hello" || loaded[1].Speaker != transcript.SpeakerEvelyn {
		t.Errorf("unexpected history: %+v", loaded)
	}
}

func TestHistoryCapped(t *testing.T) {
	s := newTestStore(t)

	entries := make([]transcript.Entry, transcript.MaxEntries+30)
	for i := range entries {
		entries[i] = transcript.Entry{Speaker: transcript.SpeakerUser, Timestamp: int64(i)}
	}
	s.SaveHistory(entries)
	s.Flush()

	loaded := s.LoadHistory()
	if len(loaded) != transcript.MaxEntries {
		t.Fatalf("expected history capped at %d, got %d", transcript.MaxEntries, len(loaded))
	}
	if loaded[0].Timestamp != 30 {
		t.Errorf("expected oldest surviving timestamp 30, got %d", loaded[0].Timestamp)
	}
}

func TestClearHistory(t *testing.T) {
	s := newTestStore(t)

	s.SaveHistory([]transcript.Entry{{Speaker: transcript.SpeakerUser, Text: "x"}})
	s.Flush()

	if err := s.ClearHistory(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if got := s.LoadHistory(); got != nil {
		t.Errorf("expected empty history after clear, got %v", got)
	}

	// Clearing an already-empty store is fine.
	if err := s.ClearHistory(); err != nil {
		t.Errorf("expected second clear to succeed, got %v", err)
	}
}

func TestClearCancelsPendingWrite(t *testing.T) {
	s := newTestStore(t)

	s.SaveHistory([]transcript.Entry{{Speaker: transcript.SpeakerUser, Text: "x"}})
	if err := s.ClearHistory(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if got := s.LoadHistory(); got != nil {
		t.Errorf("expected pending write cancelled, got %v", got)
	}
}

func TestFlushWritesImmediately(t *testing.T) {
	s := newTestStore(t)
	s.prefsDelay = time.Hour
	s.historyDelay = time.Hour

	prefs := DefaultPreferences()
	prefs.Volume = 0.25
	s.SavePreferences(prefs)
	s.SaveHistory([]transcript.Entry{{Speaker: transcript.SpeakerEvelyn, Text: "bye"}})

	s.Flush()

	if got := s.LoadPreferences().Volume; got != 0.25 {
		t.Errorf("expected flushed volume 0.25, got %v", got)
	}
	if got := s.LoadHistory(); len(got) != 1 {
		t.Errorf("expected flushed history, got %v", got)
	}
}

func TestWriteExport(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	path, err := s.WriteExport("transcript-abc.json", []byte(`{"conversation":"abc"}`))
	if err != nil {
		t.Fatalf("write export failed: %v", err)
	}
	if path != filepath.Join(dir, "transcript-abc.json") {
		t.Errorf("unexpected export path: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"conversation":"abc"}` {
		t.Errorf("unexpected export contents: %s", data)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}
