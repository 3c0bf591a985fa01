// ABOUTME: Entry point for the Evelyn voice companion client
// ABOUTME: Parses CLI flags, wires the engine and runs the TUI
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/evelyn-voice/evelyn-go/internal/audio"
	"github.com/evelyn-voice/evelyn-go/internal/config"
	"github.com/evelyn-voice/evelyn-go/internal/credentials"
	"github.com/evelyn-voice/evelyn-go/internal/persona"
	"github.com/evelyn-voice/evelyn-go/internal/pipeline"
	"github.com/evelyn-voice/evelyn-go/internal/player"
	"github.com/evelyn-voice/evelyn-go/internal/store"
	"github.com/evelyn-voice/evelyn-go/internal/transcript"
	"github.com/evelyn-voice/evelyn-go/internal/ui"
	"github.com/evelyn-voice/evelyn-go/internal/version"
)

var (
	endpoint   = flag.String("endpoint", "", "Session endpoint base URL (overrides config)")
	configPath = flag.String("config", "", "Config file path (default: user config dir)")
	logFile    = flag.String("log-file", "evelyn.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs = flag.Bool("stream-logs", false, "Alias for -no-tui")
)

func main() {
	flag.Parse()

	// Local .env keeps GEMINI_API_KEY out of the shell profile.
	_ = godotenv.Load()

	useTUI := !(*noTUI || *streamLogs)

	cfg := loadConfig()
	if *endpoint != "" {
		cfg.Session.Endpoint = *endpoint
	}

	logPath := *logFile
	if cfg.Logging.File != "" && !isFlagSet("log-file") {
		logPath = cfg.Logging.File
	}
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s %s", version.Product, version.Version)

	dataDir, err := store.DefaultDir()
	if err != nil {
		log.Fatalf("Failed to locate data directory: %v", err)
	}
	st, err := store.New(dataDir)
	if err != nil {
		log.Fatalf("Failed to open data store: %v", err)
	}

	sink, err := player.NewOtoSink(audio.OutputFormat())
	if err != nil {
		log.Fatalf("Failed to open audio output: %v", err)
	}

	var tuiProg *tea.Program
	var control *ui.Control

	sendTUI := func(msg tea.Msg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	engine := pipeline.New(pipeline.Config{
		Credentials:    credentials.NewClient(cfg.Session.Endpoint),
		Store:          st,
		Sink:           sink,
		Model:          cfg.Session.Model,
		CaptureBackend: cfg.Capture.Backend,
		OnStatus: func(state pipeline.State, status string) {
			if !useTUI {
				log.Printf("Status: %s", status)
			}
			sendTUI(ui.StatusMsg{State: state, Status: status})
		},
		OnTranscript: func(entries []transcript.Entry) {
			for _, e := range entries {
				log.Printf("Transcript [%s]: %s", e.Speaker, e.Text)
			}
			sendTUI(ui.TranscriptMsg(entries))
		},
		OnSpeaking: func(speaking bool) {
			sendTUI(ui.SpeakingMsg(speaking))
		},
		OnLevel: func(level float64) {
			sendTUI(ui.LevelMsg(level))
		},
	})

	if useTUI {
		control = ui.NewControl()
		prefs := engine.Preferences()
		model := ui.NewModel(control,
			persona.VoiceByName(prefs.SelectedVoice).Label,
			persona.PersonalityByID(prefs.SelectedPersonality).Label,
			int(prefs.Volume*100))
		tuiProg = ui.Run(model)
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		go handleControl(engine, control, sendTUI)

		// Seed the tail with persisted history.
		if history := engine.History(); len(history) > 0 {
			sendTUI(ui.TranscriptMsg(history))
		}
	} else {
		// Headless mode talks immediately.
		go func() {
			if err := engine.Start(context.Background()); err != nil {
				log.Printf("Start failed: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if control != nil {
		select {
		case <-control.Quit:
			log.Printf("Received quit from TUI")
		case <-sigChan:
			log.Printf("Shutdown signal received")
		}
	} else {
		<-sigChan
		log.Printf("Shutdown signal received")
	}

	engine.Close()
	log.Printf("%s stopped", version.Product)
}

// handleControl applies TUI intents to the engine.
func handleControl(engine *pipeline.Engine, control *ui.Control, sendTUI func(tea.Msg)) {
	for {
		select {
		case <-control.Toggle:
			switch engine.State() {
			case pipeline.StateIdle, pipeline.StateError:
				go func() {
					if err := engine.Start(context.Background()); err != nil {
						log.Printf("Start failed: %v", err)
					}
				}()
			default:
				engine.Stop()
			}
		case volume := <-control.Volume:
			engine.SetVolume(volume)
		case <-control.CycleVoice:
			v := engine.CycleVoice()
			sendTUI(ui.PrefsMsg{VoiceLabel: v.Label, Volume: -1})
		case <-control.CyclePersonality:
			p := engine.CyclePersonality()
			sendTUI(ui.PrefsMsg{PersonalityLabel: p.Label, Volume: -1})
		case <-control.ClearHistory:
			if err := engine.ClearHistory(); err != nil {
				log.Printf("Clear history failed: %v", err)
			}
		case <-control.Export:
			path, err := engine.ExportTranscript(time.Now())
			if err != nil {
				log.Printf("Export failed: %v", err)
			} else {
				sendTUI(ui.StatusMsg{State: engine.State(), Status: "Transcript saved to " + path})
			}
		}
	}
}

func loadConfig() *config.Config {
	path := *configPath
	if path == "" {
		var err error
		path, err = config.Path()
		if err != nil {
			log.Printf("Config: %v, using defaults", err)
			return config.Default()
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Printf("Config: %v, using defaults", err)
		return config.Default()
	}
	return cfg
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
