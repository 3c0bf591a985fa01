// ABOUTME: Entry point for the Evelyn session endpoint
// ABOUTME: Serves the API key to clients and a health check
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
)

var (
	addr = flag.String("addr", ":3001", "Listen address")
)

type sessionRequest struct {
	Action string `json:"action"`
}

func main() {
	flag.Parse()

	_ = godotenv.Load()

	if os.Getenv("GEMINI_API_KEY") == "" {
		log.Printf("Warning: GEMINI_API_KEY is not set; /api/session will fail")
	}

	log.Printf("Session endpoint listening on %s", *addr)
	log.Printf("Press Ctrl-C to stop")

	server := &http.Server{
		Addr:         *addr,
		Handler:      newMux(os.Getenv),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// newMux builds the HTTP routes. getenv is injectable for tests.
func newMux(getenv func(string) string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
		// Browser clients preflight the POST.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
			return
		}

		apiKey := getenv("GEMINI_API_KEY")
		if apiKey == "" {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "API key not configured"})
			return
		}

		var req sessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Action != "getApiKey" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid action"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"apiKey": apiKey})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}
