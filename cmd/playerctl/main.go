// Package main provides the player control CLI for driving a running
// player over its HTTP API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

var (
	app    = kingpin.New("playerctl", "Control client for the breathflow player")
	server = app.Flag("server", "Player address").Envar("PLAYER_ADDR").Default("http://localhost:8080").String()

	stateCmd = app.Command("state", "Show the current playback state")

	loadCmd  = app.Command("load", "Upload a playlist")
	loadFile = loadCmd.Arg("file", "Playlist JSON file").Required().ExistingFile()

	playPauseCmd = app.Command("play-pause", "Toggle play/pause")
	nextCmd      = app.Command("next", "Skip to the next track")
	previousCmd  = app.Command("previous", "Skip to the previous track")

	selectCmd     = app.Command("select", "Jump to a track")
	selectSection = selectCmd.Arg("section", "Section index").Required().Int()
	selectTrack   = selectCmd.Arg("track", "Track index").Required().Int()

	seekCmd    = app.Command("seek", "Seek within the current track")
	seekOffset = seekCmd.Arg("seconds", "Offset in seconds").Required().Float64()

	advanceCmd = app.Command("auto-advance", "Toggle automatic advance")
	advanceOn  = advanceCmd.Arg("enabled", "true or false").Required().Bool()

	watchCmd = app.Command("watch", "Stream playback events")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case stateCmd.FullCommand():
		showState()
	case loadCmd.FullCommand():
		loadPlaylist(*loadFile)
	case playPauseCmd.FullCommand():
		sendCommand(map[string]any{"action": "play-pause"})
	case nextCmd.FullCommand():
		sendCommand(map[string]any{"action": "next"})
	case previousCmd.FullCommand():
		sendCommand(map[string]any{"action": "previous"})
	case selectCmd.FullCommand():
		sendCommand(map[string]any{"action": "select", "section": *selectSection, "track": *selectTrack})
	case seekCmd.FullCommand():
		sendCommand(map[string]any{"action": "seek", "offset_sec": *seekOffset})
	case advanceCmd.FullCommand():
		sendCommand(map[string]any{"action": "auto-advance", "enabled": *advanceOn})
	case watchCmd.FullCommand():
		watch()
	}
}

// snapshot mirrors the player's state payload; only rendered fields are
// declared.
type snapshot struct {
	Position *struct {
		Section int `json:"section"`
		Track   int `json:"track"`
	} `json:"position"`
	TrackTitle    string  `json:"track_title"`
	State         string  `json:"state"`
	IsPlaying     bool    `json:"is_playing"`
	AutoAdvance   bool    `json:"auto_advance"`
	Elapsed       string  `json:"elapsed"`
	Duration      string  `json:"duration"`
	Transitioning bool    `json:"transitioning"`
	FadeProgress  float64 `json:"fade_progress"`
	Degraded      bool    `json:"degraded"`
}

func showState() {
	resp, err := http.Get(*server + "/api/state")
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer resp.Body.Close()

	var snap snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		fatalf("Error: %v", err)
	}
	printSnapshot(snap)
}

func loadPlaylist(path string) {
	body, err := os.ReadFile(path)
	if err != nil {
		fatalf("Error: %v", err)
	}

	req, err := http.NewRequest(http.MethodPut, *server+"/api/playlist", bytes.NewReader(body))
	if err != nil {
		fatalf("Error: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fatalf("Rejected [%d]: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var result struct {
		Tracks   int      `json:"tracks"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		fatalf("Error: %v", err)
	}
	fmt.Printf("Loaded playlist with %d tracks\n", result.Tracks)
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

func sendCommand(cmd map[string]any) {
	body, err := json.Marshal(cmd)
	if err != nil {
		fatalf("Error: %v", err)
	}

	resp, err := http.Post(*server+"/api/command", "application/json", bytes.NewReader(body))
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fatalf("Rejected [%d]: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var snap snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		fatalf("Error: %v", err)
	}
	printSnapshot(snap)
}

func watch() {
	url := "ws" + strings.TrimPrefix(*server, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer conn.Close()

	fmt.Println("Watching playback events. Press Ctrl+C to exit.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nDisconnecting...")
		conn.Close()
		os.Exit(0)
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			fatalf("Stream error: %v", err)
		}
		var msg struct {
			Event    string   `json:"event"`
			Snapshot snapshot `json:"snapshot"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			fmt.Printf("Unreadable event: %v\n", err)
			continue
		}
		fmt.Printf("\n=== %s ===\n", strings.ToUpper(msg.Event))
		printSnapshot(msg.Snapshot)
	}
}

func printSnapshot(snap snapshot) {
	fmt.Printf("State: %s\n", snap.State)
	if snap.Position == nil {
		return
	}
	fmt.Printf("Track: %s (section %d, track %d)\n", snap.TrackTitle, snap.Position.Section, snap.Position.Track)
	fmt.Printf("Progress: %s / %s\n", snap.Elapsed, snap.Duration)
	fmt.Printf("Playing: %v  Auto-advance: %v\n", snap.IsPlaying, snap.AutoAdvance)
	if snap.Transitioning {
		fmt.Printf("Crossfading: %.0f%%\n", snap.FadeProgress*100)
	}
	if snap.Degraded {
		fmt.Println("Provider degraded: crossfades disabled")
	}
}

func fatalf(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}
