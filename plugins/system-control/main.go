// Package main provides a system control plugin for macOS.
// It maps recognized words to volume, brightness and media keys.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Word   string          `json:"word"`
	Config json.RawMessage `json:"config"`
	Params json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the per-binding configuration.
type Config struct {
	// Step is the volume change in percent for volume-up and volume-down.
	Step int `json:"step"`
}

// DefaultStep is the volume step used when a binding sets none.
const DefaultStep = 10

// Media and brightness key codes sent through System Events.
const (
	keyBrightnessDown = 145
	keyBrightnessUp   = 144
	keyPlayPause      = 100
	keyNext           = 101
	keyPrevious       = 98
)

// actionHandler builds the AppleScript for an action.
type actionHandler func(cfg Config) string

var actionHandlers = map[string]actionHandler{
	"volume-up":        func(cfg Config) string { return volumeScript(cfg.Step) },
	"volume-down":      func(cfg Config) string { return volumeScript(-cfg.Step) },
	"volume-mute":      func(Config) string { return muteScript },
	"brightness-up":    func(Config) string { return keyCodeScript(keyBrightnessUp) },
	"brightness-down":  func(Config) string { return keyCodeScript(keyBrightnessDown) },
	"media-play-pause": func(Config) string { return keyCodeScript(keyPlayPause) },
	"media-next":       func(Config) string { return keyCodeScript(keyNext) },
	"media-prev":       func(Config) string { return keyCodeScript(keyPrevious) },
}

const muteScript = `set volume output muted (not (output muted of (get volume settings)))`

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	script, err := scriptFor(req.Action, req.Config)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	if err := runAppleScript(script); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	writeSuccessResponse()
}

// scriptFor resolves the binding config and returns the script for action.
func scriptFor(action string, config json.RawMessage) (string, error) {
	handler, ok := actionHandlers[action]
	if !ok {
		return "", fmt.Errorf("unknown action: %s", action)
	}

	var cfg Config
	if len(config) > 0 && string(config) != "null" {
		if err := json.Unmarshal(config, &cfg); err != nil {
			return "", fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if cfg.Step <= 0 {
		cfg.Step = DefaultStep
	}
	if cfg.Step > 100 {
		cfg.Step = 100
	}

	return handler(cfg), nil
}

// volumeScript changes the output volume by delta percent.
func volumeScript(delta int) string {
	return fmt.Sprintf(`set volume output volume ((output volume of (get volume settings)) + %d)`, delta)
}

// keyCodeScript presses a special key.
func keyCodeScript(code int) string {
	return fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", code)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
