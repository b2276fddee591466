// Package main provides a keyboard plugin for macOS.
// It types recognized words and sends keystrokes via AppleScript.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
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

// KeystrokeParams defines the key of a keystroke or shortcut action. It is
// read from the binding config; request params override it.
type KeystrokeParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// TypeConfig is the per-binding configuration of the type action.
type TypeConfig struct {
	// Suffix is typed after the word, e.g. " " or "\n".
	Suffix string `json:"suffix"`
	// Capitalize upper-cases the first letter of the word.
	Capitalize bool `json:"capitalize"`
}

// modifierMap maps user-friendly modifier names to AppleScript equivalents.
var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

func main() {
	// Read request from stdin
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	// Handle keystroke and shortcut actions
	switch req.Action {
	case "type":
		if err := handleType(req.Word, req.Config); err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
	case "keystroke", "shortcut":
		if err := handleKeystroke(req.Action, req.Config, req.Params); err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	// Write success response
	writeSuccessResponse()
}

// handleType types word into the focused application.
func handleType(word string, config json.RawMessage) error {
	if word == "" {
		return fmt.Errorf("word is required")
	}

	var cfg TypeConfig
	if len(config) > 0 {
		if err := json.Unmarshal(config, &cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}

	text := word
	if cfg.Capitalize {
		text = strings.ToUpper(text[:1]) + text[1:]
	}
	text += cfg.Suffix

	return runAppleScript(buildTypeScript(text))
}

// buildTypeScript generates an AppleScript that types text literally.
func buildTypeScript(text string) string {
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, escapeAppleScript(text))
}

// escapeAppleScript escapes backslashes and quotes for an AppleScript string literal.
func escapeAppleScript(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// handleKeystroke presses the key configured for a keystroke or shortcut binding.
func handleKeystroke(action string, config, params json.RawMessage) error {
	script, err := keystrokeScript(action, config, params)
	if err != nil {
		return err
	}
	return runAppleScript(script)
}

// keystrokeScript resolves the key settings and builds the script.
// A shortcut needs at least one modifier.
func keystrokeScript(action string, config, params json.RawMessage) (string, error) {
	var p KeystrokeParams
	for _, raw := range []json.RawMessage{config, params} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return "", fmt.Errorf("failed to parse key settings: %w", err)
		}
	}

	if p.Key == "" {
		return "", fmt.Errorf("key is required")
	}
	if action == "shortcut" && len(p.Modifiers) == 0 {
		return "", fmt.Errorf("shortcut needs at least one modifier")
	}

	return buildKeystrokeScript(escapeAppleScript(p.Key), p.Modifiers), nil
}

// buildKeystrokeScript generates an AppleScript for the given key and modifiers.
func buildKeystrokeScript(key string, modifiers []string) string {
	if len(modifiers) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key)
	}

	// Convert modifiers to AppleScript format
	var appleModifiers []string
	for _, mod := range modifiers {
		if appleMod, ok := modifierMap[strings.ToLower(mod)]; ok {
			appleModifiers = append(appleModifiers, appleMod)
		}
	}

	if len(appleModifiers) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key)
	}

	modifierList := strings.Join(appleModifiers, ", ")
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s" using {%s}`, key, modifierList)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	resp := Response{
		Success: true,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
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
