// Package tray provides a macOS system tray interface for the lipread system.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// WordStatus is one vocabulary word with its training progress.
type WordStatus struct {
	Word    string
	Samples int
	Target  int
}

func (s WordStatus) title() string {
	return fmt.Sprintf("%s (%d/%d)", s.Word, s.Samples, s.Target)
}

// Tray represents the macOS system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onTrain    func(word string) error
	onSettings func()
	onQuit     func()
	enabled    bool
	words      []WordStatus
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuLastWord *systray.MenuItem
	menuTraining *systray.MenuItem
	menuWords    map[string]*systray.MenuItem
}

// New creates a new Tray instance listing words under the training menu.
func New(words []WordStatus, enabled bool) *Tray {
	return &Tray{
		enabled:   enabled,
		words:     append([]WordStatus(nil), words...),
		menuWords: make(map[string]*systray.MenuItem),
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnTrain sets the callback run when a word is picked from the training menu.
func (t *Tray) OnTrain(fn func(word string) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTrain = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Lipread")
	systray.SetTooltip("Lipread word recognition")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle lip reading")
	systray.AddSeparator()

	t.menuLastWord = systray.AddMenuItem("Last: none", "Last recognized word")
	t.menuLastWord.Disable()
	systray.AddSeparator()

	t.menuTraining = systray.AddMenuItem("Train", "Record one sample of a word")
	for _, w := range t.words {
		item := t.menuTraining.AddSubMenuItem(w.title(), "Train "+w.Word)
		t.menuWords[w.Word] = item
		go t.watchWord(w.Word, item)
	}
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Lipread")
	toggle := t.menuToggle
	t.mu.Unlock()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-toggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) watchWord(word string, item *systray.MenuItem) {
	for range item.ClickedCh {
		t.handleTrain(word)
	}
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleTrain arms training for word and shows it in the menu.
func (t *Tray) handleTrain(word string) {
	t.mu.RLock()
	callback := t.onTrain
	t.mu.RUnlock()

	if callback == nil {
		return
	}

	title := "Train: " + word + "..."
	if err := callback(word); err != nil {
		title = "Train: " + err.Error()
	}

	t.mu.RLock()
	if t.menuTraining != nil {
		t.menuTraining.SetTitle(title)
	}
	t.mu.RUnlock()
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastWord updates the last recognized word in the menu.
func (t *Tray) SetLastWord(word string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastWord != nil {
		if word == "" {
			t.menuLastWord.SetTitle("Last: none")
		} else {
			t.menuLastWord.SetTitle("Last: " + word)
		}
	}
}

// SetProgress records a word's sample count and resets the training title.
func (t *Tray) SetProgress(status WordStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.words {
		if t.words[i].Word == status.Word {
			t.words[i] = status
		}
	}
	if item, ok := t.menuWords[status.Word]; ok {
		item.SetTitle(status.title())
	}
	if t.menuTraining != nil {
		t.menuTraining.SetTitle("Train")
	}
}

// Words returns the current per-word progress.
func (t *Tray) Words() []WordStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]WordStatus(nil), t.words...)
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}
