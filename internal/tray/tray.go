// Package tray provides the menu bar interface for the camera recognizer.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/fingerspell/internal/practice"
	"github.com/ayusman/fingerspell/internal/session"
)

// Tray shows the current letter and drill progress in the system tray.
type Tray struct {
	onToggle   func(enabled bool)
	onSettings func()
	onQuit     func()
	enabled    bool
	mu         sync.RWMutex

	menuToggle   *systray.MenuItem
	menuLetter   *systray.MenuItem
	menuPractice *systray.MenuItem
}

// New creates a Tray in the enabled state.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback for the enable/disable item.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback for the settings item.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback run before the tray quits.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops the tray loop.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Fingerspell")
	systray.SetTooltip("Fingerspell letter recognition")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle letter recognition")
	systray.AddSeparator()

	t.menuLetter = systray.AddMenuItem(letterTitle(""), "Currently held letter")
	t.menuLetter.Disable()
	t.menuPractice = systray.AddMenuItem("Practice: off", "Current practice target")
	t.menuPractice.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Fingerspell")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
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

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(toggleTitle(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Update shows a session update. It is safe to call before the menu exists.
func (t *Tray) Update(u session.Update) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLetter != nil {
		t.menuLetter.SetTitle(letterTitle(u.Detection.Letter))
	}
	if t.menuPractice != nil && u.Practice != nil {
		t.menuPractice.SetTitle(practiceTitle(*u.Practice))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func letterTitle(letter string) string {
	if letter == "" {
		return "Letter: none"
	}
	return "Letter: " + letter
}

func practiceTitle(p practice.Progress) string {
	s := fmt.Sprintf("Practice: %s (%d done)", p.Target, p.Completed)
	if p.Hint != "" {
		s += " - " + p.Hint
	}
	return s
}
