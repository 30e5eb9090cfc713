// Package output writes transcribed text to the clipboard and synthesizes
// the platform paste chord, via github.com/atotto/clipboard and
// github.com/go-vgo/robotgo.
package output

import (
	"fmt"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	"github.com/go-vgo/robotgo"

	"github.com/localcue/dictate/internal/apperr"
)

// backend abstracts the two platform primitives so tests never touch the
// real clipboard or OS input queue.
type backend interface {
	WriteAll(text string) error
	PasteChord() error
}

type realBackend struct{}

func (realBackend) WriteAll(text string) error { return clipboard.WriteAll(text) }

// PasteChord synthesizes Meta+V on macOS, Ctrl+V elsewhere.
func (realBackend) PasteChord() error {
	if runtime.GOOS == "darwin" {
		robotgo.KeyTap("v", "cmd")
	} else {
		robotgo.KeyTap("v", "ctrl")
	}
	return nil
}

// Injector writes text to the clipboard, waits for it to settle, then
// synthesizes the paste keystroke. It never restores the prior clipboard
// content: a restore would race a user-initiated paste.
type Injector struct {
	backend    backend
	pasteDelay time.Duration
}

// New creates a production Injector. pasteDelayMs defaults to 100ms
// if <= 0.
func New(pasteDelayMs int) *Injector {
	return newWithBackend(realBackend{}, pasteDelayMs)
}

func newWithBackend(b backend, pasteDelayMs int) *Injector {
	if pasteDelayMs <= 0 {
		pasteDelayMs = 100
	}
	return &Injector{backend: b, pasteDelay: time.Duration(pasteDelayMs) * time.Millisecond}
}

// Inject writes text to the clipboard and pastes it into the focused
// application. A no-op for empty text.
func (i *Injector) Inject(text string) error {
	if text == "" {
		return nil
	}
	if err := i.backend.WriteAll(text); err != nil {
		return fmt.Errorf("%w: clipboard write: %v", apperr.ErrClipboard, err)
	}
	time.Sleep(i.pasteDelay)
	if err := i.backend.PasteChord(); err != nil {
		return fmt.Errorf("%w: paste chord: %v", apperr.ErrInputSimulation, err)
	}
	return nil
}
