// Package shortcut wraps golang.design/x/hotkey behind a tiny Listener
// fixed to a single chord (Alt+Space). No combo parsing exists because the
// chord never changes; a host shell that wants its own binding registers
// it itself and calls the controller directly.
package shortcut

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.design/x/hotkey"
)

// ErrConflict is returned when Alt+Space is already registered by another
// application.
var ErrConflict = errors.New("shortcut: Alt+Space already registered by another application")

// backend abstracts golang.design/x/hotkey so tests never spawn real CGo
// event-monitor goroutines.
type backend interface {
	Register() error
	Unregister() error
	Keydown() <-chan struct{}
}

type realBackend struct {
	hk    *hotkey.Hotkey
	keyCh chan struct{}
	once  sync.Once
}

func newRealBackend() *realBackend {
	return &realBackend{hk: hotkey.New([]hotkey.Modifier{hotkey.ModOption}, hotkey.KeySpace)}
}

func (r *realBackend) Register() error {
	if err := r.hk.Register(); err != nil {
		r.hk.Unregister() //nolint:errcheck
		return ErrConflict
	}
	r.keyCh = make(chan struct{}, 4)
	src := r.hk.Keydown()
	go func() {
		for range src {
			select {
			case r.keyCh <- struct{}{}:
			default:
			}
		}
		r.once.Do(func() { close(r.keyCh) })
	}()
	return nil
}

func (r *realBackend) Unregister() error { return r.hk.Unregister() }
func (r *realBackend) Keydown() <-chan struct{} { return r.keyCh }

// Listener registers the fixed Alt+Space chord and calls onTrigger each
// time it fires, until Stop is called.
type Listener struct {
	backend    backend
	registered atomic.Bool
	doneCh     chan struct{}
	cancel     context.CancelFunc

	newBackend func() backend
}

// New creates a Listener backed by the real OS hotkey API.
func New() *Listener {
	return newWithBackend(func() backend { return newRealBackend() })
}

func newWithBackend(factory func() backend) *Listener {
	return &Listener{newBackend: factory}
}

// Combo returns the fixed chord's display string. No parsing API is
// exposed; the backend never acts on a user-supplied combo string.
func (l *Listener) Combo() string { return "alt+space" }

// Start registers the chord and begins listening on a background
// goroutine. onTrigger is invoked on that goroutine once per keypress the
// backend delivers; calls never overlap, so a slow onTrigger delays the
// handling of later keypresses.
func (l *Listener) Start(ctx context.Context, onTrigger func()) error {
	l.backend = l.newBackend()
	if err := l.backend.Register(); err != nil {
		return err
	}
	l.registered.Store(true)

	listenCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	doneCh := make(chan struct{})
	l.doneCh = doneCh
	keydown := l.backend.Keydown()
	be := l.backend

	go func() {
		defer func() {
			be.Unregister() //nolint:errcheck
			l.registered.Store(false)
			close(doneCh)
		}()
		for {
			select {
			case <-listenCtx.Done():
				return
			case _, ok := <-keydown:
				if !ok {
					return
				}
				onTrigger()
			}
		}
	}()
	return nil
}

// Stop unregisters the chord and waits for the listen goroutine to exit.
func (l *Listener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	if l.doneCh != nil {
		<-l.doneCh
	}
}

// IsRegistered reports whether the chord is currently registered.
func (l *Listener) IsRegistered() bool { return l.registered.Load() }
