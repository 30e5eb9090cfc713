package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/localcue/dictate/internal/apperr"
)

const targetSampleRate = 16000

var (
	// ErrAlreadyRecording is returned by Start when the engine is not Idle.
	ErrAlreadyRecording = apperr.ErrAudioAlreadyRecording
	// ErrNotRecording is returned by Stop when the engine is not Recording.
	ErrNotRecording = apperr.ErrAudioNotRecording
	// errMicPermissionDenied is reported by the portaudio backend when the
	// OS denies microphone access.
	errMicPermissionDenied = errors.New("microphone access denied")
)

// Config tunes the capture engine's ring capacity and recovery policy.
type Config struct {
	BufferDurationSecs  int // default 60
	SampleRate          int // default 16000 — target rate after resampling
	MaxRecoveryAttempts int // default 3
}

// DefaultConfig returns the standard capture settings: a one-minute ring
// at 16kHz with three recovery attempts.
func DefaultConfig() Config {
	return Config{BufferDurationSecs: 60, SampleRate: targetSampleRate, MaxRecoveryAttempts: 3}
}

func (c Config) ringCapacity() int {
	return c.BufferDurationSecs * c.SampleRate
}

// command variants posted onto the capture thread's command channel. FIFO
// delivery through a single channel is what gives Start/Stop/Shutdown
// their ordering guarantee.
type startCmd struct {
	deviceID string
	reply    chan error
}

type stopCmd struct {
	reply chan stopResult
}

type stopResult struct {
	buf *Buffer
	err error
}

type recoverCmd struct {
	reply chan error
}

type shutdownCmd struct{}

// Engine is the capture subsystem's public facade. One dedicated goroutine
// owns the non-movable native stream and the ring consumer; everything
// else — including this struct's own methods — talks to that goroutine
// only through cmdCh.
type Engine struct {
	cfg   Config
	cmdCh chan any
	wg    sync.WaitGroup

	state             *AtomicState
	level             atomic.Uint32 // bit pattern of the latest RMS float32, relaxed reads
	startedAtUnixNano atomic.Int64

	events *broadcaster

	mu             sync.Mutex
	selectedDevice string

	// newBackend and probe are swapped out by tests; production engines use
	// the portaudio backend and findDevice.
	newBackend func() backend
	probe      func(id string) (string, error)
}

// NewEngine creates a capture engine backed by the real PortAudio device and
// spawns its dedicated capture thread.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		cfg:        cfg,
		cmdCh:      make(chan any, 8),
		state:      NewAtomicState(),
		events:     newBroadcaster(),
		newBackend: func() backend { return newPortaudioBackend() },
		probe:      probeDevice,
	}
	e.wg.Add(1)
	go e.loop()
	return e
}

// newEngineWithBackend is used by tests to inject a fake backend and device
// probe.
func newEngineWithBackend(cfg Config, factory func() backend, probe func(id string) (string, error)) *Engine {
	e := &Engine{
		cfg:        cfg,
		cmdCh:      make(chan any, 8),
		state:      NewAtomicState(),
		events:     newBroadcaster(),
		newBackend: factory,
		probe:      probe,
	}
	e.wg.Add(1)
	go e.loop()
	return e
}

// Start opens the selected (or default) input device and begins recording.
// It returns only after the native stream is actually running.
func (e *Engine) Start(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case e.cmdCh <- startCmd{deviceID: e.selected(), reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop stops the stream and returns the sealed PCM buffer.
func (e *Engine) Stop(ctx context.Context) (*Buffer, error) {
	reply := make(chan stopResult, 1)
	select {
	case e.cmdCh <- stopCmd{reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.buf, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Recover attempts device recovery after DeviceLost or Error.
func (e *Engine) Recover(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case e.cmdCh <- recoverCmd{reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown posts a shutdown command and joins the capture thread.
func (e *Engine) Shutdown() {
	e.cmdCh <- shutdownCmd{}
	e.wg.Wait()
	e.events.close()
}

// ListInputDevices enumerates available input devices.
func (e *Engine) ListInputDevices() ([]Device, error) { return ListInputDevices() }

// SelectInputDevice sets the device used by the next Start call. A nil id
// resets to the system default.
func (e *Engine) SelectInputDevice(id *string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id == nil {
		e.selectedDevice = ""
	} else {
		e.selectedDevice = *id
	}
}

func (e *Engine) selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedDevice
}

// Subscribe returns a channel of future AudioEvents. Safe from any context.
func (e *Engine) Subscribe() <-chan Event { return e.events.subscribe() }

// CurrentLevel returns the latest RMS level in [0,1]. Lock-free, safe from
// any context — readers (a ~30Hz UI poll) must never block the audio
// callback, hence the atomic bit-pattern encoding.
func (e *Engine) CurrentLevel() float32 {
	return math.Float32frombits(e.level.Load())
}

// CurrentDuration returns the time elapsed since the last successful Start,
// or 0 if idle.
func (e *Engine) CurrentDuration() time.Duration {
	start := e.startedAtUnixNano.Load()
	if start == 0 {
		return 0
	}
	return time.Since(time.Unix(0, start))
}

// State returns the current audio state. Non-suspending, safe from any
// context.
func (e *Engine) State() State { return e.state.Load() }

// loop is the body of the dedicated capture thread. It owns the native
// backend and ring consumer exclusively; every external interaction comes
// in through cmdCh.
func (e *Engine) loop() {
	defer e.wg.Done()

	var (
		be          backend
		ringBuf     *ring
		levelWindow int
		pumpDone    chan struct{}
	)

	for cmd := range e.cmdCh {
		switch c := cmd.(type) {
		case startCmd:
			if e.state.Load() != StateIdle {
				c.reply <- ErrAlreadyRecording
				continue
			}
			be = e.newBackend()
			nativeRate, channels, err := be.Open(c.deviceID)
			if err != nil {
				c.reply <- err
				continue
			}
			if err := be.Start(); err != nil {
				be.Close() //nolint:errcheck
				c.reply <- err
				continue
			}
			ringBuf = newRing(e.cfg.ringCapacity())
			// The level meter windows over post-resample samples, so 100ms
			// of audio is a tenth of the target rate, not the device rate.
			levelWindow = e.cfg.SampleRate / 10

			from := e.state.Load()
			e.state.Store(StateRecording)
			e.startedAtUnixNano.Store(time.Now().UnixNano())
			e.events.publish(Event{Kind: EventStateChanged, From: from, To: StateRecording})

			pumpDone = make(chan struct{})
			go func(be backend, ringBuf *ring, done chan struct{}) {
				defer close(done)
				e.pump(be, ringBuf, nativeRate, channels, levelWindow)
			}(be, ringBuf, pumpDone)
			c.reply <- nil

		case stopCmd:
			if e.state.Load() != StateRecording {
				c.reply <- stopResult{err: ErrNotRecording}
				continue
			}
			if err := be.Stop(); err != nil {
				c.reply <- stopResult{err: err}
				continue
			}
			// Stop closed the frame channel; wait for the pump to flush any
			// frames still in flight before draining, so the returned buffer
			// holds every sample the callback produced.
			<-pumpDone
			be.Close() //nolint:errcheck
			samples := ringBuf.drain()
			buf := NewBuffer(e.cfg.SampleRate)
			buf.PushSamples(samples)

			e.level.Store(0)
			from := e.state.Load()
			e.state.Store(StateIdle)
			e.startedAtUnixNano.Store(0)
			e.events.publish(Event{Kind: EventStateChanged, From: from, To: StateIdle})
			c.reply <- stopResult{buf: buf}

		case recoverCmd:
			c.reply <- e.recover()

		case shutdownCmd:
			return
		}
	}
}

// pump reads frames from the backend, downmixes+resamples them into the
// ring, and publishes level updates. It exits when the backend's Frames
// channel closes (on Stop) or an Errors event reports device loss.
func (e *Engine) pump(be backend, ringBuf *ring, nativeRate, channels, levelWindow int) {
	frames := be.Frames()
	errs := be.Errors()
	var scratch []int16
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			mono := downmixFloat32(frame, channels)
			resampled := resampleLinear(mono, nativeRate, e.cfg.SampleRate)
			ringBuf.push(resampled)

			scratch = append(scratch, resampled...)
			if levelWindow <= 0 {
				levelWindow = e.cfg.SampleRate / 10
			}
			for len(scratch) >= levelWindow {
				window := scratch[:levelWindow]
				level := rms(window)
				e.level.Store(math.Float32bits(level))
				e.events.publish(Event{Kind: EventLevelUpdate, Level: level})
				scratch = scratch[levelWindow:]
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			if e.state.Load() == StateRecording {
				name := be.DeviceName()
				e.state.Store(StateDeviceLost)
				e.events.publish(Event{Kind: EventStateChanged, From: StateRecording, To: StateDeviceLost})
				e.events.publish(Event{Kind: EventDeviceLost, DeviceName: name})
				e.events.publish(Event{Kind: EventError, Message: err.Error()})
				// The stream is dead; release the native handle here. The
				// command loop won't touch it again — a Stop in DeviceLost
				// fails NotRecording before reaching the backend.
				be.Close() //nolint:errcheck
			}
			return
		}
	}
}

// recover implements the exponential-backoff reconnection protocol. It
// must be called from the capture loop goroutine so state transitions stay
// serialized with Start/Stop.
func (e *Engine) recover() error {
	from := e.state.Load()
	if from != StateDeviceLost && from != StateError {
		return &apperr.AudioStateTransitionError{From: from.String(), To: StateRecovering.String()}
	}
	e.state.Store(StateRecovering)
	e.events.publish(Event{Kind: EventStateChanged, From: from, To: StateRecovering})

	deviceID := e.selected()
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRecoveryAttempts; attempt++ {
		delay := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
		time.Sleep(delay)

		name, err := e.probe(deviceID)
		if err != nil {
			lastErr = err
			continue
		}
		e.state.Store(StateIdle)
		e.events.publish(Event{Kind: EventRecoverySuccess, DeviceName: name})
		e.events.publish(Event{Kind: EventStateChanged, From: StateRecovering, To: StateIdle})
		return nil
	}

	e.state.Store(StateError)
	e.events.publish(Event{Kind: EventRecoveryFailed, Attempts: e.cfg.MaxRecoveryAttempts, LastError: lastErr})
	e.events.publish(Event{Kind: EventStateChanged, From: StateRecovering, To: StateError})
	return fmt.Errorf("%w: recovery exhausted after %d attempts: %v", apperr.ErrAudio, e.cfg.MaxRecoveryAttempts, lastErr)
}
