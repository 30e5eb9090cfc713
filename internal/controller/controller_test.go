package controller

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/localcue/dictate/internal/audio"
	"github.com/localcue/dictate/internal/config"
	"github.com/localcue/dictate/internal/hardware"
	"github.com/localcue/dictate/internal/privacy"
	"github.com/localcue/dictate/internal/transcribe"
)

type fakeCapture struct {
	mu        sync.Mutex
	state     audio.State
	startErr  error
	stopBuf   *audio.Buffer
	stopErr   error
	startGate chan struct{} // when non-nil, Start blocks until it is closed
}

func (f *fakeCapture) Start(ctx context.Context) error {
	if f.startGate != nil {
		<-f.startGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.state = audio.StateRecording
	return nil
}

func (f *fakeCapture) Stop(ctx context.Context) (*audio.Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	f.state = audio.StateIdle
	return f.stopBuf, nil
}

func (f *fakeCapture) Recover(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = audio.StateIdle
	return nil
}

func (f *fakeCapture) Shutdown()                                      {}
func (f *fakeCapture) ListInputDevices() ([]audio.Device, error)      { return nil, nil }
func (f *fakeCapture) SelectInputDevice(id *string)                   {}
func (f *fakeCapture) Subscribe() <-chan audio.Event                  { return make(chan audio.Event) }
func (f *fakeCapture) CurrentLevel() float32                          { return 0 }
func (f *fakeCapture) CurrentDuration() time.Duration                 { return 0 }
func (f *fakeCapture) State() audio.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

type fakeTranscriber struct {
	result transcribe.Result
	err    error
}

func (f *fakeTranscriber) LoadModel(ctx context.Context, path string) error { return nil }
func (f *fakeTranscriber) UnloadModel(ctx context.Context)                 {}
func (f *fakeTranscriber) IsModelLoaded() bool                             { return true }
func (f *fakeTranscriber) Transcribe(ctx context.Context, buf *audio.Buffer, cfg transcribe.TranscribeConfig) (transcribe.Result, error) {
	return f.result, f.err
}
func (f *fakeTranscriber) Capabilities() transcribe.Capabilities { return transcribe.Capabilities{} }
func (f *fakeTranscriber) Shutdown()                             {}

type fakeOutput struct {
	injected string
	err      error
}

func (f *fakeOutput) Inject(text string) error {
	f.injected = text
	return f.err
}

func testController(capture *fakeCapture, tr *fakeTranscriber, out *fakeOutput) *Controller {
	logger := log.New(io.Discard)
	return newController(config.Default(), nil, nil, capture, hardware.Profile{}, nil, tr, out, logger)
}

func TestToggleIdleStartsRecording(t *testing.T) {
	ce := &fakeCapture{state: audio.StateIdle}
	c := testController(ce, &fakeTranscriber{}, &fakeOutput{})

	res, err := c.Toggle(context.Background())
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if res.Kind != ToggleStarted {
		t.Errorf("Kind = %v; want ToggleStarted", res.Kind)
	}
	if ce.State() != audio.StateRecording {
		t.Errorf("capture state = %v; want Recording", ce.State())
	}
}

func TestToggleRecordingStopsTranscribesAndInjects(t *testing.T) {
	buf := audio.NewBuffer(16000)
	ce := &fakeCapture{state: audio.StateRecording, stopBuf: buf}
	tr := &fakeTranscriber{result: transcribe.Result{Text: "hello world"}}
	out := &fakeOutput{}
	c := testController(ce, tr, out)

	res, err := c.Toggle(context.Background())
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if res.Kind != ToggleCompleted {
		t.Errorf("Kind = %v; want ToggleCompleted", res.Kind)
	}
	if res.Text == nil || *res.Text != "hello world" {
		t.Errorf("Text = %v; want hello world", res.Text)
	}
	if out.injected != "hello world" {
		t.Errorf("injected = %q; want hello world", out.injected)
	}
}

func TestToggleEmptyTranscriptionSkipsInject(t *testing.T) {
	buf := audio.NewBuffer(16000)
	ce := &fakeCapture{state: audio.StateRecording, stopBuf: buf}
	tr := &fakeTranscriber{result: transcribe.Result{Text: ""}}
	out := &fakeOutput{}
	c := testController(ce, tr, out)

	res, err := c.Toggle(context.Background())
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if res.Kind != ToggleCompleted || res.Text != nil {
		t.Errorf("got %+v; want Completed with nil text", res)
	}
	if out.injected != "" {
		t.Error("expected no injection for empty transcription")
	}
}

func TestToggleInjectFailureSurfacesErrorButStateStaysIdle(t *testing.T) {
	buf := audio.NewBuffer(16000)
	ce := &fakeCapture{state: audio.StateRecording, stopBuf: buf}
	tr := &fakeTranscriber{result: transcribe.Result{Text: "hello"}}
	out := &fakeOutput{err: errors.New("no accessibility permission")}
	c := testController(ce, tr, out)

	_, err := c.Toggle(context.Background())
	if err == nil {
		t.Fatal("expected error when injection fails")
	}
	if ce.State() != audio.StateIdle {
		t.Errorf("capture state = %v; want Idle (Stop already transitioned before inject ran)", ce.State())
	}
}

func TestToggleDeviceLostIsRejected(t *testing.T) {
	ce := &fakeCapture{state: audio.StateDeviceLost}
	c := testController(ce, &fakeTranscriber{}, &fakeOutput{})

	if _, err := c.Toggle(context.Background()); err == nil {
		t.Error("expected error for DeviceLost state")
	}
}

func TestToggleErrorStateIsRejected(t *testing.T) {
	ce := &fakeCapture{state: audio.StateError}
	c := testController(ce, &fakeTranscriber{}, &fakeOutput{})

	if _, err := c.Toggle(context.Background()); err == nil {
		t.Error("expected error for Error state")
	}
}

func TestToggleConcurrentCallsYieldExactlyOneSuccess(t *testing.T) {
	// The winning call is held inside Start by the gate until every loser
	// has been rejected, so exactly one invocation can ever be running.
	gate := make(chan struct{})
	ce := &fakeCapture{state: audio.StateIdle, startGate: gate}
	c := testController(ce, &fakeTranscriber{}, &fakeOutput{})

	const n = 20
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := c.Toggle(context.Background())
			results <- err
		}()
	}

	var conflicts int
	for conflicts < n-1 {
		err := <-results
		if !errors.Is(err, ErrToggleInProgress) {
			t.Fatalf("loser returned %v; want ErrToggleInProgress", err)
		}
		conflicts++
	}
	close(gate)
	if err := <-results; err != nil {
		t.Fatalf("winning Toggle: %v", err)
	}
	if ce.State() != audio.StateRecording {
		t.Errorf("capture state = %v; want Recording", ce.State())
	}
}

func TestUpdateConfigAppliesPrivacyImmediately(t *testing.T) {
	// UpdateConfig persists via cfgStore, so skip the store when nil isn't
	// viable; use a throwaway store pointed at a temp dir instead.
	dir := t.TempDir()
	store := config.NewStore(dir)
	guard := privacy.New(false, nil)
	ce := &fakeCapture{state: audio.StateIdle}
	c := newController(config.Default(), store, guard, ce, hardware.Profile{}, nil, &fakeTranscriber{}, &fakeOutput{}, log.New(io.Discard))

	newCfg := config.Default()
	newCfg.Privacy.LocalOnly = true
	if err := c.UpdateConfig(newCfg); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if !guard.IsLocalOnly() {
		t.Error("expected guard.IsLocalOnly() true after UpdateConfig")
	}
}
