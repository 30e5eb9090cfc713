// Package controller composes every component under the single "toggle"
// operation: start recording from Idle, or stop, transcribe, and inject
// from Recording. An atomic compare-and-swap guards the compound operation
// against reentry from concurrent callers, not just a single hotkey
// goroutine.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/localcue/dictate/internal/audio"
	"github.com/localcue/dictate/internal/config"
	"github.com/localcue/dictate/internal/hardware"
	"github.com/localcue/dictate/internal/model"
	"github.com/localcue/dictate/internal/output"
	"github.com/localcue/dictate/internal/privacy"
	"github.com/localcue/dictate/internal/transcribe"
)

// captureEngine, transcriberFacade and outputInjector narrow
// *audio.Engine, *transcribe.Transcriber and *output.Injector down to the
// methods Toggle actually calls, so tests can swap in fakes without
// spinning up real capture threads, CGo inference workers, or a real
// clipboard.
type captureEngine interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (*audio.Buffer, error)
	Recover(ctx context.Context) error
	Shutdown()
	ListInputDevices() ([]audio.Device, error)
	SelectInputDevice(id *string)
	Subscribe() <-chan audio.Event
	CurrentLevel() float32
	CurrentDuration() time.Duration
	State() audio.State
}

type transcriberFacade interface {
	LoadModel(ctx context.Context, path string) error
	UnloadModel(ctx context.Context)
	IsModelLoaded() bool
	Transcribe(ctx context.Context, buf *audio.Buffer, cfg transcribe.TranscribeConfig) (transcribe.Result, error)
	Capabilities() transcribe.Capabilities
	Shutdown()
}

type outputInjector interface {
	Inject(text string) error
}

// ErrToggleInProgress is returned when Toggle is called while another
// Toggle call is already running.
var ErrToggleInProgress = errors.New("controller: toggle already in progress")

// ToggleResultKind tags the outcome shape of a Toggle call, mirroring the
// IPC surface's {type:"Started"} / {type:"Completed", text} shapes.
type ToggleResultKind string

const (
	ToggleStarted   ToggleResultKind = "Started"
	ToggleCompleted ToggleResultKind = "Completed"
)

// ToggleResult is Toggle's return value.
type ToggleResult struct {
	Kind ToggleResultKind
	Text *string // only set when Kind == ToggleCompleted and text is non-empty
}

// Controller exclusively owns one instance each of the capture engine,
// transcriber, model manager, hardware profile, output injector, and
// config store. The privacy guard is held by reference because it is
// process-wide and may be shared with other callers (e.g. a future
// front-end settings panel).
type Controller struct {
	cfg      config.Config
	cfgStore *config.Store
	guard    *privacy.Guard
	capture  captureEngine
	hw       hardware.Profile
	models   *model.Manager
	tr       transcriberFacade
	out      outputInjector
	log      *log.Logger

	toggleInProgress atomic.Bool
}

// New wires every component in a fixed startup order: config -> logging ->
// privacy -> capture -> hardware -> model manager -> transcriber ->
// output. Any step's failure aborts with a wrapped error, except hardware
// detection, whose error is logged as a warning while the fallback profile
// is kept; the caller (cmd/dictated) is expected to log it and exit.
func New(dataDir string) (*Controller, error) {
	// 1. Config store.
	cfgStore := config.NewStore(dataDir)
	cfg, err := cfgStore.Load()
	if err != nil {
		return nil, fmt.Errorf("controller: load config: %w", err)
	}

	// 2. Logging.
	logger, err := newLogger(cfg, dataDir)
	if err != nil {
		return nil, fmt.Errorf("controller: init logging: %w", err)
	}

	// 3. Privacy guard (process-wide; first Init wins).
	guard := privacy.Init(cfg.Privacy.LocalOnly, cfg.Privacy.AllowedDomains)

	// 4. Capture engine.
	capture := audio.NewEngine(audio.DefaultConfig())

	// 5. Hardware detector (pre-warmed).
	hw, err := hardware.Detect()
	if err != nil {
		logger.Warn("hardware detection degraded", "err", err)
	}

	// 6. Model manager (scans installed).
	modelsDir := dataDir + "/models"
	models, err := model.NewManager(modelsDir, guard, logger)
	if err != nil {
		return nil, fmt.Errorf("controller: init model manager: %w", err)
	}

	// 7. Transcriber with thread budget from hardware profile.
	threads := cfg.Transcription.Threads
	if threads <= 0 {
		threads = hw.RecommendedThreads()
	}
	tr := transcribe.New(threads)

	// 8. Output manager.
	out := output.New(cfg.Output.PasteDelayMs)

	return newController(cfg, cfgStore, guard, capture, hw, models, tr, out, logger), nil
}

// newController is the shared constructor body behind New and tests: New
// wires real components, tests wire fakes implementing captureEngine /
// transcriberFacade / outputInjector directly.
func newController(cfg config.Config, cfgStore *config.Store, guard *privacy.Guard, capture captureEngine, hw hardware.Profile, models *model.Manager, tr transcriberFacade, out outputInjector, logger *log.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		cfgStore: cfgStore,
		guard:    guard,
		capture:  capture,
		hw:       hw,
		models:   models,
		tr:       tr,
		out:      out,
		log:      logger,
	}
}

// Guard exposes the process-wide privacy guard.
func (c *Controller) Guard() *privacy.Guard { return c.guard }

// Capture exposes the capture engine for device listing/selection and event
// subscription.
func (c *Controller) Capture() captureEngine { return c.capture }

// Models exposes the model catalog/installer.
func (c *Controller) Models() *model.Manager { return c.models }

// Hardware returns the pre-warmed hardware profile.
func (c *Controller) Hardware() hardware.Profile { return c.hw }

// Transcriber exposes the transcriber facade.
func (c *Controller) Transcriber() transcriberFacade { return c.tr }

// Config returns a copy of the currently loaded config.
func (c *Controller) Config() config.Config { return c.cfg }

// UpdateConfig persists a new config and applies its live-mutable fields
// (privacy policy) immediately.
func (c *Controller) UpdateConfig(cfg config.Config) error {
	if err := c.cfgStore.Save(cfg); err != nil {
		return fmt.Errorf("controller: save config: %w", err)
	}
	c.cfg = cfg
	c.guard.SetLocalOnly(cfg.Privacy.LocalOnly)
	c.guard.SetAllowedDomains(cfg.Privacy.AllowedDomains)
	return nil
}

// Toggle is the user-visible atomic operation behind the global shortcut.
// A single atomic compare-and-swap gates reentry, so N concurrent callers
// yield exactly one running invocation and N-1 ErrToggleInProgress errors.
// The flag resets on every exit path via defer.
func (c *Controller) Toggle(ctx context.Context) (ToggleResult, error) {
	if !c.toggleInProgress.CompareAndSwap(false, true) {
		return ToggleResult{}, ErrToggleInProgress
	}
	defer c.toggleInProgress.Store(false)

	// Correlation id tying together the log lines of this one Toggle call;
	// the start and stop halves are separate calls with separate ids.
	session := uuid.NewString()

	switch state := c.capture.State(); state {
	case audio.StateIdle:
		if err := c.capture.Start(ctx); err != nil {
			return ToggleResult{}, fmt.Errorf("controller: start recording: %w", err)
		}
		c.log.Info("recording started", "session", session)
		return ToggleResult{Kind: ToggleStarted}, nil

	case audio.StateRecording:
		buf, err := c.capture.Stop(ctx)
		if err != nil {
			return ToggleResult{}, fmt.Errorf("controller: stop recording: %w", err)
		}
		defer buf.Release()
		c.log.Info("recording stopped", "session", session, "samples", buf.Len())

		tcfg := transcribe.TranscribeConfig{
			Threads:      c.cfg.Transcription.Threads,
			LanguageHint: languageHint(c.cfg.Transcription.Language),
			VAD: transcribe.VADConfig{
				NoSpeechThold:           0.6,
				EntropyThold:            2.4,
				SuppressNonSpeechTokens: true,
			},
		}
		result, err := c.tr.Transcribe(ctx, buf, tcfg)
		if err != nil {
			return ToggleResult{}, fmt.Errorf("controller: transcribe: %w", err)
		}
		c.log.Info("transcription finished", "session", session,
			"chars", len(result.Text), "duration_ms", result.DurationMs)
		if result.Text == "" {
			return ToggleResult{Kind: ToggleCompleted, Text: nil}, nil
		}
		if err := c.out.Inject(result.Text); err != nil {
			// Transcription succeeded and the state machine already landed
			// back on Idle when Stop ran; only the injection failed. Surface
			// the error without touching the state machine.
			return ToggleResult{}, fmt.Errorf("controller: inject output: %w", err)
		}
		text := result.Text
		return ToggleResult{Kind: ToggleCompleted, Text: &text}, nil

	case audio.StateDeviceLost, audio.StateRecovering:
		return ToggleResult{}, errors.New("controller: audio unavailable")

	case audio.StateError:
		return ToggleResult{}, errors.New("controller: recover first")

	default:
		return ToggleResult{}, fmt.Errorf("controller: unknown audio state %v", state)
	}
}

// Recover attempts device recovery via the capture engine.
func (c *Controller) Recover(ctx context.Context) error {
	return c.capture.Recover(ctx)
}

// Shutdown tears down every owned component.
func (c *Controller) Shutdown() {
	c.capture.Shutdown()
	c.tr.Shutdown()
}

func languageHint(lang string) string {
	if lang == "auto" {
		return ""
	}
	return lang
}
