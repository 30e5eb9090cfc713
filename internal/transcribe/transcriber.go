// Package transcribe implements the async facade over the blocking
// whisper.cpp inference backend. Model loading and inference run on a
// single worker goroutine fed by a request channel, the same
// dedicated-goroutine idiom the capture engine uses for its native
// stream, so callers never block on CGo directly.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/localcue/dictate/internal/audio"
)

// ErrNoModelLoaded is returned by Transcribe before any LoadModel call.
var ErrNoModelLoaded = errors.New("transcribe: no model loaded")

// VADConfig carries the voice-activity knobs for the inference call. No
// real-time segmentation happens here — only these thresholds. The
// whisper.cpp backend applies EntropyThold and SuppressNonSpeechTokens;
// NoSpeechThold is not passed on to the engine.
type VADConfig struct {
	NoSpeechThold           float32
	EntropyThold            float32
	SuppressNonSpeechTokens bool
}

// TranscribeConfig tunes one Transcribe call.
type TranscribeConfig struct {
	Threads      int    // per-call override; 0 means "use facade default"
	LanguageHint string // "" means auto-detect
	VAD          VADConfig
}

// Result is the outcome of a successful Transcribe call.
type Result struct {
	Text             string
	DetectedLanguage string
	DurationMs       int64
}

// Capabilities describes what this backend can do, for the IPC surface.
type Capabilities struct {
	Name               string
	SupportedLanguages []string
	Streaming          bool
	RequiresNetwork    bool
}

// supportedLanguages lists twelve entries: eleven language codes the
// bundled models reliably handle, plus "auto" for automatic detection.
var supportedLanguages = []string{
	"en", "es", "fr", "de", "it", "pt", "nl", "ru", "zh", "ja", "ko", "auto",
}

// backend abstracts the actual whisper.cpp CGo bindings so tests never
// touch CGo or load a real model.
type backend interface {
	Load(modelPath string, threads int) error
	Transcribe(samples []float32, cfg TranscribeConfig) (text, language string, err error)
	Close() error
}

type loadRequest struct {
	path  string
	reply chan error
}

type unloadRequest struct {
	reply chan struct{}
}

type transcribeRequest struct {
	samples []float32
	cfg     TranscribeConfig
	reply   chan transcribeResponse
}

type transcribeResponse struct {
	text, language string
	err            error
}

// Transcriber is the public facade. Every blocking inference/model-load
// call is posted to a single worker goroutine so the caller is never
// stalled beyond the channel round-trip.
type Transcriber struct {
	defaultThreads int

	mu     sync.RWMutex
	loaded bool

	reqCh chan any
	wg    sync.WaitGroup

	newBackend func() backend
}

// New creates a Transcriber and starts its worker goroutine.
// defaultThreads is used whenever a TranscribeConfig leaves Threads at 0
// (typically hardware.Profile.RecommendedThreads()).
func New(defaultThreads int) *Transcriber {
	return newWithBackend(defaultThreads, func() backend { return newWhisperCppBackend() })
}

func newWithBackend(defaultThreads int, factory func() backend) *Transcriber {
	if defaultThreads < 1 {
		defaultThreads = 1
	}
	t := &Transcriber{
		defaultThreads: defaultThreads,
		reqCh:          make(chan any, 4),
		newBackend:     factory,
	}
	t.wg.Add(1)
	go t.loop()
	return t
}

func (t *Transcriber) loop() {
	defer t.wg.Done()
	var be backend

	for req := range t.reqCh {
		switch r := req.(type) {
		case loadRequest:
			if _, err := os.Stat(r.path); err != nil {
				r.reply <- fmt.Errorf("transcribe: model path %q: %w", r.path, err)
				continue
			}
			if be != nil {
				be.Close() //nolint:errcheck
			}
			be = t.newBackend()
			err := be.Load(r.path, t.defaultThreads)
			if err != nil {
				be = nil
			}
			t.mu.Lock()
			t.loaded = err == nil
			t.mu.Unlock()
			r.reply <- err

		case unloadRequest:
			if be != nil {
				be.Close() //nolint:errcheck
				be = nil
			}
			t.mu.Lock()
			t.loaded = false
			t.mu.Unlock()
			close(r.reply)

		case transcribeRequest:
			if be == nil {
				r.reply <- transcribeResponse{err: ErrNoModelLoaded}
				continue
			}
			text, lang, err := be.Transcribe(r.samples, r.cfg)
			r.reply <- transcribeResponse{text: text, language: lang, err: err}

		case shutdownRequest:
			if be != nil {
				be.Close() //nolint:errcheck
			}
			return
		}
	}
}

type shutdownRequest struct{}

// LoadModel loads a model from path onto the blocking worker. Fails fast
// with a wrapped os error if path does not exist — before ever touching the
// worker goroutine's state.
func (t *Transcriber) LoadModel(ctx context.Context, path string) error {
	reply := make(chan error, 1)
	select {
	case t.reqCh <- loadRequest{path: path, reply: reply}:
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

// UnloadModel drops the loaded model and frees its backend resources.
func (t *Transcriber) UnloadModel(ctx context.Context) {
	reply := make(chan struct{})
	select {
	case t.reqCh <- unloadRequest{reply: reply}:
	case <-ctx.Done():
		return
	}
	select {
	case <-reply:
	case <-ctx.Done():
	}
}

// IsModelLoaded reports whether a model is currently loaded. Non-suspending.
func (t *Transcriber) IsModelLoaded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loaded
}

// Transcribe converts buf's int16 PCM to f32 in [-1,1) and runs inference on
// the blocking worker. Requires buf.SampleRate == 16000. An empty buffer
// returns an empty success result with DurationMs 0 rather than an error.
func (t *Transcriber) Transcribe(ctx context.Context, buf *audio.Buffer, cfg TranscribeConfig) (Result, error) {
	if buf.SampleRate != 16000 {
		return Result{}, fmt.Errorf("transcribe: buffer sample rate %d != 16000", buf.SampleRate)
	}
	samples := buf.Samples()
	if len(samples) == 0 {
		return Result{}, nil
	}

	if cfg.Threads <= 0 {
		cfg.Threads = t.defaultThreads
	}
	if cfg.LanguageHint == "auto" {
		cfg.LanguageHint = ""
	}

	f32 := make([]float32, len(samples))
	for i, s := range samples {
		f32[i] = float32(s) / 32768.0
	}

	reply := make(chan transcribeResponse, 1)
	start := time.Now()
	select {
	case t.reqCh <- transcribeRequest{samples: f32, cfg: cfg, reply: reply}:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case resp := <-reply:
		if resp.err != nil {
			return Result{}, resp.err
		}
		return Result{
			Text:             strings.TrimSpace(resp.text),
			DetectedLanguage: resp.language,
			DurationMs:       time.Since(start).Milliseconds(),
		}, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Capabilities reports what this backend can and cannot do.
func (t *Transcriber) Capabilities() Capabilities {
	langs := make([]string, len(supportedLanguages))
	copy(langs, supportedLanguages)
	return Capabilities{
		Name:               "whisper.cpp",
		SupportedLanguages: langs,
		Streaming:          false,
		RequiresNetwork:    false,
	}
}

// Shutdown stops the worker goroutine, releasing any loaded model.
func (t *Transcriber) Shutdown() {
	t.reqCh <- shutdownRequest{}
	t.wg.Wait()
}
