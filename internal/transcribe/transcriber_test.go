package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/localcue/dictate/internal/audio"
)

// fakeBackend simulates whisper.cpp without CGo or a real model.
type fakeBackend struct {
	loadErr        error
	transcribeText string
	transcribeLang string
	transcribeErr  error
	closed         bool
}

func (f *fakeBackend) Load(string, int) error { return f.loadErr }
func (f *fakeBackend) Transcribe(samples []float32, cfg TranscribeConfig) (string, string, error) {
	return f.transcribeText, f.transcribeLang, f.transcribeErr
}
func (f *fakeBackend) Close() error { f.closed = true; return nil }

func newTestTranscriber(fb *fakeBackend) *Transcriber {
	return newWithBackend(4, func() backend { return fb })
}

func bufferOf(samples []int16) *audio.Buffer {
	b := audio.NewBuffer(16000)
	b.PushSamples(samples)
	return b
}

func TestTranscribeBeforeLoadFails(t *testing.T) {
	tr := newTestTranscriber(&fakeBackend{})
	defer tr.Shutdown()

	_, err := tr.Transcribe(context.Background(), bufferOf([]int16{1, 2, 3}), TranscribeConfig{})
	if !errors.Is(err, ErrNoModelLoaded) {
		t.Errorf("err = %v; want ErrNoModelLoaded", err)
	}
}

func TestLoadModelMissingPath(t *testing.T) {
	tr := newTestTranscriber(&fakeBackend{})
	defer tr.Shutdown()

	err := tr.LoadModel(context.Background(), "/definitely/not/a/real/path.bin")
	if err == nil {
		t.Fatal("expected error for missing model path")
	}
	if tr.IsModelLoaded() {
		t.Error("IsModelLoaded should be false after failed load")
	}
}

func TestLoadTranscribeUnload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bin")
	if err := os.WriteFile(path, []byte("fake model"), 0o644); err != nil {
		t.Fatal(err)
	}

	fb := &fakeBackend{transcribeText: "  hello world  ", transcribeLang: "en"}
	tr := newTestTranscriber(fb)
	defer tr.Shutdown()

	if err := tr.LoadModel(context.Background(), path); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if !tr.IsModelLoaded() {
		t.Error("expected IsModelLoaded true after successful load")
	}

	res, err := tr.Transcribe(context.Background(), bufferOf([]int16{100, -100, 200}), TranscribeConfig{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello world" {
		t.Errorf("Text = %q; want trimmed %q", res.Text, "hello world")
	}
	if res.DetectedLanguage != "en" {
		t.Errorf("DetectedLanguage = %q; want en", res.DetectedLanguage)
	}

	tr.UnloadModel(context.Background())
	if tr.IsModelLoaded() {
		t.Error("expected IsModelLoaded false after UnloadModel")
	}
	if !fb.closed {
		t.Error("expected backend Close to be called on unload")
	}
}

func TestTranscribeEmptyBufferReturnsEmptySuccess(t *testing.T) {
	fb := &fakeBackend{transcribeText: "should not be called"}
	tr := newTestTranscriber(fb)
	defer tr.Shutdown()

	dir := t.TempDir()
	path := filepath.Join(dir, "model.bin")
	os.WriteFile(path, []byte("x"), 0o644)
	if err := tr.LoadModel(context.Background(), path); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}

	res, err := tr.Transcribe(context.Background(), bufferOf(nil), TranscribeConfig{})
	if err != nil {
		t.Fatalf("Transcribe on empty buffer: %v", err)
	}
	if res.Text != "" || res.DurationMs != 0 {
		t.Errorf("expected empty zero-duration result, got %+v", res)
	}
}

func TestTranscribeWrongSampleRate(t *testing.T) {
	tr := newTestTranscriber(&fakeBackend{})
	defer tr.Shutdown()

	b := audio.NewBuffer(44100)
	b.PushSamples([]int16{1, 2, 3})
	if _, err := tr.Transcribe(context.Background(), b, TranscribeConfig{}); err == nil {
		t.Error("expected error for non-16kHz buffer")
	}
}

func TestCapabilities(t *testing.T) {
	tr := newTestTranscriber(&fakeBackend{})
	defer tr.Shutdown()

	caps := tr.Capabilities()
	if caps.Streaming {
		t.Error("Streaming should be false; partial transcripts are unsupported")
	}
	if caps.RequiresNetwork {
		t.Error("RequiresNetwork should be false")
	}
	if len(caps.SupportedLanguages) != 12 {
		t.Errorf("len(SupportedLanguages) = %d; want 12", len(caps.SupportedLanguages))
	}
}

