package transcribe

import (
	"fmt"
	"io"
	"strings"

	"github.com/localcue/dictate/internal/apperr"

	// A cgo package: building it needs whisper.h and libwhisper.a built
	// for the host platform.
	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// whisperCppBackend wraps github.com/ggerganov/whisper.cpp/bindings/go.
type whisperCppBackend struct {
	model   whisperlib.Model
	context whisperlib.Context
}

func newWhisperCppBackend() backend {
	return &whisperCppBackend{}
}

func (w *whisperCppBackend) Load(modelPath string, threads int) error {
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return fmt.Errorf("%w: load model %q: %v", apperr.ErrWhisper, modelPath, err)
	}
	ctx, err := model.NewContext()
	if err != nil {
		model.Close()
		return fmt.Errorf("%w: create context: %v", apperr.ErrWhisper, err)
	}
	ctx.SetThreads(uint(threads))
	// beam_size=2 gives ~2x speedup vs the default 5 with negligible quality
	// loss for short dictation bursts.
	ctx.SetBeamSize(2)
	// Reduce encoder context from 1500 to 768 frames (~30s to ~15s); typical
	// dictation clips are far shorter and this halves the encoder compute.
	ctx.SetAudioCtx(768)
	// Each recording is independent — don't feed previous segment tokens as
	// context into the next decode pass.
	ctx.SetMaxContext(0)
	w.model = model
	w.context = ctx
	return nil
}

// Transcribe hands samples, thread count, language hint, and VAD knobs to
// the inference backend, then collects segment texts in order.
func (w *whisperCppBackend) Transcribe(samples []float32, cfg TranscribeConfig) (string, string, error) {
	if w.context == nil {
		return "", "", ErrNoModelLoaded
	}

	ctx := w.context
	if cfg.Threads > 0 {
		ctx.SetThreads(uint(cfg.Threads))
	}
	if cfg.LanguageHint != "" {
		ctx.SetLanguage(cfg.LanguageHint) //nolint:errcheck
	} else {
		ctx.SetLanguage("auto") //nolint:errcheck
	}
	if cfg.VAD.EntropyThold > 0 {
		ctx.SetEntropyThold(cfg.VAD.EntropyThold)
	}
	// cfg.VAD.NoSpeechThold has no setter in the Go bindings' Context API —
	// whisper_full_params.no_speech_thold is not surfaced, so silence
	// rejection here relies on the entropy threshold above plus the
	// non-speech-tag suppression below. If the bindings grow a
	// SetNoSpeechThold, forward the field here.

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", "", fmt.Errorf("%w: process: %v", apperr.ErrWhisper, err)
	}

	var text string
	for {
		seg, err := ctx.NextSegment()
		if err != nil {
			if err != io.EOF {
				return "", "", fmt.Errorf("%w: read segment: %v", apperr.ErrWhisper, err)
			}
			break
		}
		segText := seg.Text
		if cfg.VAD.SuppressNonSpeechTokens && isNonSpeechTag(strings.TrimSpace(segText)) {
			continue
		}
		text += segText
	}
	return text, ctx.DetectedLanguage(), nil
}

// nonSpeechTags are the whisper.cpp hallucination markers produced during
// silence or noise. Segments consisting solely of one of these are dropped
// when suppression is enabled, so a recording of pure room tone yields an
// empty transcript instead of "[BLANK_AUDIO]".
var nonSpeechTags = []string{
	"[BLANK_AUDIO]",
	"[blank_audio]",
	"[MUSIC]",
	"[Music]",
	"[silence]",
	"(Music)",
	"(music)",
	"(noise)",
	"(Noise)",
	"(clapping)",
	"(Applause)",
	"(wind blowing)",
}

func isNonSpeechTag(s string) bool {
	for _, tag := range nonSpeechTags {
		if s == tag {
			return true
		}
	}
	return false
}

func (w *whisperCppBackend) Close() error {
	if w.model != nil {
		return w.model.Close()
	}
	return nil
}
