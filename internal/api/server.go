// Package api exposes the controller as a flat command surface of
// JSON-serializable methods. Every method here is transport-free:
// cmd/dictated (or any future host shell) picks the transport.
package api

import (
	"context"
	"fmt"

	"github.com/localcue/dictate/internal/audio"
	"github.com/localcue/dictate/internal/config"
	"github.com/localcue/dictate/internal/controller"
	"github.com/localcue/dictate/internal/hardware"
	"github.com/localcue/dictate/internal/model"
	"github.com/localcue/dictate/internal/transcribe"
)

// transcribeConfigFrom builds a one-call TranscribeConfig from persisted
// settings, mirroring Controller.Toggle's own construction so Transcribe
// and ToggleRecording behave identically for the same stored config.
func transcribeConfigFrom(cfg config.Transcription) transcribe.TranscribeConfig {
	lang := cfg.Language
	if lang == "auto" {
		lang = ""
	}
	return transcribe.TranscribeConfig{
		Threads:      cfg.Threads,
		LanguageHint: lang,
		VAD: transcribe.VADConfig{
			NoSpeechThold:           0.6,
			EntropyThold:            2.4,
			SuppressNonSpeechTokens: true,
		},
	}
}

// Server binds a Controller to the command surface. It carries no state of
// its own.
type Server struct {
	ctrl *controller.Controller
}

// New wraps an already-wired Controller.
func New(ctrl *controller.Controller) *Server {
	return &Server{ctrl: ctrl}
}

// Paths is the get_paths response.
type Paths struct {
	ModelsDir string `json:"models_dir"`
}

// GetConfig returns the current configuration.
func (s *Server) GetConfig() config.Config { return s.ctrl.Config() }

// UpdateConfig persists a new configuration and applies live-mutable
// fields immediately.
func (s *Server) UpdateConfig(cfg config.Config) error { return s.ctrl.UpdateConfig(cfg) }

// IsNetworkBlocked reports whether url is rejected by the privacy guard.
func (s *Server) IsNetworkBlocked(url string) bool {
	return s.ctrl.Guard().IsURLAllowed(url) != nil
}

// GetPaths returns on-disk locations a front-end may want to display.
func (s *Server) GetPaths() Paths {
	return Paths{ModelsDir: s.ctrl.Models().ModelsDir()}
}

// StartRecording begins capture. It is equivalent to calling Toggle from
// Idle, exposed separately for front ends that drive start and stop as
// distinct commands.
func (s *Server) StartRecording(ctx context.Context) error {
	return s.ctrl.Capture().Start(ctx)
}

// StopRecording stops capture and discards the sealed buffer. Callers that
// need the transcript should use ToggleRecording instead, since Stop alone
// does not run inference.
func (s *Server) StopRecording(ctx context.Context) error {
	buf, err := s.ctrl.Capture().Stop(ctx)
	if err != nil {
		return err
	}
	buf.Release()
	return nil
}

// ToggleRecordingResult is the {type:"Started"} / {type:"Completed",text}
// shape toggle_recording returns over the wire.
type ToggleRecordingResult struct {
	Type string  `json:"type"`
	Text *string `json:"text,omitempty"`
}

// ToggleRecording runs the atomic toggle flow.
func (s *Server) ToggleRecording(ctx context.Context) (ToggleRecordingResult, error) {
	res, err := s.ctrl.Toggle(ctx)
	if err != nil {
		return ToggleRecordingResult{}, err
	}
	return ToggleRecordingResult{Type: string(res.Kind), Text: res.Text}, nil
}

// SubscribeAudioEvents returns a lossy stream of capture-engine events for
// the front-end's event surface. Slow consumers drop intermediate updates;
// StateChanged consumers should re-read GetAudioState on reconnect.
func (s *Server) SubscribeAudioEvents() <-chan audio.Event {
	return s.ctrl.Capture().Subscribe()
}

// GetAudioState returns the capture engine's current state name.
func (s *Server) GetAudioState() string { return s.ctrl.Capture().State().String() }

// GetAudioConfig returns the transcription-relevant config fields a
// front-end needs to render audio settings.
func (s *Server) GetAudioConfig() config.Transcription { return s.ctrl.Config().Transcription }

// ListAudioDevices enumerates input devices.
func (s *Server) ListAudioDevices() ([]audio.Device, error) {
	return s.ctrl.Capture().ListInputDevices()
}

// SelectAudioDevice pins the device used by the next StartRecording/Toggle
// call; a nil id resets to the system default.
func (s *Server) SelectAudioDevice(id *string) { s.ctrl.Capture().SelectInputDevice(id) }

// GetRecordingDuration returns elapsed recording time in milliseconds.
func (s *Server) GetRecordingDuration() int64 {
	return s.ctrl.Capture().CurrentDuration().Milliseconds()
}

// GetAudioLevel returns the latest RMS input level in [0,1].
func (s *Server) GetAudioLevel() float32 { return s.ctrl.Capture().CurrentLevel() }

// RecoverAudio attempts device recovery after DeviceLost.
func (s *Server) RecoverAudio(ctx context.Context) error { return s.ctrl.Recover(ctx) }

// Transcribe runs inference directly on buf using the persisted
// transcription settings. StopRecording releases its buffer, so front ends
// that need record-then-transcribe should use ToggleRecording, which does
// both in one atomic call.
func (s *Server) Transcribe(ctx context.Context, buf *audio.Buffer) (string, error) {
	cfg := s.ctrl.Config().Transcription
	result, err := s.ctrl.Transcriber().Transcribe(ctx, buf, transcribeConfigFrom(cfg))
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// LoadModelRequest carries either a direct path or an id+quant pair
// resolved against the installed list.
type LoadModelRequest struct {
	Path         string             `json:"path,omitempty"`
	ID           string             `json:"id,omitempty"`
	Quantization model.Quantization `json:"quantization,omitempty"`
}

// LoadModel resolves the request to an on-disk path and loads it.
func (s *Server) LoadModel(ctx context.Context, req LoadModelRequest) error {
	path := req.Path
	if path == "" {
		for _, im := range s.ctrl.Models().Installed() {
			if im.ID == req.ID && im.Quantization == req.Quantization {
				path = im.Path
				break
			}
		}
		if path == "" {
			return fmt.Errorf("api: model %s/%s not installed", req.ID, req.Quantization)
		}
	}
	return s.ctrl.Transcriber().LoadModel(ctx, path)
}

// IsModelLoaded reports whether the transcriber currently has a model
// loaded.
func (s *Server) IsModelLoaded() bool { return s.ctrl.Transcriber().IsModelLoaded() }

// UnloadModel releases the currently-loaded model.
func (s *Server) UnloadModel(ctx context.Context) { s.ctrl.Transcriber().UnloadModel(ctx) }

// GetModelCatalog returns the full embedded catalog.
func (s *Server) GetModelCatalog() *model.Catalog { return s.ctrl.Models().Catalog() }

// ListInstalledModels returns every model file discovered on disk.
func (s *Server) ListInstalledModels() []model.InstalledModel { return s.ctrl.Models().Installed() }

// IsModelInstalled reports whether id+quant is present on disk.
func (s *Server) IsModelInstalled(id string, quant model.Quantization) bool {
	return s.ctrl.Models().IsInstalled(id, quant)
}

// DownloadModel fetches and verifies id+quant, reporting progress via
// progress (nil is accepted).
func (s *Server) DownloadModel(ctx context.Context, id string, quant model.Quantization, progress model.DownloadProgress) (model.InstalledModel, error) {
	return s.ctrl.Models().Download(ctx, id, quant, progress)
}

// DeleteModel removes an installed model file.
func (s *Server) DeleteModel(id string, quant model.Quantization) error {
	return s.ctrl.Models().Delete(id, quant)
}

// GetModelsDir returns the directory models are installed into.
func (s *Server) GetModelsDir() string { return s.ctrl.Models().ModelsDir() }

// GetHardwareProfile returns the pre-warmed hardware snapshot.
func (s *Server) GetHardwareProfile() hardware.Profile { return s.ctrl.Hardware() }

// GetRecommendedModel returns the model id+quantization the hardware
// detector recommends.
func (s *Server) GetRecommendedModel() (hardware.Recommendation, error) {
	return hardware.Recommend(s.ctrl.Hardware(), s.ctrl.Models().Catalog())
}
