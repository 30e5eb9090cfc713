// Package config loads and saves the TOML-backed persistent configuration,
// stored at an OS-specific path via github.com/adrg/xdg. Loading fills
// missing fields with defaults; saving is atomic (temp file + rename).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/localcue/dictate/internal/apperr"
)

// Privacy mirrors internal/privacy's guard state as persisted config.
type Privacy struct {
	LocalOnly      bool     `toml:"local_only"`
	AllowedDomains []string `toml:"allowed_domains"`
}

// Logging configures internal/logging.
type Logging struct {
	Level       string `toml:"level"`
	FileLogging bool   `toml:"file_logging"`
}

// UI carries window-position fields a front-end may want restored. Unused
// by the backend itself.
type UI struct {
	WindowX int `toml:"window_x"`
	WindowY int `toml:"window_y"`
}

// Transcription configures internal/transcribe's TranscribeConfig defaults.
type Transcription struct {
	Language  string `toml:"language"` // "auto" maps to no language hint
	Threads   int    `toml:"threads"`  // 0 means "use hardware default"
	ModelID   string `toml:"model_id"`
	ModelQuant string `toml:"model_quant"`
}

// Shortcut is carried for a front-end's display needs; the backend always
// wires Alt+Space regardless of this field.
type Shortcut struct {
	Combo string `toml:"combo"`
}

// Output configures internal/output.Injector.
type Output struct {
	PasteDelayMs int `toml:"paste_delay_ms"`
}

// Config is the root of config.toml. Unknown fields are tolerated by
// BurntSushi/toml by default; missing fields are filled from Default() by
// Load.
type Config struct {
	Privacy       Privacy       `toml:"privacy"`
	Logging       Logging       `toml:"logging"`
	UI            UI            `toml:"ui"`
	Transcription Transcription `toml:"transcription"`
	Shortcut      Shortcut      `toml:"shortcut"`
	Output        Output        `toml:"output"`
}

// Default returns factory defaults.
func Default() Config {
	return Config{
		Privacy: Privacy{
			LocalOnly:      true,
			AllowedDomains: []string{"huggingface.co", "cdn-lfs.huggingface.co"},
		},
		Logging: Logging{Level: "info", FileLogging: true},
		UI:      UI{},
		Transcription: Transcription{
			Language:   "auto",
			Threads:    0,
			ModelID:    "whisper-small",
			ModelQuant: "q5_1",
		},
		Shortcut: Shortcut{Combo: "alt+space"},
		Output:   Output{PasteDelayMs: 100},
	}
}

// Store loads and saves Config at a single OS-specific path.
type Store struct {
	path string
}

// DataDir returns the OS-specific application data directory: Application
// Support on macOS, %APPDATA% on Windows, $XDG_CONFIG_HOME on Linux — the
// same split xdg.ConfigHome already encodes per-platform.
func DataDir(appName string) (string, error) {
	dir, err := xdg.ConfigFile(filepath.Join(appName, ".keep"))
	if err != nil {
		return "", fmt.Errorf("%w: resolve data dir: %v", apperr.ErrConfig, err)
	}
	return filepath.Dir(dir), nil
}

// NewStore creates a Store pointing at "<dataDir>/config.toml".
func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, "config.toml")}
}

// NewStoreAt creates a Store with an explicit file path (tests only).
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// Path returns the config file's on-disk location.
func (s *Store) Path() string { return s.path }

// Load reads config.toml, returning defaults (and writing them to disk) if
// the file does not exist. A corrupt file yields the defaults together with
// an error, and the corrupt file is not overwritten, so the user can
// inspect/recover it.
func (s *Store) Load() (Config, error) {
	d := Default()
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		if werr := s.Save(d); werr != nil {
			return d, werr
		}
		return d, nil
	}
	if err != nil {
		return d, fmt.Errorf("%w: read %s: %v", apperr.ErrConfig, s.path, err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return d, fmt.Errorf("%w: parse %s: %v", apperr.ErrSerialization, s.path, err)
	}
	fillDefaults(&cfg, d)
	// The allowlist is a collection, so "empty" is a legitimate saved state
	// and zero-value testing can't distinguish it from "absent". Only fall
	// back to the default when the key never appeared in the file.
	if !md.IsDefined("privacy", "allowed_domains") {
		cfg.Privacy.AllowedDomains = d.Privacy.AllowedDomains
	}
	return cfg, nil
}

// fillDefaults overwrites zero-value scalar fields in cfg with the
// matching field from d, so a hand-trimmed config file still loads usable
// settings. Scalars only: a scalar has no "intentionally empty" state, so
// zero always means absent. Collections are handled by Load against the
// decoder's key metadata.
func fillDefaults(cfg *Config, d Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Transcription.Language == "" {
		cfg.Transcription.Language = d.Transcription.Language
	}
	if cfg.Transcription.ModelID == "" {
		cfg.Transcription.ModelID = d.Transcription.ModelID
	}
	if cfg.Transcription.ModelQuant == "" {
		cfg.Transcription.ModelQuant = d.Transcription.ModelQuant
	}
	if cfg.Shortcut.Combo == "" {
		cfg.Shortcut.Combo = d.Shortcut.Combo
	}
	if cfg.Output.PasteDelayMs == 0 {
		cfg.Output.PasteDelayMs = d.Output.PasteDelayMs
	}
}

// Save writes cfg to disk atomically: encode to a temp file in the same
// directory, then rename over the final path.
func (s *Store) Save(cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("config: create temp: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: encode: %v", apperr.ErrSerialization, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("config: close temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("config: rename: %w", err)
	}
	return nil
}
