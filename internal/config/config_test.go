package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestStoreLoadDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	s := NewStoreAt(filepath.Join(dir, "config.toml"))

	cfg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Privacy.LocalOnly {
		t.Errorf("default LocalOnly = false; want true")
	}
	if cfg.Transcription.Language != "auto" {
		t.Errorf("default Language = %q; want auto", cfg.Transcription.Language)
	}
	if _, err := os.Stat(s.Path()); err != nil {
		t.Errorf("Load did not materialize default file: %v", err)
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewStoreAt(filepath.Join(dir, "config.toml"))

	want := Default()
	want.Transcription.Language = "es"
	want.Privacy.LocalOnly = false
	want.Privacy.AllowedDomains = []string{"huggingface.co"}

	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %+v; want %+v", got, want)
	}
}

func TestStoreRoundTripPreservesEmptyAllowlist(t *testing.T) {
	dir := t.TempDir()
	s := NewStoreAt(filepath.Join(dir, "config.toml"))

	want := Default()
	want.Privacy.AllowedDomains = []string{}

	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Privacy.AllowedDomains) != 0 {
		t.Errorf("intentionally emptied allowlist came back as %v; want empty", got.Privacy.AllowedDomains)
	}
}

func TestStoreLoadMissingAllowlistFillsDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[privacy]\nlocal_only = false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStoreAt(path)
	cfg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Privacy.AllowedDomains) == 0 {
		t.Error("allowlist absent from file should fall back to the default entries")
	}
}

func TestStoreLoadCorruptFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("not = [valid toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStoreAt(path)
	cfg, err := s.Load()
	if err == nil {
		t.Error("Load on corrupt file should return an error")
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Load on corrupt file = %+v; want defaults", cfg)
	}
}

func TestStoreLoadPartialFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[transcription]\nmodel_id = \"whisper-tiny\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStoreAt(path)
	cfg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transcription.ModelID != "whisper-tiny" {
		t.Errorf("ModelID = %q; want whisper-tiny", cfg.Transcription.ModelID)
	}
	if cfg.Transcription.Language != "auto" {
		t.Errorf("Language should default to auto, got %q", cfg.Transcription.Language)
	}
	if cfg.Output.PasteDelayMs != 100 {
		t.Errorf("PasteDelayMs should default to 100, got %d", cfg.Output.PasteDelayMs)
	}
}
