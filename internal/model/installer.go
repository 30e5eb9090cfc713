package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/localcue/dictate/internal/apperr"
	"github.com/localcue/dictate/internal/privacy"
)

// InstalledModel describes a model file found on disk, with its expected
// checksum recovered from the catalog.
type InstalledModel struct {
	ID           string
	Quantization Quantization
	Path         string
	SHA256       string
	SizeBytes    int64
}

// DownloadProgress reports install progress to a caller (e.g. the IPC
// surface). bytesTotal is 0 when unknown.
type DownloadProgress func(bytesDownloaded, bytesTotal int64)

// Manager owns the catalog, the models directory, and the derived
// installed list. Every download is verified against the catalog's
// expected sha256 rather than trusting transport integrity alone.
type Manager struct {
	catalog   *Catalog
	modelsDir string
	guard     *privacy.Guard
	log       *log.Logger

	mu        sync.RWMutex
	installed []InstalledModel
}

// NewManager creates a Manager, creates modelsDir if missing, and scans it
// to populate the installed list. Initialization fails if the embedded
// catalog cannot be parsed. A nil logger falls back to the package default.
func NewManager(modelsDir string, guard *privacy.Guard, logger *log.Logger) (*Manager, error) {
	catalog, err := LoadEmbeddedCatalog()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("model: mkdir models dir: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	m := &Manager{catalog: catalog, modelsDir: modelsDir, guard: guard, log: logger}
	if err := m.rescan(); err != nil {
		return nil, err
	}
	return m, nil
}

// Catalog returns the parsed embedded catalog.
func (m *Manager) Catalog() *Catalog { return m.catalog }

// ModelsDir returns the directory models are installed to.
func (m *Manager) ModelsDir() string { return m.modelsDir }

// Installed returns a snapshot of the currently installed models.
func (m *Manager) Installed() []InstalledModel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]InstalledModel, len(m.installed))
	copy(out, m.installed)
	return out
}

// IsInstalled reports whether id/quant has a matching installed entry.
func (m *Manager) IsInstalled(id string, quant Quantization) bool {
	for _, im := range m.Installed() {
		if im.ID == id && im.Quantization == quant {
			return true
		}
	}
	return false
}

// filename returns the canonical on-disk name for id/quant.
func filename(id string, quant Quantization) string {
	return fmt.Sprintf("%s-%s.bin", id, quant.Suffix())
}

// parseFilename splits a "{id}-{quant}.bin" stem at the LAST hyphen, since
// id may itself contain hyphens (e.g. "whisper-small"). Returns ok=false if
// the stem doesn't decompose into a known quantization suffix.
func parseFilename(stem string) (id string, quant Quantization, ok bool) {
	idx := strings.LastIndex(stem, "-")
	if idx <= 0 || idx == len(stem)-1 {
		return "", "", false
	}
	id = stem[:idx]
	suffix := stem[idx+1:]
	q, found := QuantizationFromSuffix(suffix)
	if !found {
		return "", "", false
	}
	return id, q, true
}

// rescan reconstructs the installed list from the models directory. Files
// that don't decompose or whose id/quant isn't in the catalog are silently
// ignored; they may be the user's unrelated data.
func (m *Manager) rescan() error {
	entries, err := os.ReadDir(m.modelsDir)
	if err != nil {
		return fmt.Errorf("model: read models dir: %w", err)
	}

	var installed []InstalledModel
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".bin") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), ".bin")
		id, quant, ok := parseFilename(stem)
		if !ok {
			continue
		}
		info, ok := m.catalog.Find(id)
		if !ok {
			continue
		}
		variant, ok := info.Variant(quant)
		if !ok {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		installed = append(installed, InstalledModel{
			ID:           id,
			Quantization: quant,
			Path:         filepath.Join(m.modelsDir, e.Name()),
			SHA256:       variant.SHA256,
			SizeBytes:    fi.Size(),
		})
	}

	m.mu.Lock()
	m.installed = installed
	m.mu.Unlock()
	return nil
}

// Rescan re-derives the installed list from disk (exported for callers that
// manage models out-of-band, e.g. a front-end's file picker).
func (m *Manager) Rescan() error { return m.rescan() }

// Download fetches id/quant via the privacy guard, verifies its SHA-256
// against the catalog, and on success appends it to the installed list.
// On a verification mismatch the file is deleted and ModelVerificationError
// is returned, never leaving a corrupted file at the final path.
func (m *Manager) Download(ctx context.Context, id string, quant Quantization, progress DownloadProgress) (InstalledModel, error) {
	info, ok := m.catalog.Find(id)
	if !ok {
		return InstalledModel{}, fmt.Errorf("%w: %s", apperr.ErrModelNotFound, id)
	}
	variant, ok := info.Variant(quant)
	if !ok {
		return InstalledModel{}, fmt.Errorf("%w: %s/%s", apperr.ErrModelNotFound, id, quant)
	}

	destPath := filepath.Join(m.modelsDir, filename(id, quant))

	var fwd privacy.ProgressFunc
	if progress != nil {
		fwd = func(downloaded, total int64) { progress(downloaded, total) }
	}
	if err := m.guard.DownloadFile(ctx, variant.URL, destPath, fwd); err != nil {
		return InstalledModel{}, fmt.Errorf("%w: %v", apperr.ErrModelDownload, err)
	}

	actual, err := sha256File(destPath)
	if err != nil {
		os.Remove(destPath)
		return InstalledModel{}, fmt.Errorf("%w: hash downloaded file: %v", apperr.ErrModel, err)
	}
	if actual != variant.SHA256 {
		os.Remove(destPath)
		return InstalledModel{}, &apperr.ModelVerificationError{Expected: variant.SHA256, Actual: actual}
	}

	fi, err := os.Stat(destPath)
	if err != nil {
		return InstalledModel{}, fmt.Errorf("model: stat downloaded file: %w", err)
	}
	im := InstalledModel{ID: id, Quantization: quant, Path: destPath, SHA256: actual, SizeBytes: fi.Size()}

	m.mu.Lock()
	m.installed = append(m.installed, im)
	m.mu.Unlock()
	return im, nil
}

// Verify re-hashes an installed model's on-disk file and reports whether it
// still matches the catalog's expected checksum, without mutating state.
func (m *Manager) Verify(id string, quant Quantization) (bool, error) {
	im, found := m.findInstalled(id, quant)
	if !found {
		return false, fmt.Errorf("%w: %s/%s not installed", apperr.ErrModelNotFound, id, quant)
	}

	actual, err := sha256File(im.Path)
	if err != nil {
		return false, fmt.Errorf("model: hash %s: %w", im.Path, err)
	}
	if actual != im.SHA256 {
		m.log.Warn("model checksum mismatch",
			"model", im.ID, "quantization", im.Quantization,
			"expected", im.SHA256, "actual", actual)
		return false, nil
	}
	return true, nil
}

func (m *Manager) findInstalled(id string, quant Quantization) (InstalledModel, bool) {
	for _, im := range m.Installed() {
		if im.ID == id && im.Quantization == quant {
			return im, true
		}
	}
	return InstalledModel{}, false
}

// Delete removes an installed model's file and drops it from the installed
// list. A failure to delete surfaces as apperr.ErrIO.
func (m *Manager) Delete(id string, quant Quantization) error {
	im, found := m.findInstalled(id, quant)
	if !found {
		return fmt.Errorf("%w: %s/%s not installed", apperr.ErrModelNotFound, id, quant)
	}
	if err := os.Remove(im.Path); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrIO, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.installed[:0]
	for _, e := range m.installed {
		if e.ID == id && e.Quantization == quant {
			continue
		}
		out = append(out, e)
	}
	m.installed = out
	return nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, 8*1024)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
