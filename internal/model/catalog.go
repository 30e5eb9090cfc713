// Package model implements the embedded speech-model catalog and the
// installer that downloads, verifies, scans, and deletes model files. The
// installed list is never persisted; it is re-derived from the models
// directory's filenames on every scan.
package model

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/localcue/dictate/internal/apperr"
)

// Quantization names a weight-compression scheme. Canonical lowercase
// suffixes are used both in the catalog JSON and in installed filenames.
type Quantization string

const (
	QuantQ4_0 Quantization = "q4_0"
	QuantQ5_0 Quantization = "q5_0"
	QuantQ5_1 Quantization = "q5_1"
	QuantQ8_0 Quantization = "q8_0"
	QuantF16  Quantization = "f16"
)

var allQuantizations = []Quantization{QuantQ4_0, QuantQ5_0, QuantQ5_1, QuantQ8_0, QuantF16}

// Suffix returns the canonical filename suffix for q (identical to its
// string value; kept as a named method so call sites read as intent, not a
// raw cast).
func (q Quantization) Suffix() string { return string(q) }

// QuantizationFromSuffix parses a filename suffix back into a Quantization.
// Round-trips with Suffix for every defined value.
func QuantizationFromSuffix(s string) (Quantization, bool) {
	for _, q := range allQuantizations {
		if string(q) == s {
			return q, true
		}
	}
	return "", false
}

// Variant is one downloadable artifact of a ModelInfo at a given
// quantization level.
type Variant struct {
	Quantization Quantization `json:"quantization"`
	SizeBytes    int64        `json:"size_bytes"`
	SHA256       string       `json:"sha256"`
	URL          string       `json:"url"`
}

// ModelInfo describes one speech model and its downloadable variants.
type ModelInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	MinRAMGB    int       `json:"min_ram_gb"`
	Variants    []Variant `json:"variants"`
}

// DefaultVariant returns the variant the recommender/installer should use
// absent an explicit choice: q5_1 if present, else the first entry.
func (m ModelInfo) DefaultVariant() (Variant, bool) {
	for _, v := range m.Variants {
		if v.Quantization == QuantQ5_1 {
			return v, true
		}
	}
	if len(m.Variants) > 0 {
		return m.Variants[0], true
	}
	return Variant{}, false
}

// Variant looks up a specific quantization of this model.
func (m ModelInfo) Variant(q Quantization) (Variant, bool) {
	for _, v := range m.Variants {
		if v.Quantization == q {
			return v, true
		}
	}
	return Variant{}, false
}

// Catalog is the embedded, versioned list of known models.
type Catalog struct {
	Version uint32      `json:"version"`
	Models  []ModelInfo `json:"models"`
}

//go:embed catalog.json
var embeddedCatalogJSON []byte

// LoadEmbeddedCatalog parses the build-time embedded JSON catalog. Failing
// to parse it is a fatal init-time error.
func LoadEmbeddedCatalog() (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(embeddedCatalogJSON, &c); err != nil {
		return nil, fmt.Errorf("%w: parse embedded catalog: %v", apperr.ErrSerialization, err)
	}
	return &c, nil
}

// Find looks up a model by id.
func (c *Catalog) Find(id string) (ModelInfo, bool) {
	for _, m := range c.Models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}
