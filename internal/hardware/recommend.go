package hardware

import (
	"fmt"

	"github.com/localcue/dictate/internal/apperr"
	"github.com/localcue/dictate/internal/model"
)

// Recommendation is the chosen model id + quantization for a hardware
// profile.
type Recommendation struct {
	ModelID      string
	Quantization model.Quantization
}

// Recommend picks a model id and quantization from the hardware profile:
//
//	< 4 GB         -> tiny,  q5_1
//	4-7 GB         -> base,  q5_1
//	>= 8 GB, good SIMD  -> small, q5_1
//	>= 8 GB, poor SIMD  -> small, q5_1
//
// It fails with ModelNotFound if the chosen id is absent from the catalog —
// catalogs must be kept in sync with this table.
func Recommend(p Profile, catalog *model.Catalog) (Recommendation, error) {
	ramGB := p.RAMGB()

	var id string
	switch {
	case ramGB < 4:
		id = "whisper-tiny"
	case ramGB < 8:
		id = "whisper-base"
	default:
		id = "whisper-small"
	}

	if _, ok := catalog.Find(id); !ok {
		return Recommendation{}, fmt.Errorf("%w: recommended id %q absent from catalog", apperr.ErrModelNotFound, id)
	}
	return Recommendation{ModelID: id, Quantization: model.QuantQ5_1}, nil
}
