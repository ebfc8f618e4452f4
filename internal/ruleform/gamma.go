package ruleform

import (
	"context"
	"math"

	"github.com/sp2025/darkwatch/internal/models"
)

const gammaTolerance = 1e-9

// SensitivityStore reads and writes the saved gamma.
type SensitivityStore interface {
	Get(ctx context.Context) (*models.SensitivityConfig, error)
	Save(ctx context.Context, gamma float64) (*models.SensitivityConfig, error)
}

// GammaDraft tracks the slider value against the last saved value.
type GammaDraft struct {
	value float64
	saved float64
}

// LoadGammaDraft starts a draft from the stored value.
func LoadGammaDraft(ctx context.Context, store SensitivityStore) (*GammaDraft, error) {
	cfg, err := store.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &GammaDraft{value: cfg.Gamma, saved: cfg.Gamma}, nil
}

func (d *GammaDraft) Value() float64 { return d.value }
func (d *GammaDraft) Saved() float64 { return d.saved }

func (d *GammaDraft) Set(v float64) { d.value = v }

// Reset drops unsaved changes.
func (d *GammaDraft) Reset() { d.value = d.saved }

// Dirty reports whether the draft differs from the saved value.
func (d *GammaDraft) Dirty() bool {
	return math.Abs(d.value-d.saved) > gammaTolerance
}

// Save persists the draft. On success both values become what the store
// kept, which may be clamped; on failure the draft is left as is.
func (d *GammaDraft) Save(ctx context.Context, store SensitivityStore) error {
	cfg, err := store.Save(ctx, d.value)
	if err != nil {
		return err
	}
	d.value = cfg.Gamma
	d.saved = cfg.Gamma
	return nil
}
