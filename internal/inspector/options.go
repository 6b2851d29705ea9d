package inspector

import (
	"time"

	"github.com/xkilldash9x/boxlens/api/schemas"
	"github.com/xkilldash9x/boxlens/internal/config"
	"github.com/xkilldash9x/boxlens/internal/overlay/gaps"
	"github.com/xkilldash9x/boxlens/internal/overlay/geometry"
)

// Options are the controller's tunables. They are fixed for the controller's
// lifetime.
type Options struct {
	MinLabelThickness float64
	MaxElements       int
	MaxGapSegments    int
	RowEpsilon        float64
	ColumnEpsilon     float64
	NoticeDuration    time.Duration
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		MinLabelThickness: geometry.DefaultMinLabelThickness,
		MaxElements:       300,
		MaxGapSegments:    600,
		RowEpsilon:        gaps.DefaultEpsilon,
		ColumnEpsilon:     gaps.DefaultEpsilon,
		NoticeDuration:    1400 * time.Millisecond,
	}
}

// OptionsFromConfig copies the inspector section of the configuration.
func OptionsFromConfig(cfg config.InspectorConfig) Options {
	return Options{
		MinLabelThickness: cfg.MinLabelThicknessPx,
		MaxElements:       cfg.MaxElements,
		MaxGapSegments:    cfg.MaxGapSegments,
		RowEpsilon:        cfg.RowGroupingEpsilonPx,
		ColumnEpsilon:     cfg.ColumnGroupingEpsilonPx,
		NoticeDuration:    cfg.NoticeDuration,
	}
}

// Limits returns the sweep caps.
func (o Options) Limits() schemas.SweepLimits {
	return schemas.SweepLimits{MaxElements: o.MaxElements, MaxGapSegments: o.MaxGapSegments}
}
