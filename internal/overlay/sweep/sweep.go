// Package sweep overlays every visible element of a document in one pass.
package sweep

import (
	"errors"

	"go.uber.org/zap"

	"github.com/xkilldash9x/boxlens/api/schemas"
	"github.com/xkilldash9x/boxlens/internal/dom"
	"github.com/xkilldash9x/boxlens/internal/overlay/gaps"
	"github.com/xkilldash9x/boxlens/internal/overlay/geometry"
	"github.com/xkilldash9x/boxlens/internal/overlay/metrics"
)

// Scanner walks a document in order and collects bands for each element until
// a cap is hit.
type Scanner struct {
	logger *zap.Logger
	geo    geometry.Calculator
	gaps   gaps.Calculator
}

// NewScanner wires a scanner to its calculators.
func NewScanner(logger *zap.Logger, geo geometry.Calculator, gapCalc gaps.Calculator) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		logger: logger.Named("sweep"),
		geo:    geo,
		gaps:   gapCalc,
	}
}

// Sweep processes the elements of doc. A limit that is not positive is
// unbounded. Elements that contribute no band do not count towards
// MaxElements.
func (s *Scanner) Sweep(doc dom.Document, limits schemas.SweepLimits) schemas.SweepResult {
	var (
		res    schemas.SweepResult
		vp     = doc.Viewport()
		budget *gaps.Budget
	)
	if limits.MaxGapSegments > 0 {
		budget = gaps.NewBudget(limits.MaxGapSegments)
	}

	for _, el := range doc.Elements() {
		if el.IsInspectorUI() {
			res.Skipped++
			continue
		}

		r, err := el.Rect()
		if err != nil {
			res.Failed++
			s.logger.Debug("Skipping unreadable element.", zap.Int("key", el.Key()), zap.Error(err))
			continue
		}
		if (r.Width == 0 && r.Height == 0) || !vp.Intersects(r) {
			res.Skipped++
			continue
		}

		snap, err := metrics.Extract(el, vp)
		if err != nil {
			if errors.Is(err, metrics.ErrTransientRead) {
				res.Failed++
				s.logger.Debug("Skipping unreadable element.", zap.Int("key", el.Key()), zap.Error(err))
			} else {
				res.Skipped++
			}
			continue
		}

		before := len(res.Bands)
		res.Bands = append(res.Bands, s.geo.OutsetBands(snap.Box, snap.Margin, schemas.RoleMargin)...)
		res.Bands = append(res.Bands, s.geo.InsetBands(snap.Box, snap.Padding, schemas.RolePadding)...)

		if snap.RowGap > 0 || snap.ColumnGap > 0 {
			children := metrics.ChildBoxes(el, vp)
			g := s.gaps.Compute(snap.Box, children, snap.RowGap, snap.ColumnGap, budget)
			res.Bands = append(res.Bands, g.Bands...)
			if g.Capped {
				res.Capped |= schemas.CapGapSegments
			}
		}

		if len(res.Bands) > before {
			res.Processed++
		}
		if limits.MaxElements > 0 && res.Processed >= limits.MaxElements {
			res.Capped |= schemas.CapElements
		}
		if res.Capped != schemas.CapNone {
			break
		}
	}

	if res.Capped != schemas.CapNone {
		s.logger.Info("Sweep capped.",
			zap.Stringer("reason", res.Capped),
			zap.Int("processed", res.Processed),
			zap.Int("bands", len(res.Bands)),
		)
	} else {
		s.logger.Debug("Sweep complete.",
			zap.Int("processed", res.Processed),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
			zap.Int("bands", len(res.Bands)),
		)
	}
	return res
}
