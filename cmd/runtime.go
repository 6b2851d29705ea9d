// File: cmd/runtime.go
package cmd

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxlens/api/schemas"
	"github.com/xkilldash9x/boxlens/internal/browser"
	"github.com/xkilldash9x/boxlens/internal/dom"
	"github.com/xkilldash9x/boxlens/internal/inspector"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonPanel prints hover summaries as JSON lines.
type jsonPanel struct {
	mu  sync.Mutex
	out io.Writer
	log *zap.Logger
}

func (p *jsonPanel) Show(s schemas.Summary) {
	p.write(map[string]interface{}{"summary": s})
}

func (p *jsonPanel) Hide() {
	p.write(map[string]interface{}{"summary": nil})
}

func (p *jsonPanel) write(v interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := json.NewEncoder(p.out).Encode(v); err != nil {
		p.log.Warn("Failed to write panel output.", zap.Error(err))
	}
}

// staticSource serves one captured document for offline runs.
type staticSource struct {
	doc *dom.Snapshot
}

func (s staticSource) Capture(context.Context, *schemas.Point) (dom.Document, error) {
	return s.doc, nil
}

// openPage starts a browser session on url.
func (a *app) openPage(ctx context.Context, url string) (*browser.Session, error) {
	cfg := a.cfg.Browser()
	s, err := browser.NewSession(ctx, cfg, a.cfg.Inspector().UIPrefix, a.logger)
	if err != nil {
		return nil, err
	}
	if err := s.Navigate(ctx, url); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// newController wires a controller to the given collaborators using the
// configured tunables.
func (a *app) newController(state schemas.State, deps inspector.Deps) (*inspector.Controller, error) {
	return inspector.New(a.logger, inspector.OptionsFromConfig(a.cfg.Inspector()), state, deps)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

func readPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// sweepReport is the printed outcome of a sweep.
type sweepReport struct {
	URL       string              `json:"url,omitempty"`
	Processed int                 `json:"processed"`
	Skipped   int                 `json:"skipped"`
	Failed    int                 `json:"failed"`
	Bands     int                 `json:"bands"`
	Capped    string              `json:"capped"`
	Notice    string              `json:"notice,omitempty"`
	Limits    schemas.SweepLimits `json:"limits"`
	Detail    []schemas.Band      `json:"detail,omitempty"`
}

func newSweepReport(url string, res schemas.SweepResult, limits schemas.SweepLimits, detail bool) sweepReport {
	r := sweepReport{
		URL:       url,
		Processed: res.Processed,
		Skipped:   res.Skipped,
		Failed:    res.Failed,
		Bands:     len(res.Bands),
		Capped:    res.Capped.String(),
		Notice:    res.Capped.Notice(limits),
		Limits:    limits,
	}
	if detail {
		r.Detail = res.Bands
	}
	return r
}
