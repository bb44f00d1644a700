// Package manifest renders and writes the CMake file lists consumed by the
// project's build configuration.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/phobologic/classkit/internal/config"
	"github.com/phobologic/classkit/internal/discover"
	"github.com/phobologic/classkit/internal/fsutil"
	"github.com/phobologic/classkit/internal/model"
)

const indent = "    "

// Render returns the CMake set() block for m. Entries are emitted in the
// order given; callers pass the sorted catalog output.
func Render(m model.Manifest) string {
	return "set(" + m.Variable + "\n" + indent + strings.Join(m.Entries, "\n"+indent) + "\n)"
}

// Write renders m and atomically replaces path with it. The previous file is
// left untouched if anything fails.
func Write(path string, m model.Manifest) error {
	if m.Variable == "" {
		return fmt.Errorf("%w: manifest variable name is empty", model.ErrInvalidInput)
	}
	return fsutil.WriteAtomic(path, []byte(Render(m)))
}

// Result reports what regeneration did to one output file.
type Result struct {
	Output  string
	Entries int
	Outcome model.Outcome // Written or Unchanged
}

// Build scans one configured root and returns its manifest.
func Build(cfg *config.Config, mc config.Manifest) (model.Manifest, error) {
	entries, err := discover.Files(cfg.Dir, []string{mc.Root}, discover.Options{
		Extensions: cfg.Extensions,
		Exclude:    cfg.Exclude,
	})
	if err != nil {
		return model.Manifest{}, fmt.Errorf("scanning %s: %w", mc.Root, err)
	}
	return model.Manifest{Variable: mc.Variable, Entries: entries}, nil
}

// Regenerate rebuilds every configured manifest from scratch. Outputs whose
// bytes would not change are not rewritten.
func Regenerate(cfg *config.Config, logger *zap.Logger) ([]Result, error) {
	results := make([]Result, 0, len(cfg.Manifests))
	for _, mc := range cfg.Manifests {
		m, err := Build(cfg, mc)
		if err != nil {
			return results, err
		}
		if len(m.Entries) == 0 {
			logger.Warn("manifest root has no matching files", zap.String("root", mc.Root))
		}

		out := cfg.Path(mc.Output)
		rendered := []byte(Render(m))
		if existing, err := os.ReadFile(out); err == nil && bytes.Equal(existing, rendered) {
			logger.Debug("manifest unchanged", zap.String("output", mc.Output))
			results = append(results, Result{Output: mc.Output, Entries: len(m.Entries), Outcome: model.Unchanged})
			continue
		}

		if err := Write(out, m); err != nil {
			return results, err
		}
		logger.Debug("manifest written", zap.String("output", mc.Output), zap.Int("entries", len(m.Entries)))
		results = append(results, Result{Output: mc.Output, Entries: len(m.Entries), Outcome: model.Written})
	}
	return results, nil
}

// Stale returns the outputs whose on-disk content differs from what
// Regenerate would write. Nothing is modified.
func Stale(cfg *config.Config) ([]string, error) {
	var stale []string
	for _, mc := range cfg.Manifests {
		m, err := Build(cfg, mc)
		if err != nil {
			return nil, err
		}
		existing, err := os.ReadFile(cfg.Path(mc.Output))
		if err != nil || string(existing) != Render(m) {
			stale = append(stale, mc.Output)
		}
	}
	return stale, nil
}
