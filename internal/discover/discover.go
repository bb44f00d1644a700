// Package discover finds the source files that belong in a manifest.
package discover

import (
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/classkit/internal/model"
)

// Options filters the files a walk collects.
type Options struct {
	// Extensions are matched as file name suffixes, e.g. ".cpp".
	Extensions []string
	// Exclude holds doublestar globs matched against base-relative paths.
	Exclude []string
}

// Files walks each root (relative to base) and returns the base-relative,
// forward-slash paths of every file whose name ends in one of the
// extensions, sorted lexicographically and without duplicates.
// A root that does not exist contributes no entries.
func Files(base string, roots []string, opts Options) ([]string, error) {
	for _, pat := range opts.Exclude {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("%w: exclude pattern %q", model.ErrInvalidInput, pat)
		}
	}
	gi := loadGitignore(base)

	var results []string
	for _, root := range roots {
		found, err := walkRoot(base, root, gi, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, found...)
	}

	slices.Sort(results)
	return slices.Compact(results), nil
}

// Seq is Files as a deferred sequence: nothing is walked until the sequence
// is ranged over, and every range performs a fresh walk. Paths are sorted
// across roots, so the whole walk finishes before the first path is yielded.
// A walk error is yielded once with an empty path and ends the sequence.
func Seq(base string, roots []string, opts Options) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		paths, err := Files(base, roots, opts)
		if err != nil {
			yield("", err)
			return
		}
		for _, p := range paths {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func walkRoot(base, root string, gi *ignore.GitIgnore, opts Options) ([]string, error) {
	start := filepath.Join(base, filepath.FromSlash(root))
	info, err := os.Stat(start)
	if err != nil || !info.IsDir() {
		return nil, nil
	}

	var results []string

	err = filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == start {
				return nil
			}
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if !hasExtension(name, opts.Extensions) {
			return nil
		}

		rel, err := filepath.Rel(base, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if excluded(rel, opts.Exclude) {
			return nil
		}

		results = append(results, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return results, nil
}

func hasExtension(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func excluded(rel string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func loadGitignore(base string) *ignore.GitIgnore {
	path := filepath.Join(base, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
