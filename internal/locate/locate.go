// Package locate finds the files that make up a class in the project tree.
package locate

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/phobologic/classkit/internal/config"
	"github.com/phobologic/classkit/internal/discover"
	"github.com/phobologic/classkit/internal/fsutil"
	"github.com/phobologic/classkit/internal/insert"
	"github.com/phobologic/classkit/internal/lang"
	"github.com/phobologic/classkit/internal/model"
	"github.com/phobologic/classkit/internal/parse"
)

// headerParser parses headers for class and method definitions.
type headerParser struct {
	cfg    *config.Config
	lang   *lang.Language
	parser *sitter.Parser
	query  *sitter.Query
}

func newHeaderParser(cfg *config.Config) (*headerParser, error) {
	l := lang.Languages["cpp"]
	query, err := l.GetTagQuery()
	if err != nil {
		return nil, err
	}
	return &headerParser{cfg: cfg, lang: l, parser: l.NewParser(), query: query}, nil
}

func (h *headerParser) Close() {
	h.parser.Close()
}

// classes returns every class and struct defined in the header at rel,
// each with its methods.
func (h *headerParser) classes(rel string) ([]model.ClassInfo, error) {
	source, err := os.ReadFile(h.cfg.Path(rel))
	if err != nil {
		return nil, err
	}
	tags := parse.ExtractTags(h.lang, h.parser, h.query, source, rel)
	var out []model.ClassInfo
	for _, tag := range parse.Classes(tags) {
		info := describe(h.cfg, tag)
		info.Methods = parse.MethodsOf(tags, tag.Name)
		out = append(out, info)
	}
	return out, nil
}

// Index parses every header under the source root and returns the classes
// and structs defined there, sorted by name and then header path.
func Index(cfg *config.Config, logger *zap.Logger) ([]model.ClassInfo, error) {
	h, err := newHeaderParser(cfg)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	var (
		classes []model.ClassInfo
		headers int
	)
	for rel, err := range discover.Seq(cfg.Dir, []string{cfg.SourceDir}, discover.Options{
		Extensions: h.lang.HeaderExtensions,
		Exclude:    cfg.Exclude,
	}) {
		if err != nil {
			return nil, fmt.Errorf("discovering headers: %w", err)
		}
		headers++
		found, err := h.classes(rel)
		if err != nil {
			logger.Warn("skipping unreadable header", zap.String("path", rel), zap.Error(err))
			continue
		}
		classes = append(classes, found...)
	}
	logger.Debug("indexed headers", zap.Int("headers", headers), zap.Int("classes", len(classes)))

	sort.SliceStable(classes, func(i, j int) bool {
		if classes[i].Name != classes[j].Name {
			return classes[i].Name < classes[j].Name
		}
		return classes[i].Header < classes[j].Header
	})
	return classes, nil
}

// Class resolves the header and implementation of class name. The
// conventional <source_dir>/<Name>.h is tried first; otherwise the source
// tree is indexed and exactly one header must define the class. Structs are
// reported as invalid input since only "class" bodies can be edited.
func Class(cfg *config.Config, name string, logger *zap.Logger) (model.ClassInfo, error) {
	if !model.IsIdentifier(name) {
		return model.ClassInfo{}, fmt.Errorf("%w: class name %q is not an identifier", model.ErrInvalidInput, name)
	}

	conventional := path.Join(cfg.SourceDir, name+".h")
	if fsutil.Exists(cfg.Path(conventional)) {
		logger.Debug("using conventional header", zap.String("path", conventional))
		return ForHeader(cfg, name, conventional)
	}

	all, err := Index(cfg, logger)
	if err != nil {
		return model.ClassInfo{}, err
	}
	var found, structs []model.ClassInfo
	for _, c := range all {
		switch {
		case c.Name != name:
		case c.Kind == model.Struct:
			structs = append(structs, c)
		default:
			found = append(found, c)
		}
	}

	switch len(found) {
	case 0:
		if len(structs) > 0 {
			return model.ClassInfo{}, notAClass(structs[0])
		}
		return model.ClassInfo{}, fmt.Errorf("%w: class %s under %s", model.ErrNotFound, name, cfg.SourceDir)
	case 1:
		return found[0], nil
	}
	paths := make([]string, len(found))
	for i, c := range found {
		paths[i] = c.Header
	}
	return model.ClassInfo{}, fmt.Errorf("%w: class %s is defined in %s; pass -header", model.ErrAmbiguous, name, strings.Join(paths, ", "))
}

// Target converts a located class into the file paths the insertion engine
// works on. The implementation path is the header's sibling .cpp even when
// that file does not exist, so the engine can report it.
func Target(cfg *config.Config, info model.ClassInfo) insert.Target {
	return insert.Target{
		Class:  info.Name,
		Header: cfg.Path(info.Header),
		Impl:   cfg.Path(implFor(info.Header)),
	}
}

// ForHeader builds the class description for an explicitly named header.
// The header is parsed for the definition line and methods; when it cannot be
// read or does not define name, only the paths are filled in and the
// insertion engine reports the problem.
func ForHeader(cfg *config.Config, name, header string) (model.ClassInfo, error) {
	header = path.Clean(header)
	fallback := describe(cfg, model.Tag{Name: name, SymbolKind: model.Class, File: header})

	h, err := newHeaderParser(cfg)
	if err != nil {
		return model.ClassInfo{}, err
	}
	defer h.Close()

	found, err := h.classes(header)
	if err != nil {
		return fallback, nil
	}
	var strct *model.ClassInfo
	for i, c := range found {
		if c.Name != name {
			continue
		}
		if c.Kind != model.Struct {
			return c, nil
		}
		strct = &found[i]
	}
	if strct != nil {
		return model.ClassInfo{}, notAClass(*strct)
	}
	return fallback, nil
}

func notAClass(c model.ClassInfo) error {
	return fmt.Errorf("%w: %s in %s is a struct; only classes can be edited", model.ErrInvalidInput, c.Name, c.Header)
}

func describe(cfg *config.Config, tag model.Tag) model.ClassInfo {
	info := model.ClassInfo{Name: tag.Name, Kind: tag.SymbolKind, Header: tag.File, Line: tag.Line}
	if impl := implFor(tag.File); fsutil.Exists(cfg.Path(impl)) {
		info.Impl = impl
	}
	if test := path.Join(cfg.TestDir, "test_"+tag.Name+".cpp"); fsutil.Exists(cfg.Path(test)) {
		info.Test = test
	}
	return info
}

func implFor(header string) string {
	return strings.TrimSuffix(header, path.Ext(header)) + ".cpp"
}
