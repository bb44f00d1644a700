// Package scaffold generates the header, implementation and test files for a
// new class.
package scaffold

import (
	"fmt"
	"path"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/phobologic/classkit/internal/config"
	"github.com/phobologic/classkit/internal/fsutil"
	"github.com/phobologic/classkit/internal/model"
)

const headerTemplate = `#pragma once

#ifndef {{.Guard}}
#define {{.Guard}}

class {{.Name}}
{
public:
    {{.Name}}();
    ~{{.Name}}();
};

#endif // {{.Guard}}
`

const implTemplate = `#include "{{.Name}}.h"

{{.Name}}::{{.Name}}()
{
}

{{.Name}}::~{{.Name}}()
{
}
`

const testTemplate = `#define CATCH_CONFIG_MAIN
#include <catch2/catch.hpp>
#include "{{.Name}}.h"

TEST_CASE("{{.Name}} Test", "[{{.Name}}]")
{
    {{.Name}} obj;
    REQUIRE(true);
}
`

var templates = template.Must(template.New("header").Parse(headerTemplate))

func init() {
	template.Must(templates.New("impl").Parse(implTemplate))
	template.Must(templates.New("test").Parse(testTemplate))
}

// Files holds the generated contents of a class scaffold.
type Files struct {
	Header string
	Impl   string
	Test   string
}

// Paths holds the project-relative locations of a class scaffold.
type Paths struct {
	Header string
	Impl   string
	Test   string
}

// Validate checks that spec names a legal class and a subdirectory that
// stays inside the source root.
func Validate(spec model.ClassSpec) error {
	if !model.IsIdentifier(spec.Name) {
		return fmt.Errorf("%w: class name %q is not an identifier", model.ErrInvalidInput, spec.Name)
	}
	if spec.Subdir == "" {
		return nil
	}
	if strings.Contains(spec.Subdir, `\`) || path.IsAbs(spec.Subdir) {
		return fmt.Errorf("%w: subdirectory %q must be a relative forward-slash path", model.ErrInvalidInput, spec.Subdir)
	}
	clean := path.Clean(spec.Subdir)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: subdirectory %q escapes the source root", model.ErrInvalidInput, spec.Subdir)
	}
	return nil
}

// Normalize cleans the subdirectory so "dsp/" and "dsp" yield the same paths
// and guard.
func Normalize(spec model.ClassSpec) model.ClassSpec {
	if spec.Subdir != "" {
		spec.Subdir = path.Clean(spec.Subdir)
		if spec.Subdir == "." {
			spec.Subdir = ""
		}
	}
	return spec
}

// Render produces the scaffold contents for spec.
func Render(spec model.ClassSpec) (Files, error) {
	data := struct {
		Name  string
		Guard string
	}{spec.Name, spec.Guard()}

	var out [3]strings.Builder
	for i, name := range []string{"header", "impl", "test"} {
		if err := templates.ExecuteTemplate(&out[i], name, data); err != nil {
			return Files{}, fmt.Errorf("rendering %s: %w", name, err)
		}
	}
	return Files{Header: out[0].String(), Impl: out[1].String(), Test: out[2].String()}, nil
}

// PathsFor returns where the scaffold for spec lives under cfg.
func PathsFor(cfg *config.Config, spec model.ClassSpec) Paths {
	dir := path.Join(cfg.SourceDir, Normalize(spec).Subdir)
	return Paths{
		Header: path.Join(dir, spec.Name+".h"),
		Impl:   path.Join(dir, spec.Name+".cpp"),
		Test:   path.Join(cfg.TestDir, "test_"+spec.Name+".cpp"),
	}
}

// Create writes each scaffold file that does not exist yet. Existing files
// are reported as Skipped and never touched. Files created before an error
// are left in place.
func Create(cfg *config.Config, spec model.ClassSpec, logger *zap.Logger) ([]model.FileResult, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}
	spec = Normalize(spec)
	files, err := Render(spec)
	if err != nil {
		return nil, err
	}
	paths := PathsFor(cfg, spec)

	plan := []struct {
		rel     string
		content string
	}{
		{paths.Header, files.Header},
		{paths.Impl, files.Impl},
		{paths.Test, files.Test},
	}

	results := make([]model.FileResult, 0, len(plan))
	for _, p := range plan {
		created, err := fsutil.CreateExclusive(cfg.Path(p.rel), []byte(p.content))
		if err != nil {
			return results, err
		}
		outcome := model.Created
		if !created {
			outcome = model.Skipped
		}
		logger.Debug("scaffold file", zap.String("path", p.rel), zap.String("outcome", string(outcome)))
		results = append(results, model.FileResult{Path: p.rel, Outcome: outcome})
	}
	return results, nil
}
