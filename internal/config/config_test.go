package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CLASSKIT_BUILD_TARGET", "")
	t.Setenv("CMAKE_BUILD_TYPE", "")
	t.Setenv("CMAKE_GENERATOR", "")

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	want.Dir = dir
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if _, err := Load(dir, filepath.Join(dir, "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CLASSKIT_BUILD_TARGET", "")
	t.Setenv("CMAKE_BUILD_TYPE", "")
	t.Setenv("CMAKE_GENERATOR", "")

	data := `source_dir: src
test_dir: test
extensions: [".cpp", ".hpp"]
exclude: ["src/**/*_backup.h"]
manifests:
  - root: src
    output: cmake/Sources.cmake
    variable: Sources
build:
  target: App
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SourceDir != "src" || cfg.TestDir != "test" {
		t.Errorf("dirs = %q, %q", cfg.SourceDir, cfg.TestDir)
	}
	if diff := cmp.Diff([]string{".cpp", ".hpp"}, cfg.Extensions); diff != "" {
		t.Errorf("extensions (-want +got):\n%s", diff)
	}
	if len(cfg.Manifests) != 1 || cfg.Manifests[0].Variable != "Sources" {
		t.Errorf("manifests = %+v", cfg.Manifests)
	}
	if cfg.Build.Target != "App" {
		t.Errorf("target = %q, want App", cfg.Build.Target)
	}
	// Unset keys keep their defaults.
	if cfg.Build.Dir != "BUILD" {
		t.Errorf("build dir = %q, want BUILD", cfg.Build.Dir)
	}
	if cfg.Dir != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, dir)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CLASSKIT_BUILD_TARGET", "Standalone")
	t.Setenv("CMAKE_BUILD_TYPE", "Release")
	t.Setenv("CMAKE_GENERATOR", "")

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Build.Target != "Standalone" {
		t.Errorf("target = %q, want Standalone", cfg.Build.Target)
	}
	if cfg.Build.Config != "Release" {
		t.Errorf("config = %q, want Release", cfg.Build.Config)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad yaml", "source_dir: [", "parsing config"},
		{"empty source", "source_dir: \"\"\n", "source_dir is empty"},
		{"empty extensions", "extensions: []\n", "extensions is empty"},
		{"incomplete manifest", "manifests:\n  - root: SOURCE\n", "manifests[0]"},
		{"bad exclude glob", "exclude: [\"SOURCE/[\"]\n", "invalid glob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			path := filepath.Join(dir, "c.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(dir, path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestMarshalRoundTripsThroughLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CLASSKIT_BUILD_TARGET", "")
	t.Setenv("CMAKE_BUILD_TYPE", "")
	t.Setenv("CMAKE_GENERATOR", "")

	data, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	want.Dir = dir
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestPath(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Dir = "/proj"
	if got := cfg.Path("CMAKE/SourceFiles.cmake"); got != filepath.Join("/proj", "CMAKE", "SourceFiles.cmake") {
		t.Errorf("Path = %q", got)
	}
}
