// Package config loads the classkit project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// FileName is the default configuration file name, relative to the project dir.
const FileName = ".classkit.yaml"

// Config holds all classkit configuration. Paths are relative to Dir.
type Config struct {
	// Dir is the project directory. It is never read from the file.
	Dir string `yaml:"-"`

	SourceDir  string     `yaml:"source_dir"`
	TestDir    string     `yaml:"test_dir"`
	Extensions []string   `yaml:"extensions"`
	Exclude    []string   `yaml:"exclude,omitempty"` // doublestar globs on project-relative paths
	Manifests  []Manifest `yaml:"manifests"`
	Build      Build      `yaml:"build"`
}

// Manifest binds a scanned root to a generated CMake list.
type Manifest struct {
	Root     string `yaml:"root"`
	Output   string `yaml:"output"`
	Variable string `yaml:"variable"`
}

// Build configures the external CMake collaborator.
type Build struct {
	Dir         string `yaml:"dir"`
	Target      string `yaml:"target"`
	TestsTarget string `yaml:"tests_target"`
	Config      string `yaml:"config"`
	Generator   string `yaml:"generator,omitempty"`
}

// Default returns the configuration matching the conventional project layout.
func Default() *Config {
	return &Config{
		Dir:        ".",
		SourceDir:  "SOURCE",
		TestDir:    "TESTS",
		Extensions: []string{".cpp", ".h"},
		Manifests: []Manifest{
			{Root: "SOURCE", Output: "CMAKE/SourceFiles.cmake", Variable: "SourceFiles"},
			{Root: "TESTS", Output: "CMAKE/TestFiles.cmake", Variable: "TestFiles"},
		},
		Build: Build{
			Dir:         "BUILD",
			Target:      "GrainMaker",
			TestsTarget: "Tests",
			Config:      "Debug",
		},
	}
}

// Load reads configuration for the project in dir. An empty path means
// dir/.classkit.yaml; a missing file yields the defaults.
func Load(dir, path string) (*Config, error) {
	cfg := Default()
	cfg.Dir = dir

	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Dir = dir

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("source_dir is empty")
	}
	if c.TestDir == "" {
		return fmt.Errorf("test_dir is empty")
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions is empty")
	}
	for _, pat := range c.Exclude {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("exclude: invalid glob %q", pat)
		}
	}
	for i, m := range c.Manifests {
		if m.Root == "" || m.Output == "" || m.Variable == "" {
			return fmt.Errorf("manifests[%d]: root, output and variable are required", i)
		}
	}
	return nil
}

// Path joins a project-relative path onto the project directory.
func (c *Config) Path(rel string) string {
	return filepath.Join(c.Dir, filepath.FromSlash(rel))
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CLASSKIT_BUILD_TARGET"); v != "" {
		c.Build.Target = v
	}
	if v := os.Getenv("CMAKE_BUILD_TYPE"); v != "" {
		c.Build.Config = v
	}
	if v := os.Getenv("CMAKE_GENERATOR"); v != "" && c.Build.Generator == "" {
		c.Build.Generator = v
	}
}
