// Package build drives the CMake configure and build steps for a project.
package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/phobologic/classkit/internal/config"
)

// Runner executes one external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands as child processes with inherited output streams.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run starts the command and waits for it. Cancelling ctx kills the process.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}

// Options overrides the configured build settings for one invocation.
type Options struct {
	Target    string
	Config    string
	Generator string
	Clean     bool
	Parallel  int
	Tests     bool // build the configured tests target instead of Target
}

// IsMultiConfig reports whether a CMake generator selects the build type at
// build time rather than at configure time.
func IsMultiConfig(generator string) bool {
	g := strings.ToLower(generator)
	return strings.Contains(g, "visual studio") ||
		strings.Contains(g, "xcode") ||
		strings.Contains(g, "multi-config")
}

// Plan is the pair of cmake invocations for one build.
type Plan struct {
	BuildDir  string
	Configure []string
	Build     []string
}

// NewPlan resolves the effective settings and returns the commands to run.
func NewPlan(cfg *config.Config, opts Options) (Plan, error) {
	src, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return Plan{}, fmt.Errorf("resolving project dir: %w", err)
	}
	dir := cfg.Build.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(src, filepath.FromSlash(dir))
	}

	target := cfg.Build.Target
	if opts.Tests {
		target = cfg.Build.TestsTarget
	}
	if opts.Target != "" {
		target = opts.Target
	}
	if target == "" {
		return Plan{}, fmt.Errorf("no build target configured")
	}
	buildType := cfg.Build.Config
	if opts.Config != "" {
		buildType = opts.Config
	}
	generator := cfg.Build.Generator
	if opts.Generator != "" {
		generator = opts.Generator
	}
	multi := IsMultiConfig(generator)

	configure := []string{"cmake", "-S", src, "-B", dir}
	if generator != "" {
		configure = append(configure, "-G", generator)
	}
	if !multi && buildType != "" {
		configure = append(configure, "-DCMAKE_BUILD_TYPE="+buildType)
	}

	build := []string{"cmake", "--build", dir, "--target", target}
	if multi && buildType != "" {
		build = append(build, "--config", buildType)
	}
	if opts.Parallel > 0 {
		build = append(build, "--parallel", strconv.Itoa(opts.Parallel))
	}

	return Plan{BuildDir: dir, Configure: configure, Build: build}, nil
}

// Run configures and builds the project, echoing each command to out.
func Run(ctx context.Context, cfg *config.Config, opts Options, runner Runner, out io.Writer, logger *zap.Logger) error {
	plan, err := NewPlan(cfg, opts)
	if err != nil {
		return err
	}

	if opts.Clean {
		logger.Debug("removing build dir", zap.String("dir", plan.BuildDir))
		if err := os.RemoveAll(plan.BuildDir); err != nil {
			return fmt.Errorf("cleaning %s: %w", plan.BuildDir, err)
		}
	}
	if err := os.MkdirAll(plan.BuildDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", plan.BuildDir, err)
	}

	for _, cmd := range [][]string{plan.Configure, plan.Build} {
		fmt.Fprintf(out, "+ %s\n", strings.Join(cmd, " "))
		if err := runner.Run(ctx, cmd[0], cmd[1:]...); err != nil {
			return err
		}
	}
	return nil
}
