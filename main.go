// classkit scaffolds C++ classes, edits their declarations and keeps the
// CMake source lists of a project in sync.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/phobologic/classkit/internal/build"
	"github.com/phobologic/classkit/internal/config"
	"github.com/phobologic/classkit/internal/fsutil"
	"github.com/phobologic/classkit/internal/insert"
	"github.com/phobologic/classkit/internal/lang"
	"github.com/phobologic/classkit/internal/locate"
	"github.com/phobologic/classkit/internal/logging"
	"github.com/phobologic/classkit/internal/manifest"
	"github.com/phobologic/classkit/internal/model"
	"github.com/phobologic/classkit/internal/preview"
	"github.com/phobologic/classkit/internal/scaffold"
	"github.com/phobologic/classkit/internal/tags"
	"github.com/phobologic/classkit/internal/toon"
	versionfile "github.com/phobologic/classkit/internal/version"
)

var version = "dev"

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(exitCode(err, os.Stderr))
}

// usageError marks bad invocations; they exit with status 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return 0
	}
	_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

// env is the per-invocation state shared by all subcommands.
type env struct {
	dir        string
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
	stdout     io.Writer
	stderr     io.Writer
}

type command struct {
	args  string
	about string
	run   func(e *env, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"new":          {"[subdir] ClassName", "scaffold a header, implementation and test for a class", runNew},
		"add-func":     {`ClassName "ret name(args)"`, "declare and stub a member function", runAddFunc},
		"tag":          {"file tag", "add a Catch2 tag to every TEST_CASE in a file", runTag},
		"regen":        {"", "regenerate the CMake source and test lists", runRegen},
		"classes":      {"", "list the classes defined under the source root", runClasses},
		"build":        {"", "configure and build the project with CMake", runBuild},
		"version-bump": {"versionFile headerFile", "increment the patch version and write the version header", runVersionBump},
		"init":         {"", "write a default config and include the generated lists from CMakeLists.txt", runInit},
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("classkit", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		dir         string
		configPath  string
		verbose     bool
		showVersion bool
	)

	fs.StringVar(&dir, "C", ".", "project directory")
	fs.StringVar(&configPath, "config", "", "config file (default <dir>/"+config.FileName+")")
	fs.BoolVar(&verbose, "v", false, "enable debug logging")
	fs.BoolVar(&showVersion, "V", false, "show version and exit")
	fs.BoolVar(&showVersion, "version", false, "show version and exit")
	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError{msg: err.Error()}
	}

	if showVersion {
		_, _ = fmt.Fprintf(stdout, "classkit %s\n", version)
		return nil
	}

	if fs.NArg() == 0 {
		printUsage(fs)
		return usagef("no command given")
	}
	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		return usagef("unknown command %q", name)
	}

	dir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving project dir: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("project dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", dir)
	}
	if configPath != "" && !filepath.IsAbs(configPath) {
		configPath = filepath.Join(dir, configPath)
	}

	var cfg *config.Config
	if name == "init" && configPath != "" && !fsutil.Exists(configPath) {
		// init creates the explicit config file, so it may not exist yet.
		cfg = config.Default()
		cfg.Dir = dir
	} else if cfg, err = config.Load(dir, configPath); err != nil {
		return err
	}

	logger, err := logging.New(verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Debug("loaded config", zap.String("dir", dir), zap.String("command", name))

	e := &env{
		dir:        dir,
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
		stdout:     stdout,
		stderr:     stderr,
	}
	return cmd.run(e, fs.Args()[1:])
}

func printUsage(fs *flag.FlagSet) {
	w := fs.Output()
	_, _ = fmt.Fprintf(w, "Usage: classkit [flags] <command> [command flags] [args]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		c := commands[n]
		_, _ = fmt.Fprintf(w, "  %-13s %s\n", n, c.about)
	}
	_, _ = fmt.Fprintf(w, "\nFlags:\n")
	fs.PrintDefaults()
}

// newFlagSet builds the flag set for one subcommand.
func (e *env) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("classkit "+name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	c := commands[name]
	fs.Usage = func() {
		_, _ = fmt.Fprintf(e.stderr, "Usage: classkit %s [flags] %s\n\n%s\n", name, c.args, c.about)
		fs.PrintDefaults()
	}
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(reorderArgs(args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError{msg: err.Error()}
	}
	return nil
}

// rel returns p relative to the project directory for display.
func (e *env) rel(p string) string {
	if r, err := filepath.Rel(e.dir, p); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return p
}

// abs resolves a user-supplied path against the project directory.
func (e *env) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.dir, p)
}

func runNew(e *env, args []string) error {
	fs := e.newFlagSet("new")
	var noRegen bool
	fs.BoolVar(&noRegen, "no-regen", false, "do not regenerate the CMake lists afterwards")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var spec model.ClassSpec
	switch fs.NArg() {
	case 1:
		spec = model.ClassSpec{Name: fs.Arg(0)}
	case 2:
		spec = model.ClassSpec{Subdir: fs.Arg(0), Name: fs.Arg(1)}
	default:
		fs.Usage()
		return usagef("new takes [subdir] ClassName")
	}

	results, err := scaffold.Create(e.cfg, spec, e.logger)
	for _, r := range results {
		if r.Outcome == model.Skipped {
			_, _ = fmt.Fprintf(e.stdout, "skipped %s (already exists)\n", r.Path)
			continue
		}
		_, _ = fmt.Fprintf(e.stdout, "created %s\n", r.Path)
	}
	if err != nil {
		return err
	}

	if noRegen {
		return nil
	}
	return regenerate(e)
}

func runAddFunc(e *env, args []string) error {
	fs := e.newFlagSet("add-func")
	var (
		header string
		dryRun bool
	)
	fs.StringVar(&header, "header", "", "header declaring the class, relative to the project dir")
	fs.BoolVar(&dryRun, "dry-run", false, "print the edits as a diff without writing")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return usagef(`add-func takes ClassName "ret name(args)"`)
	}
	className, sig := fs.Arg(0), fs.Arg(1)

	var info model.ClassInfo
	if header != "" {
		if !model.IsIdentifier(className) {
			return fmt.Errorf("%w: class name %q is not an identifier", model.ErrInvalidInput, className)
		}
		if !lang.Languages["cpp"].IsHeader(header) {
			return fmt.Errorf("%w: %s is not a C++ header", model.ErrInvalidInput, header)
		}
		var err error
		if info, err = locate.ForHeader(e.cfg, className, e.rel(e.abs(header))); err != nil {
			return err
		}
	} else {
		var err error
		if info, err = locate.Class(e.cfg, className, e.logger); err != nil {
			return err
		}
	}
	target := locate.Target(e.cfg, info)
	for _, m := range overloads(info, sig) {
		_, _ = fmt.Fprintf(e.stdout, "note: %s already declared at %s:%d as %q\n", m.Name, info.Header, m.Line, m.Signature)
	}

	if dryRun {
		changes, err := insert.Plan(target, sig)
		if err != nil {
			return err
		}
		for _, c := range changes {
			if err := preview.Write(e.stdout, e.rel(c.Path), []byte(c.Before), []byte(c.After)); err != nil {
				return err
			}
		}
		return nil
	}

	changes, err := insert.AddFunction(target, sig)
	if err != nil {
		return err
	}
	for i, c := range changes {
		what := "declaration"
		if i > 0 {
			what = "definition"
		}
		if c.Outcome == model.Duplicate {
			_, _ = fmt.Fprintf(e.stdout, "%s already present in %s\n", what, e.rel(c.Path))
			continue
		}
		_, _ = fmt.Fprintf(e.stdout, "added %s to %s\n", what, e.rel(c.Path))
	}
	return nil
}

// overloads returns the methods of info sharing sig's name but declared with
// a different signature.
func overloads(info model.ClassInfo, sig string) []model.Tag {
	parsed, err := model.ParseSignature(strings.TrimSuffix(strings.TrimSpace(sig), ";"))
	if err != nil {
		return nil
	}
	decl := lang.CollapseWhitespace(insert.DeclarationLine(sig))
	var out []model.Tag
	for _, m := range info.Methods {
		if _, name, _ := strings.Cut(m.Name, "."); name == parsed.Name() && m.Signature != decl {
			out = append(out, m)
		}
	}
	return out
}

func runTag(e *env, args []string) error {
	fs := e.newFlagSet("tag")
	var dryRun, list bool
	fs.BoolVar(&dryRun, "dry-run", false, "print the edits as a diff without writing")
	fs.BoolVar(&list, "list", false, "list the test cases and their tags instead of editing")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if list {
		if fs.NArg() != 1 {
			fs.Usage()
			return usagef("tag -list takes a file")
		}
		path := e.abs(fs.Arg(0))
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", model.ErrNotFound, e.rel(path))
			}
			return fmt.Errorf("reading %s: %w", path, err)
		}
		_, _ = fmt.Fprintln(e.stdout, toon.EncodeTests(e.rel(path), tags.Parse(string(data))))
		return nil
	}

	if fs.NArg() != 2 {
		fs.Usage()
		return usagef("tag takes file tag")
	}
	path := e.abs(fs.Arg(0))
	res, err := tags.AnnotateFile(path, fs.Arg(1), !dryRun)
	if err != nil {
		return err
	}
	tag, _ := tags.NormalizeTag(fs.Arg(1))

	if dryRun {
		return preview.Write(e.stdout, e.rel(path), []byte(res.Before), []byte(res.After))
	}
	if res.Modified == 0 {
		_, _ = fmt.Fprintf(e.stdout, "no changes: every test case in %s already has [%s]\n", e.rel(path), tag)
		return nil
	}
	_, _ = fmt.Fprintf(e.stdout, "added [%s] to %d test case(s) in %s\n", tag, res.Modified, e.rel(path))
	return nil
}

func runRegen(e *env, args []string) error {
	fs := e.newFlagSet("regen")
	var check bool
	fs.BoolVar(&check, "check", false, "report stale lists and fail instead of writing")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return usagef("regen takes no arguments")
	}

	if !check {
		return regenerate(e)
	}
	stale, err := manifest.Stale(e.cfg)
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		for _, s := range stale {
			_, _ = fmt.Fprintf(e.stdout, "stale %s\n", s)
		}
		return fmt.Errorf("%d CMake list(s) out of date; run classkit regen", len(stale))
	}
	_, _ = fmt.Fprintln(e.stdout, "all CMake lists up to date")
	return nil
}

func regenerate(e *env) error {
	results, err := manifest.Regenerate(e.cfg, e.logger)
	for _, r := range results {
		if r.Outcome == model.Unchanged {
			_, _ = fmt.Fprintf(e.stdout, "unchanged %s\n", r.Output)
			continue
		}
		_, _ = fmt.Fprintf(e.stdout, "wrote %s (%d files)\n", r.Output, r.Entries)
	}
	return err
}

func runClasses(e *env, args []string) error {
	fs := e.newFlagSet("classes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return usagef("classes takes no arguments")
	}

	classes, err := locate.Index(e.cfg, e.logger)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(e.stdout, toon.EncodeClasses(filepath.Base(e.dir), e.cfg.SourceDir, classes))
	return nil
}

// newRunner creates the process runner for build; tests replace it.
var newRunner = func(stdout, stderr io.Writer) build.Runner {
	return build.ExecRunner{Stdout: stdout, Stderr: stderr}
}

func runBuild(e *env, args []string) error {
	fs := e.newFlagSet("build")
	var opts build.Options
	fs.StringVar(&opts.Target, "target", "", "build target (default from config)")
	fs.StringVar(&opts.Config, "config", "", "build type, e.g. Debug or Release")
	fs.StringVar(&opts.Generator, "generator", "", "CMake generator")
	fs.BoolVar(&opts.Clean, "clean", false, "remove the build directory first")
	fs.IntVar(&opts.Parallel, "parallel", 0, "parallel build jobs (0 lets CMake decide)")
	fs.BoolVar(&opts.Tests, "tests", false, "build the tests target")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return usagef("build takes no arguments")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return build.Run(ctx, e.cfg, opts, newRunner(e.stdout, e.stderr), e.stdout, e.logger)
}

func runVersionBump(e *env, args []string) error {
	fs := e.newFlagSet("version-bump")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return usagef("version-bump takes versionFile headerFile")
	}

	v, err := versionfile.Bump(e.abs(fs.Arg(0)), e.abs(fs.Arg(1)))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.stdout, "version %s\n", v)
	return nil
}

// flagsWithValue lists subcommand flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-header": true, "--header": true,
	"-target": true, "--target": true,
	"-config": true, "--config": true,
	"-generator": true, "--generator": true,
	"-parallel": true, "--parallel": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
