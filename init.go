package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/phobologic/classkit/internal/config"
	"github.com/phobologic/classkit/internal/fsutil"
	"github.com/phobologic/classkit/internal/preview"
)

const (
	sentinelStart = "# classkit:start"
	sentinelEnd   = "# classkit:end"

	cmakeListsFile = "CMakeLists.txt"
)

// runInit implements `classkit init`, which writes a default config file if
// none exists and includes the generated lists from CMakeLists.txt.
func runInit(e *env, args []string) error {
	fs := e.newFlagSet("init")
	var dryRun bool
	fs.BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying any file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return usagef("init takes no arguments")
	}

	if err := initConfig(e, dryRun); err != nil {
		return err
	}
	return initCMakeLists(e, dryRun)
}

func initConfig(e *env, dryRun bool) error {
	path := e.configPath
	if path == "" {
		path = filepath.Join(e.dir, config.FileName)
	}
	data, err := config.Default().Marshal()
	if err != nil {
		return err
	}

	if dryRun {
		if fsutil.Exists(path) {
			_, _ = fmt.Fprintf(e.stdout, "%s exists, leaving it alone\n", e.rel(path))
			return nil
		}
		return preview.Write(e.stdout, e.rel(path), nil, data)
	}

	created, err := fsutil.CreateExclusive(path, data)
	if err != nil {
		return err
	}
	if created {
		_, _ = fmt.Fprintf(e.stdout, "created %s\n", e.rel(path))
	} else {
		_, _ = fmt.Fprintf(e.stdout, "skipped %s (already exists)\n", e.rel(path))
	}
	return nil
}

func initCMakeLists(e *env, dryRun bool) error {
	path := filepath.Join(e.dir, cmakeListsFile)
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	updated := applySection(string(existing), generateSection(e.cfg))

	if dryRun {
		return preview.Write(e.stdout, cmakeListsFile, existing, []byte(updated))
	}
	if updated == string(existing) {
		_, _ = fmt.Fprintf(e.stdout, "%s already up to date\n", cmakeListsFile)
		return nil
	}
	if err := fsutil.WriteAtomic(path, []byte(updated)); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.stdout, "wrote classkit section to %s\n", cmakeListsFile)
	return nil
}

// generateSection returns the sentinel-wrapped block that pulls each
// generated list into the CMake project.
func generateSection(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString(sentinelStart + "\n")
	b.WriteString("# Generated by classkit; regenerate the lists with `classkit regen`.\n")
	for _, m := range cfg.Manifests {
		fmt.Fprintf(&b, "include(${CMAKE_CURRENT_SOURCE_DIR}/%s)\n", m.Output)
	}
	b.WriteString(sentinelEnd)
	return b.String()
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	if content == "" {
		return section + "\n"
	}
	// Append, ensuring a blank line separator.
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
