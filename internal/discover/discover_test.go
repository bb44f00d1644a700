package discover

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/classkit/internal/model"
)

var cppOpts = Options{Extensions: []string{".cpp", ".h"}}

func TestFilesSorted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "b/B.cpp", "")
	writeFile(t, dir, "a/A.h", "")
	writeFile(t, dir, "a/A.cpp", "")

	got, err := Files(dir, []string{"."}, cppOpts)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := []string{"a/A.cpp", "a/A.h", "b/B.cpp"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Files mismatch (-want +got):\n%s", diff)
	}
}

func TestFilesPrefixedWithRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "SOURCE/Granulator.cpp", "")
	writeFile(t, dir, "SOURCE/GRAIN/Grain.h", "")
	writeFile(t, dir, "TESTS/test_Granulator.cpp", "")
	// Wrong extensions are ignored.
	writeFile(t, dir, "SOURCE/notes.txt", "")
	writeFile(t, dir, "SOURCE/Granulator.hpp", "")

	got, err := Files(dir, []string{"SOURCE"}, cppOpts)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := []string{"SOURCE/GRAIN/Grain.h", "SOURCE/Granulator.cpp"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Files mismatch (-want +got):\n%s", diff)
	}
}

func TestFilesMultipleRootsAndMissingRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "TESTS/test_A.cpp", "")
	writeFile(t, dir, "SOURCE/A.cpp", "")

	got, err := Files(dir, []string{"TESTS", "MISSING", "SOURCE", "SOURCE"}, cppOpts)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := []string{"SOURCE/A.cpp", "TESTS/test_A.cpp"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Files mismatch (-want +got):\n%s", diff)
	}

	got, err = Files(dir, []string{"MISSING"}, cppOpts)
	if err != nil {
		t.Fatalf("Files on missing root: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("missing root produced %v", got)
	}
}

func TestFilesSkipsHiddenAndSymlinks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "SOURCE/Real.cpp", "")
	writeFile(t, dir, "SOURCE/.hidden/Secret.cpp", "")
	writeFile(t, dir, "SOURCE/.Dot.h", "")

	if err := os.Symlink(filepath.Join(dir, "SOURCE", "Real.cpp"), filepath.Join(dir, "SOURCE", "Link.cpp")); err != nil {
		t.Skip("symlinks not supported")
	}

	got, err := Files(dir, []string{"SOURCE"}, cppOpts)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := []string{"SOURCE/Real.cpp"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Files mismatch (-want +got):\n%s", diff)
	}
}

func TestFilesGitignoreAndExclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "Gen*.cpp\n")
	writeFile(t, dir, "SOURCE/A.cpp", "")
	writeFile(t, dir, "SOURCE/generated/Gen.cpp", "")
	writeFile(t, dir, "SOURCE/PITCH/PitchDetector_backup.h", "")
	writeFile(t, dir, "SOURCE/PITCH/PitchDetector.h", "")

	opts := cppOpts
	opts.Exclude = []string{"SOURCE/**/*_backup.h"}
	got, err := Files(dir, []string{"SOURCE"}, opts)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := []string{"SOURCE/A.cpp", "SOURCE/PITCH/PitchDetector.h"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Files mismatch (-want +got):\n%s", diff)
	}
}

func TestFilesInvalidExclude(t *testing.T) {
	t.Parallel()

	opts := cppOpts
	opts.Exclude = []string{"SOURCE/[unterminated"}
	_, err := Files(t.TempDir(), []string{"SOURCE"}, opts)
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSeqRestartable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "SOURCE/B.h", "")
	writeFile(t, dir, "SOURCE/A.h", "")

	seq := Seq(dir, []string{"SOURCE"}, cppOpts)
	collect := func() []string {
		var out []string
		for p, err := range seq {
			if err != nil {
				t.Fatalf("Seq: %v", err)
			}
			out = append(out, p)
		}
		return out
	}

	first := collect()
	writeFile(t, dir, "SOURCE/C.h", "")
	second := collect()

	if diff := cmp.Diff([]string{"SOURCE/A.h", "SOURCE/B.h"}, first); diff != "" {
		t.Errorf("first pass (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"SOURCE/A.h", "SOURCE/B.h", "SOURCE/C.h"}, second); diff != "" {
		t.Errorf("second pass (-want +got):\n%s", diff)
	}

	// Early break stops the walk without panicking.
	for range seq {
		break
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSeqDeferred(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seq := Seq(dir, []string{"SOURCE"}, cppOpts)
	writeFile(t, dir, "SOURCE/Late.h", "")

	var got []string
	for p, err := range seq {
		if err != nil {
			t.Fatalf("Seq: %v", err)
		}
		got = append(got, p)
	}
	if diff := cmp.Diff([]string{"SOURCE/Late.h"}, got); diff != "" {
		t.Errorf("files created after Seq was built (-want +got):\n%s", diff)
	}
}
