package tags

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/classkit/internal/model"
)

func TestAnnotate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		tag   string
		want  string
		count int
	}{
		{
			"no tags",
			`TEST_CASE("Basic")`,
			"Granulator",
			`TEST_CASE("Basic", "[Granulator]")`,
			1,
		},
		{
			"merge with existing",
			`TEST_CASE("Basic", "[Unit][Fast]")`,
			"Granulator",
			`TEST_CASE("Basic", "[Unit][Fast][Granulator]")`,
			1,
		},
		{
			"already present in middle",
			`TEST_CASE("Basic", "[Unit][Fast][Granulator]")`,
			"Fast",
			`TEST_CASE("Basic", "[Unit][Fast][Granulator]")`,
			0,
		},
		{
			"empty tag list",
			`TEST_CASE("Basic", "")`,
			"Unit",
			`TEST_CASE("Basic", "[Unit]")`,
			1,
		},
		{
			"spacing preserved before name",
			"TEST_CASE ( \"Spaced\" , \"[a]\" )",
			"b",
			"TEST_CASE ( \"Spaced\", \"[a][b]\")",
			1,
		},
		{
			"multiple declarations",
			"TEST_CASE(\"one\", \"[x]\")\n{\n}\n\nTEST_CASE(\"two\", \"[y]\")\n{\n}\n",
			"x",
			"TEST_CASE(\"one\", \"[x]\")\n{\n}\n\nTEST_CASE(\"two\", \"[y][x]\")\n{\n}\n",
			1,
		},
		{
			"escaped quote in name",
			`TEST_CASE("say \"hi\"", "[a]")`,
			"b",
			`TEST_CASE("say \"hi\"", "[a][b]")`,
			1,
		},
		{
			"prefix is not substring match",
			`TEST_CASE("n", "[Granulator]")`,
			"Gran",
			`TEST_CASE("n", "[Granulator][Gran]")`,
			1,
		},
		{
			"no test cases",
			"int main() {}\n",
			"x",
			"int main() {}\n",
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, n := Annotate(tt.in, tt.tag)
			if got != tt.want {
				t.Errorf("Annotate = %q, want %q", got, tt.want)
			}
			if n != tt.count {
				t.Errorf("count = %d, want %d", n, tt.count)
			}
		})
	}
}

func TestAnnotateTwiceIsIdempotent(t *testing.T) {
	t.Parallel()

	once, n1 := Annotate(`TEST_CASE("a", "[Unit]")`, "Granulator")
	twice, n2 := Annotate(once, "Granulator")
	if n1 != 1 || n2 != 0 {
		t.Errorf("counts = %d, %d, want 1, 0", n1, n2)
	}
	if once != twice {
		t.Errorf("second pass changed content: %q -> %q", once, twice)
	}
}

func TestNormalizeTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Foo", "Foo", false},
		{"[Foo]", "Foo", false},
		{" [Foo] ", "Foo", false},
		{"[[Foo]]", "Foo", false},
		{"[]", "", true},
		{"", "", true},
		{"a]b", "", true},
		{`a"b`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeTag(tt.in)
			if tt.wantErr {
				if !errors.Is(err, model.ErrInvalidInput) {
					t.Fatalf("err = %v, want ErrInvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("NormalizeTag(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	src := `#include <catch2/catch.hpp>

TEST_CASE("Granulator Test", "[Granulator][Unit]")
{
}

TEST_CASE("untagged")
{
}
`
	got := Parse(src)
	want := []model.TestDeclaration{
		{DisplayName: "Granulator Test", Tags: []string{"Granulator", "Unit"}, Line: 3},
		{DisplayName: "untagged", Line: 7},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse (-want +got):\n%s", diff)
	}
}

func TestAnnotateFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "test_Granulator.cpp")
	src := "TEST_CASE(\"a\", \"[Unit][Fast]\")\n{\n}\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := AnnotateFile(path, "[Granulator]", true)
	if err != nil {
		t.Fatalf("AnnotateFile: %v", err)
	}
	if res.Modified != 1 {
		t.Errorf("modified = %d, want 1", res.Modified)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "TEST_CASE(\"a\", \"[Unit][Fast][Granulator]\")\n{\n}\n" {
		t.Errorf("file = %q", got)
	}
}

func TestAnnotateFileNoChangeKeepsMtime(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "test_a.cpp")
	if err := os.WriteFile(path, []byte(`TEST_CASE("a", "[Fast]")`), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	res, err := AnnotateFile(path, "Fast", true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Modified != 0 {
		t.Errorf("modified = %d, want 0", res.Modified)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !fi.ModTime().Equal(old) {
		t.Errorf("mtime changed to %v", fi.ModTime())
	}
}

func TestAnnotateFileDryRun(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "test_a.cpp")
	src := `TEST_CASE("a")`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := AnnotateFile(path, "x", false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Modified != 1 || res.After == src {
		t.Errorf("dry run result = %+v", res)
	}
	got, _ := os.ReadFile(path)
	if string(got) != src {
		t.Errorf("dry run wrote the file: %q", got)
	}
}

func TestAnnotateFileMissing(t *testing.T) {
	t.Parallel()
	_, err := AnnotateFile(filepath.Join(t.TempDir(), "nope.cpp"), "x", true)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
