package steps

import (
	"testing"

	"github.com/systemstart/assetpipe/pkg/api"
)

func TestMatchFiles_OrderAndExclude(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"js/b.js", "js/a.js", "js/vendor/c.js", "js/skip.js", "js/readme.txt"} {
		writeTestFile(t, dir, f, "x")
	}

	matches, err := matchFiles(dir, api.FileFilter{
		Include: []string{"js/b.js", "js/**/*.js"},
		Exclude: []string{"js/skip.js"},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"js/b.js", "js/a.js", "js/vendor/c.js"}
	if len(matches) != len(want) {
		t.Fatalf("got %d matches (%v), want %d", len(matches), matches, len(want))
	}
	for i, m := range matches {
		if m.Path != want[i] {
			t.Errorf("match %d = %q, want %q", i, m.Path, want[i])
		}
	}
}

func TestMatchFiles_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "img/icons/a.svg", "<svg/>")

	matches, err := matchFiles(dir, api.FileFilter{Include: []string{"img/**"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Path != "img/icons/a.svg" {
		t.Fatalf("expected only the file, got %v", matches)
	}
}

func TestMatchFiles_MissingDirectory(t *testing.T) {
	matches, err := matchFiles(t.TempDir(), api.FileFilter{Include: []string{"nowhere/**/*.js"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches, got %v", matches)
	}
}

func TestFileMatch_RelTo(t *testing.T) {
	tests := []struct {
		name  string
		match fileMatch
		base  string
		want  string
	}{
		{"explicit base", fileMatch{Path: "source/img/a/b.png", Base: "source/img"}, "source", "img/a/b.png"},
		{"glob base", fileMatch{Path: "source/img/a/b.png", Base: "source/img"}, "", "a/b.png"},
		{"literal file", fileMatch{Path: "node_modules/x/dist/x.js", Base: "node_modules/x/dist"}, "", "x.js"},
		{"root glob", fileMatch{Path: "index.html", Base: "."}, "", "index.html"},
		{"base does not contain file", fileMatch{Path: "lib/x.js", Base: "lib"}, "source", "x.js"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.match.relTo(tt.base); got != tt.want {
				t.Errorf("relTo(%q) = %q, want %q", tt.base, got, tt.want)
			}
		})
	}
}
