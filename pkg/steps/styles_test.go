package steps

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/systemstart/assetpipe/pkg/api"
)

// fakeCompiler writes a shell script that copies its second to last argument
// onto the last one, standing in for the sass CLI.
func fakeCompiler(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	script := filepath.Join(t.TempDir(), "fake-sass")
	content := "#!/bin/sh\nwhile [ $# -gt 2 ]; do shift; done\ncp \"$1\" \"$2\"\n"
	if err := os.WriteFile(script, []byte(content), 0o700); err != nil { //nolint:gosec // test helper must be executable
		t.Fatal(err)
	}
	return script
}

func TestStylesStep_MissingCompiler(t *testing.T) {
	step := NewStylesStep("css", &api.StylesConfig{
		Entry:    "source/sass/style.scss",
		Dest:     "build/css",
		Compiler: "assetpipe-no-such-compiler",
	})
	_, err := step.Run(context.Background(), StepContext{ProjectDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error for a missing compiler")
	}
}

func TestStylesStep_CompilePrefixMinify(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "source/sass/style.scss", "a {\n  color : red ;\n}\n")

	step := NewStylesStep("css", &api.StylesConfig{
		Entry:    "source/sass/style.scss",
		Dest:     "build/css",
		MinName:  "style.min.css",
		Compiler: fakeCompiler(t),
		Prefixer: []string{"cat"},
	})
	result := runStep(t, step, dir)
	if result.Failed() {
		t.Fatalf("unexpected failures: %v", result.Failures)
	}

	if got := readTestFile(t, dir, "build/css/style.css"); got != "a {\n  color : red ;\n}\n" {
		t.Errorf("style.css = %q", got)
	}
	if got := readTestFile(t, dir, "build/css/style.min.css"); got != "a{color:red}" {
		t.Errorf("style.min.css = %q", got)
	}
	if len(result.Outputs) != 2 {
		t.Errorf("outputs = %v", result.Outputs)
	}
}

func TestStylesStep_CompilerFailure(t *testing.T) {
	dir := t.TempDir()

	step := NewStylesStep("css", &api.StylesConfig{
		Entry:    "source/sass/missing.scss",
		Dest:     "build/css",
		MinName:  "style.min.css",
		Compiler: fakeCompiler(t),
	})
	result := runStep(t, step, dir)

	if len(result.Failures) != 1 || result.Failures[0].Input != "source/sass/missing.scss" {
		t.Fatalf("expected the entry to fail, got %v", result.Failures)
	}
	if _, err := os.Stat(filepath.Join(dir, "build", "css", "style.min.css")); !os.IsNotExist(err) {
		t.Error("no minified output expected after a failed compile")
	}
}

func TestStylesStep_PrefixerFailure(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "source/sass/style.scss", "a{color:red}")

	step := NewStylesStep("css", &api.StylesConfig{
		Entry:    "source/sass/style.scss",
		Dest:     "build/css",
		Compiler: fakeCompiler(t),
		Prefixer: []string{"false"},
	})
	result := runStep(t, step, dir)

	if len(result.Failures) != 1 || result.Failures[0].Input != "build/css/style.css" {
		t.Fatalf("expected the prefixer to fail, got %v", result.Failures)
	}
}
