package steps

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/systemstart/assetpipe/pkg/api"
)

// captureLogs installs a JSON logger at level for the duration of the test.
func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestStepDetailLoggedAtDebug(t *testing.T) {
	tests := []struct {
		name      string
		level     slog.Level
		wantTrace bool
	}{
		{"info hides step detail", slog.LevelInfo, false},
		{"debug shows step detail", slog.LevelDebug, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeTestFile(t, dir, "source/a.txt", "a")
			buf := captureLogs(t, tt.level)

			step := NewCopyStep("copy", &api.CopyConfig{Base: "source", Dest: "build", Files: api.FileFilter{Include: []string{"source/*.txt"}}})
			runStep(t, step, dir)

			if got := strings.Contains(buf.String(), `"step":"copy"`); got != tt.wantTrace {
				t.Errorf("step detail logged = %v, want %v:\n%s", got, tt.wantTrace, buf.String())
			}
		})
	}
}

func TestInputFailureLoggedAtWarn(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	result := &StepResult{}
	result.fail("css", "source/sass/style.scss", errors.New("undefined variable"))

	if !strings.Contains(buf.String(), `"level":"WARN"`) || !strings.Contains(buf.String(), "source/sass/style.scss") {
		t.Errorf("input failure not logged at warn:\n%s", buf.String())
	}
}
