package shared

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLogger(t *testing.T) {
	t.Run("Writes To Given Writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "test")
		logger.Info("hello")

		if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "component=test") {
			t.Errorf("unexpected log output %q", buf.String())
		}
	})

	t.Run("ParseLogLevel", func(t *testing.T) {
		if ParseLogLevel("debug") != log.DebugLevel {
			t.Error("expected debug level")
		}
		if ParseLogLevel("nonsense") != log.InfoLevel {
			t.Error("expected fallback to info level")
		}
	})

	t.Run("NewFileLogger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "coursex.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("failed to create file logger: %v", err)
		}
		logger.Info("to file")
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if !strings.Contains(string(content), "to file") {
			t.Errorf("expected log line in file, got %q", content)
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if len(a) != 36 {
		t.Errorf("expected uuid string, got %q", a)
	}
	if a == b {
		t.Error("expected distinct ids")
	}
}

func TestOpenBrowser(t *testing.T) {
	origRuntime, origStart := getRuntime, startCommand
	t.Cleanup(func() { getRuntime, startCommand = origRuntime, origStart })

	tc := []struct {
		goos string
		want string
	}{
		{goos: "darwin", want: "open"},
		{goos: "linux", want: "xdg-open"},
		{goos: "windows", want: "rundll32"},
	}

	for _, tt := range tc {
		t.Run(tt.goos, func(t *testing.T) {
			var started *exec.Cmd
			getRuntime = func() string { return tt.goos }
			startCommand = func(cmd *exec.Cmd) error {
				started = cmd
				return nil
			}

			if err := OpenBrowser("https://example.com/video.mp4"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if started == nil || filepath.Base(started.Args[0]) != tt.want {
				t.Errorf("expected %s launcher, got %v", tt.want, started)
			}
			if started.Args[len(started.Args)-1] != "https://example.com/video.mp4" {
				t.Errorf("expected url as last argument, got %v", started.Args)
			}
		})
	}

	t.Run("Unsupported Platform", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }
		if err := OpenBrowser("https://example.com"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})

	t.Run("Start Failure", func(t *testing.T) {
		getRuntime = func() string { return "linux" }
		startCommand = func(*exec.Cmd) error { return errors.New("no display") }
		if err := OpenBrowser("https://example.com"); err == nil || !strings.Contains(err.Error(), "failed to open browser") {
			t.Errorf("expected wrapped start error, got %v", err)
		}
	})
}
