package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInit(t *testing.T) {
	levels := []string{"debug", "info", "warn", "error", "unknown"}
	for _, level := range levels {
		Init(level)
		if Log == nil {
			t.Errorf("Init(%s) should set Log", level)
		}
	}
}

func TestInitWithConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{
			name: "json format stdout",
			config: Config{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
		},
		{
			name: "text format stderr",
			config: Config{
				Level:  "debug",
				Format: "text",
				Output: "stderr",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitWithConfig(tt.config)
			if Log == nil {
				t.Error("Log should not be nil")
			}
		})
	}
}

func TestInitWithConfig_FileOutput(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "searoute.log")

	InitWithConfig(Config{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logPath,
		MaxSize:  10,
	})

	Info("file output works", "component", "test")

	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("expected log file to exist: %v", err)
	}
}

func TestLoggingFunctions(t *testing.T) {
	Init("debug")

	// Не должны паниковать
	Debug("debug message", "key", "value")
	Info("info message", "key", "value")
	Warn("warn message", "key", "value")
	Error("error message", "key", "value")
}

func TestWithRequestID(t *testing.T) {
	Init("info")
	l := WithRequestID("req-123")
	if l == nil {
		t.Fatal("WithRequestID returned nil")
	}
	l.Info("tagged message")
}

func TestWithComponent(t *testing.T) {
	Init("info")
	l := WithComponent("pathfinder")
	if l == nil {
		t.Fatal("WithComponent returned nil")
	}
}

func TestWithFingerprint(t *testing.T) {
	Init("info")
	l := WithFingerprint("a1b2c3")
	if l == nil {
		t.Fatal("WithFingerprint returned nil")
	}
}
