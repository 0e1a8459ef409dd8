package logs

import (
	"context"
	"log/slog"
	"testing"
)

func Test_GetLogger_Off(t *testing.T) {
	logger := GetLogger("run/test.log", "Off")

	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("Off logger is enabled at Error level")
	}

	// must not panic or write anywhere
	logger.Error("discarded", "error", "nothing")
}

func Test_Console_levels(t *testing.T) {
	testCases := []struct {
		level   string
		enabled slog.Level
		muted   slog.Level
	}{
		{"Debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"Warn", slog.LevelWarn, slog.LevelInfo},
	}
	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			logger := Console(tc.level)
			if !logger.Enabled(context.Background(), tc.enabled) {
				t.Errorf("level %s not enabled at %v", tc.level, tc.enabled)
			}
			if logger.Enabled(context.Background(), tc.muted) {
				t.Errorf("level %s enabled at %v", tc.level, tc.muted)
			}
		})
	}
}
