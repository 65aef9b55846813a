package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	cases := []struct {
		env, level string
		want       zapcore.Level
	}{
		{"production", "", zapcore.InfoLevel},
		{"development", "", zapcore.DebugLevel},
		{"production", "warn", zapcore.WarnLevel},
		{"", "error", zapcore.ErrorLevel},
	}
	for _, tc := range cases {
		logger, err := New(tc.env, tc.level)
		if err != nil {
			t.Fatalf("New(%q, %q): %v", tc.env, tc.level, err)
		}
		if !logger.Core().Enabled(tc.want) || logger.Core().Enabled(tc.want-1) {
			t.Errorf("New(%q, %q) not at level %v", tc.env, tc.level, tc.want)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("production", "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
