package logging

import "testing"

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		name  string
		debug string
		level string
		want  Level
	}{
		{"defaults to info", "", "", LevelInfo},
		{"explicit debug", "", "debug", LevelDebug},
		{"explicit info", "", "info", LevelInfo},
		{"warn", "", "warn", LevelWarn},
		{"warning alias", "", "warning", LevelWarn},
		{"error", "", "error", LevelError},
		{"mixed case", "", "ERROR", LevelError},
		{"unknown falls back to info", "", "verbose", LevelInfo},
		{"debug flag wins", "1", "error", LevelDebug},
		{"debug true", "true", "", LevelDebug},
		{"debug yes", "YES", "", LevelDebug},
		{"debug on", "on", "", LevelDebug},
		{"debug false ignored", "false", "warn", LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := levelFromEnv(tt.debug, tt.level); got != tt.want {
				t.Errorf("levelFromEnv(%q, %q) = %v, want %v", tt.debug, tt.level, got, tt.want)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{Level(42), "unknown(42)"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", int(tt.level), got, tt.want)
		}
	}
}
