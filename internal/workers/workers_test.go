package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	available := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{"cpu bound", 1.0, 0, available},
		{"io bound", 2.0, 0, 2 * available},
		{"limit applies", 2.0, 1, 1},
		{"zero multiplier floors at one", 0.0, 0, 1},
		{"large limit is ignored", 1.0, 10000, available},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestCountOverride(t *testing.T) {
	t.Setenv("MEDIACAT_WORKERS", "3")
	if got := Count(1.0, 0); got != 3 {
		t.Errorf("Count with override = %d, want 3", got)
	}
	if got := Count(1.0, 2); got != 2 {
		t.Errorf("Count with override above limit = %d, want 2", got)
	}

	t.Setenv("MEDIACAT_WORKERS", "not-a-number")
	if got := Count(1.0, 0); got != runtime.GOMAXPROCS(0) {
		t.Errorf("Count with invalid override = %d, want %d", got, runtime.GOMAXPROCS(0))
	}
}

func TestForCPUForIO(t *testing.T) {
	if ForCPU(1) != 1 {
		t.Error("ForCPU(1) should be capped at 1")
	}
	if ForIO(0) < ForCPU(0) {
		t.Error("ForIO should never return fewer workers than ForCPU")
	}
}
