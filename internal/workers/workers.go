package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count returns a worker count for a task type, derived from the CPUs
// available to the process. GOMAXPROCS reflects container CPU limits
// (Go 1.19+), unlike runtime.NumCPU which reports the host count.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//
// The limit parameter caps the worker count; use 0 for no limit.
//
// Can be overridden with the MEDIACAT_WORKERS environment variable.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv("MEDIACAT_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	available := runtime.GOMAXPROCS(0)

	count := int(float64(available) * multiplier)
	if count < 1 {
		count = 1
	}
	if limit > 0 && count > limit {
		count = limit
	}

	return count
}

// ForCPU returns a worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns a worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}
