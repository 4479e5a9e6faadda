package guard

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// ProcessResidentMemory is the default MemorySampler. It reads the resident
// set size from /proc/self/statm; on platforms without procfs it falls back
// to the Go heap size, which undercounts but never fails the run.
func ProcessResidentMemory() (uint64, error) {
	if usage, err := procResidentMemory(); err == nil {
		return usage, nil
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc, nil
}

// procResidentMemory parses the resident page count from /proc/self/statm.
func procResidentMemory() (uint64, error) {
	data, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return 0, fmt.Errorf("unexpected statm format: %q", string(data))
	}
	residentPages, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing statm resident pages: %w", err)
	}
	return residentPages * uint64(os.Getpagesize()), nil
}
