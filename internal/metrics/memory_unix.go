//go:build unix

package metrics

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"golang.org/x/sys/unix"
)

// ResidentMemory reports the process resident set size. On Linux it reads
// /proc/self/statm; elsewhere, or when procfs is unavailable, it falls back
// to the peak RSS from getrusage.
func ResidentMemory() (uint64, error) {
	if runtime.GOOS == "linux" {
		if rss, err := statmRSS(); err == nil {
			return rss, nil
		}
	}
	return rusageMaxRSS()
}

func statmRSS() (uint64, error) {
	b, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return 0, err
	}
	return parseStatm(b, uint64(unix.Getpagesize()))
}

// parseStatm extracts the resident page count, the second field.
func parseStatm(b []byte, pageSize uint64) (uint64, error) {
	fields := bytes.Fields(b)
	if len(fields) < 2 {
		return 0, fmt.Errorf("statm: unexpected format %q", b)
	}
	pages, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("statm: %w", err)
	}
	return pages * pageSize, nil
}

func rusageMaxRSS() (uint64, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, fmt.Errorf("getrusage: %w", err)
	}
	rss := uint64(ru.Maxrss)
	// Darwin reports bytes, the others kilobytes.
	if runtime.GOOS != "darwin" && runtime.GOOS != "ios" {
		rss *= 1024
	}
	return rss, nil
}
