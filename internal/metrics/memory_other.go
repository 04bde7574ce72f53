//go:build !unix

package metrics

import "runtime"

// ResidentMemory approximates resident memory with the bytes the Go runtime
// has obtained from the OS.
func ResidentMemory() (uint64, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.Sys, nil
}
