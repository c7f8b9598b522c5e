package helpers

import "runtime"

// -----------------------------------------------------------------------------

// MemoryStatus reports process and system memory for the health surface.
type MemoryStatus struct {
	SystemTotalMB  int    `json:"system_total_mb"`
	ProcessAllocMB uint64 `json:"process_alloc_mb"`
	NumGoroutine   int    `json:"goroutines"`
}

// -----------------------------------------------------------------------------

// ReadMemoryStatus samples current memory usage. SystemTotalMB is 0 when the
// platform shim cannot determine physical memory.
func ReadMemoryStatus() MemoryStatus {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return MemoryStatus{
		SystemTotalMB:  GetTotalSystemMemoryMB(),
		ProcessAllocMB: ms.Alloc / 1024 / 1024,
		NumGoroutine:   runtime.NumGoroutine(),
	}
}
