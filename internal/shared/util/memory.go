package util

import (
	"runtime"
)

const mib = 1 << 20

// HeapSample is a point-in-time reading of the Go heap.
type HeapSample struct {
	AllocBytes uint64
	Objects    uint64
}

// ReadHeap samples live heap bytes and objects.
func ReadHeap() HeapSample {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return HeapSample{AllocBytes: m.HeapAlloc, Objects: m.HeapObjects}
}

func (s HeapSample) MB() float64 {
	return float64(s.AllocBytes) / mib
}

// GrowthMB is the heap size change since an earlier sample; negative when a
// collection ran in between.
func (s HeapSample) GrowthMB(since HeapSample) float64 {
	return (float64(s.AllocBytes) - float64(since.AllocBytes)) / mib
}
