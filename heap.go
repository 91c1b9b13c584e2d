package miniracer

import (
	"encoding/json"

	"github.com/bpcreech/go-mini-racer/internal/engine"
	"github.com/bpcreech/go-mini-racer/internal/value"
)

// HeapReporter renders isolate heap statistics as JSON string values.
// Reading the statistics is thread safe, so no pump round trip is needed;
// reports still flow through the task runner so the host can cancel them
// like any other request.
type HeapReporter struct {
	mgr     *engine.Manager
	factory *value.Factory
}

type heapStats struct {
	TotalPhysicalSize       uint64 `json:"total_physical_size"`
	TotalHeapSizeExecutable uint64 `json:"total_heap_size_executable"`
	TotalHeapSize           uint64 `json:"total_heap_size"`
	UsedHeapSize            uint64 `json:"used_heap_size"`
	HeapSizeLimit           uint64 `json:"heap_size_limit"`
}

// heapSnapshot is the extended statistics document behind Snapshot.
type heapSnapshot struct {
	heapStats
	TotalAvailableSize       uint64 `json:"total_available_size"`
	NumberOfNativeContexts   uint64 `json:"number_of_native_contexts"`
	NumberOfDetachedContexts uint64 `json:"number_of_detached_contexts"`
}

// Stats returns the summary heap document as a string value.
func (h *HeapReporter) Stats() *value.Value {
	s := h.mgr.HeapStatistics()
	return h.marshal(heapStats{
		TotalPhysicalSize:       s.TotalPhysicalSize,
		TotalHeapSizeExecutable: s.TotalHeapSizeExecutable,
		TotalHeapSize:           s.TotalHeapSize,
		UsedHeapSize:            s.UsedHeapSize,
		HeapSizeLimit:           s.HeapSizeLimit,
	})
}

// Snapshot returns the extended statistics document as a string value.
func (h *HeapReporter) Snapshot() *value.Value {
	s := h.mgr.HeapStatistics()
	return h.marshal(heapSnapshot{
		heapStats: heapStats{
			TotalPhysicalSize:       s.TotalPhysicalSize,
			TotalHeapSizeExecutable: s.TotalHeapSizeExecutable,
			TotalHeapSize:           s.TotalHeapSize,
			UsedHeapSize:            s.UsedHeapSize,
			HeapSizeLimit:           s.HeapSizeLimit,
		},
		TotalAvailableSize:       s.TotalAvailableSize,
		NumberOfNativeContexts:   s.NumberOfNativeContexts,
		NumberOfDetachedContexts: s.NumberOfDetachedContexts,
	})
}

func (h *HeapReporter) marshal(doc any) *value.Value {
	buf, err := json.Marshal(doc)
	if err != nil {
		return h.factory.FromError(err, value.KindValueException)
	}
	return h.factory.FromString(string(buf), value.KindString)
}
