package monitor

import (
	"sync/atomic"
)

type WorkloadStats struct {
	InsertCount     uint64
	DeleteCount     uint64
	NoopDeleteCount uint64
	RecomputeCount  uint64
	QueryCount      uint64
	DivergenceCount uint64
}

func NewWorkloadStats() *WorkloadStats {
	return &WorkloadStats{}
}

func (ws *WorkloadStats) RecordInsert() {
	atomic.AddUint64(&ws.InsertCount, 1)
}

// RecordDelete counts a delete; member reports whether the removed point
// was on the skyline.
func (ws *WorkloadStats) RecordDelete(member bool) {
	atomic.AddUint64(&ws.DeleteCount, 1)
	if !member {
		atomic.AddUint64(&ws.NoopDeleteCount, 1)
	}
}

func (ws *WorkloadStats) RecordRecompute() {
	atomic.AddUint64(&ws.RecomputeCount, 1)
}

func (ws *WorkloadStats) RecordQuery() {
	atomic.AddUint64(&ws.QueryCount, 1)
}

func (ws *WorkloadStats) RecordDivergence() {
	atomic.AddUint64(&ws.DivergenceCount, 1)
}

// GetMaintenanceRatio 增量维护次数与全量重算次数之比
func (ws *WorkloadStats) GetMaintenanceRatio() float64 {
	maint := atomic.LoadUint64(&ws.InsertCount) + atomic.LoadUint64(&ws.DeleteCount)
	recomputes := atomic.LoadUint64(&ws.RecomputeCount)

	if recomputes == 0 {
		if maint > 0 {
			return 100.0
		}
		return 0.0
	}
	return float64(maint) / float64(recomputes)
}

func (ws *WorkloadStats) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"inserts":      atomic.LoadUint64(&ws.InsertCount),
		"deletes":      atomic.LoadUint64(&ws.DeleteCount),
		"noop_deletes": atomic.LoadUint64(&ws.NoopDeleteCount),
		"recomputes":   atomic.LoadUint64(&ws.RecomputeCount),
		"queries":      atomic.LoadUint64(&ws.QueryCount),
		"divergences":  atomic.LoadUint64(&ws.DivergenceCount),
	}
}
