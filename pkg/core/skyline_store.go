package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"skylinedb/pkg/common"
	"skylinedb/pkg/config"
	"skylinedb/pkg/core/memory"
	"skylinedb/pkg/logging"
	"skylinedb/pkg/monitor"
	"skylinedb/pkg/rtree"
	"skylinedb/pkg/skyline"
	"skylinedb/pkg/storage"
)

var (
	ErrNotFound       = errors.New("point not found")
	ErrMalformedPoint = errors.New("malformed point")
	ErrDuplicateID    = errors.New("duplicate point id")
)

// SkylineStore owns a point index together with its skyline. Every
// mutation updates the index first and then maintains the skyline from the
// pre-mutation set; callers are serialized by one mutex.
type SkylineStore struct {
	mutex       sync.Mutex
	index       *rtree.RTree
	skyline     skyline.Set
	catalog     *memory.Catalog
	nextID      common.KeyType
	sinceVerify int
	lastStats   skyline.Stats

	stats   *monitor.WorkloadStats
	metrics *monitor.Metrics
	conf    *config.Config
	logger  zerolog.Logger
}

func NewSkylineStore(cfg *config.Config, logger zerolog.Logger) *SkylineStore {
	return &SkylineStore{
		index:   rtree.New(cfg.Index.MaxChildren),
		skyline: skyline.Set{},
		catalog: memory.NewCatalog(32),
		stats:   monitor.NewWorkloadStats(),
		metrics: monitor.NewMetrics(),
		conf:    cfg,
		logger:  logging.Component(logger, "store"),
	}
}

// Load adds a batch of points and recomputes the skyline from scratch.
// Entries with a zero ID get a fresh one; explicit IDs must be unused. The
// store is left untouched when any entry is rejected.
func (ss *SkylineStore) Load(entries []common.Entry) error {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	batch := make([]common.Entry, len(entries))
	seen := make(map[common.KeyType]struct{}, len(entries))
	// 目录里的最大 ID 优先，防止 nextID 落后
	next := max(ss.nextID, ss.catalog.MaxKey())
	for i, e := range entries {
		if !e.Point.Finite() {
			return fmt.Errorf("entry %d: %w: %s", i, ErrMalformedPoint, e.Point)
		}
		if e.ID != 0 {
			if _, ok := seen[e.ID]; ok {
				return fmt.Errorf("entry %d: %w: %d", i, ErrDuplicateID, e.ID)
			}
			if _, ok := ss.catalog.Get(e.ID); ok {
				return fmt.Errorf("entry %d: %w: %d", i, ErrDuplicateID, e.ID)
			}
			seen[e.ID] = struct{}{}
			next = max(next, e.ID)
		}
		batch[i] = e
	}
	for i := range batch {
		if batch[i].ID == 0 {
			for {
				next++
				if _, ok := seen[next]; !ok {
					break
				}
			}
			batch[i].ID = next
		}
	}
	ss.nextID = next

	for _, e := range batch {
		ss.catalog.Put(e)
	}
	ss.index = ss.index.Add(batch...)
	ss.recomputeLocked()

	ss.logger.Info().
		Int("loaded", len(batch)).
		Int("points", ss.index.Size()).
		Int("skyline", len(ss.skyline)).
		Int("height", ss.index.Height()).
		Msg("dataset loaded")
	return nil
}

// LoadFile loads a text or SQLite dataset. Stored IDs are discarded so the
// file can be loaded next to existing points.
func (ss *SkylineStore) LoadFile(path string) (int, error) {
	entries, err := storage.LoadDataset(path)
	if err != nil {
		return 0, fmt.Errorf("load dataset %s: %w", path, err)
	}
	for i := range entries {
		entries[i].ID = 0
	}
	if err := ss.Load(entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Insert adds one point and patches the skyline incrementally.
func (ss *SkylineStore) Insert(p common.Point, val common.ValueType) (common.Entry, error) {
	if !p.Finite() {
		return common.Entry{}, fmt.Errorf("%w: %s", ErrMalformedPoint, p)
	}

	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	ss.nextID = max(ss.nextID, ss.catalog.MaxKey()) + 1
	e := common.Entry{ID: ss.nextID, Value: val, Point: p}

	ss.index = ss.index.Add(e)
	ss.catalog.Put(e)
	ss.skyline = skyline.Insert(ss.skyline, e)

	ss.stats.RecordInsert()
	ss.metrics.ObserveInsert()
	ss.logger.Debug().Int64("id", int64(e.ID)).Str("point", p.String()).Int("skyline", len(ss.skyline)).Msg("insert")
	ss.maybeVerifyLocked()
	ss.metrics.SetSizes(ss.index.Size(), len(ss.skyline))
	return e, nil
}

// Delete removes the point with the given ID. member reports whether the
// point was on the skyline.
func (ss *SkylineStore) Delete(id common.KeyType) (member bool, err error) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	e, ok := ss.catalog.Get(id)
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	ss.index = ss.index.Delete(e, false)
	ss.catalog.Delete(id)

	member = ss.skyline.IndexOf(e) >= 0
	var region int
	ss.skyline, region = skyline.DeleteWithRegion(ss.skyline, ss.index, e)

	ss.stats.RecordDelete(member)
	ss.metrics.ObserveDelete(member, region)
	ss.logger.Debug().
		Int64("id", int64(id)).
		Bool("member", member).
		Int("region_points", region).
		Int("skyline", len(ss.skyline)).
		Msg("delete")
	ss.maybeVerifyLocked()
	ss.metrics.SetSizes(ss.index.Size(), len(ss.skyline))
	return member, nil
}

func (ss *SkylineStore) Get(id common.KeyType) (common.Entry, bool) {
	return ss.catalog.Get(id)
}

// Skyline returns a copy of the current skyline, ascending by x.
func (ss *SkylineStore) Skyline() []common.Entry {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	ss.stats.RecordQuery()
	return ss.skyline.Clone()
}

// SkylineSize reports the skyline cardinality without counting a query.
func (ss *SkylineStore) SkylineSize() int {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	return len(ss.skyline)
}

// Search returns the points inside r.
func (ss *SkylineStore) Search(r common.Rect) []common.Entry {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	ss.stats.RecordQuery()
	return ss.index.Search(r)
}

// Points returns every stored point in ID order.
func (ss *SkylineStore) Points() []common.Entry {
	res := make([]common.Entry, 0, ss.catalog.Count())
	ss.catalog.Iterator(func(e common.Entry) bool {
		res = append(res, e)
		return true
	})
	return res
}

// Range returns the stored points with from <= ID <= to, ascending by ID.
func (ss *SkylineStore) Range(from, to common.KeyType) []common.Entry {
	ss.stats.RecordQuery()
	return ss.catalog.Scan(from, to)
}

// Recompute discards the maintained skyline and runs a full traversal.
func (ss *SkylineStore) Recompute() []common.Entry {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	ss.recomputeLocked()
	return ss.skyline.Clone()
}

func (ss *SkylineStore) recomputeLocked() skyline.Set {
	s, st := skyline.ComputeWithStats(ss.index.Root())
	ss.skyline = s
	ss.lastStats = st
	ss.sinceVerify = 0

	ss.stats.RecordRecompute()
	ss.metrics.ObserveRecompute(st.NodesExpanded, st.Pruned)
	ss.metrics.SetSizes(ss.index.Size(), len(s))
	ss.logger.Debug().
		Int("nodes_expanded", st.NodesExpanded).
		Int("entries_checked", st.EntriesChecked).
		Int("pruned", st.Pruned).
		Int("skyline", st.Accepted).
		Msg("skyline recomputed")
	return s
}

// maybeVerifyLocked cross-checks the maintained skyline against a full
// recomputation every conf.Skyline.VerifyEvery mutations and keeps the
// recomputed one.
func (ss *SkylineStore) maybeVerifyLocked() {
	every := ss.conf.Skyline.VerifyEvery
	if every <= 0 {
		return
	}
	ss.sinceVerify++
	if ss.sinceVerify < every {
		return
	}
	maintained := ss.skyline
	fresh := ss.recomputeLocked()
	if !fresh.Equal(maintained) {
		ss.stats.RecordDivergence()
		ss.metrics.ObserveDivergence()
		ss.logger.Warn().
			Int("maintained", len(maintained)).
			Int("recomputed", len(fresh)).
			Msg("maintained skyline diverged from recomputation")
	}
}

// Reset drops every point.
func (ss *SkylineStore) Reset() {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	ss.index = rtree.New(ss.conf.Index.MaxChildren)
	ss.skyline = skyline.Set{}
	ss.catalog.Clear()
	ss.nextID = 0
	ss.sinceVerify = 0
	ss.metrics.SetSizes(0, 0)
	ss.logger.Info().Msg("store reset")
}

func (ss *SkylineStore) Size() int {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	return ss.index.Size()
}

func (ss *SkylineStore) Metrics() *monitor.Metrics {
	return ss.metrics
}

func (ss *SkylineStore) Stats() map[string]interface{} {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	res := map[string]interface{}{
		"points":            ss.index.Size(),
		"skyline_size":      len(ss.skyline),
		"index_height":      ss.index.Height(),
		"max_children":      ss.index.MaxChildren(),
		"verify_every":      ss.conf.Skyline.VerifyEvery,
		"maintenance_ratio": ss.stats.GetMaintenanceRatio(),
		"last_traversal":    ss.lastStats,
	}
	for k, v := range ss.stats.Snapshot() {
		res[k] = v
	}
	return res
}
