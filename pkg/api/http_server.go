package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"skylinedb/pkg/common"
	"skylinedb/pkg/core"
	"skylinedb/pkg/logging"
	"skylinedb/pkg/storage"
)

// defaultMaxLoadBody bounds POST /api/load.
const defaultMaxLoadBody = 32 << 20

type Server struct {
	store       *core.SkylineStore
	logger      zerolog.Logger
	mux         *http.ServeMux
	limiter     *rate.Limiter
	maxLoadBody int64
}

func NewServer(store *core.SkylineStore, logger zerolog.Logger) *Server {
	s := &Server{
		store:  store,
		logger: logging.Component(logger, "api"),
		mux:    http.NewServeMux(),

		maxLoadBody: defaultMaxLoadBody,
	}
	s.mux.HandleFunc("/api/skyline", s.handleSkyline)
	s.mux.HandleFunc("/api/insert", s.handleInsert)
	s.mux.HandleFunc("/api/delete", s.handleDelete)
	s.mux.HandleFunc("/api/get", s.handleGet)
	s.mux.HandleFunc("/api/search", s.handleSearch)
	s.mux.HandleFunc("/api/points", s.handlePoints)
	s.mux.HandleFunc("/api/load", s.handleLoad)
	s.mux.HandleFunc("/api/recompute", s.handleRecompute)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/export", s.handleExport)
	s.mux.HandleFunc("/api/reset", s.handleReset)
	s.mux.Handle("/metrics", store.Metrics().Handler())
	return s
}

// SetRateLimit caps the request rate of the whole API; rps <= 0 disables
// the limit.
func (s *Server) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		s.limiter = nil
		return
	}
	s.limiter = rate.NewLimiter(rate.Limit(rps), max(1, burst))
}

func (s *Server) Handler() http.Handler {
	if s.limiter == nil {
		return s.mux
	}
	limiter := s.limiter
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		s.mux.ServeHTTP(w, r)
	})
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("http api listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type pointJSON struct {
	ID    common.KeyType `json:"id"`
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	Value string         `json:"value,omitempty"`
}

func toJSON(entries []common.Entry) []pointJSON {
	res := make([]pointJSON, len(entries))
	for i, e := range entries {
		res[i] = pointJSON{ID: e.ID, X: e.Point.X, Y: e.Point.Y, Value: string(e.Value)}
	}
	return res
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrMalformedPoint),
		errors.Is(err, core.ErrDuplicateID),
		errors.Is(err, storage.ErrMalformedInput):
		status = http.StatusBadRequest
	default:
		s.logger.Error().Err(err).Msg("request failed")
	}
	http.Error(w, err.Error(), status)
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleSkyline(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	start := time.Now()
	sky := s.store.Skyline()

	writeJSON(w, map[string]interface{}{
		"count":      len(sky),
		"points":     toJSON(sky),
		"latency_ns": time.Since(start).Nanoseconds(),
	})
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req struct {
		X     *float64 `json:"x"`
		Y     *float64 `json:"y"`
		Value string   `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.X == nil || req.Y == nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}

	e, err := s.store.Insert(common.Point{X: *req.X, Y: *req.Y}, common.ValueType(req.Value))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"status":       "ok",
		"id":           e.ID,
		"skyline_size": s.store.SkylineSize(),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req struct {
		ID common.KeyType `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}

	member, err := s.store.Delete(req.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"id":     req.ID,
		"member": member,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}
	e, found := s.store.Get(common.KeyType(id))
	if !found {
		http.Error(w, "Point not found", http.StatusNotFound)
		return
	}
	writeJSON(w, toJSON([]common.Entry{e})[0])
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	var coords [4]float64
	for i, name := range []string{"x1", "y1", "x2", "y2"} {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid %s", name), http.StatusBadRequest)
			return
		}
		coords[i] = v
	}
	rect := common.NewRect(coords[0], coords[1], coords[2], coords[3])
	found := s.store.Search(rect)

	writeJSON(w, map[string]interface{}{
		"rect":   rect,
		"count":  len(found),
		"points": toJSON(found),
	})
}

// handlePoints lists stored points by ID range; both bounds are optional.
func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	from, to := common.KeyType(0), common.KeyType(math.MaxInt64)
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "Invalid from", http.StatusBadRequest)
			return
		}
		from = common.KeyType(n)
	}
	if v := q.Get("to"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "Invalid to", http.StatusBadRequest)
			return
		}
		to = common.KeyType(n)
	}
	found := s.store.Range(from, to)
	writeJSON(w, map[string]interface{}{
		"count":  len(found),
		"points": toJSON(found),
	})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	start := time.Now()
	// 超限直接失败，不能截断成错误的点
	entries, err := storage.ParseText(http.MaxBytesReader(w, r.Body, s.maxLoadBody))
	if err != nil {
		s.writeError(w, err)
		return
	}
	// IDs are assigned by the store
	for i := range entries {
		entries[i].ID = 0
	}
	if err := s.store.Load(entries); err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info().Int("points", len(entries)).Dur("took", time.Since(start)).Msg("dataset loaded over http")
	writeJSON(w, map[string]interface{}{
		"status":       "ok",
		"loaded":       len(entries),
		"points":       s.store.Size(),
		"skyline_size": s.store.SkylineSize(),
	})
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	start := time.Now()
	sky := s.store.Recompute()
	writeJSON(w, map[string]interface{}{
		"count":      len(sky),
		"points":     toJSON(sky),
		"latency_ns": time.Since(start).Nanoseconds(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, s.store.Stats())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	sky := s.store.Skyline()
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment;filename=skyline.csv")

	w.Write([]byte("id,x,y\n"))
	for _, e := range sky {
		line := fmt.Sprintf("%d,%s,%s\n", e.ID,
			strconv.FormatFloat(e.Point.X, 'g', -1, 64),
			strconv.FormatFloat(e.Point.Y, 'g', -1, 64))
		w.Write([]byte(line))
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	s.store.Reset()

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Store Reset Successful"))
}
