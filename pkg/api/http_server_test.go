package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"skylinedb/pkg/config"
	"skylinedb/pkg/core"
)

func newTestServer(t *testing.T) (*Server, *core.SkylineStore) {
	t.Helper()
	store := core.NewSkylineStore(config.Default(), zerolog.Nop())
	return NewServer(store, zerolog.Nop()), store
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

type skylineResp struct {
	Count  int `json:"count"`
	Points []struct {
		ID int64   `json:"id"`
		X  float64 `json:"x"`
		Y  float64 `json:"y"`
	} `json:"points"`
}

func TestLoadAndSkyline(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/load", "# dataset\n1 5\n2 3\n4 1\n3 3\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("load expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/skyline", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("skyline expected 200, got %d", rec.Code)
	}
	var resp skylineResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode skyline: %v", err)
	}
	if resp.Count != 3 || resp.Points[0].X != 1 || resp.Points[1].X != 2 || resp.Points[2].X != 4 {
		t.Fatalf("unexpected skyline %+v", resp)
	}

	rec = do(t, s, http.MethodPost, "/api/load", "1 2\nbroken\n")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed load expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "line 2") {
		t.Fatalf("error should name the line: %s", rec.Body.String())
	}
}

func TestInsertDeleteFlow(t *testing.T) {
	s, store := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/insert", `{"x":1,"y":5,"value":"a"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("insert expected 200, got %d", rec.Code)
	}
	var ins struct {
		ID          int64 `json:"id"`
		SkylineSize int   `json:"skyline_size"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ins); err != nil {
		t.Fatalf("decode insert: %v", err)
	}
	if ins.ID != 1 || ins.SkylineSize != 1 {
		t.Fatalf("unexpected insert response %+v", ins)
	}
	do(t, s, http.MethodPost, "/api/insert", `{"x":0,"y":0}`)
	if len(store.Skyline()) != 1 {
		t.Fatalf("(0,0) should dominate everything")
	}

	rec = do(t, s, http.MethodGet, "/api/get?id=1", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"value":"a"`) {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/delete", `{"id":2}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"member":true`) {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	sky := store.Skyline()
	if len(sky) != 1 || sky[0].ID != 1 {
		t.Fatalf("skyline after delete: %v", sky)
	}

	if rec := do(t, s, http.MethodPost, "/api/delete", `{"id":2}`); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete expected 404, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/insert", `{"x":1}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing y expected 400, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/insert", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET insert expected 405, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/get?id=9", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing id expected 404, got %d", rec.Code)
	}
}

func TestSearchExportReset(t *testing.T) {
	s, store := newTestServer(t)
	do(t, s, http.MethodPost, "/api/load", "1 5\n2 3\n4 1\n3 3\n")

	rec := do(t, s, http.MethodGet, "/api/search?x1=3&y1=0&x2=0&y2=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("search expected 200, got %d", rec.Code)
	}
	var found skylineResp
	if err := json.Unmarshal(rec.Body.Bytes(), &found); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if found.Count != 2 {
		t.Fatalf("expected 2 points in [0,3]x[0,3], got %+v", found)
	}
	if rec := do(t, s, http.MethodGet, "/api/search?x1=a", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad search expected 400, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/export", "")
	want := "id,x,y\n1,1,5\n2,2,3\n3,4,1\n"
	if rec.Body.String() != want {
		t.Fatalf("export: got %q want %q", rec.Body.String(), want)
	}

	rec = do(t, s, http.MethodPost, "/api/recompute", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":3`) {
		t.Fatalf("recompute: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/reset", "")
	if rec.Code != http.StatusOK || store.Size() != 0 {
		t.Fatalf("reset: code=%d size=%d", rec.Code, store.Size())
	}
}

func TestStatsAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/api/insert", `{"x":1,"y":2}`)
	do(t, s, http.MethodPost, "/api/insert", `{"x":2,"y":1}`)

	rec := do(t, s, http.MethodGet, "/api/stats", "")
	var stats map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["points"].(float64) != 2 || stats["inserts"].(float64) != 2 {
		t.Fatalf("unexpected stats %v", stats)
	}

	rec = do(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		"skylinedb_inserts_total",
		"skylinedb_points",
		"skylinedb_skyline_size",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metrics output to contain %q, body=%s", m, body)
		}
	}
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t)
	s.SetRateLimit(0.001, 2)

	for i := 0; i < 2; i++ {
		if rec := do(t, s, http.MethodGet, "/api/stats", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d within burst: got %d", i, rec.Code)
		}
	}
	if rec := do(t, s, http.MethodGet, "/api/stats", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the burst is spent, got %d", rec.Code)
	}

	s.SetRateLimit(0, 0)
	if rec := do(t, s, http.MethodGet, "/api/stats", ""); rec.Code != http.StatusOK {
		t.Fatalf("limit disabled: got %d", rec.Code)
	}
}

func TestLoadRejectsOversizedBody(t *testing.T) {
	s, store := newTestServer(t)
	if s.maxLoadBody != defaultMaxLoadBody {
		t.Fatalf("default load limit: got %d", s.maxLoadBody)
	}
	s.maxLoadBody = 64

	// the limit lands inside the last line: "12.5 99999" must not become (12.5, 999)
	pad := strings.Repeat("# pad\n", 5)
	body := pad + strings.Repeat("#", int(s.maxLoadBody)-8-len(pad)-1) + "\n" + "12.5 99999\n"
	rec := do(t, s, http.MethodPost, "/api/load", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized load expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.Size() != 0 {
		t.Fatalf("oversized load must not store points, size=%d", store.Size())
	}

	rec = do(t, s, http.MethodPost, "/api/load", "1 5\n2 3\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("load within limit expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMutationsDoNotCountQueries(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/api/load", "1 5\n2 3\n")
	do(t, s, http.MethodPost, "/api/insert", `{"x":4,"y":1}`)

	rec := do(t, s, http.MethodGet, "/api/stats", "")
	var stats map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["queries"].(float64) != 0 {
		t.Fatalf("load and insert counted as queries: %v", stats["queries"])
	}

	do(t, s, http.MethodGet, "/api/skyline", "")
	rec = do(t, s, http.MethodGet, "/api/stats", "")
	stats = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["queries"].(float64) != 1 {
		t.Fatalf("expected 1 query, got %v", stats["queries"])
	}
}

func TestPointsRange(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/api/load", "1 5\n2 3\n4 1\n3 3\n")

	rec := do(t, s, http.MethodGet, "/api/points?from=2&to=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("points expected 200, got %d", rec.Code)
	}
	var resp skylineResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode points: %v", err)
	}
	if resp.Count != 2 || resp.Points[0].ID != 2 || resp.Points[1].ID != 3 || resp.Points[1].X != 4 {
		t.Fatalf("unexpected range %+v", resp)
	}

	rec = do(t, s, http.MethodGet, "/api/points", "")
	resp = skylineResp{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode points: %v", err)
	}
	if resp.Count != 4 {
		t.Fatalf("unbounded range: got %d", resp.Count)
	}

	if rec := do(t, s, http.MethodGet, "/api/points?from=x", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid bound expected 400, got %d", rec.Code)
	}
}
