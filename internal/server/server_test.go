package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tanaylab/mcbrowse/pkg/artifact"
	"github.com/tanaylab/mcbrowse/pkg/cache"
	"github.com/tanaylab/mcbrowse/pkg/observability"
	"github.com/tanaylab/mcbrowse/pkg/pipeline"
	"github.com/tanaylab/mcbrowse/pkg/source"
)

func testServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	src, err := source.NewBuilder().
		Axis("gene", []string{"CD3E", "CD8A"}).
		Axis("metacell", []string{"M1", "M2", "M3"}).
		Strings("metacell", "type", []string{"T", "B", "T"}).
		Matrix("gene", "metacell", "fraction", [][]float64{{1, 2, 3}, {3, 2, 1}}).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	c, err := cache.NewMemoryCache(0)
	if err != nil {
		t.Fatal(err)
	}
	logger := log.New(io.Discard)
	srv, err := New(src, pipeline.NewRunner(c, nil, logger), nil, opts...)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

type errorBody struct {
	Error struct {
		Code   string `json:"code"`
		Stage  string `json:"stage"`
		Detail struct {
			Identifiers []string `json:"identifiers"`
		} `json:"detail"`
	} `json:"error"`
}

func TestHealthAndAxes(t *testing.T) {
	ts := testServer(t)

	resp, body := do(t, http.MethodGet, ts.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("GET /healthz = %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodGet, ts.URL+"/axes", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "metacell") {
		t.Errorf("GET /axes = %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodGet, ts.URL+"/axes/gene/entries", "")
	var entries struct {
		Entries []string `json:"entries"`
	}
	if err := json.Unmarshal(body, &entries); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /axes/gene/entries = %d %s", resp.StatusCode, body)
	}
	if len(entries.Entries) != 2 {
		t.Errorf("entries = %v", entries.Entries)
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/axes/cell/entries", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET unknown axis = %d, want 404", resp.StatusCode)
	}
}

func TestVeneers(t *testing.T) {
	ts := testServer(t)

	resp, body := do(t, http.MethodPost, ts.URL+"/veneers", `{"options":{"point_size":3}}`)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"point_size":3`) {
		t.Errorf("POST /veneers = %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodPost, ts.URL+"/veneers", `{"options":{"colour":"red"}}`)
	var e errorBody
	_ = json.Unmarshal(body, &e)
	if resp.StatusCode != http.StatusBadRequest || e.Error.Code != "UNKNOWN_OPTION" || e.Error.Stage != "configure" {
		t.Errorf("POST /veneers unknown = %d %s", resp.StatusCode, body)
	}
}

func TestDatasets(t *testing.T) {
	ts := testServer(t)

	resp, body := do(t, http.MethodPost, ts.URL+"/datasets",
		`{"entities":["CD3E","CD8A"],"filter":{"|group":["T"]}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /datasets = %d %s", resp.StatusCode, body)
	}
	var table struct {
		Records []map[string]any `json:"records"`
	}
	if err := json.Unmarshal(body, &table); err != nil {
		t.Fatal(err)
	}
	if len(table.Records) != 2 {
		t.Errorf("records = %d, want 2", len(table.Records))
	}

	resp, body = do(t, http.MethodPost, ts.URL+"/datasets", `{"entities":["CD3E","NOPE"]}`)
	var e errorBody
	_ = json.Unmarshal(body, &e)
	if resp.StatusCode != http.StatusNotFound || e.Error.Stage != "extract" ||
		len(e.Error.Detail.Identifiers) != 1 || e.Error.Detail.Identifiers[0] != "NOPE" {
		t.Errorf("POST /datasets unknown = %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, http.MethodPost, ts.URL+"/datasets", `{"entities":["CD3E"],"bogus":1}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("POST /datasets unknown field = %d, want 400", resp.StatusCode)
	}
}

func TestFigures(t *testing.T) {
	dir := t.TempDir()
	arts, err := artifact.NewDirStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ts := testServer(t, WithArtifacts(arts))

	resp, body := do(t, http.MethodPost, ts.URL+"/figures",
		`{"entities":["CD3E","CD8A"],"veneer":{"title":"T"},"formats":["svg","json"]}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /figures = %d %s", resp.StatusCode, body)
	}
	var created figureResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Stats.Points != 3 {
		t.Errorf("created = %+v", created)
	}
	if !strings.HasPrefix(created.URLs["svg"], "file://") {
		t.Errorf("svg url = %q, want a published artifact", created.URLs["svg"])
	}

	resp, body = do(t, http.MethodGet, ts.URL+"/figures/"+created.ID, "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"title":"T"`) {
		t.Errorf("GET /figures/{id} = %d %.80s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodGet, ts.URL+"/figures/"+created.ID+"/svg", "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/svg+xml" ||
		!strings.HasPrefix(string(body), "<svg") {
		t.Errorf("GET /figures/{id}/svg = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/figures/"+created.ID+"/png?scale=2", "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("GET /figures/{id}/png = %d", resp.StatusCode)
	}

	tests := []struct {
		name string
		url  string
		want int
	}{
		{"unknown id", "/figures/0b7c3f0e-0000-4000-8000-000000000000", http.StatusNotFound},
		{"bad format", "/figures/" + created.ID + "/gif", http.StatusBadRequest},
		{"bad scale", "/figures/" + created.ID + "/png?scale=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodGet, ts.URL+tt.url, "")
			if resp.StatusCode != tt.want {
				t.Errorf("GET %s = %d %s, want %d", tt.url, resp.StatusCode, body, tt.want)
			}
		})
	}
}

func TestFigureErrors(t *testing.T) {
	ts := testServer(t)
	tests := []struct {
		name      string
		body      string
		wantCode  string
		wantStage string
		want      int
	}{
		{"invalid option", `{"entities":["CD3E","CD8A"],"veneer":{"point_size":0}}`, "INVALID_OPTION", "configure", http.StatusBadRequest},
		{"empty", `{"entities":["CD3E","CD8A"],"filter":{"|group":["NK"]}}`, "EMPTY_DATA", "render", http.StatusUnprocessableEntity},
		{"schema", `{"entities":["CD3E","CD8A"],"layout":"long"}`, "SCHEMA_MISMATCH", "render", http.StatusUnprocessableEntity},
		{"no entities", `{}`, "INVALID_INPUT", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, ts.URL+"/figures", tt.body)
			var e errorBody
			_ = json.Unmarshal(body, &e)
			if resp.StatusCode != tt.want || e.Error.Code != tt.wantCode || e.Error.Stage != tt.wantStage {
				t.Errorf("POST /figures = %d %s, want %d %s at %q", resp.StatusCode, body, tt.want, tt.wantCode, tt.wantStage)
			}
		})
	}
}

type recordingHooks struct {
	observability.NoopHTTPHooks
	mu     sync.Mutex
	routes []string
}

func (h *recordingHooks) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, method+" "+route)
}

func TestHTTPHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	ts := testServer(t)
	do(t, http.MethodGet, ts.URL+"/axes/gene/entries", "")

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.routes) != 1 || hooks.routes[0] != "GET /axes/{axis}/entries" {
		t.Errorf("routes = %v, want the route pattern", hooks.routes)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := testServer(t)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/figures", nil)
	req.Header.Set("Origin", "http://dash.local")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "http://dash.local" {
		t.Errorf("preflight = %d %v", resp.StatusCode, resp.Header)
	}
}
