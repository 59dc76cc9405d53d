package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/lazypower/chronoscope/internal/config"
	"github.com/lazypower/chronoscope/internal/engine"
	"github.com/lazypower/chronoscope/internal/epoch"
	"github.com/lazypower/chronoscope/internal/store"
)

func testServerWith(t *testing.T, opts Options) *Server {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reg := epoch.NewBuiltin()
	reg.Seal()
	eng, err := engine.New(reg, config.Default(), nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if opts.Version == "" {
		opts.Version = "test-version"
	}
	return New(eng, db, opts)
}

func testServer(t *testing.T) *Server {
	return testServerWith(t, Options{})
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["engine_version"] != engine.Version {
		t.Errorf("engine_version = %v, want %s", body["engine_version"], engine.Version)
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
	if body["epochs"] != float64(7) {
		t.Errorf("epochs = %v, want 7", body["epochs"])
	}
}

func TestViewerNotEmbedded(t *testing.T) {
	SetUI(nil)
	srv := testServer(t)

	w := do(t, srv, "GET", "/", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestViewerServesIndex(t *testing.T) {
	SetUI(fstest.MapFS{
		"index.html": {Data: []byte("<h1>chronoscope</h1>")},
		"app.css":    {Data: []byte("body{}")},
	})
	t.Cleanup(func() { SetUI(nil) })
	srv := testServer(t)

	for _, path := range []string{"/", "/echoes/abc"} {
		w := do(t, srv, "GET", path, "")
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), "chronoscope") {
			t.Errorf("GET %s body = %q, want index", path, w.Body.String())
		}
	}

	if w := do(t, srv, "GET", "/app.css", ""); w.Code != http.StatusOK {
		t.Errorf("asset status = %d, want 200", w.Code)
	}
	if w := do(t, srv, "GET", "/missing.js", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing asset status = %d, want 404", w.Code)
	}
}
