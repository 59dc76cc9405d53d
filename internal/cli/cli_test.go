package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/chronoscope/internal/config"
	"github.com/lazypower/chronoscope/internal/engine"
	"github.com/lazypower/chronoscope/internal/epoch"
	"github.com/lazypower/chronoscope/internal/server"
	"github.com/lazypower/chronoscope/internal/store"
)

type harness struct {
	dir    string
	config string
	db     string
}

func newHarness(t *testing.T) harness {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[log]\nlevel = \"error\"\n"), 0o644))
	return harness{dir: dir, config: cfg, db: filepath.Join(dir, "ledger.db")}
}

func (h harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return h.runContext(t, context.Background(), args...)
}

func (h harness) runContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", h.config, "--db", h.db}, args...))
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

var idPattern = regexp.MustCompile(`echo ([0-9a-f-]{36})`)

func TestVersion(t *testing.T) {
	out, err := newHarness(t).run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "chronoscope dev")
}

func TestEpochsList(t *testing.T) {
	out, err := newHarness(t).run(t, "epochs")
	require.NoError(t, err)
	for _, key := range []string{"present", "belle_epoque", "ancient_times"} {
		assert.Contains(t, out, key)
	}
}

func TestEpochsShow(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "epochs", "ancient_times")
	require.NoError(t, err)
	assert.Contains(t, out, "depth      6/6")
	assert.Contains(t, out, "2,000 Hz")

	_, err = h.run(t, "epochs", "unknown_epoch")
	assert.Error(t, err)
}

func TestEchoHistoryReplay(t *testing.T) {
	h := newHarness(t)
	outDir := filepath.Join(h.dir, "echoes")

	out, err := h.run(t, "echo", "-e", "belle_epoque", "-e", "present",
		"--width", "16", "--height", "8", "--samples", "256", "--seed", "42", "--out", outDir)
	require.NoError(t, err)

	m := idPattern.FindStringSubmatch(out)
	require.NotNil(t, m, "no echo id in output:\n%s", out)
	id := m[1]
	assert.FileExists(t, filepath.Join(outDir, id+".png"))
	assert.FileExists(t, filepath.Join(outDir, id+".wav"))
	assert.Contains(t, out, "seed 42")

	out, err = h.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "present+belle_epoque")

	first, err := os.ReadFile(filepath.Join(outDir, id+".wav"))
	require.NoError(t, err)

	replayDir := filepath.Join(h.dir, "replayed")
	_, err = h.run(t, "replay", id, "--out", replayDir)
	require.NoError(t, err)
	again, err := os.ReadFile(filepath.Join(replayDir, id+".wav"))
	require.NoError(t, err)
	assert.Equal(t, first, again)

	out, err = h.run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "1 echoes recorded")
}

func TestEchoCount(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "echo", "-e", "interwar", "--kind", "audio", "--samples", "64",
		"--seed", "1", "--count", "3", "--out", h.dir)
	require.NoError(t, err)
	assert.Len(t, idPattern.FindAllString(out, -1), 3)
	assert.Contains(t, out, "seed 3")
}

func TestEchoNoRecord(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "echo", "-e", "present", "--kind", "audio", "--samples", "64", "--no-record", "--out", h.dir)
	require.NoError(t, err)
	assert.NoFileExists(t, h.db)
}

func TestEchoUnknownEpoch(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "echo", "-e", "unknown_epoch", "--kind", "audio", "--samples", "64", "--out", h.dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown_epoch")
}

func TestEchoRequiresEpoch(t *testing.T) {
	_, err := newHarness(t).run(t, "echo")
	assert.Error(t, err)
}

func TestCatalogue(t *testing.T) {
	h := newHarness(t)
	cat := filepath.Join(h.dir, "extra.yaml")
	require.NoError(t, os.WriteFile(cat, []byte(`
epochs:
  - key: roman_forum
    label: Roman Forum
    distance: 2000
    intensity: 0.9
    tags: [ashen, voices]
`), 0o644))

	out, err := h.run(t, "--catalogue", cat, "echo", "-e", "roman_forum",
		"--kind", "audio", "--samples", "1024", "--seed", "42", "--out", h.dir)
	require.NoError(t, err)
	assert.Contains(t, out, "roman_forum")
	assert.NotContains(t, out, "unresolved")

	_, err = h.run(t, "--catalogue", filepath.Join(h.dir, "missing.yaml"), "epochs")
	assert.Error(t, err)
}

func TestBadConfig(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.config, []byte("[decay]\nhalf_life_years = -1\n"), 0o644))
	_, err := h.run(t, "epochs")
	assert.Error(t, err)
}

func TestEchoRemote(t *testing.T) {
	db, err := store.OpenMemory()
	require.NoError(t, err)
	defer db.Close()
	eng, err := engine.New(epoch.Default(), config.Default(), nil)
	require.NoError(t, err)
	ts := httptest.NewServer(server.New(eng, db, server.Options{}))
	defer ts.Close()

	h := newHarness(t)
	out, err := h.run(t, "echo", "-e", "recent_memory", "--width", "8", "--height", "8",
		"--samples", "128", "--seed", "9", "--server", ts.URL, "--out", h.dir)
	require.NoError(t, err)

	m := idPattern.FindStringSubmatch(out)
	require.NotNil(t, m, out)
	assert.FileExists(t, filepath.Join(h.dir, m[1]+".png"))
	assert.FileExists(t, filepath.Join(h.dir, m[1]+".wav"))
	assert.NoFileExists(t, h.db, "remote echoes are recorded by the server")

	n, err := db.CountArtifacts()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestServeStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.runContext(t, ctx, "serve", "--port", "0")
	assert.NoError(t, err)
}
