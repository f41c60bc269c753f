package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"encodeflow/internal/config"
	"encodeflow/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	provider   *fakeProvider
}

// fakeProvider acknowledges AddMedia requests with sequential media ids,
// or fails them with 503 while failing is set.
type fakeProvider struct {
	server   *httptest.Server
	next     atomic.Int64
	failing  atomic.Bool
	requests atomic.Int64
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.requests.Add(1)
		if err := r.ParseForm(); err != nil || !strings.Contains(r.PostForm.Get("xml"), "<action>AddMedia</action>") {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if p.failing.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		id := p.next.Add(1)
		_, _ = io.WriteString(w, testsupport.AddMediaResponse("media-"+strconv.FormatInt(id, 10)))
	}))
	t.Cleanup(p.server.Close)
	return p
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	provider := newFakeProvider(t)
	cfg := testsupport.NewConfig(t, testsupport.WithProviderEndpoint(provider.server.URL))
	cfg.Logging.Level = "error"

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: filepath.Join(testsupport.BaseDir(cfg), "encodeflow.toml"),
		provider:   provider,
	}
	env.rewriteConfig(t)
	return env
}

func (e *cliTestEnv) rewriteConfig(t *testing.T) {
	t.Helper()
	raw, err := toml.Marshal(e.cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(e.configPath, raw, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, e.configPath, nil)
}

func runCLI(t *testing.T, args []string, configPath string, stdin io.Reader) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
