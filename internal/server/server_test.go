// ABOUTME: Tests for the Server orchestrator: construction, lifecycle and health endpoints
// ABOUTME: Runs a real HTTP listener on a free port against an in-memory SQLite store

package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/2389/coven-todo/internal/config"
	"github.com/2389/coven-todo/internal/store"
)

// testConfig creates a minimal config for testing with an available port.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	httpListener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find available HTTP port: %v", err)
	}
	httpAddr := httpListener.Addr().String()
	httpListener.Close()

	return &config.Config{
		Server: config.ServerConfig{
			HTTPAddr:        httpAddr,
			ShutdownTimeout: 2 * time.Second,
		},
		Database: config.DatabaseConfig{
			Driver: config.DefaultDriver,
			Path:   ":memory:",
		},
	}
}

// testLogger creates a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// noRedirectClient returns 303s to the test instead of following them.
var noRedirectClient = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func TestServerNew(t *testing.T) {
	cfg := testConfig(t)

	srv, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer srv.Shutdown(context.Background())

	if srv.config != cfg {
		t.Error("server config mismatch")
	}
	if srv.store == nil {
		t.Error("store should not be nil")
	}
	if srv.ui == nil {
		t.Error("ui should not be nil")
	}
}

func TestServerNew_DBPathFromEnv(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Path = "/nonexistent/should/not/be/used.db"
	t.Setenv("COVEN_TODO_DB_PATH", ":memory:")

	srv, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer srv.Shutdown(context.Background())
}

func TestServerNew_BadDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "postgres"

	if _, err := New(cfg, testLogger()); err == nil {
		t.Fatal("New() should fail with an unsupported driver")
	}
}

func TestNewWithStore_RequiresStore(t *testing.T) {
	if _, err := NewWithStore(testConfig(t), nil, testLogger()); err == nil {
		t.Fatal("NewWithStore() should fail without a store")
	}
}

func TestServerRunAndShutdown(t *testing.T) {
	cfg := testConfig(t)

	srv, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
	}()

	// Give it time to start
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get("http://" + cfg.Server.HTTPAddr + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if string(body) != "OK" {
		t.Errorf("health body = %q, want %q", body, "OK")
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("server did not shutdown in time")
	}
}

func TestServerRun_AddressInUse(t *testing.T) {
	cfg := testConfig(t)

	occupied, err := net.Listen("tcp", cfg.Server.HTTPAddr)
	if err != nil {
		t.Fatalf("failed to occupy port: %v", err)
	}
	defer occupied.Close()

	srv, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := srv.Run(t.Context()); err == nil {
		t.Fatal("Run() should fail when the address is taken")
	}

	// Run released the store on its way out
	if err := srv.store.Ping(context.Background()); err == nil {
		t.Error("store should be closed after Run fails to listen")
	}
}

// fileConfig is testConfig backed by an on-disk database, so writes run on a real pool
func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testConfig(t)
	cfg.Database.Path = filepath.Join(t.TempDir(), "todos.db")
	return cfg
}

func TestHandler_ConcurrentCreates(t *testing.T) {
	srv, err := New(fileConfig(t), testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer srv.Shutdown(context.Background())

	h := srv.Handler()
	const clients = 40

	var wg sync.WaitGroup
	statuses := make(chan int, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader("title=task"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			statuses <- rec.Code
		}()
	}
	wg.Wait()
	close(statuses)

	counts := map[int]int{}
	for code := range statuses {
		counts[code]++
	}
	if counts[http.StatusSeeOther] != clients {
		t.Errorf("status counts = %v, want all %d", counts, http.StatusSeeOther)
	}

	todos, err := srv.store.ListTodos(context.Background())
	if err != nil {
		t.Fatalf("ListTodos failed: %v", err)
	}
	if len(todos) != clients {
		t.Errorf("got %d todos, want %d", len(todos), clients)
	}
}

func TestHandler_ControlCharTitleIsBadRequest(t *testing.T) {
	srv, err := New(fileConfig(t), testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer srv.Shutdown(context.Background())

	for _, body := range []string{"title=%00", "title=a%00b", "title=%FF%FE"} {
		req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", body, rec.Code, http.StatusBadRequest)
		}
	}

	todos, err := srv.store.ListTodos(context.Background())
	if err != nil {
		t.Fatalf("ListTodos failed: %v", err)
	}
	if len(todos) != 0 {
		t.Errorf("got %d todos, want none", len(todos))
	}
}

func TestServerEndToEnd(t *testing.T) {
	cfg := testConfig(t)

	srv, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	go func() {
		_ = srv.Run(t.Context())
	}()
	time.Sleep(100 * time.Millisecond)

	base := "http://" + cfg.Server.HTTPAddr

	resp, err := noRedirectClient.PostForm(base+"/todos", url.Values{"title": {"Ship it"}})
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("create status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}

	resp, err = http.Get(base + "/")
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "Ship it") {
		t.Error("list page should contain the created todo")
	}

	resp, err = http.Get(base + "/static/style.css")
	if err != nil {
		t.Fatalf("static request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("static status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestHandleReady(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantBody   string
	}{
		{"store healthy", nil, http.StatusOK, "ready"},
		{"store down", errors.New("database is closed"), http.StatusServiceUnavailable, "store unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := store.NewMockStore()
			ms.PingErr = tt.pingErr

			srv, err := NewWithStore(testConfig(t), ms, testLogger())
			if err != nil {
				t.Fatalf("NewWithStore() failed: %v", err)
			}
			defer srv.Shutdown(context.Background())

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHandler_UnknownPath(t *testing.T) {
	srv, err := NewWithStore(testConfig(t), store.NewMockStore(), testLogger())
	if err != nil {
		t.Fatalf("NewWithStore() failed: %v", err)
	}
	defer srv.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/does/not/exist", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "page not found" {
		t.Errorf("body = %q, want %q", got, "page not found")
	}
}

func TestResolveTailscaleAuthKey(t *testing.T) {
	t.Setenv("TS_AUTHKEY", "")

	if _, err := resolveTailscaleAuthKey(""); err == nil {
		t.Error("expected error with no configured key and no env")
	}

	key, err := resolveTailscaleAuthKey("tskey-config")
	if err != nil || key != "tskey-config" {
		t.Errorf("resolveTailscaleAuthKey(config) = %q, %v", key, err)
	}

	t.Setenv("TS_AUTHKEY", "tskey-env")
	key, err = resolveTailscaleAuthKey("")
	if err != nil || key != "tskey-env" {
		t.Errorf("resolveTailscaleAuthKey(env) = %q, %v", key, err)
	}
}

func TestResolveTailscaleStateDir(t *testing.T) {
	dir, err := resolveTailscaleStateDir("/var/lib/coven-todo")
	if err != nil || dir != "/var/lib/coven-todo" {
		t.Errorf("resolveTailscaleStateDir(configured) = %q, %v", dir, err)
	}

	t.Setenv("HOME", "/home/tester")
	dir, err = resolveTailscaleStateDir("")
	if err != nil {
		t.Fatalf("resolveTailscaleStateDir() failed: %v", err)
	}
	if dir != "/home/tester/.local/share/coven-todo/tailscale" {
		t.Errorf("default state dir = %q", dir)
	}
}

func TestAppendCloseError(t *testing.T) {
	var errs []error
	errs = appendCloseError(errs, "first", nil)
	if len(errs) != 0 {
		t.Fatalf("nil error should not be appended, got %v", errs)
	}

	cause := errors.New("boom")
	errs = appendCloseError(errs, "second", cause)
	if len(errs) != 1 || !errors.Is(errs[0], cause) {
		t.Errorf("appendCloseError() = %v", errs)
	}
}
