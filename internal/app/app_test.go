package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		HTTPAddr:             "127.0.0.1:0",
		DatabasePath:         filepath.Join(t.TempDir(), "sessions.db"),
		AutoExecuteThreshold: 0.7,
		ProcessCacheSize:     16,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{
		"STUDIO_HTTP_ADDR", "STUDIO_STDIO", "STUDIO_DB_PATH", "STUDIO_TEMPLATES_FILE",
		"STUDIO_AUTO_EXECUTE_THRESHOLD", "STUDIO_PROCESS_CACHE_SIZE", "STUDIO_SHUTDOWN_TIMEOUT",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()
	if cfg.HTTPAddr != ":3000" || cfg.Stdio || cfg.DatabasePath != ":memory:" || cfg.TemplatesFile != "" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.AutoExecuteThreshold != 0.7 || cfg.ProcessCacheSize != 256 {
		t.Errorf("threshold/cache = %v/%d", cfg.AutoExecuteThreshold, cfg.ProcessCacheSize)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("shutdown timeout = %v, want 5s", cfg.ShutdownTimeout)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("STUDIO_HTTP_ADDR", ":9000")
	t.Setenv("STUDIO_STDIO", "true")
	t.Setenv("STUDIO_AUTO_EXECUTE_THRESHOLD", "0.95")
	t.Setenv("STUDIO_PROCESS_CACHE_SIZE", "0")
	t.Setenv("STUDIO_SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("LOG_FORMAT", "json")

	cfg := LoadConfig()
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("shutdown timeout = %v, want 30s", cfg.ShutdownTimeout)
	}
	if cfg.HTTPAddr != ":9000" || !cfg.Stdio || cfg.AutoExecuteThreshold != 0.95 || cfg.ProcessCacheSize != 0 || cfg.LogFormat != "json" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestNew_TemplateOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	overlay := "explain-code:\n  simple:\n    en: \"Here is what it does:\\n\"\n"
	if err := os.WriteFile(path, []byte(overlay), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(t)
	cfg.TemplatesFile = path

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	tests := []struct {
		language string
		prefix   string
	}{
		{"en", "Here is what it does:\n"},
		{"ko", "이 코드는 다음과 같은 작업을 수행합니다:\n"},
	}
	for _, tt := range tests {
		res, err := a.Gateway().Execute(context.Background(), "roblox-code-explain", map[string]any{
			"code":     "local x = 1",
			"language": tt.language,
		})
		if err != nil {
			t.Fatalf("%s: Execute() error = %v", tt.language, err)
		}
		if !strings.HasPrefix(res.Text, tt.prefix) {
			t.Errorf("%s explanation = %q, want prefix %q", tt.language, res.Text, tt.prefix)
		}
	}
}

func TestNew_MissingTemplateFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.TemplatesFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for missing template file")
	}
}

func TestNew_ThresholdReachesAssistant(t *testing.T) {
	cfg := testConfig(t)
	cfg.AutoExecuteThreshold = 0.95
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if got := a.Assistant().Threshold(); got != 0.95 {
		t.Errorf("threshold = %v, want 0.95", got)
	}
	if n := len(a.Gateway().Registry().Names()); n != 25 {
		t.Errorf("capabilities = %d, want 25", n)
	}
}

func TestRun_Stdio(t *testing.T) {
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"roblox-code-explain","arguments":{"code":"local x = 1"}}}`,
	}, "\n") + "\n"
	var out bytes.Buffer

	cfg := testConfig(t)
	cfg.Stdio = true
	cfg.DatabasePath = ""
	cfg.Stdin = strings.NewReader(in)
	cfg.Stdout = &out

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()
	if a.HTTPAddr() != "" {
		t.Errorf("HTTPAddr = %q in stdio mode", a.HTTPAddr())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out.String())
	}
	for _, line := range lines {
		var resp struct {
			ID     json.RawMessage `json:"id"`
			Result json.RawMessage `json:"result"`
			Error  json.RawMessage `json:"error"`
		}
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("line %q: %v", line, err)
		}
		if resp.Error != nil {
			t.Errorf("id %s: unexpected error %s", resp.ID, resp.Error)
		}
		if string(resp.ID) == "1" && !strings.Contains(string(resp.Result), ServerName) {
			t.Errorf("initialize result %s lacks server name", resp.Result)
		}
	}
}

func TestRun_HTTP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := testConfig(t)
	cfg.HTTPAddr = addr
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	var resp *http.Response
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err = http.Get(fmt.Sprintf("http://%s/health", addr))
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became reachable: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
