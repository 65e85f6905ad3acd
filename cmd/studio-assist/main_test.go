package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/robloxmcp/studio-assist/internal/app"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "studio-assist ") {
		t.Errorf("output = %q", out)
	}
}

func TestToolsCmd(t *testing.T) {
	out, err := runCmd(t, "tools")
	if err != nil {
		t.Fatalf("tools: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 25 {
		t.Fatalf("got %d tools, want 25", len(lines))
	}
	if !strings.Contains(out, "roblox-natural-command\t") {
		t.Errorf("natural command missing from:\n%s", out)
	}
}

func TestProcessCmd(t *testing.T) {
	out, err := runCmd(t, "process", "Explain the script 'local x = 1'")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	var got struct {
		Processed struct {
			Confidence     float64  `json:"confidence"`
			SuggestedTools []string `json:"suggestedTools"`
		} `json:"processed"`
		Language    string `json:"language"`
		Executed    bool   `json:"executed"`
		ToolResults []struct {
			Tool string `json:"tool"`
		} `json:"toolResults"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Processed.Confidence != 0.9 || !got.Executed || got.Language != "en" {
		t.Errorf("unexpected outcome: %+v", got)
	}
	if len(got.ToolResults) != 1 || got.ToolResults[0].Tool != "roblox-code-explain" {
		t.Errorf("tool results = %+v", got.ToolResults)
	}
}

func TestProcessCmd_ThresholdFlag(t *testing.T) {
	out, err := runCmd(t, "process", "--threshold", "0.95", "Explain the script 'local x = 1'")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.Contains(out, `"executed": false`) {
		t.Errorf("expected no execution above threshold:\n%s", out)
	}
}

func TestProcessCmd_Errors(t *testing.T) {
	if _, err := runCmd(t, "process"); err == nil {
		t.Error("expected error without text")
	}
	if _, err := runCmd(t, "process", "--lang", "fr", "hello"); err == nil {
		t.Error("expected error for unsupported language")
	}
}

func TestApplyFlags(t *testing.T) {
	cmd := newServeCmd()
	if err := cmd.ParseFlags([]string{"--addr", ":8081", "--stdio", "--threshold", "0.5"}); err != nil {
		t.Fatal(err)
	}
	cfg := app.Config{HTTPAddr: ":3000", DatabasePath: ":memory:", AutoExecuteThreshold: 0.7, LogLevel: "info"}
	applyFlags(cmd, &cfg)

	if cfg.HTTPAddr != ":8081" || !cfg.Stdio || cfg.AutoExecuteThreshold != 0.5 {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.DatabasePath != ":memory:" || cfg.LogLevel != "info" {
		t.Errorf("unset flags overrode config: %+v", cfg)
	}
}
