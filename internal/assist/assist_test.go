package assist_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robloxmcp/studio-assist/internal/assist"
	"github.com/robloxmcp/studio-assist/internal/capability"
	"github.com/robloxmcp/studio-assist/internal/nlcmd"
)

func newAssistant(t *testing.T, threshold float64) *assist.Assistant {
	t.Helper()
	reg := capability.NewRegistry()
	capability.RegisterBuiltins(reg, capability.Builtins{})
	return assist.New(nil, capability.NewGateway(reg), threshold)
}

func TestNew_ThresholdFallback(t *testing.T) {
	for _, th := range []float64{-0.1, 1.5} {
		if got := newAssistant(t, th).Threshold(); got != assist.DefaultThreshold {
			t.Errorf("New(%v).Threshold() = %v, want default", th, got)
		}
	}
	if got := newAssistant(t, 0.5).Threshold(); got != 0.5 {
		t.Errorf("Threshold() = %v, want 0.5", got)
	}
}

func TestHandle_ExplainExecutes(t *testing.T) {
	a := newAssistant(t, assist.DefaultThreshold)
	out := a.Handle(context.Background(), nlcmd.Command{Text: "Explain the script 'local x = 1'"}, "")

	if out.Processed.Confidence != 0.9 {
		t.Fatalf("confidence = %v, want 0.9", out.Processed.Confidence)
	}
	if !out.Executed || len(out.ToolResults) != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	tr := out.ToolResults[0]
	if tr.Tool != capability.CodeExplain || tr.Err != nil {
		t.Fatalf("tool result = %+v", tr)
	}
	want := "This code does the following:\n- 0 functions\n- 1 variables\n- 1 total lines"
	if tr.Result.Text != want {
		t.Errorf("text = %q, want %q", tr.Result.Text, want)
	}
	if out.Language != nlcmd.English {
		t.Errorf("language = %q", out.Language)
	}
}

func TestHandle_FailingToolsAreCollected(t *testing.T) {
	a := newAssistant(t, assist.DefaultThreshold)
	out := a.Handle(context.Background(), nlcmd.Command{Text: "Make a simple game"}, "")

	if out.Processed.Confidence != 1.0 || !out.Executed {
		t.Fatalf("outcome = %+v", out)
	}
	var tools []string
	for _, tr := range out.ToolResults {
		tools = append(tools, tr.Tool)
		if !errors.Is(tr.Err, capability.ErrNotImplemented) {
			t.Errorf("%s: err = %v, want ErrNotImplemented", tr.Tool, tr.Err)
		}
		if tr.Result != nil || tr.Error == "" {
			t.Errorf("%s: result = %+v", tr.Tool, tr)
		}
	}
	if diff := cmp.Diff([]string{nlcmd.ToolGenerateCode, nlcmd.ToolCreateGameComponent}, tools); diff != "" {
		t.Errorf("tool order (-want +got):\n%s", diff)
	}
}

func TestHandle_BelowThreshold(t *testing.T) {
	a := newAssistant(t, assist.DefaultThreshold)
	for _, text := range []string{"hi", "explain this to me please"} {
		out := a.Handle(context.Background(), nlcmd.Command{Text: text}, "")
		if out.Executed || out.ToolResults != nil {
			t.Errorf("%q: tools executed at confidence %v", text, out.Processed.Confidence)
		}
	}
}

func TestHandle_LanguageOverride(t *testing.T) {
	a := newAssistant(t, 0)
	out := a.Handle(context.Background(), nlcmd.Command{Text: "explain 'print(1)'"}, nlcmd.Korean)
	if out.Language != nlcmd.Korean || len(out.ToolResults) != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if !strings.HasPrefix(out.ToolResults[0].Result.Text, "이 코드는 다음과 같은 작업을 수행합니다:\n") {
		t.Errorf("text = %q", out.ToolResults[0].Result.Text)
	}
}

func TestToolArgs(t *testing.T) {
	pc := nlcmd.Process(`explain "local a" and 'local b' 3 times`)

	args := assist.ToolArgs(capability.CodeExplain, pc, "")
	if args["code"] != "local a" {
		t.Errorf("code = %v, want first quoted string", args["code"])
	}
	if args["command"] != pc.Parameters.OriginalCommand || args["language"] != "en" {
		t.Errorf("args = %v", args)
	}

	args = assist.ToolArgs(nlcmd.ToolValidateCode, pc, nlcmd.Korean)
	if _, ok := args["code"]; ok {
		t.Error("only the explainer receives code")
	}
	if args["language"] != "ko" {
		t.Errorf("language = %v", args["language"])
	}

	plain := nlcmd.Process("explain this script")
	if got := assist.ToolArgs(capability.CodeExplain, plain, "")["code"]; got != "explain this script" {
		t.Errorf("code = %v, want the command text", got)
	}
}

func TestOutcome_JSON(t *testing.T) {
	a := newAssistant(t, assist.DefaultThreshold)
	out := a.Handle(context.Background(), nlcmd.Command{Text: "Explain the script 'local x = 1'"}, "")
	b, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Executed    bool `json:"executed"`
		ToolResults []struct {
			Tool   string `json:"tool"`
			Result string `json:"result"`
		} `json:"toolResults"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	if !decoded.Executed || len(decoded.ToolResults) != 1 || !strings.HasPrefix(decoded.ToolResults[0].Result, "This code") {
		t.Errorf("decoded = %+v (raw %s)", decoded, b)
	}
}
