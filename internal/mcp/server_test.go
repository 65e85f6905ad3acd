package mcp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/robloxmcp/studio-assist/internal/capability"
	"github.com/robloxmcp/studio-assist/internal/mcp"
	"github.com/robloxmcp/studio-assist/internal/prompts"
)

func newServer(t *testing.T) *mcp.Server {
	t.Helper()
	reg := capability.NewRegistry()
	capability.RegisterBuiltins(reg, capability.Builtins{})
	return mcp.NewServer(
		mcp.ServerInfo{Name: "studio-assist", Version: "test"},
		capability.NewGateway(reg),
		prompts.NewRegistry(nil),
	)
}

type rawResponse struct {
	JSONRPC string             `json:"jsonrpc"`
	ID      json.RawMessage    `json:"id"`
	Result  json.RawMessage    `json:"result"`
	Error   *mcp.ResponseError `json:"error"`
}

func call(t *testing.T, s *mcp.Server, msg string) rawResponse {
	t.Helper()
	out := s.HandleMessage(context.Background(), []byte(msg))
	if out == nil {
		t.Fatalf("no response to %s", msg)
	}
	var resp rawResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("decode %s: %v", out, err)
	}
	return resp
}

func TestInitialize(t *testing.T) {
	resp := call(t, newServer(t), `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`)
	if resp.Error != nil {
		t.Fatalf("error: %v", resp.Error)
	}
	var res mcp.InitializeResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatal(err)
	}
	if res.ProtocolVersion != "2024-11-05" || res.ServerInfo.Name != "studio-assist" {
		t.Errorf("result = %+v", res)
	}
	if res.Capabilities.Tools == nil || res.Capabilities.Prompts == nil || res.Capabilities.Resources == nil {
		t.Errorf("capabilities = %+v", res.Capabilities)
	}
	if string(resp.ID) != "1" {
		t.Errorf("id = %s", resp.ID)
	}
}

func TestNotificationsGetNoResponse(t *testing.T) {
	s := newServer(t)
	for _, msg := range []string{
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"unknown/notification"}`,
	} {
		if out := s.HandleMessage(context.Background(), []byte(msg)); out != nil {
			t.Errorf("%s: got response %s", msg, out)
		}
	}
}

func TestInitializedWithID(t *testing.T) {
	s := newServer(t)
	for _, method := range []string{"notifications/initialized", "initialized"} {
		out := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":3,"method":"`+method+`"}`))
		if got, want := string(out), `{"jsonrpc":"2.0","id":3,"result":{}}`; got != want {
			t.Errorf("%s: response = %s, want %s", method, got, want)
		}
	}
}

func TestErrors(t *testing.T) {
	s := newServer(t)
	tests := []struct {
		msg  string
		code int
	}{
		{`{not json`, mcp.CodeParseError},
		{`{"jsonrpc":"1.0","id":1,"method":"ping"}`, mcp.CodeInvalidRequest},
		{`{"jsonrpc":"2.0","id":"a","method":"tools/explode"}`, mcp.CodeMethodNotFound},
		{`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"nope"}}`, mcp.CodeInvalidParams},
		{`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"roblox-code-explain","arguments":{}}}`, mcp.CodeInvalidParams},
		{`{"jsonrpc":"2.0","id":4,"method":"tools/call"}`, mcp.CodeInvalidParams},
		{`{"jsonrpc":"2.0","id":5,"method":"prompts/get","params":{"name":"nope"}}`, mcp.CodeInvalidParams},
	}
	for _, tt := range tests {
		resp := call(t, s, tt.msg)
		if resp.Error == nil || resp.Error.Code != tt.code {
			t.Errorf("%s: error = %+v, want code %d", tt.msg, resp.Error, tt.code)
		}
	}
	if resp := call(t, s, `{not json`); string(resp.ID) != "null" {
		t.Errorf("parse error id = %s, want null", resp.ID)
	}
}

func TestPingAndResources(t *testing.T) {
	s := newServer(t)
	if resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"ping"}`); string(resp.Result) != "{}" {
		t.Errorf("ping result = %s", resp.Result)
	}
	if resp := call(t, s, `{"jsonrpc":"2.0","id":2,"method":"resources/list"}`); string(resp.Result) != `{"resources":[]}` {
		t.Errorf("resources result = %s", resp.Result)
	}
}

func TestToolsList(t *testing.T) {
	resp := call(t, newServer(t), `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	var res struct {
		Tools []struct {
			Name        string         `json:"name"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		if tool.InputSchema["type"] != "object" {
			t.Errorf("%s schema = %v", tool.Name, tool.InputSchema)
		}
	}
	if !sort.StringsAreSorted(names) || len(names) != 25 {
		t.Errorf("tools = %v", names)
	}
}

func TestToolsCall(t *testing.T) {
	s := newServer(t)

	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"roblox-code-explain","arguments":{"code":"local a = 1"}}}`)
	var res mcp.CallToolResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatal(err)
	}
	if res.IsError || len(res.Content) != 1 || !strings.HasPrefix(res.Content[0].Text, "This code does the following:\n") {
		t.Errorf("result = %+v", res)
	}

	resp = call(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"roblox-template-wizard","arguments":{"step":"complete"}}}`)
	res = mcp.CallToolResult{}
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(res.Content[0].Text, "unknown wizard step") {
		t.Errorf("wizard result = %+v", res)
	}

	resp = call(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"asset-finder","arguments":{}}}`)
	res = mcp.CallToolResult{}
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Errorf("placeholder result = %+v", res)
	}
}

func TestPrompts(t *testing.T) {
	s := newServer(t)
	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`)
	var list mcp.ListPromptsResult
	if err := json.Unmarshal(resp.Result, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Prompts) != 4 || list.Prompts[0].Name != prompts.GameWizard {
		t.Errorf("prompts = %+v", list.Prompts)
	}

	resp = call(t, s, `{"jsonrpc":"2.0","id":2,"method":"prompts/get","params":{"name":"roblox-game-wizard","arguments":{"language":"ko"}}}`)
	var got mcp.GetPromptResult
	if err := json.Unmarshal(resp.Result, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || !strings.HasPrefix(got.Messages[0].Content.Text, "게임을 만들기 위해") {
		t.Errorf("prompt = %+v", got)
	}
}

func TestServeStdio(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := newServer(t)
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/list"}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	if err := s.ServeStdio(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("ServeStdio: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d response lines, want 3:\n%s", len(lines), out.String())
	}
	var ids []string
	for _, line := range lines {
		var resp rawResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("line %q: %v", line, err)
		}
		ids = append(ids, string(resp.ID))
	}
	sort.Strings(ids)
	if strings.Join(ids, ",") != "1,2,3" {
		t.Errorf("ids = %v", ids)
	}
}

func TestServeStdio_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := newServer(t)
	pr, pw := io.Pipe()
	// Closing the writer unblocks the reader goroutine before the leak check.
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var out bytes.Buffer
	go func() { done <- s.ServeStdio(ctx, pr, &out) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ServeStdio() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ServeStdio did not return after cancel")
	}
}
