package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/robloxmcp/studio-assist/common/trace"
	"github.com/robloxmcp/studio-assist/internal/capability"
	"github.com/robloxmcp/studio-assist/internal/observability"
	"github.com/robloxmcp/studio-assist/internal/prompts"
)

// maxLineBytes bounds a single inbound message.
const maxLineBytes = 1 << 20

// Server answers MCP requests from the capability gateway and the prompt
// catalog. Handle is safe for concurrent use.
type Server struct {
	info    ServerInfo
	gateway *capability.Gateway
	prompts *prompts.Registry
}

// NewServer returns a Server identifying itself as info.
func NewServer(info ServerInfo, gateway *capability.Gateway, prompts *prompts.Registry) *Server {
	return &Server{info: info, gateway: gateway, prompts: prompts}
}

// HandleMessage decodes one raw message and returns the encoded response, or
// nil when the message is a notification.
func (s *Server) HandleMessage(ctx context.Context, raw []byte) []byte {
	var req Request
	var resp *Response
	if err := json.Unmarshal(raw, &req); err != nil {
		resp = errorResponse(nil, CodeParseError, "Parse error")
	} else {
		resp = s.Handle(ctx, &req)
	}
	if resp == nil {
		return nil
	}
	out, err := json.Marshal(resp)
	if err != nil {
		out, _ = json.Marshal(errorResponse(resp.ID, CodeInternalError, "Internal error"))
	}
	return out
}

// Handle dispatches req and returns its response, or nil for notifications.
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	log := observability.WithTrace(ctx).With("method", req.Method)

	if req.JSONRPC != "2.0" || req.Method == "" {
		if req.IsNotification() {
			return nil
		}
		return errorResponse(req.ID, CodeInvalidRequest, "Invalid Request")
	}

	result, rpcErr := s.dispatch(ctx, req)
	if req.IsNotification() {
		if rpcErr != nil {
			log.Debug("notification ignored", "err", rpcErr.Message)
		}
		return nil
	}
	if rpcErr != nil {
		log.Info("mcp request failed", "code", rpcErr.Code, "err", rpcErr.Message)
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) dispatch(ctx context.Context, req *Request) (any, *ResponseError) {
	switch req.Method {
	case "initialize":
		return InitializeResult{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      s.info,
			Capabilities: ServerCaps{
				Tools:     &struct{}{},
				Prompts:   &struct{}{},
				Resources: &struct{}{},
			},
		}, nil
	case "notifications/initialized", "initialized", "ping":
		return struct{}{}, nil
	case "tools/list":
		return s.listTools(), nil
	case "tools/call":
		return s.callTool(ctx, req.Params)
	case "prompts/list":
		return s.listPrompts(), nil
	case "prompts/get":
		return s.getPrompt(ctx, req.Params)
	case "resources/list":
		return ListResourcesResult{Resources: []struct{}{}}, nil
	default:
		return nil, &ResponseError{Code: CodeMethodNotFound, Message: "Method not found"}
	}
}

func (s *Server) listTools() ListToolsResult {
	caps := s.gateway.Registry().List()
	tools := make([]Tool, 0, len(caps))
	for _, c := range caps {
		tools = append(tools, Tool{Name: c.Name, Description: c.Description, InputSchema: c.InputSchema})
	}
	return ListToolsResult{Tools: tools}
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (any, *ResponseError) {
	var p CallToolParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, invalidParams("missing tool name")
	}
	res, err := s.gateway.Execute(ctx, p.Name, p.Arguments)
	switch {
	case err == nil:
		return CallToolResult{Content: []ContentItem{TextContent(res.String())}}, nil
	case errors.Is(err, capability.ErrUnknownCapability), capability.IsValidation(err):
		return nil, invalidParams(err.Error())
	default:
		// Known tool, failed run: reported in-band so the client can show it.
		return CallToolResult{Content: []ContentItem{TextContent(err.Error())}, IsError: true}, nil
	}
}

func (s *Server) listPrompts() ListPromptsResult {
	list := s.prompts.List()
	out := make([]Prompt, 0, len(list))
	for _, p := range list {
		args := make([]PromptArgument, 0, len(p.Arguments))
		for _, a := range p.Arguments {
			args = append(args, PromptArgument{Name: a.Name, Description: a.Description, Required: a.Required})
		}
		out = append(out, Prompt{Name: p.Name, Description: p.Description, Arguments: args})
	}
	return ListPromptsResult{Prompts: out}
}

func (s *Server) getPrompt(ctx context.Context, raw json.RawMessage) (any, *ResponseError) {
	var p GetPromptParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	text, err := s.prompts.Render(ctx, p.Name, p.Arguments)
	switch {
	case err == nil:
	case errors.Is(err, prompts.ErrUnknownPrompt), capability.IsValidation(err):
		return nil, invalidParams(err.Error())
	default:
		return nil, &ResponseError{Code: CodeInternalError, Message: err.Error()}
	}
	prompt, _ := s.prompts.Get(p.Name)
	return GetPromptResult{
		Description: prompt.Description,
		Messages:    []PromptMessage{{Role: "user", Content: TextContent(text)}},
	}, nil
}

func decodeParams(raw json.RawMessage, out any) *ResponseError {
	if len(raw) == 0 {
		return invalidParams("missing params")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return invalidParams(err.Error())
	}
	return nil
}

func invalidParams(msg string) *ResponseError {
	return &ResponseError{Code: CodeInvalidParams, Message: "Invalid params: " + msg}
}

func errorResponse(id json.RawMessage, code int, msg string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &ResponseError{Code: code, Message: msg}}
}

// ServeStdio reads newline-delimited messages from r and writes one response
// line per request to w. Requests are handled concurrently; writes are
// serialised. It returns when r is exhausted or ctx is cancelled, after every
// in-flight request has been answered.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			if len(line) == 0 {
				continue
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	write := func(b []byte) {
		mu.Lock()
		defer mu.Unlock()
		if _, err := fmt.Fprintf(w, "%s\n", b); err != nil {
			observability.WithTrace(ctx).Warn("mcp: write response", "err", err)
		}
	}
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				wg.Wait()
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read stdin: %w", err)
					}
				default:
				}
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				reqCtx := trace.WithTraceID(ctx, trace.GenerateID())
				if out := s.HandleMessage(reqCtx, line); out != nil {
					write(out)
				}
			}()
		}
	}
}
