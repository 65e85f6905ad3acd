package api

import (
	"context"
	"io"
	"net/http"

	"github.com/robloxmcp/studio-assist/internal/assist"
	"github.com/robloxmcp/studio-assist/internal/capability"
	"github.com/robloxmcp/studio-assist/internal/nlcmd"
	"github.com/robloxmcp/studio-assist/internal/observability"
	"github.com/robloxmcp/studio-assist/internal/wizard"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Capabilities int    `json:"capabilities"`
	Prompts      int    `json:"prompts"`
	Sessions     bool   `json:"sessions"`
}

// VersionResponse is returned by GET /version.
type VersionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
}

// ProcessRequest is the body of POST /process.
type ProcessRequest struct {
	Command   string                `json:"command"`
	Context   *nlcmd.CommandContext `json:"context,omitempty"`
	Language  string                `json:"language,omitempty"`
	SessionID string                `json:"session_id,omitempty"`
}

// ProcessResponse is returned by POST /process.
type ProcessResponse struct {
	Success bool `json:"success"`
	assist.Outcome
	Cached bool `json:"cached"`
}

// ToolInfo describes one capability in GET /tools.
type ToolInfo struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	InputSchema capability.Schema `json:"inputSchema"`
}

// WizardRequest is the body of POST /wizard.
type WizardRequest struct {
	Step            string         `json:"step,omitempty"`
	PreviousChoices map[string]any `json:"previousChoices,omitempty"`
	Language        string         `json:"language,omitempty"`
	SessionID       string         `json:"session_id,omitempty"`
}

// ExplainRequest is the body of POST /explain.
type ExplainRequest struct {
	Code        string `json:"code"`
	Language    string `json:"language,omitempty"`
	DetailLevel string `json:"detailLevel,omitempty"`
}

// LearningPathRequest is the body of POST /learning-path.
type LearningPathRequest struct {
	CurrentSkills  []string `json:"currentSkills,omitempty"`
	Goals          []string `json:"goals"`
	TimeCommitment string   `json:"timeCommitment,omitempty"`
	Language       string   `json:"language,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "healthy",
		Version:      s.handlers.Version,
		Capabilities: len(s.handlers.Gateway.Registry().Names()),
		Prompts:      len(s.handlers.Prompts.List()),
		Sessions:     s.handlers.Sessions != nil,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:   s.handlers.Version,
		GitCommit: s.handlers.GitCommit,
		BuildTime: s.handlers.BuildTime,
	})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ProcessRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}
	lang, err := parseLanguage(req.Language)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cmd := nlcmd.Command{Text: req.Command, Context: req.Context}
	if req.SessionID != "" {
		if !s.requireSessions(w) {
			return
		}
		if err := s.fillHistory(ctx, req.SessionID, &cmd); err != nil {
			writeEngineError(ctx, w, err)
			return
		}
	}

	observability.WithTrace(ctx).Info("processing command", "language", lang, "session", req.SessionID)
	pc, cached := s.process(cmd)
	out := s.handlers.Assistant.Complete(ctx, pc, lang)

	if req.SessionID != "" {
		if err := s.handlers.Sessions.AppendCommand(ctx, req.SessionID, req.Command); err != nil {
			writeEngineError(ctx, w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, ProcessResponse{Success: true, Outcome: out, Cached: cached})
}

// fillHistory supplies the stored history as previous commands when the
// caller sent none.
func (s *Server) fillHistory(ctx context.Context, sessionID string, cmd *nlcmd.Command) error {
	history, err := s.handlers.Sessions.RecentCommands(ctx, sessionID, 0)
	if err != nil {
		return err
	}
	if cmd.Context == nil {
		cmd.Context = &nlcmd.CommandContext{}
	}
	if len(cmd.Context.PreviousCommands) == 0 {
		cmd.Context.PreviousCommands = history
	}
	return nil
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	caps := s.handlers.Gateway.Registry().List()
	tools := make([]ToolInfo, 0, len(caps))
	for _, c := range caps {
		tools = append(tools, ToolInfo{Name: c.Name, Description: c.Description, InputSchema: c.InputSchema})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": tools, "total": len(tools)})
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var args map[string]any
	if err := decodeBody(w, r, &args); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	s.execute(w, r, name, args, "result")
}

// execute runs a capability and writes {"success": true, "tool": name, key: result}.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, name string, args map[string]any, key string) {
	res, err := s.handlers.Gateway.Execute(r.Context(), name, args)
	if err != nil {
		writeEngineError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tool": name, key: res})
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	list := s.handlers.Prompts.List()
	writeJSON(w, http.StatusOK, map[string]any{"prompts": list, "total": len(list)})
}

func (s *Server) handleRenderPrompt(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var args map[string]string
	if err := decodeBody(w, r, &args); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	text, err := s.handlers.Prompts.Render(r.Context(), name, args)
	if err != nil {
		writeEngineError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "prompt": name, "result": text})
}

func (s *Server) handleWizard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req WizardRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if req.SessionID != "" {
		if !s.requireSessions(w) {
			return
		}
		progress, found, err := s.handlers.Sessions.LoadWizard(ctx, req.SessionID)
		if err != nil {
			writeEngineError(ctx, w, err)
			return
		}
		if found {
			if req.PreviousChoices == nil {
				req.PreviousChoices = progress.Choices
			}
			if req.Step == "" && progress.Step == wizard.StepComplete {
				writeJSON(w, http.StatusOK, map[string]any{"success": true, "wizard": completedWizard(req.PreviousChoices)})
				return
			}
			if req.Step == "" {
				req.Step = string(progress.Step)
			}
		}
	}
	if req.Step == "" {
		req.Step = string(wizard.StepStart)
	}

	args := map[string]any{"step": req.Step}
	if req.PreviousChoices != nil {
		args["previousChoices"] = req.PreviousChoices
	}
	if req.Language != "" {
		args["language"] = req.Language
	}
	res, err := s.handlers.Gateway.Execute(ctx, capability.TemplateWizard, args)
	if err != nil {
		writeEngineError(ctx, w, err)
		return
	}

	if req.SessionID != "" {
		if state, ok := res.Data.(wizard.State); ok {
			if err := s.handlers.Sessions.SaveWizard(ctx, req.SessionID, state.NextStep, state.PreviousChoices); err != nil {
				writeEngineError(ctx, w, err)
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "wizard": res})
}

// completedWizard is the resume response for a session that already ran the
// last step. There is nothing left to render, so the message is empty.
func completedWizard(choices map[string]any) wizard.State {
	if choices == nil {
		choices = map[string]any{}
	}
	return wizard.State{
		CurrentStep:     wizard.StepComplete,
		PreviousChoices: choices,
		NextStep:        wizard.StepComplete,
	}
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	args := map[string]any{"code": req.Code}
	if req.Language != "" {
		args["language"] = req.Language
	}
	if req.DetailLevel != "" {
		args["detailLevel"] = req.DetailLevel
	}
	s.execute(w, r, capability.CodeExplain, args, "explanation")
}

func (s *Server) handleLearningPath(w http.ResponseWriter, r *http.Request) {
	var req LearningPathRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if len(req.Goals) == 0 {
		writeError(w, http.StatusBadRequest, "goals are required")
		return
	}
	args := map[string]any{"goals": req.Goals}
	if req.CurrentSkills != nil {
		args["currentSkills"] = req.CurrentSkills
	}
	if req.TimeCommitment != "" {
		args["timeCommitment"] = req.TimeCommitment
	}
	if req.Language != "" {
		args["language"] = req.Language
	}
	s.execute(w, r, capability.LearningPath, args, "learningPath")
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !s.requireSessions(w) {
		return
	}
	id, err := s.handlers.Sessions.Create(r.Context())
	if err != nil {
		writeEngineError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireSessions(w) {
		return
	}
	id := r.PathValue("id")
	history, err := s.handlers.Sessions.RecentCommands(r.Context(), id, 0)
	if err != nil {
		writeEngineError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "commands": history})
}

func (s *Server) requireSessions(w http.ResponseWriter) bool {
	if s.handlers.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "sessions are not enabled")
		return false
	}
	return true
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if s.handlers.MCP == nil {
		writeError(w, http.StatusServiceUnavailable, "json-rpc is not enabled")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	out := s.handlers.MCP.HandleMessage(r.Context(), body)
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}
