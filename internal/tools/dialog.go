package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/planfactor/planfactor/internal/dialog"
	"github.com/planfactor/planfactor/internal/store"
)

// StartDialogTool handles the plan_start_dialog MCP tool.
// It opens a new goal-tree conversation, optionally bound to a stored
// scheme so the tree and evaluations persist across sessions.
type StartDialogTool struct {
	engine   *dialog.Engine
	store    *store.Store
	registry *Registry
}

// NewStartDialogTool creates a StartDialogTool with its dependencies.
// store may be nil, in which case sessions are purely in-memory.
func NewStartDialogTool(engine *dialog.Engine, st *store.Store, registry *Registry) *StartDialogTool {
	return &StartDialogTool{engine: engine, store: st, registry: registry}
}

// Definition returns the MCP tool definition for registration.
func (t *StartDialogTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_start_dialog",
		mcp.WithDescription(
			"Start a goal-structuring dialog. The dialog first builds a goal tree "+
				"(with optional classifier-based subgoal generation), then scores "+
				"factors against goals with H = -q*ln(1-p) and rolls the sums up the tree. "+
				"Returns a session token plus the first question; feed answers to plan_answer. "+
				"Bind the session to a scheme to persist it: pass scheme_name to create one, "+
				"or scheme_id (with resume=true to pick up saved state).",
		),
		mcp.WithString("scheme_name",
			mcp.Description("Create a new named scheme and bind the session to it."),
		),
		mcp.WithNumber("scheme_id",
			mcp.Description("Bind the session to an existing scheme. Ignored when scheme_name is set."),
		),
		mcp.WithBoolean("resume",
			mcp.Description("Load the scheme's saved tree and evaluations instead of starting empty."),
		),
	)
}

// Handle processes the plan_start_dialog tool call.
func (t *StartDialogTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	schemeName := req.GetString("scheme_name", "")
	schemeID := int64(intArg(req, "scheme_id", 0))
	resume := boolArg(req, "resume", false)

	if schemeName != "" {
		if t.store == nil {
			return mcp.NewToolResultError("no storage configured; start without a scheme"), nil
		}
		scheme, err := t.store.CreateScheme(schemeName)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("creating scheme: %v", err)), nil
		}
		schemeID = scheme.ID
		resume = false
	} else if schemeID != 0 && t.store != nil {
		if _, err := t.store.GetScheme(schemeID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scheme %d: %v", schemeID, err)), nil
		}
	}

	s, env := t.engine.Start(schemeID, resume)
	t.registry.Put(s)
	return envelopeResult(s.Token, env)
}

// ─── AnswerTool ──────────────────────────────────────────────────────────────

// AnswerTool handles the plan_answer MCP tool: one dialog turn.
type AnswerTool struct {
	engine   *dialog.Engine
	registry *Registry
}

// NewAnswerTool creates an AnswerTool with its dependencies.
func NewAnswerTool(engine *dialog.Engine, registry *Registry) *AnswerTool {
	return &AnswerTool{engine: engine, registry: registry}
}

// Definition returns the MCP tool definition for registration.
func (t *AnswerTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_answer",
		mcp.WithDescription(
			"Send one answer to a running goal-structuring dialog and get the next "+
				"question plus the current tree and evaluation table. Besides plain "+
				"answers, free-text edit commands work in any state (send 'help' for "+
				"the list: rename/move/delete goals, add factors, classifiers, ...).",
		),
		mcp.WithString("token",
			mcp.Required(),
			mcp.Description("Session token returned by plan_start_dialog."),
		),
		mcp.WithString("text",
			mcp.Description("The answer. An empty string is a valid answer in some states."),
		),
	)
}

// Handle processes the plan_answer tool call.
func (t *AnswerTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token := req.GetString("token", "")
	if token == "" {
		return mcp.NewToolResultError("'token' is required"), nil
	}
	text := req.GetString("text", "")

	env, ok := t.registry.Turn(token, func(s *dialog.Session) dialog.Envelope {
		return t.engine.Answer(s, text)
	})
	if !ok {
		return mcp.NewToolResultError("unknown session token; call plan_start_dialog first"), nil
	}
	return envelopeResult(token, env)
}
