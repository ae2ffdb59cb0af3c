// Package prompts implements MCP prompt handlers for the planning dialog.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the plan-start MCP prompt.
// It guides the AI to open a planning dialog and relay it to the user.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("plan-start",
		mcp.WithPromptDescription(
			"Start a goal-structuring session. This walks you through building "+
				"a goal tree, structuring it with classifiers, and scoring risk "+
				"factors against your goals.",
		),
		mcp.WithArgument("scheme_name",
			mcp.ArgumentDescription("Name for the planning scheme (saved to disk). Leave empty for a throwaway session."),
		),
	)
}

// Handle processes the plan-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	schemeName := ""
	if args := req.Params.Arguments; args != nil {
		schemeName = args["scheme_name"]
	}

	startCall := "Run `plan_start_dialog`"
	if schemeName != "" {
		startCall = fmt.Sprintf("Run `plan_start_dialog` with scheme_name='%s'", schemeName)
	}

	return &mcp.GetPromptResult{
		Description: "Start a goal-structuring session",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to structure my goals and score risk factors against them.\n\n"+
						"Please:\n"+
						"1. %s\n"+
						"2. Relay each question to me verbatim and send my answers with `plan_answer`\n"+
						"3. After each turn, show me the updated goal tree when it changed\n"+
						"4. When factor scoring finishes, render the full evaluation table with the ΣH rollups\n\n"+
						"Remind me along the way that I can edit freely: rename/move/delete goals, "+
						"add factors, and use classifiers, all via plain-text commands ('help' lists them).",
					startCall,
				)),
			},
		},
	}, nil
}
