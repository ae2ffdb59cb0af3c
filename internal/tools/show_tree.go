package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/planfactor/planfactor/internal/dialog"
	"github.com/planfactor/planfactor/internal/scoring"
)

// ShowTreeTool handles the plan_show_tree MCP tool: a human-readable
// rendering of a session's goal tree and evaluation table.
type ShowTreeTool struct {
	registry *Registry
}

// NewShowTreeTool creates a ShowTreeTool.
func NewShowTreeTool(registry *Registry) *ShowTreeTool {
	return &ShowTreeTool{registry: registry}
}

// Definition returns the MCP tool definition for registration.
func (t *ShowTreeTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_show_tree",
		mcp.WithDescription(
			"Render the current goal tree and factor evaluation table of a running "+
				"dialog session as markdown. Read-only; does not advance the dialog.",
		),
		mcp.WithString("token",
			mcp.Required(),
			mcp.Description("Session token returned by plan_start_dialog."),
		),
	)
}

// Handle processes the plan_show_tree tool call.
func (t *ShowTreeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token := req.GetString("token", "")
	if token == "" {
		return mcp.NewToolResultError("'token' is required"), nil
	}

	var sb strings.Builder
	ok := t.registry.View(token, func(s *dialog.Session) {
		renderTree(&sb, s)
		renderResults(&sb, s.Scores.Rows())
	})
	if !ok {
		return mcp.NewToolResultError("unknown session token; call plan_start_dialog first"), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func renderTree(sb *strings.Builder, s *dialog.Session) {
	sb.WriteString("# Goal tree\n\n")
	nodes := s.Tree.Serialize()
	if len(nodes) == 0 {
		sb.WriteString("_(empty)_\n")
		return
	}
	for _, n := range nodes {
		fmt.Fprintf(sb, "%s- [%d] %s\n", strings.Repeat("  ", n.Level-1), n.ID, n.Name)
	}
}

func renderResults(sb *strings.Builder, rows []scoring.Row) {
	sb.WriteString("\n# Factor evaluations\n\n")
	if len(rows) == 0 {
		sb.WriteString("_(none yet)_\n")
		return
	}
	sb.WriteString("| Goal | Factor | p | q | H |\n|------|--------|---|---|---|\n")
	for _, r := range rows {
		fmt.Fprintf(sb, "| %s | %s | %s | %s | %.4f |\n",
			r.Goal, r.Factor, probCell(r.P), probCell(r.Q), r.H)
	}
}

func probCell(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.4g", *v)
}
