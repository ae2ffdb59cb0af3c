package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/planfactor/planfactor/internal/store"
)

// ListSchemesTool handles the plan_list_schemes MCP tool.
type ListSchemesTool struct {
	store *store.Store
}

// NewListSchemesTool creates a ListSchemesTool.
func NewListSchemesTool(st *store.Store) *ListSchemesTool {
	return &ListSchemesTool{store: st}
}

// Definition returns the MCP tool definition for registration.
func (t *ListSchemesTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_list_schemes",
		mcp.WithDescription(
			"List stored planning schemes, newest first. Each scheme holds one "+
				"goal tree with its classifiers and factor evaluations.",
		),
	)
}

// Handle processes the plan_list_schemes tool call.
func (t *ListSchemesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.store == nil {
		return mcp.NewToolResultError("no storage configured"), nil
	}
	schemes, err := t.store.ListSchemes()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing schemes: %v", err)), nil
	}
	if len(schemes) == 0 {
		return mcp.NewToolResultText("No schemes stored yet. Pass scheme_name to plan_start_dialog to create one."), nil
	}

	var sb strings.Builder
	sb.WriteString("| ID | Name | Created |\n|----|------|--------|\n")
	for _, sc := range schemes {
		fmt.Fprintf(&sb, "| %d | %s | %s |\n", sc.ID, sc.Name, sc.CreatedAt)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// ─── CreateSchemeTool ────────────────────────────────────────────────────────

// CreateSchemeTool handles the plan_create_scheme MCP tool.
type CreateSchemeTool struct {
	store *store.Store
}

// NewCreateSchemeTool creates a CreateSchemeTool.
func NewCreateSchemeTool(st *store.Store) *CreateSchemeTool {
	return &CreateSchemeTool{store: st}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateSchemeTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_create_scheme",
		mcp.WithDescription(
			"Create an empty named scheme without starting a dialog. Bind a "+
				"session to it later via plan_start_dialog's scheme_id parameter.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name for the new scheme."),
		),
	)
}

// Handle processes the plan_create_scheme tool call.
func (t *CreateSchemeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.store == nil {
		return mcp.NewToolResultError("no storage configured"), nil
	}
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	scheme, err := t.store.CreateScheme(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("creating scheme: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Scheme '%s' created with id %d.", scheme.Name, scheme.ID)), nil
}

// ─── DeleteSchemeTool ────────────────────────────────────────────────────────

// DeleteSchemeTool handles the plan_delete_scheme MCP tool.
type DeleteSchemeTool struct {
	store *store.Store
}

// NewDeleteSchemeTool creates a DeleteSchemeTool.
func NewDeleteSchemeTool(st *store.Store) *DeleteSchemeTool {
	return &DeleteSchemeTool{store: st}
}

// Definition returns the MCP tool definition for registration.
func (t *DeleteSchemeTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_delete_scheme",
		mcp.WithDescription(
			"Delete a stored scheme and everything under it: goals, classifiers, "+
				"and evaluation results. Running sessions bound to the scheme keep "+
				"their in-memory state but stop persisting.",
		),
		mcp.WithNumber("scheme_id",
			mcp.Required(),
			mcp.Description("ID of the scheme to delete (see plan_list_schemes)."),
		),
	)
}

// Handle processes the plan_delete_scheme tool call.
func (t *DeleteSchemeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.store == nil {
		return mcp.NewToolResultError("no storage configured"), nil
	}
	id := int64(intArg(req, "scheme_id", 0))
	if id == 0 {
		return mcp.NewToolResultError("'scheme_id' is required"), nil
	}
	if _, err := t.store.GetScheme(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scheme %d: %v", id, err)), nil
	}
	if err := t.store.DeleteScheme(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("deleting scheme %d: %v", id, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Scheme %d deleted.", id)), nil
}
