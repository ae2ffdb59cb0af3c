// Package resources implements MCP resource handlers for stored schemes.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (plan://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/planfactor/planfactor/internal/store"
)

// Handler manages planfactor resource endpoints.
type Handler struct {
	store *store.Store
}

// NewHandler creates a resource Handler. store may be nil when storage
// is disabled; the resource then reports that instead of data.
func NewHandler(st *store.Store) *Handler {
	return &Handler{store: st}
}

// SchemesResource returns the MCP resource definition for the scheme list.
func (h *Handler) SchemesResource() mcp.Resource {
	return mcp.NewResource(
		"plan://schemes",
		"Stored planning schemes",
		mcp.WithResourceDescription("All stored planning schemes: id, name, and creation time"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleSchemes returns the stored schemes as JSON.
func (h *Handler) HandleSchemes(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if h.store == nil {
		return errorResource(req.Params.URI, "no storage configured"), nil
	}
	schemes, err := h.store.ListSchemes()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(schemes, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling schemes: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
