package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/planfactor/planfactor/internal/dialog"
)

// intArg extracts an integer argument from a tool request.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// turnResult is the JSON payload every dialog tool returns: the session
// token plus the full turn envelope.
type turnResult struct {
	Token string `json:"token"`
	dialog.Envelope
}

// envelopeResult marshals a dialog envelope into an MCP text result.
func envelopeResult(token string, env dialog.Envelope) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(turnResult{Token: token, Envelope: env}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding dialog envelope: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}
