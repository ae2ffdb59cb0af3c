// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the concrete store, dialog
// engine, and session registry, and injects them into the tools. No
// business logic lives here, only wiring.
package server

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/planfactor/planfactor/internal/config"
	"github.com/planfactor/planfactor/internal/dialog"
	"github.com/planfactor/planfactor/internal/prompts"
	"github.com/planfactor/planfactor/internal/resources"
	"github.com/planfactor/planfactor/internal/store"
	"github.com/planfactor/planfactor/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools registered.
//
// The returned cleanup function closes the sqlite store and must be
// called on shutdown (typically via defer). It is always non-nil and
// safe to call even if storage init failed.
//
// Storage is an independent subsystem: if the database cannot be
// opened, dialogs still work fully in-memory. A warning is logged and
// the scheme tools report the missing storage per call.
func New(cfg config.Config, log *slog.Logger) (*server.MCPServer, func(), error) {
	cleanup := noop

	st, err := store.New(store.Config{DataDir: cfg.DataDir})
	if err != nil {
		log.Warn("storage disabled, continuing in-memory", "error", err, "data_dir", cfg.DataDir)
		st = nil
	} else {
		cleanup = func() {
			if err := st.Close(); err != nil {
				log.Warn("store close", "error", err)
			}
		}
	}

	var persistence dialog.Persistence
	if st != nil {
		persistence = st
	}
	engine := dialog.NewEngine(persistence, cfg, log)
	registry := tools.NewRegistry()

	s := server.NewMCPServer(
		"planfactor",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	startTool := tools.NewStartDialogTool(engine, st, registry)
	s.AddTool(startTool.Definition(), startTool.Handle)

	answerTool := tools.NewAnswerTool(engine, registry)
	s.AddTool(answerTool.Definition(), answerTool.Handle)

	showTreeTool := tools.NewShowTreeTool(registry)
	s.AddTool(showTreeTool.Definition(), showTreeTool.Handle)

	listSchemesTool := tools.NewListSchemesTool(st)
	s.AddTool(listSchemesTool.Definition(), listSchemesTool.Handle)

	createSchemeTool := tools.NewCreateSchemeTool(st)
	s.AddTool(createSchemeTool.Definition(), createSchemeTool.Handle)

	deleteSchemeTool := tools.NewDeleteSchemeTool(st)
	s.AddTool(deleteSchemeTool.Definition(), deleteSchemeTool.Handle)

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	resourceHandler := resources.NewHandler(st)
	s.AddResource(resourceHandler.SchemesResource(), resourceHandler.HandleSchemes)

	return s, cleanup, nil
}

// noop is the default cleanup when storage is disabled.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to drive the planning dialog effectively.
func serverInstructions() string {
	return `You have access to planfactor, a goal-structuring and factor-scoring MCP server.

## What it does
planfactor walks a user through two phases:
1. TREE: build a hierarchical goal tree, optionally generating subgoals
   from classifier combinations (e.g. Region x Channel => "North / Retail").
2. SCORING: evaluate risk/influence factors against goals. Each
   (goal, factor) pair gets p (probability the factor manifests) and
   q (its weight); the server computes H = -q*ln(1-p), rounds to 4
   decimals, and rolls per-goal and per-subtree sums up the tree as
   rows named with the "ΣH " prefix.

## How to drive it
1. Call plan_start_dialog. Pass scheme_name to persist the work, or
   scheme_id + resume=true to continue a saved scheme.
2. Relay each question to the user verbatim and send their reply with
   plan_answer. The response carries the next question, the full tree,
   and the evaluation table; render those for the user as needed.
3. Answers are plain text: names, yes/no, numbers in [0, 1]. Note that
   p must be strictly below 1.
4. Free-text commands work in ANY state; send 'help' for the list.
   Examples: rename goal "A" to "B", delete goal "A", move goal "A"
   under "B", add factor "F", show classifiers, use classifiers "X"
   and "Y", skip, finish.
5. plan_show_tree renders a session as markdown without advancing it.
   plan_list_schemes, plan_create_scheme, and plan_delete_scheme manage
   saved schemes.

## Important rules
- ALWAYS pass the user's wording through unchanged; the dialog does its
  own validation and re-asks on bad input.
- NEVER invent p or q values; they must come from the user.
- The dialog is re-enterable after 'finish': commands still work, so
  the user can keep editing the tree and re-scoring.`
}
