// Package cli defines the planfactor command tree.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/planfactor/planfactor/internal/config"
	"github.com/planfactor/planfactor/internal/logging"
	"github.com/planfactor/planfactor/internal/server"
)

// NewRootCommand builds the root command with all subcommands attached.
func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "planfactor",
		Short: "Goal-structuring and factor-scoring MCP server",
		Long: `Planfactor guides a conversation that builds a hierarchical goal tree,
optionally generates subgoals from classifier combinations, and scores
risk factors against goals with H = -q*ln(1-p), rolling the sums up the
tree. It exposes the dialog over MCP (stdio transport) and persists
schemes in a local sqlite database.`,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		RunE:  runServe,
	}
	serveCmd.Flags().String("config", "", "Path to the TOML config file (default: ~/.planfactor/config.toml)")
	serveCmd.Flags().String("data-dir", "", "Override the data directory from the config")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the planfactor version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "planfactor v%s\n", version)
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)
	return rootCmd
}

func runServe(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
	}

	// Logs go to stderr so they cannot corrupt the MCP stdio transport.
	log := logging.New(cfg.LogLevel, "planfactor")

	s, cleanup, err := server.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Graceful shutdown on interrupt: the stdio server stops when stdin
	// closes, so an interrupt just triggers cleanup via the defer.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cleanup()
		os.Exit(0)
	}()

	log.Info("serving", "version", server.Version, "data_dir", cfg.DataDir)
	return mcpserver.ServeStdio(s)
}
