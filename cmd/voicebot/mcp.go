package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/voicebot/internal/transport/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:          "mcp",
	Short:        "Serve the ask_persona tool over MCP stdio",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// stdout carries the protocol
		ctx, flushLog := setupLoggerTo(ctx, os.Stderr)
		defer flushLog()

		c := newComponents(ctx)
		defer c.close(ctx)

		return mcp.NewServer(c.generator).Serve(ctx, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
