package main

import (
	"os"
	"os/signal"

	"github.com/sandevgo/voicebot/internal/service/command"
	"github.com/sandevgo/voicebot/internal/transport/cli"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:          "chat",
	Short:        "Talk to the persona in the terminal",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		ctx, flushLog := setupLoggerTo(ctx, os.Stderr)
		defer flushLog()

		c := newComponents(ctx)
		defer c.close(ctx)

		selection := command.NewSelection(c.generator.Primary())
		router := command.New(command.NewCommands(c.generator, selection))

		repl, err := cli.NewReadLine(c.app, c.generator, router, selection)
		if err != nil {
			return err
		}
		defer repl.Shutdown(ctx)

		return repl.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
