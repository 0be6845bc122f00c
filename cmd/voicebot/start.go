package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/voicebot/pkg/log"
	"github.com/sandevgo/voicebot/pkg/srv"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the VoiceBot services",
	Long:  `Starts the HTTP API and, when enabled, the Telegram bot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting voicebot")

		c := newComponents(ctx)
		transports, err := initTransports(ctx, c)
		if err != nil {
			c.close(ctx)
			return err
		}
		services := append(c.services, transports...)

		// Start services
		srv.StartServices(ctx, services)

		// Wait for shutdown signal
		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("voicebot has been shut down gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
