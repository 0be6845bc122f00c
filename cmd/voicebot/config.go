package main

import (
	"fmt"
	"os"

	"github.com/sandevgo/voicebot/internal/config"
	"github.com/sandevgo/voicebot/pkg/env"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:          "config",
	Short:        "Print the effective configuration as .env",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLoggerTo(cmd.Context(), os.Stderr)
		defer flushLog()

		if err := config.LoadEnv(ctx); err != nil {
			return err
		}

		sections := []struct {
			name string
			cfg  any
		}{
			{"App", config.NewAppConfig(ctx)},
			{"Server", config.NewServerConfig(ctx)},
			{"OpenAI", config.NewOpenAIConfig(ctx)},
			{"Groq", config.NewGroqConfig(ctx)},
			{"Voice", config.NewVoiceConfig(ctx)},
			{"Telegram", config.NewTelegramConfig(ctx)},
		}

		out := cmd.OutOrStdout()
		for _, s := range sections {
			content, err := env.MarshalEnv(s.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "# %s\n%s\n", s.name, content)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
