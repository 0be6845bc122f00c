package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sandevgo/voicebot/internal/service/ui"
	"github.com/spf13/cobra"
)

var (
	askBackend      string
	askConversation string
)

var askCmd = &cobra.Command{
	Use:          "ask <question>",
	Short:        "Ask one question and print the answer",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLoggerTo(cmd.Context(), os.Stderr)
		defer flushLog()

		c := newComponents(ctx)
		defer c.close(ctx)

		backend := askBackend
		if backend == "" {
			backend = c.generator.Primary()
		}

		id := askConversation
		if id == "" {
			id = uuid.NewString()
		}

		reply, err := c.generator.Generate(ctx, strings.Join(args, " "), id, backend)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.ReplyStyle.Render(reply))
		if askConversation == "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", ui.DescStyle.Render("conversation: "+id))
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askBackend, "backend", "b", "", "backend to ask (openai or groq)")
	askCmd.Flags().StringVarP(&askConversation, "conversation", "c", "", "conversation id to continue")
	rootCmd.AddCommand(askCmd)
}
