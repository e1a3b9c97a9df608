package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapilot-cli/internal/session"
)

var (
	chatResult   string
	chatStream   bool
	chatModel    string
	chatProvider string
)

var chatCmd = &cobra.Command{
	Use:   "chat <question>",
	Short: "Ask a follow-up question about a saved analysis result",
	Long: `Ask one question about a result saved with "datapilot analyze --output".
Each question is answered from the result summary alone; earlier questions
are not replayed.`,
	Example: `  datapilot chat --result result.json "Which group should we contact first?"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if chatResult == "" {
			return errors.New("--result is required")
		}
		res, err := readResult(chatResult)
		if err != nil {
			return err
		}
		question := strings.Join(args, " ")

		rt, provider, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: chatProvider})
		if err != nil {
			return err
		}
		a := newAnalyzer(cfg, rt, selectModel(cfg, provider, chatModel))

		handled, err := handleStreaming(cmd.Context(), rt, a.ChatRequest(res, question), streamingOptions{
			Enabled:     chatStream,
			Writer:      cmd.ErrOrStderr(),
			DeltaWriter: cmd.OutOrStdout(),
		})
		if handled {
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), session.BannerChatFailed)
			}
			return err
		}

		answer, err := a.Chat(cmd.Context(), res, question)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), session.BannerChatFailed)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatResult, "result", "r", "", "result JSON saved by analyze --output")
	chatCmd.Flags().BoolVar(&chatStream, "stream", false, "stream the answer as it is generated")
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "model to use (default from config)")
	chatCmd.Flags().StringVar(&chatProvider, "provider", "", "runtime: openrouter|ollama|mock (default from config)")
}
