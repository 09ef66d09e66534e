package cli

import (
	"fmt"
	"io"
	"strings"

	"focusflow/internal/organizer"

	"github.com/spf13/cobra"
)

func newDictateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dictate [text]",
		Short: "Turn a brain dump into organized tasks",
		Long: `Send free-form text to Gemini and add the tasks it extracts.
Reads standard input when no text is given. Needs gemini.api_key.`,
		Example: `  focusflow dictate "mañana tengo que llamar al dentista y terminar el informe"
  pbpaste | focusflow dictate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("nothing to organize")
			}

			return withApp(cmd, opts, func(a *app) error {
				orgOpts := []organizer.Option{organizer.WithModel(a.cfg.Gemini.Model)}
				if a.cfg.Gemini.BaseURL != "" {
					orgOpts = append(orgOpts, organizer.WithBaseURL(a.cfg.Gemini.BaseURL))
				}
				org := organizer.NewGeminiClient(a.cfg.Gemini.APIKey, orgOpts...)

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Organizing...")
				tasks, err := org.Organize(cmd.Context(), text)
				if err != nil {
					return err
				}
				if len(tasks) == 0 {
					fmt.Fprintln(out, "No tasks found in that text.")
					return nil
				}

				created, err := a.engine.CreateTasks(cmd.Context(), tasks)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Added %d task(s):\n\n", len(created))
				printTasks(out, created)
				return nil
			})
		},
	}
}
