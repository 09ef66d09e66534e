package cli

import (
	"fmt"
	"strings"

	"focusflow/internal/engine"
	"focusflow/internal/models"
	"focusflow/internal/validation"

	"github.com/spf13/cobra"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		format  string
		pending bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show all tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				tasks := a.engine.Tasks()
				if pending {
					open := tasks[:0]
					for _, t := range tasks {
						if !t.Completed {
							open = append(open, t)
						}
					}
					tasks = open
				}
				return writeTasks(cmd.OutOrStdout(), tasks, format)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "text", "output format: text, json or yaml")
	cmd.Flags().BoolVar(&pending, "pending", false, "hide completed tasks")
	return cmd
}

// taskFlags are the form fields shared by add and edit.
type taskFlags struct {
	title    string
	priority string
	details  string
	target   string
	subtasks []string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "Alta, Media or Baja (default Media)")
	cmd.Flags().StringVarP(&f.details, "details", "d", "", "free-form notes")
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "target date, YYYY-MM-DD")
	cmd.Flags().StringArrayVarP(&f.subtasks, "sub", "s", nil, "subtask text (repeatable)")
}

func subtasksFrom(texts []string) []models.Subtask {
	subs := make([]models.Subtask, 0, len(texts))
	for _, text := range texts {
		subs = append(subs, models.Subtask{Text: text})
	}
	return subs
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	f := &taskFlags{}
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Example: `  focusflow add "Estudiar para el examen" -p Alta -t 2025-10-30 -s "Leer capítulo 3" -s "Hacer resumen"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				created, err := a.engine.CreateTask(cmd.Context(), validation.TaskInput{
					Title:      strings.Join(args, " "),
					Priority:   models.Priority(f.priority),
					Details:    f.details,
					TargetDate: f.target,
					Subtasks:   subtasksFrom(f.subtasks),
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Created:")
				printTask(cmd.OutOrStdout(), created)
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	f := &taskFlags{}
	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Change a task's fields",
		Long: `Change a task's fields. Only the flags you pass are changed.
Passing --sub replaces the whole subtask list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				cur, ok := a.engine.Task(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", engine.ErrTaskNotFound, args[0])
				}

				in := validation.TaskInput{
					Title:      cur.Title,
					Priority:   cur.Priority,
					Details:    cur.Details,
					TargetDate: cur.TargetDate,
					Subtasks:   cur.Subtasks,
					Completed:  cur.Completed,
				}
				flags := cmd.Flags()
				if flags.Changed("title") {
					in.Title = f.title
				}
				if flags.Changed("priority") {
					in.Priority = models.Priority(f.priority)
				}
				if flags.Changed("details") {
					in.Details = f.details
				}
				if flags.Changed("target") {
					in.TargetDate = f.target
				}
				if flags.Changed("sub") {
					in.Subtasks = subtasksFrom(f.subtasks)
				}

				updated, err := a.engine.EditTask(cmd.Context(), cur.ID, in)
				if err != nil {
					return err
				}
				printTask(cmd.OutOrStdout(), updated)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.title, "title", "", "new title")
	f.register(cmd)
	return cmd
}

func newToggleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <task-id>",
		Short: "Mark a task done or not done, together with its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				if err := a.engine.ToggleTask(cmd.Context(), args[0]); err != nil {
					return err
				}
				t, _ := a.engine.Task(args[0])
				printTask(cmd.OutOrStdout(), t)
				return nil
			})
		},
	}
}

func newToggleSubCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-sub <task-id> <subtask-id>",
		Short: "Mark one subtask done or not done",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				if err := a.engine.ToggleSubtask(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				t, _ := a.engine.Task(args[0])
				printTask(cmd.OutOrStdout(), t)
				return nil
			})
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <task-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task and its subtasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				t, ok := a.engine.Task(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", engine.ErrTaskNotFound, args[0])
				}
				if err := a.engine.DeleteTask(cmd.Context(), t.ID); err != nil {
					return err
				}
				if _, still := a.engine.Task(t.ID); still {
					// the server refused and the task was put back
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", t.Title)
				return nil
			})
		},
	}
}
