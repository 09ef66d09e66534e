package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"focusflow/internal/calendar"
	"focusflow/internal/models"

	"github.com/spf13/cobra"
)

func newCalendarCmd(opts *rootOptions) *cobra.Command {
	var (
		by    string
		month string
		day   string
	)
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show a month with the number of tasks per day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			field, ok := calendar.ParseField(by)
			if !ok {
				return fmt.Errorf("--by must be created or target, got %q", by)
			}
			var when time.Time
			if month == "" {
				when = time.Now()
			} else {
				var err error
				if when, err = time.Parse("2006-01", month); err != nil {
					return fmt.Errorf("--month must be YYYY-MM, got %q", month)
				}
			}
			if day != "" {
				if _, ok := calendar.DateKey(day); !ok {
					return fmt.Errorf("--day must be YYYY-MM-DD, got %q", day)
				}
			}

			return withApp(cmd, opts, func(a *app) error {
				g := calendar.Group(a.engine.Tasks(), field)
				out := cmd.OutOrStdout()
				if day != "" {
					printDay(out, day, g.On(day))
					return nil
				}
				printMonth(out, g, when.Year(), when.Month())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "created", "group by created or target date")
	cmd.Flags().StringVar(&month, "month", "", "month to show, YYYY-MM (default this month)")
	cmd.Flags().StringVar(&day, "day", "", "list the tasks of one day, YYYY-MM-DD")
	return cmd
}

func printMonth(w io.Writer, g calendar.Grouping, year int, month time.Month) {
	fmt.Fprintf(w, "%s %d (by %s)\n", month, year, g.Field)
	fmt.Fprintln(w, "  Sun   Mon   Tue   Wed   Thu   Fri   Sat")

	cells := calendar.MonthView(g, year, month)
	var row strings.Builder
	for i, c := range cells {
		if c.Blank() {
			row.WriteString("      ")
		} else if badge := c.Badge(); badge != "" {
			fmt.Fprintf(&row, " %2d%-3s", c.Day, "("+badge+")")
		} else {
			fmt.Fprintf(&row, " %2d   ", c.Day)
		}
		if i%7 == 6 || i == len(cells)-1 {
			fmt.Fprintln(w, strings.TrimRight(row.String(), " "))
			row.Reset()
		}
	}

	prefix := fmt.Sprintf("%04d-%02d-", year, int(month))
	for _, date := range g.Dates() {
		if !strings.HasPrefix(date, prefix) {
			continue
		}
		titles := make([]string, 0, len(g.On(date)))
		for _, t := range g.On(date) {
			titles = append(titles, t.Title)
		}
		fmt.Fprintf(w, "\n%s: %s", date, strings.Join(titles, ", "))
	}
	fmt.Fprintln(w)

	if g.Field == calendar.FieldTargetDate && len(g.Unscheduled) > 0 {
		fmt.Fprintf(w, "\n%d task(s) without a target date\n", len(g.Unscheduled))
	}
}

func printDay(w io.Writer, date string, tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintf(w, "No tasks on %s.\n", date)
		return
	}
	fmt.Fprintf(w, "%s\n\n", date)
	printTasks(w, tasks)
}
