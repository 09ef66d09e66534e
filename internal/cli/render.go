package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"focusflow/internal/localstore"
	"focusflow/internal/models"

	"gopkg.in/yaml.v3"
)

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func printTask(w io.Writer, t models.Task) {
	fmt.Fprintf(w, "%s %s [%s]", checkbox(t.Completed), t.Title, t.Priority)
	if t.TargetDate != "" {
		fmt.Fprintf(w, "  due %s", t.TargetDate)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "    id: %s\n", t.ID)
	for _, line := range strings.Split(t.Details, "\n") {
		if strings.TrimSpace(line) != "" {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
	for _, s := range t.Subtasks {
		fmt.Fprintf(w, "    %s %s  (%s)\n", checkbox(s.Completed), s.Text, s.ID)
	}
}

func printTasks(w io.Writer, tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks yet.")
		return
	}
	for i, t := range tasks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printTask(w, t)
	}
}

func writeTasks(w io.Writer, tasks []models.Task, format string) error {
	switch format {
	case "", "text":
		printTasks(w, tasks)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tasks); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
}

func printStorageInfo(w io.Writer, info localstore.StorageInfo) {
	fmt.Fprintf(w, "Tasks on this device: %d\n", info.TaskCount)
	fmt.Fprintf(w, "Space used: %s of %s (%.1f%%)\n", formatBytes(info.Used), formatBytes(info.Limit), info.Percentage)
}

func formatBytes(n int) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	}
	return fmt.Sprintf("%d B", n)
}
