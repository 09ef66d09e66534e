// Package dbtools holds maintenance operations on the server database:
// statistics, file backups and exports.
package dbtools

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"focusflow/internal/database"
	"focusflow/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNoDatabase is returned when the database file does not exist.
var ErrNoDatabase = errors.New("database file not found")

// stampLayout is a filesystem-safe UTC timestamp.
const stampLayout = "2006-01-02T15-04-05"

// OpenExisting opens the server database at path. Unlike database.Open it
// refuses to create a new empty file.
func OpenExisting(path string) (*gorm.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoDatabase, path)
		}
		return nil, err
	}
	db, err := database.Open(path, logger.Silent)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// Report is the output of the stats command.
type Report struct {
	Path      string `json:"path" yaml:"path"`
	SizeBytes int64  `json:"sizeBytes" yaml:"sizeBytes"`
	database.Stats `yaml:",inline"`
}

// Inspect collects table statistics and the file size.
func Inspect(db *gorm.DB, path string) (Report, error) {
	st, err := database.CollectStats(db)
	if err != nil {
		return Report{}, fmt.Errorf("failed to collect stats: %w", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return Report{}, err
	}
	return Report{Path: path, SizeBytes: fi.Size(), Stats: st}, nil
}

// WriteReport prints a Report for humans.
func WriteReport(w io.Writer, r Report) {
	fmt.Fprintln(w, "Database statistics")
	fmt.Fprintf(w, "  File:      %s\n", r.Path)
	fmt.Fprintf(w, "  Size:      %.2f KB\n", float64(r.SizeBytes)/1024)
	fmt.Fprintln(w, "Tasks")
	fmt.Fprintf(w, "  Total:     %d\n", r.Total)
	fmt.Fprintf(w, "  Completed: %d\n", r.Completed)
	fmt.Fprintf(w, "  Pending:   %d\n", r.Pending)
	fmt.Fprintf(w, "Subtasks:    %d\n", r.Subtasks)
	fmt.Fprintln(w, "By priority")
	for _, p := range models.Priorities {
		fmt.Fprintf(w, "  %-9s  %d\n", p+":", r.ByPriority[p])
	}
}

// Backup writes a consistent copy of the database into dir using
// VACUUM INTO and returns the new file's path.
func Backup(db *gorm.DB, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	dest := filepath.Join(dir, "focusflow-backup-"+now.UTC().Format(stampLayout)+".db")
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("backup %s already exists", dest)
	}
	if err := db.Exec("VACUUM INTO ?", dest).Error; err != nil {
		return "", fmt.Errorf("failed to back up database: %w", err)
	}
	return dest, nil
}

// ExportName is the default export file name for format.
func ExportName(format string, now time.Time) string {
	ext := format
	if format == "yaml" {
		ext = "yml"
	}
	return "focusflow-export-" + now.UTC().Format(stampLayout) + "." + ext
}

// Export writes every task, newest first, as JSON or YAML and returns how
// many were written.
func Export(db *gorm.DB, w io.Writer, format string) (int, error) {
	tasks, err := database.ListTasks(db)
	if err != nil {
		return 0, fmt.Errorf("failed to read tasks: %w", err)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tasks); err != nil {
			return 0, err
		}
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tasks); err != nil {
			return 0, err
		}
		if err := enc.Close(); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("unknown export format %q (want json or yaml)", format)
	}
	return len(tasks), nil
}
