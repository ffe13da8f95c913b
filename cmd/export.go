package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/personal-assistant/internal/model"
	"github.com/Tiliavir/personal-assistant/internal/storage"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:       "export <todos|reminders|notifications>",
	Short:     "Export a collection to stdout",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{storage.TodosCollection, storage.RemindersCollection, storage.NotificationsCollection},
	RunE:      runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	stores, err := openStores(cmd.Context(), cfg, cliLogger(), true)
	if err != nil {
		return err
	}
	defer stores.Close()

	return exportCollection(cmd.Context(), os.Stdout, stores, args[0], exportFormat)
}

func exportCollection(ctx context.Context, w io.Writer, stores *storage.Stores, name, format string) error {
	var (
		items any
		rows  [][]string
	)
	switch name {
	case storage.TodosCollection:
		todos := stores.Todos.List(ctx)
		items, rows = todos, todoRows(todos)
	case storage.RemindersCollection:
		reminders := stores.Reminders.List(ctx)
		items, rows = reminders, reminderRows(reminders)
	case storage.NotificationsCollection:
		notes := stores.Notifications.List(ctx)
		items, rows = notes, notificationRows(notes)
	default:
		return fmt.Errorf("unknown collection %q", name)
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "csv":
		printCSV(w, rows)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want csv or json)", format)
	}
}

func todoRows(todos []model.Todo) [][]string {
	rows := [][]string{{"id", "title", "completed", "due_at", "created_at", "updated_at"}}
	for _, t := range todos {
		due := ""
		if t.DueAt != nil {
			due = t.DueAt.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			t.ID, t.Title, strconv.FormatBool(t.Completed), due,
			t.CreatedAt.Format(time.RFC3339), t.UpdatedAt.Format(time.RFC3339),
		})
	}
	return rows
}

func reminderRows(reminders []model.Reminder) [][]string {
	rows := [][]string{{"id", "text", "due_at", "completed", "created_at"}}
	for _, r := range reminders {
		rows = append(rows, []string{
			r.ID, r.Text, r.DueAt.Format(time.RFC3339),
			strconv.FormatBool(r.Completed), r.CreatedAt.Format(time.RFC3339),
		})
	}
	return rows
}

func notificationRows(notes []model.Notification) [][]string {
	rows := [][]string{{"id", "text", "fired_at"}}
	for _, n := range notes {
		rows = append(rows, []string{n.ID, n.Text, n.FiredAt.Format(time.RFC3339)})
	}
	return rows
}

// printCSV writes rows with the first row as header.
func printCSV(w io.Writer, rows [][]string) {
	for _, row := range rows {
		for i, field := range row {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprint(w, csvEscape(field))
		}
		fmt.Fprintln(w)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	needsQuote := false
	for _, c := range s {
		if c == ',' || c == '"' || c == '\n' || c == '\r' {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return s
	}
	// Escape internal double quotes by doubling them.
	escaped := ""
	for _, c := range s {
		if c == '"' {
			escaped += "\""
		}
		escaped += string(c)
	}
	return `"` + escaped + `"`
}
