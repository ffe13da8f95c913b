package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/personal-assistant/internal/model"
	"github.com/Tiliavir/personal-assistant/internal/notify"
)

var pruneOlderThan time.Duration

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Inspect and prune fired notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runNotificationsList,
}

var notificationsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete notifications older than a cutoff",
	Long: `Delete notifications fired before now minus --older-than.

The file lock is per process. Stop the server first, or call
DELETE /api/notifications?before=<RFC3339> on the running server instead.`,
	Args: cobra.NoArgs,
	RunE: runNotificationsPrune,
}

func init() {
	notificationsPruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 30*24*time.Hour, "Age cutoff, e.g. 72h")
	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsPruneCmd)
}

func runNotificationsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	stores, err := openStores(cmd.Context(), cfg, cliLogger(), true)
	if err != nil {
		return err
	}
	defer stores.Close()

	printNotifications(os.Stdout, time.Local, stores.Notifications.List(cmd.Context()))
	return nil
}

func runNotificationsPrune(cmd *cobra.Command, args []string) error {
	if pruneOlderThan <= 0 {
		return fmt.Errorf("--older-than must be positive, got %s", pruneOlderThan)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	stores, err := openStores(cmd.Context(), cfg, cliLogger(), false)
	if err != nil {
		return err
	}
	defer stores.Close()

	emitter := notify.NewEmitter(stores.Notifications, notify.NewHub())
	removed, err := emitter.Prune(cmd.Context(), time.Now().Add(-pruneOlderThan))
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d notification(s).\n", removed)
	return nil
}

func printNotifications(w io.Writer, loc *time.Location, list []model.Notification) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No notifications.")
		return
	}
	for _, n := range list {
		fmt.Fprintf(w, "%s  %s\n", n.FiredAt.In(loc).Format("2006-01-02 15:04:05"), n.Text)
	}
}
