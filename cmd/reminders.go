package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/personal-assistant/internal/model"
	"github.com/Tiliavir/personal-assistant/internal/timecalc"
)

var (
	remindersPending bool
	remindersToday   bool
)

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Inspect stored reminders",
}

var remindersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reminders, soonest first",
	Args:  cobra.NoArgs,
	RunE:  runRemindersList,
}

func init() {
	remindersListCmd.Flags().BoolVar(&remindersPending, "pending", false, "Only reminders that will still fire")
	remindersListCmd.Flags().BoolVar(&remindersToday, "today", false, "Only reminders due today")
	remindersCmd.AddCommand(remindersListCmd)
}

func runRemindersList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	stores, err := openStores(cmd.Context(), cfg, cliLogger(), true)
	if err != nil {
		return err
	}
	defer stores.Close()

	now := time.Now()
	printReminders(os.Stdout, now, filterReminders(stores.Reminders.List(cmd.Context()), now, remindersPending, remindersToday))
	return nil
}

func filterReminders(list []model.Reminder, now time.Time, pending, today bool) []model.Reminder {
	from, to := timecalc.StartOfDay(now), timecalc.EndOfDay(now)
	var out []model.Reminder
	for _, r := range list {
		if pending && !r.Pending(now) {
			continue
		}
		if today && !timecalc.Within(r.DueAt.In(now.Location()), from, to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func printReminders(w io.Writer, now time.Time, list []model.Reminder) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No reminders.")
		return
	}
	for _, r := range list {
		fmt.Fprintf(w, "%s  %-14s  %s\n", r.DueAt.In(now.Location()).Format("2006-01-02 15:04"), reminderStatus(now, r), r.Text)
	}
}

// reminderStatus is "done" once fired, otherwise the distance to the due time.
// Incomplete reminders in the past were missed while the server was down.
func reminderStatus(now time.Time, r model.Reminder) string {
	if r.Completed {
		return "done"
	}
	return timecalc.Until(now, r.DueAt)
}
