package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/personal-assistant/internal/model"
)

var todosOpen bool

var todosCmd = &cobra.Command{
	Use:   "todos",
	Short: "Inspect the todo list",
}

var todosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos, newest first",
	Args:  cobra.NoArgs,
	RunE:  runTodosList,
}

func init() {
	todosListCmd.Flags().BoolVar(&todosOpen, "open", false, "Hide completed todos")
	todosCmd.AddCommand(todosListCmd)
}

func runTodosList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	stores, err := openStores(cmd.Context(), cfg, cliLogger(), true)
	if err != nil {
		return err
	}
	defer stores.Close()

	todos := stores.Todos.List(cmd.Context())
	if todosOpen {
		open := todos[:0]
		for _, t := range todos {
			if !t.Completed {
				open = append(open, t)
			}
		}
		todos = open
	}
	printTodos(os.Stdout, time.Local, todos)
	return nil
}

func printTodos(w io.Writer, loc *time.Location, todos []model.Todo) {
	if len(todos) == 0 {
		fmt.Fprintln(w, "Nothing to do.")
		return
	}
	for _, t := range todos {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		line := fmt.Sprintf("[%s] %s", mark, t.Title)
		if t.DueAt != nil {
			line += " (due " + t.DueAt.In(loc).Format("2006-01-02 15:04") + ")"
		}
		fmt.Fprintln(w, line)
	}
}
