package assistant

import (
	"strings"

	"github.com/Tiliavir/personal-assistant/internal/model"
)

const (
	todoHelp = "I can track todos. Use the Todos panel to add an item, or tell me " +
		`like: "Add a todo to call Alex tomorrow".`
	reminderHelp = "I can set reminders. Use the Reminders panel with a specific time, " +
		`or tell me like: "Remind me at 5pm to submit the report".`
	greeting = "I'm your assistant. I can chat, manage todos, and set reminders. " +
		"What would you like to do?"
)

// OfflineReply answers from canned text keyed on the last user message.
func OfflineReply(messages []model.ChatMessage) string {
	var content string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			content = strings.ToLower(messages[i].Content)
			break
		}
	}
	switch {
	case strings.Contains(content, "todo"):
		return todoHelp
	case strings.Contains(content, "remind"):
		return reminderHelp
	default:
		return greeting
	}
}
