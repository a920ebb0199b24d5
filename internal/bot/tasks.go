package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskdeck/internal/api"
	"taskdeck/internal/model"
	"taskdeck/internal/service"
)

const (
	iconDefault = "🟢"
	iconDue     = "⏳"
	iconOverdue = "⚠️"
	iconDone    = "✅"
)

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	token, ok, err := b.requireSession(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	return b.refreshTaskList(ctx, msg.Chat.ID, token)
}

// refreshTaskList fetches the full collection and renders it, replacing the
// cached copy.
func (b *Bot) refreshTaskList(ctx context.Context, chatID int64, token string) error {
	tasks, message, err := b.api.ViewTasks(ctx, token)
	if err != nil {
		log.Printf("fetch tasks for %d: %v", chatID, err)
		return b.sendText(chatID, "❌ "+escape(api.ErrorMessage(err, "Failed to load tasks!")))
	}

	b.setTaskList(chatID, tasks)
	return b.renderTaskList(chatID, tasks, message)
}

// renderTaskList draws the given rows without touching the network. The empty
// state shows the server-provided message verbatim.
func (b *Bot) renderTaskList(chatID int64, tasks []model.Task, message string) error {
	if len(tasks) == 0 {
		if message == "" {
			message = "No tasks available!"
		}
		return b.sendText(chatID, escape(message))
	}

	now := time.Now()
	grouped := groupByStatus(tasks)

	var builder strings.Builder
	builder.WriteString("🧾 <b>Task list</b>\n")
	builder.WriteString("Tap a button to edit or delete a task.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, status := range model.Statuses() {
		section := grouped[status]
		if len(section) == 0 {
			continue
		}
		builder.WriteString(fmt.Sprintf("<b>%s</b>\n", statusLabel(status)))
		for _, task := range section {
			builder.WriteString(formatTask(task, now))
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("✏️ %s", shortTitle(task.Title, 24)), cbEditPrefix+task.ID),
				tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", cbDeletePrefix+task.ID),
			))
		}
		builder.WriteByte('\n')
	}

	out := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	out.ParseMode = tgbotapi.ModeHTML
	_, err := b.tg.Send(out)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}

	if _, err := b.tg.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case strings.HasPrefix(data, cbEditPrefix):
		taskID := strings.TrimPrefix(data, cbEditPrefix)
		log.Printf("[info] callback edit chat=%d task=%s", chatID, taskID)
		return b.startEditTaskConversation(ctx, chatID, taskID)
	case strings.HasPrefix(data, cbDeletePrefix):
		taskID := strings.TrimPrefix(data, cbDeletePrefix)
		log.Printf("[info] callback delete chat=%d task=%s", chatID, taskID)
		return b.askDeleteConfirmation(chatID, taskID)
	case strings.HasPrefix(data, cbConfirmDelPrefix):
		taskID := strings.TrimPrefix(data, cbConfirmDelPrefix)
		log.Printf("[info] callback confirm delete chat=%d task=%s", chatID, taskID)
		return b.deleteTask(ctx, chatID, taskID)
	case data == cbCancelDelete:
		return b.sendText(chatID, "Deletion cancelled.")
	case strings.HasPrefix(data, cbProfilePrefix):
		field, ok := profileFieldByKey(strings.TrimPrefix(data, cbProfilePrefix))
		if !ok {
			return nil
		}
		return b.startProfileFieldEdit(chatID, field)
	default:
		return nil
	}
}

// askDeleteConfirmation requires an explicit confirmation before any delete
// request is issued.
func (b *Bot) askDeleteConfirmation(chatID int64, taskID string) error {
	title := taskID
	for _, task := range b.taskList(chatID) {
		if task.ID == taskID {
			title = task.Title
			break
		}
	}

	text := fmt.Sprintf("Are you sure you want to delete «%s»?", escape(shortTitle(title, 40)))
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Delete", cbConfirmDelPrefix+taskID),
			tgbotapi.NewInlineKeyboardButtonData("↩️ Cancel", cbCancelDelete),
		),
	)
	return b.sendWithReplyMarkup(chatID, text, markup)
}

// deleteTask issues the delete and, on success, removes exactly the matching
// row from the cached list before re-rendering it. No re-fetch happens; a
// failed delete leaves the cached rows untouched. When the cache no longer
// holds the row (a stale button, e.g. after a restart) the list is fetched
// fresh instead of rendered from the cache.
func (b *Bot) deleteTask(ctx context.Context, chatID int64, taskID string) error {
	token, ok, err := b.requireSession(ctx, chatID)
	if !ok {
		return err
	}

	if _, err := b.api.DeleteTask(ctx, token, taskID); err != nil {
		log.Printf("delete task %s for %d: %v", taskID, chatID, err)
		return b.sendText(chatID, "❌ "+escape(api.ErrorMessage(err, "Failed to delete task!")))
	}

	log.Printf("[info] task deleted chat=%d id=%s", chatID, taskID)
	if err := b.sendText(chatID, "🗑 Task deleted successfully!"); err != nil {
		return err
	}

	remaining, found := removeTask(b.taskList(chatID), taskID)
	if !found {
		return b.refreshTaskList(ctx, chatID, token)
	}
	b.setTaskList(chatID, remaining)
	return b.renderTaskList(chatID, remaining, "All tasks are gone. Add one with /newtask.")
}

func groupByStatus(tasks []model.Task) map[string][]model.Task {
	grouped := make(map[string][]model.Task)
	for _, task := range tasks {
		status := task.Status
		if !model.ValidStatus(status) {
			status = model.StatusPending
		}
		grouped[status] = append(grouped[status], task)
	}
	return grouped
}

func statusLabel(status string) string {
	switch status {
	case model.StatusInProgress:
		return "🔄 In progress"
	case model.StatusCompleted:
		return "✅ Completed"
	default:
		return "🕓 Pending"
	}
}

func formatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := iconDefault
	due, hasDue := service.ParseDueDate(task.DueDate)
	if task.Status == model.StatusCompleted {
		icon = iconDone
	} else if hasDue {
		switch {
		case now.After(due):
			icon = iconOverdue
		case due.Sub(now) <= 48*time.Hour:
			icon = iconDue
		}
	}

	sb.WriteString(fmt.Sprintf("%s <b>%s</b> · %s\n", icon, escape(strings.TrimSpace(task.Title)), priorityBadge(task.Priority)))
	if hasDue {
		if task.Status != model.StatusCompleted && now.After(due) {
			sb.WriteString(fmt.Sprintf("   ⏰ Due %s — <b>overdue</b>\n", due.Format("2006-01-02")))
		} else {
			sb.WriteString(fmt.Sprintf("   ⏰ Due %s\n", due.Format("2006-01-02")))
		}
	}
	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("   📝 %s\n", escape(strings.TrimSpace(task.Description))))
	}
	return sb.String()
}

func priorityBadge(priority string) string {
	switch priority {
	case model.PriorityHigh:
		return "🔴 high"
	case model.PriorityMedium:
		return "🟡 medium"
	default:
		return "🟢 low"
	}
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func shortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

func parseDueInput(text string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func escape(s string) string {
	return html.EscapeString(s)
}
