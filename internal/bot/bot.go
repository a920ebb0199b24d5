package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskdeck/internal/api"
	"taskdeck/internal/config"
	"taskdeck/internal/model"
	"taskdeck/internal/service"
	"taskdeck/internal/session"
)

const (
	cbEditPrefix       = "edit:"
	cbDeletePrefix     = "delete:"
	cbConfirmDelPrefix = "confirmdel:"
	cbCancelDelete     = "canceldel"
	cbProfilePrefix    = "pf:"
)

const (
	btnSkip         = "⏭️ Skip"
	btnKeep         = "⏩ Keep current"
	btnCancelDialog = "⏪ Cancel input"
	menuLabelNew    = "➕ New Task"
	menuLabelTasks  = "📋 Tasks"
	menuLabelMe     = "👤 Profile"
	menuLabelHelp   = "ℹ️ Help"
)

// Bot aggregates the Telegram API with the remote task API and session store.
type Bot struct {
	tg        *tgbotapi.BotAPI
	api       *api.Client
	sessions  *session.Store
	digestSvc *service.DigestService
	config    *config.Config
	download  *http.Client

	conversations map[int64]*conversationState
	taskLists     map[int64][]model.Task
	mu            sync.Mutex
}

func New(apiClient *api.Client, sessions *session.Store, digestSvc *service.DigestService, cfg *config.Config) (*Bot, error) {
	tg, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", tg.Self.UserName)

	return &Bot{
		tg:            tg,
		api:           apiClient,
		sessions:      sessions,
		digestSvc:     digestSvc,
		config:        cfg,
		download:      &http.Client{Timeout: cfg.HTTPTimeout},
		conversations: make(map[int64]*conversationState),
		taskLists:     make(map[int64][]model.Task),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.tg.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.tg.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled. Pick a command to start over.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(msg.Chat.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I didn't understand that. Try /newtask to add a task, or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	// Any command aborts an in-progress form.
	if msg.Command() != "cancel" {
		b.clearConversation(msg.Chat.ID)
	}

	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "about":
		return b.handleAbout(msg)
	case "login":
		return b.startLoginConversation(msg)
	case "register":
		return b.startRegisterConversation(msg)
	case "logout":
		return b.handleLogout(ctx, msg)
	case "dashboard":
		return b.handleDashboard(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "profile":
		return b.handleProfile(ctx, msg)
	case "cancel":
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>taskdeck keeps your to-do list one chat away.</b>\n\nCommands:\n"+
			"• /login — sign in with email and password\n"+
			"• /register — create an account\n"+
			"• /dashboard — your account overview\n"+
			"• /newtask — add a new task\n"+
			"• /tasks — view, edit and delete tasks\n"+
			"• /profile — view and edit your profile\n"+
			"• /logout — sign out\n"+
			"• /help — hints\n"+
			"• /cancel — abort the current input",
		escape(name),
	)

	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Hints</b>\n" +
		"• /login — sign in; your session is kept until it expires or you /logout\n" +
		"• /register — create an account, photo optional\n" +
		"• /newtask — add a task step by step\n" +
		"• /tasks — list tasks; tap a button to edit or delete one\n" +
		"• /profile — edit one profile field at a time\n" +
		"• /dashboard — account overview with your task count\n" +
		"• /cancel — abort the current input"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleAbout(msg *tgbotapi.Message) error {
	text := "✨ <b>taskdeck</b>\n" +
		"Organize your work without leaving the chat: capture tasks in seconds, " +
		"track status and priority, and never miss a due date.\n\n" +
		"Your tasks live on the taskdeck server; this bot is just the doorway. " +
		"Start with /register or /login."
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleLogout(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.sessions.Clear(ctx, msg.Chat.ID); err != nil {
		log.Printf("clear session for %d: %v", msg.Chat.ID, err)
		return b.sendText(msg.Chat.ID, "Something went wrong")
	}
	b.clearTaskList(msg.Chat.ID)
	log.Printf("[info] logout chat=%d", msg.Chat.ID)
	return b.sendText(msg.Chat.ID, "👋 You're signed out. Use /login to sign back in.")
}

func (b *Bot) handleDashboard(ctx context.Context, msg *tgbotapi.Message) error {
	token, ok, err := b.requireSession(ctx, msg.Chat.ID)
	if err != nil || !ok {
		return err
	}

	user, err := b.sessions.User(ctx, msg.Chat.ID)
	if err != nil {
		// Stored profile is unreadable: the session is invalid, same as an
		// expired token.
		log.Printf("read session user for %d: %v", msg.Chat.ID, err)
		return b.forceLogin(ctx, msg.Chat.ID)
	}

	taskCount := "–"
	tasks, _, err := b.api.ViewTasks(ctx, token)
	if err != nil {
		log.Printf("fetch task count for %d: %v", msg.Chat.ID, err)
	} else {
		taskCount = fmt.Sprintf("%d", len(tasks))
	}

	var builder strings.Builder
	builder.WriteString("📊 <b>Dashboard</b>\n")
	builder.WriteString(fmt.Sprintf("• <b>User:</b> %s\n", escape(user.Username)))
	builder.WriteString(fmt.Sprintf("• <b>Email:</b> %s\n", escape(user.Email)))
	if user.LastLogin != "" {
		builder.WriteString(fmt.Sprintf("• <b>Last login:</b> %s\n", escape(user.LastLogin)))
	}
	builder.WriteString(fmt.Sprintf("• <b>Total tasks:</b> %s\n", taskCount))
	builder.WriteString("\nUse /tasks to see the list or /newtask to add one.")

	return b.sendText(msg.Chat.ID, builder.String())
}

// requireSession returns the stored token when the chat holds a valid
// session. A missing or expired token clears the session and directs the user
// to /login; the second return value is false in that case.
func (b *Bot) requireSession(ctx context.Context, chatID int64) (string, bool, error) {
	token, err := b.sessions.Token(ctx, chatID)
	switch {
	case errors.Is(err, session.ErrNoSession):
		return "", false, b.sendText(chatID, "You're not signed in. Use /login first.")
	case err != nil:
		log.Printf("read session for %d: %v", chatID, err)
		return "", false, b.sendText(chatID, "Something went wrong")
	}

	if session.IsExpired(token, time.Now()) {
		return "", false, b.forceLogin(ctx, chatID)
	}

	return token, true, nil
}

// forceLogin clears the stored session and prompts for a fresh sign-in.
func (b *Bot) forceLogin(ctx context.Context, chatID int64) error {
	if err := b.sessions.Clear(ctx, chatID); err != nil {
		log.Printf("clear expired session for %d: %v", chatID, err)
	}
	b.clearTaskList(chatID)
	log.Printf("[info] session expired chat=%d", chatID)
	return b.sendText(chatID, "⏰ Your session has expired. Please /login again.")
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNew), strings.ToLower(menuLabelTasks),
		strings.ToLower(menuLabelMe), strings.ToLower(menuLabelHelp):
		b.clearConversation(msg.Chat.ID)
	default:
		return false, nil
	}

	switch text {
	case strings.ToLower(menuLabelNew):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg)
	case strings.ToLower(menuLabelMe):
		return true, b.handleProfile(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

// downloadPhoto fetches the largest size of an attached photo so it can be
// forwarded to the API as a multipart file.
func (b *Bot) downloadPhoto(msg *tgbotapi.Message) (*api.Upload, error) {
	if len(msg.Photo) == 0 {
		return nil, fmt.Errorf("no photo attached")
	}
	photo := msg.Photo[len(msg.Photo)-1]

	url, err := b.tg.GetFileDirectURL(photo.FileID)
	if err != nil {
		return nil, fmt.Errorf("resolve photo url: %w", err)
	}

	resp, err := b.download.Get(url)
	if err != nil {
		return nil, fmt.Errorf("download photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download photo: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}

	return &api.Upload{Name: photo.FileID + ".jpg", Data: data}, nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.tg.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.tg.Send(msg)
	return err
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[chatID]
	return ok
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}

func (b *Bot) setTaskList(chatID int64, tasks []model.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.taskLists[chatID] = tasks
}

func (b *Bot) taskList(chatID int64) []model.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.taskLists[chatID]
}

func (b *Bot) clearTaskList(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.taskLists, chatID)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNew),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelMe),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func keepKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnKeep),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func choiceKeyboard(options []string, extra string) tgbotapi.ReplyKeyboardMarkup {
	row := make([]tgbotapi.KeyboardButton, 0, len(options))
	for _, opt := range options {
		row = append(row, tgbotapi.NewKeyboardButton(opt))
	}
	rows := [][]tgbotapi.KeyboardButton{row}
	if extra != "" {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(extra)))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isKeepInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnKeep) || value == "keep" || value == "-"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel input" || value == "cancel"
}
