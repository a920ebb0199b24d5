package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskdeck/internal/api"
	"taskdeck/internal/model"
)

type screen int

const (
	screenLogin screen = iota + 1
	screenRegister
	screenNewTask
	screenEditTask
	screenProfile
)

// Stages of the login form.
const (
	loginStageEmail = iota
	loginStagePassword
)

// Stages of the registration form.
const (
	registerStageUsername = iota
	registerStageEmail
	registerStagePhone
	registerStageAge
	registerStagePassword
	registerStageAddress
	registerStagePhoto
)

// Stages of the task forms (create and edit share them).
const (
	taskStageTitle = iota
	taskStageDescription
	taskStageStatus
	taskStageDueDate
	taskStagePriority
)

// Stages of the profile editor.
const (
	profileStageIdle = iota
	profileStageValue
)

type loginDraft struct {
	Email    string
	Password string
}

type registerDraft struct {
	Username string
	Email    string
	Phone    string
	Age      string
	Password string
	Address  string
	Photo    *api.Upload
}

type profileDraft struct {
	user  model.User
	field profileField
}

// conversationState is the local form state of the screen currently mounted
// in a chat. Each form owns exactly one draft; it is discarded on
// submit-success, cancel or when another command takes over.
type conversationState struct {
	screen     screen
	stage      int
	submitting bool

	login    loginDraft
	register registerDraft
	task     model.Task
	editID   string
	profile  profileDraft
}

// newTaskDraft returns the create-form defaults. A successful create resets
// the draft to exactly these values.
func newTaskDraft() model.Task {
	return model.Task{
		Status:   model.StatusPending,
		Priority: model.PriorityMedium,
	}
}

// seedEditDraft projects a fetched task into the edit form, applying the same
// fallbacks the form renders with.
func seedEditDraft(task model.Task) model.Task {
	draft := task
	if draft.Status == "" {
		draft.Status = model.StatusPending
	}
	if draft.Priority == "" {
		draft.Priority = model.PriorityLow
	}
	// Server timestamps arrive as RFC 3339; the form edits bare dates.
	if i := strings.Index(draft.DueDate, "T"); i >= 0 {
		draft.DueDate = draft.DueDate[:i]
	}
	return draft
}

// removeTask returns tasks without the entry matching id. Exactly the
// matching row is dropped; order is otherwise preserved. found reports
// whether the rows held the entry at all; callers re-fetch when they did not.
func removeTask(tasks []model.Task, id string) ([]model.Task, bool) {
	out := make([]model.Task, 0, len(tasks))
	found := false
	for _, task := range tasks {
		if task.ID == id {
			found = true
			continue
		}
		out = append(out, task)
	}
	return out, found
}

// stepReply is the prompt a form step answers with.
type stepReply struct {
	text   string
	markup interface{}
}

// reenterForm puts a form back into its last stage after a failed submit.
// The draft survives untouched so the user can resubmit instead of starting
// over.
func reenterForm(state *conversationState) stepReply {
	state.submitting = false
	switch state.screen {
	case screenLogin:
		state.stage = loginStagePassword
		return stepReply{"Send your password to retry, or /cancel.", cancelKeyboard()}
	case screenRegister:
		state.stage = registerStagePhoto
		return stepReply{"Send a photo or tap Skip to retry, or /cancel.", skipKeyboard()}
	case screenProfile:
		state.stage = profileStageValue
		if state.profile.field == fieldPhoto {
			return stepReply{"Send the photo again to retry, or /cancel.", cancelKeyboard()}
		}
		return stepReply{"Send the value again to retry, or /cancel.", cancelKeyboard()}
	default:
		editing := state.screen == screenEditTask
		state.stage = taskStagePriority
		return stepReply{"Send a priority to retry.", choiceKeyboard(model.Priorities(), keepOrSkip(editing))}
	}
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.Chat.ID)
	if state == nil {
		return nil
	}
	if state.submitting {
		return nil
	}

	switch state.screen {
	case screenLogin:
		return b.handleLoginStep(ctx, msg, state)
	case screenRegister:
		return b.handleRegisterStep(ctx, msg, state)
	case screenNewTask, screenEditTask:
		return b.handleTaskStep(ctx, msg, state)
	case screenProfile:
		return b.handleProfileStep(ctx, msg, state)
	default:
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Pick a command to start over.")
	}
}

// ----- Login -----

func (b *Bot) startLoginConversation(msg *tgbotapi.Message) error {
	b.setConversation(msg.Chat.ID, &conversationState{screen: screenLogin, stage: loginStageEmail})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🔐 <b>Welcome back.</b>\nWhat's your email?", cancelKeyboard())
}

func (b *Bot) handleLoginStep(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case loginStageEmail:
		state.login.Email = text
		state.stage = loginStagePassword
		return b.sendWithReplyMarkup(msg.Chat.ID, "And your password?", cancelKeyboard())
	case loginStagePassword:
		state.login.Password = text
		return b.finishLogin(ctx, msg.Chat.ID, state)
	default:
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Try /login again.")
	}
}

func (b *Bot) finishLogin(ctx context.Context, chatID int64, state *conversationState) error {
	state.submitting = true

	result, err := b.api.Login(ctx, state.login.Email, state.login.Password)
	if err != nil {
		log.Printf("login for %d: %v", chatID, err)
		reply := reenterForm(state)
		return b.sendWithReplyMarkup(chatID,
			"❌ "+escape(api.ErrorMessage(err, "Something went wrong"))+"\n"+reply.text, reply.markup)
	}

	if result.Token == "" {
		log.Printf("login for %d: empty token in response", chatID)
		reply := reenterForm(state)
		return b.sendWithReplyMarkup(chatID, "❌ Invalid response from server\n"+reply.text, reply.markup)
	}

	if err := b.sessions.Set(ctx, chatID, result.Token, result.User); err != nil {
		log.Printf("store session for %d: %v", chatID, err)
		reply := reenterForm(state)
		return b.sendWithReplyMarkup(chatID, "❌ Something went wrong\n"+reply.text, reply.markup)
	}

	b.clearConversation(chatID)

	message := result.Message
	if message == "" {
		message = "Login successful!"
	}
	log.Printf("[info] login chat=%d user=%s", chatID, result.User.Username)
	if err := b.sendText(chatID, "✅ "+escape(message)); err != nil {
		return err
	}

	// Land on the dashboard, same as the post-login redirect.
	return b.handleDashboard(ctx, &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}})
}

// ----- Registration -----

func (b *Bot) startRegisterConversation(msg *tgbotapi.Message) error {
	b.setConversation(msg.Chat.ID, &conversationState{screen: screenRegister, stage: registerStageUsername})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 <b>Let's create your account.</b>\nPick a username.", cancelKeyboard())
}

func (b *Bot) handleRegisterStep(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case registerStageUsername:
		state.register.Username = text
		state.stage = registerStageEmail
		return b.sendWithReplyMarkup(msg.Chat.ID, "Your email?", cancelKeyboard())
	case registerStageEmail:
		state.register.Email = text
		state.stage = registerStagePhone
		return b.sendWithReplyMarkup(msg.Chat.ID, "Phone number?", cancelKeyboard())
	case registerStagePhone:
		state.register.Phone = text
		state.stage = registerStageAge
		return b.sendWithReplyMarkup(msg.Chat.ID, "Your age?", cancelKeyboard())
	case registerStageAge:
		state.register.Age = text
		state.stage = registerStagePassword
		return b.sendWithReplyMarkup(msg.Chat.ID, "Choose a password.", cancelKeyboard())
	case registerStagePassword:
		state.register.Password = text
		state.stage = registerStageAddress
		return b.sendWithReplyMarkup(msg.Chat.ID, "Your address?", cancelKeyboard())
	case registerStageAddress:
		state.register.Address = text
		state.stage = registerStagePhoto
		return b.sendWithReplyMarkup(msg.Chat.ID, "📷 Send a profile photo, or skip.", skipKeyboard())
	case registerStagePhoto:
		if len(msg.Photo) > 0 {
			photo, err := b.downloadPhoto(msg)
			if err != nil {
				log.Printf("register photo for %d: %v", msg.Chat.ID, err)
				return b.sendWithReplyMarkup(msg.Chat.ID, "Couldn't read that photo. Send another one or skip.", skipKeyboard())
			}
			state.register.Photo = photo
		} else if !isSkipInput(text) {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Send a photo or tap Skip.", skipKeyboard())
		}
		return b.finishRegister(ctx, msg.Chat.ID, state)
	default:
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Try /register again.")
	}
}

func (b *Bot) finishRegister(ctx context.Context, chatID int64, state *conversationState) error {
	state.submitting = true

	result, err := b.api.Register(ctx, api.RegisterInput{
		Username: state.register.Username,
		Email:    state.register.Email,
		Phone:    state.register.Phone,
		Age:      state.register.Age,
		Password: state.register.Password,
		Address:  state.register.Address,
		Photo:    state.register.Photo,
	})
	if err != nil {
		log.Printf("register for %d: %v", chatID, err)
		reply := reenterForm(state)
		return b.sendWithReplyMarkup(chatID,
			"❌ "+escape(api.ErrorMessage(err, "Something went wrong"))+"\n"+reply.text, reply.markup)
	}

	b.clearConversation(chatID)

	message := result.Message
	if message == "" {
		message = "User registered successfully"
	}
	log.Printf("[info] registered chat=%d user=%s", chatID, state.register.Username)
	return b.sendText(chatID, "✅ "+escape(message)+"\nNow sign in with /login.")
}

// ----- Create / edit task -----

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, ok, err := b.requireSession(ctx, msg.Chat.ID); !ok {
		return err
	}
	b.setConversation(msg.Chat.ID, &conversationState{
		screen: screenNewTask,
		stage:  taskStageTitle,
		task:   newTaskDraft(),
	})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 <b>New task.</b>\nWhat's the title?", cancelKeyboard())
}

func (b *Bot) startEditTaskConversation(ctx context.Context, chatID int64, taskID string) error {
	token, ok, err := b.requireSession(ctx, chatID)
	if !ok {
		return err
	}

	if taskID == "" {
		return b.sendText(chatID, "❌ Task ID missing!")
	}

	if err := b.sendWithReplyMarkup(chatID, "⏳ Loading task...", tgbotapi.NewRemoveKeyboard(true)); err != nil {
		return err
	}

	task, err := b.api.ViewTask(ctx, token, taskID)
	if err != nil {
		log.Printf("fetch task %s for %d: %v", taskID, chatID, err)
		return b.sendText(chatID, "❌ "+escape(api.ErrorMessage(err, "Failed to fetch task!")))
	}

	draft := seedEditDraft(*task)
	b.setConversation(chatID, &conversationState{
		screen: screenEditTask,
		stage:  taskStageTitle,
		task:   draft,
		editID: taskID,
	})

	prompt := fmt.Sprintf("✏️ <b>Editing #%s</b>\nTitle is «%s». Send a new one or keep it.",
		escape(shortID(taskID)), escape(draft.Title))
	return b.sendWithReplyMarkup(chatID, prompt, keepKeyboard())
}

func (b *Bot) handleTaskStep(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	if state.stage < taskStageTitle || state.stage > taskStagePriority {
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Try /newtask again.")
	}

	reply, done := advanceTaskStep(state, msg.Text)
	if !done {
		return b.sendWithReplyMarkup(msg.Chat.ID, reply.text, reply.markup)
	}
	if state.screen == screenEditTask {
		return b.finishEditTask(ctx, msg.Chat.ID, state)
	}
	return b.finishCreateTask(ctx, msg.Chat.ID, state)
}

// advanceTaskStep applies one input to the task draft and moves the form to
// its next stage. Each stage writes exactly its own field; a rejected input
// stays on the same stage. done reports that the last stage has been answered
// and the draft is ready to submit.
func advanceTaskStep(state *conversationState, input string) (stepReply, bool) {
	text := strings.TrimSpace(input)
	editing := state.screen == screenEditTask

	// In the edit form every step may keep the fetched value untouched.
	keep := editing && isKeepInput(text)

	switch state.stage {
	case taskStageTitle:
		if !keep {
			state.task.Title = text
		}
		state.stage = taskStageDescription
		if editing {
			return stepReply{descriptionPrompt(state.task.Description), keepKeyboard()}, false
		}
		return stepReply{"✏️ Add a short description (or skip).", skipKeyboard()}, false
	case taskStageDescription:
		if editing {
			if !keep {
				state.task.Description = text
			}
		} else if !isSkipInput(text) {
			state.task.Description = text
		}
		state.stage = taskStageStatus
		return stepReply{
			fmt.Sprintf("📌 Status? Currently <b>%s</b>.", escape(state.task.Status)),
			choiceKeyboard(model.Statuses(), keepOrSkip(editing)),
		}, false
	case taskStageStatus:
		if !keep && !isSkipInput(text) {
			value := strings.ToLower(text)
			if !model.ValidStatus(value) {
				return stepReply{"Pick one of the status buttons.",
					choiceKeyboard(model.Statuses(), keepOrSkip(editing))}, false
			}
			state.task.Status = value
		}
		state.stage = taskStageDueDate
		return stepReply{dueDatePrompt(editing, state.task.DueDate), keepOrSkipKeyboard(editing)}, false
	case taskStageDueDate:
		if !keep && !isSkipInput(text) {
			if _, ok := parseDueInput(text); !ok {
				return stepReply{"I can't read that date. Use <code>2025-11-30</code>, or skip.",
					keepOrSkipKeyboard(editing)}, false
			}
			state.task.DueDate = text
		}
		state.stage = taskStagePriority
		return stepReply{
			fmt.Sprintf("🚩 Priority? Currently <b>%s</b>.", escape(state.task.Priority)),
			choiceKeyboard(model.Priorities(), keepOrSkip(editing)),
		}, false
	default: // taskStagePriority
		if !keep && !isSkipInput(text) {
			value := strings.ToLower(text)
			if !model.ValidPriority(value) {
				return stepReply{"Pick one of the priority buttons.",
					choiceKeyboard(model.Priorities(), keepOrSkip(editing))}, false
			}
			state.task.Priority = value
		}
		return stepReply{}, true
	}
}

func (b *Bot) finishCreateTask(ctx context.Context, chatID int64, state *conversationState) error {
	state.submitting = true
	token, ok, err := b.requireSession(ctx, chatID)
	if !ok {
		b.clearConversation(chatID)
		return err
	}

	message, err := b.api.AddTask(ctx, token, state.task)
	if err != nil {
		log.Printf("add task for %d: %v", chatID, err)
		reply := reenterForm(state)
		return b.sendWithReplyMarkup(chatID,
			"❌ "+escape(api.ErrorMessage(err, "Failed to add task!"))+"\n"+reply.text, reply.markup)
	}

	// Success resets every field to its default.
	state.task = newTaskDraft()
	b.clearConversation(chatID)

	if message == "" {
		message = "Task added successfully!"
	}
	log.Printf("[info] task created chat=%d", chatID)
	return b.sendText(chatID, "✅ "+escape(message))
}

func (b *Bot) finishEditTask(ctx context.Context, chatID int64, state *conversationState) error {
	state.submitting = true

	token, ok, err := b.requireSession(ctx, chatID)
	if !ok {
		b.clearConversation(chatID)
		return err
	}

	task := state.task
	task.ID = state.editID
	message, err := b.api.EditTask(ctx, token, task)
	if err != nil {
		log.Printf("edit task %s for %d: %v", state.editID, chatID, err)
		reply := reenterForm(state)
		return b.sendWithReplyMarkup(chatID,
			"❌ "+escape(api.ErrorMessage(err, "Failed to update task!"))+"\n"+reply.text, reply.markup)
	}
	b.clearConversation(chatID)

	if message == "" {
		message = "Task updated successfully!"
	}
	log.Printf("[info] task updated chat=%d id=%s", chatID, state.editID)
	if err := b.sendText(chatID, "✅ "+escape(message)); err != nil {
		return err
	}

	// After an edit the list re-fetches the whole collection.
	return b.refreshTaskList(ctx, chatID, token)
}

// ----- Profile -----

func (b *Bot) handleProfile(ctx context.Context, msg *tgbotapi.Message) error {
	token, ok, err := b.requireSession(ctx, msg.Chat.ID)
	if !ok {
		return err
	}

	if err := b.sendWithReplyMarkup(msg.Chat.ID, "⏳ Loading profile...", tgbotapi.NewRemoveKeyboard(true)); err != nil {
		return err
	}

	user, err := b.api.ViewProfile(ctx, token)
	if err != nil {
		log.Printf("fetch profile for %d: %v", msg.Chat.ID, err)
		return b.sendText(msg.Chat.ID, "❌ "+escape(api.ErrorMessage(err, "Something went wrong")))
	}

	b.setConversation(msg.Chat.ID, &conversationState{
		screen:  screenProfile,
		stage:   profileStageIdle,
		profile: profileDraft{user: *user},
	})

	return b.sendWithReplyMarkup(msg.Chat.ID, formatProfile(*user), profileFieldKeyboard())
}

func (b *Bot) startProfileFieldEdit(chatID int64, field profileField) error {
	state := b.getConversation(chatID)
	if state == nil || state.screen != screenProfile {
		return b.sendText(chatID, "Open /profile first.")
	}

	state.profile.field = field
	state.stage = profileStageValue

	if field == fieldPhoto {
		return b.sendWithReplyMarkup(chatID, "📷 Send the new profile photo.", cancelKeyboard())
	}
	current := field.value(state.profile.user)
	prompt := fmt.Sprintf("✏️ <b>%s</b> is «%s». Send the new value.", field.label(), escape(current))
	return b.sendWithReplyMarkup(chatID, prompt, cancelKeyboard())
}

func (b *Bot) handleProfileStep(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	if state.stage != profileStageValue {
		return b.sendWithReplyMarkup(msg.Chat.ID, "Tap the field you want to change.", profileFieldKeyboard())
	}

	var photo *api.Upload
	if state.profile.field == fieldPhoto {
		if len(msg.Photo) == 0 {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Send a photo, or cancel.", cancelKeyboard())
		}
		p, err := b.downloadPhoto(msg)
		if err != nil {
			log.Printf("profile photo for %d: %v", msg.Chat.ID, err)
			return b.sendWithReplyMarkup(msg.Chat.ID, "Couldn't read that photo. Try another one.", cancelKeyboard())
		}
		photo = p
	} else {
		state.profile.field.apply(&state.profile.user, strings.TrimSpace(msg.Text))
	}

	return b.finishProfileUpdate(ctx, msg.Chat.ID, state, photo)
}

func (b *Bot) finishProfileUpdate(ctx context.Context, chatID int64, state *conversationState, photo *api.Upload) error {
	state.submitting = true

	token, ok, err := b.requireSession(ctx, chatID)
	if !ok {
		b.clearConversation(chatID)
		return err
	}

	u := state.profile.user
	message, updated, err := b.api.UpdateProfile(ctx, token, api.ProfileInput{
		Username: u.Username,
		Email:    u.Email,
		Phone:    u.Phone,
		Age:      u.Age,
		Address:  u.Address,
		Photo:    photo,
	})
	if err != nil {
		log.Printf("update profile for %d: %v", chatID, err)
		reply := reenterForm(state)
		return b.sendWithReplyMarkup(chatID,
			"❌ "+escape(api.ErrorMessage(err, "Something went wrong"))+"\n"+reply.text, reply.markup)
	}

	b.clearConversation(chatID)

	// Keep the stored profile in step with the server's copy.
	if updated != nil {
		if err := b.sessions.Set(ctx, chatID, token, *updated); err != nil {
			log.Printf("refresh session user for %d: %v", chatID, err)
		}
	}

	if message == "" {
		message = "Profile updated successfully!"
	}
	log.Printf("[info] profile updated chat=%d", chatID)
	if err := b.sendText(chatID, "✅ "+escape(message)); err != nil {
		return err
	}
	if updated != nil {
		return b.sendText(chatID, formatProfile(*updated))
	}
	return nil
}

func keepOrSkip(editing bool) string {
	if editing {
		return btnKeep
	}
	return btnSkip
}

func keepOrSkipKeyboard(editing bool) tgbotapi.ReplyKeyboardMarkup {
	if editing {
		return keepKeyboard()
	}
	return skipKeyboard()
}

func descriptionPrompt(current string) string {
	if current == "" {
		return "✏️ No description yet. Send one or keep it empty."
	}
	return fmt.Sprintf("✏️ Description is «%s». Send a new one or keep it.", escape(current))
}

func dueDatePrompt(editing bool, current string) string {
	if editing && current != "" {
		return fmt.Sprintf("⏰ Due date is <code>%s</code>. Send a new one like <code>2025-11-30</code>, or keep it.", escape(current))
	}
	return "⏰ Due date, like <code>2025-11-30</code> (or skip)."
}
