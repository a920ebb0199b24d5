package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskdeck/internal/model"
)

// profileField enumerates the editable profile fields as a closed set, so
// every access is checked at compile time instead of going through a
// string-keyed lookup.
type profileField int

const (
	fieldUsername profileField = iota
	fieldEmail
	fieldPhone
	fieldAge
	fieldAddress
	fieldPhoto
)

func profileFields() []profileField {
	return []profileField{fieldUsername, fieldEmail, fieldPhone, fieldAge, fieldAddress, fieldPhoto}
}

func (f profileField) key() string {
	switch f {
	case fieldUsername:
		return "username"
	case fieldEmail:
		return "email"
	case fieldPhone:
		return "phone"
	case fieldAge:
		return "age"
	case fieldAddress:
		return "address"
	case fieldPhoto:
		return "photo"
	default:
		return ""
	}
}

func (f profileField) label() string {
	switch f {
	case fieldUsername:
		return "Username"
	case fieldEmail:
		return "Email"
	case fieldPhone:
		return "Phone"
	case fieldAge:
		return "Age"
	case fieldAddress:
		return "Address"
	case fieldPhoto:
		return "Photo"
	default:
		return ""
	}
}

// value reads the field from a user profile.
func (f profileField) value(u model.User) string {
	switch f {
	case fieldUsername:
		return u.Username
	case fieldEmail:
		return u.Email
	case fieldPhone:
		return u.Phone
	case fieldAge:
		return u.Age
	case fieldAddress:
		return u.Address
	default:
		return ""
	}
}

// apply writes the field on a user profile. Photo is carried separately as a
// multipart upload and is not set here.
func (f profileField) apply(u *model.User, value string) {
	switch f {
	case fieldUsername:
		u.Username = value
	case fieldEmail:
		u.Email = value
	case fieldPhone:
		u.Phone = value
	case fieldAge:
		u.Age = value
	case fieldAddress:
		u.Address = value
	}
}

func profileFieldByKey(key string) (profileField, bool) {
	for _, f := range profileFields() {
		if f.key() == key {
			return f, true
		}
	}
	return 0, false
}

func profileFieldKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, f := range profileFields() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("✏️ "+f.label(), cbProfilePrefix+f.key()))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatProfile(u model.User) string {
	var sb strings.Builder
	sb.WriteString("👤 <b>Your profile</b>\n")
	for _, f := range profileFields() {
		if f == fieldPhoto {
			continue
		}
		value := f.value(u)
		if value == "" {
			value = "—"
		}
		sb.WriteString(fmt.Sprintf("• <b>%s:</b> %s\n", f.label(), escape(value)))
	}
	if u.ProfileImage != "" {
		sb.WriteString("• <b>Photo:</b> set\n")
	}
	sb.WriteString("\nTap a field to change it.")
	return sb.String()
}
