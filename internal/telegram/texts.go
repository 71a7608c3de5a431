package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Callback payloads for the reminder buttons.
const (
	cbContinueDuty = "duty:continue"
	cbEndDuty      = "duty:end"
)

// UI texts in English
const (
	helpText = "🛡 Duty bot commands:\n\n" +
		"/dutystart — start your duty shift\n" +
		"/endduty — end your current shift\n" +
		"/duties — list active shifts (admin)\n" +
		"/addmod <id> — authorize a moderator (admin)\n" +
		"/removemod <id> — revoke a moderator (admin)\n" +
		"/mods — list authorized moderators (admin)\n" +
		"/points <id> — show a user's points (admin)\n" +
		"/resetpoints — reset all points (admin)"

	reminderFmt = "⏰ Duty reminder #%d\n\nYou are currently on duty. Please confirm within %s."

	dutyStartedText   = "✅ Duty started. You will receive periodic reminders — confirm each one to stay on duty."
	dutyEndedFmt      = "🛑 Duty ended.\nDuration: %s\nPoints earned: %d\nTotal points: %d"
	dutyContinuedText = "Duty continued."
	dutyEndAckText    = "Duty ended."

	notAuthorizedText     = "You are not authorized to use this command."
	notDutyEligibleText   = "You are not authorized to start duty."
	alreadyOnDutyText     = "You are already on duty."
	notOnDutyText         = "You are not on duty."
	invalidUserIDText     = "Invalid user ID."
	noPendingReminderText = "No pending reminder."
	internalErrorText     = "Something went wrong. Please try again later."

	noActiveDutiesText = "There are no active duties."
	noModeratorsText   = "No moderators added yet."
)

// reminderKeyboard builds the Continue/End inline keyboard attached to
// every reminder.
func reminderKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Continue Duty", cbContinueDuty),
			tgbotapi.NewInlineKeyboardButtonData("🛑 End Duty", cbEndDuty),
		),
	)
}
