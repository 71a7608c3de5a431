package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/giannaras12/dutybot2/internal/domain"
	"github.com/giannaras12/dutybot2/internal/duty"
)

// dutyService is the command surface the router drives. *duty.Manager
// implements it.
type dutyService interface {
	Start(ctx context.Context, userID int64) error
	End(ctx context.Context, userID int64, automatic bool, reason string) (duty.Summary, error)
	ListActive(actorID int64) ([]domain.Session, error)
	AddModerator(ctx context.Context, actorID, targetID int64) (bool, error)
	RemoveModerator(ctx context.Context, actorID, targetID int64) (bool, error)
	ListModerators(ctx context.Context, actorID int64) ([]int64, error)
	GetPoints(ctx context.Context, actorID, targetID int64) (int64, error)
	ResetPoints(ctx context.Context, actorID int64) error
}

// ackResolver routes reminder-button callbacks back to the waiting reminder.
// *Notifier implements it.
type ackResolver interface {
	Resolve(userID int64, ack duty.Ack) bool
}

// Router wires Telegram updates to duty commands and reminder callbacks.
type Router struct {
	bot  api
	log  *zap.Logger
	duty dutyService
	acks ackResolver
}

// NewRouter creates a new Telegram router.
func NewRouter(bot api, log *zap.Logger, svc dutyService, acks ackResolver) *Router {
	return &Router{bot: bot, log: log, duty: svc, acks: acks}
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	// Text commands
	if upd.Message != nil && upd.Message.From != nil {
		msg := upd.Message
		userID := msg.From.ID
		text := strings.TrimSpace(msg.Text)
		cmd, arg := splitCommand(text)

		switch cmd {
		case "/start", "/help":
			r.sendText(userID, helpText)
		case "/dutystart":
			r.handleDutyStart(ctx, userID)
		case "/endduty":
			r.handleEndDuty(ctx, userID)
		case "/duties":
			r.handleDuties(userID)
		case "/addmod":
			r.handleAddMod(ctx, userID, arg)
		case "/removemod":
			r.handleRemoveMod(ctx, userID, arg)
		case "/mods":
			r.handleMods(ctx, userID)
		case "/points":
			r.handlePoints(ctx, userID, arg)
		case "/resetpoints":
			r.handleResetPoints(ctx, userID)
		default:
			// Not a known command — ignore silently
		}
		return
	}

	// Callback queries (reminder buttons)
	if upd.CallbackQuery != nil && upd.CallbackQuery.From != nil {
		cb := upd.CallbackQuery
		userID := cb.From.ID

		switch cb.Data {
		case cbContinueDuty:
			r.handleContinueSignal(userID, cb.ID)
		case cbEndDuty:
			r.handleEndSignal(userID, cb.ID)
		default:
			// Unknown callback — ignore silently
		}
		return
	}
}

// splitCommand separates "/cmd arg" into its command (bot mention stripped)
// and the remaining argument text.
func splitCommand(text string) (cmd, arg string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd, arg, _ = strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd, strings.TrimSpace(arg)
}

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) answerCallback(id, text string) {
	if _, err := r.bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		r.log.Warn("answer callback failed", zap.Error(err))
	}
}
