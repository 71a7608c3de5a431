package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/giannaras12/dutybot2/internal/duty"
)

// api is the subset of *tgbotapi.BotAPI this package uses; tests stub it.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Notifier delivers duty reminders, events and direct notices over Telegram.
// It implements duty.Notifier. A reminder blocks in SendReminder until the
// router resolves it from a button callback, the acknowledgment window
// elapses, or the caller's context is canceled.
type Notifier struct {
	bot       api
	log       *zap.Logger
	logChatID int64
	ackWindow time.Duration

	mu      sync.Mutex
	waiters map[int64]chan duty.Ack
}

// NewNotifier creates a Notifier. logChatID 0 disables event announcements
// (they are still logged).
func NewNotifier(bot api, log *zap.Logger, logChatID int64, ackWindow time.Duration) *Notifier {
	if ackWindow <= 0 {
		ackWindow = 2 * time.Minute
	}
	return &Notifier{
		bot:       bot,
		log:       log,
		logChatID: logChatID,
		ackWindow: ackWindow,
		waiters:   make(map[int64]chan duty.Ack),
	}
}

// SendReminder sends reminder number seq with the Continue/End keyboard and
// waits for the user's answer.
func (n *Notifier) SendReminder(ctx context.Context, userID int64, seq int) (duty.Ack, error) {
	ch := make(chan duty.Ack, 1)
	n.mu.Lock()
	n.waiters[userID] = ch
	n.mu.Unlock()
	defer n.removeWaiter(userID, ch)

	msg := tgbotapi.NewMessage(userID, fmt.Sprintf(reminderFmt, seq, n.ackWindow))
	msg.ReplyMarkup = reminderKeyboard()
	if _, err := n.bot.Send(msg); err != nil {
		return duty.AckNone, fmt.Errorf("send reminder: %w", err)
	}
	n.log.Info("reminder sent", zap.Int64("user", userID), zap.Int("seq", seq))

	timer := time.NewTimer(n.ackWindow)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return duty.AckNone, ctx.Err()
	case ack := <-ch:
		return ack, nil
	case <-timer.C:
		return duty.AckNone, nil
	}
}

// Resolve answers the user's outstanding reminder, if any, and reports
// whether one was waiting. Called by the router on button callbacks.
func (n *Notifier) Resolve(userID int64, ack duty.Ack) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch, ok := n.waiters[userID]
	if !ok {
		return false
	}
	delete(n.waiters, userID)
	ch <- ack
	return true
}

// removeWaiter drops the waiter unless a newer reminder replaced it.
func (n *Notifier) removeWaiter(userID int64, ch chan duty.Ack) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.waiters[userID] == ch {
		delete(n.waiters, userID)
	}
}

// SendEvent announces a duty event to the log chat, fire-and-forget.
func (n *Notifier) SendEvent(title string, userID int64, fields []duty.Field) {
	zf := make([]zap.Field, 0, len(fields)+2)
	zf = append(zf, zap.String("event", title))
	if userID != 0 {
		zf = append(zf, zap.Int64("user", userID))
	}
	for _, f := range fields {
		zf = append(zf, zap.String(f.Name, f.Value))
	}
	n.log.Info("duty event", zf...)

	if n.logChatID == 0 {
		return
	}
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.logChatID, formatEvent(title, userID, fields))); err != nil {
		n.log.Warn("event announcement failed", zap.Error(err))
	}
}

// SendDirect sends a direct notice to the user and returns the delivery error.
func (n *Notifier) SendDirect(userID int64, title string, fields []duty.Field) error {
	if _, err := n.bot.Send(tgbotapi.NewMessage(userID, formatEvent(title, 0, fields))); err != nil {
		return fmt.Errorf("send direct: %w", err)
	}
	return nil
}

// formatEvent renders a titled field list as a plain text message.
func formatEvent(title string, userID int64, fields []duty.Field) string {
	var b strings.Builder
	b.WriteString(title)
	if userID != 0 {
		fmt.Fprintf(&b, " — user %d", userID)
	}
	for _, f := range fields {
		b.WriteString("\n")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
	}
	return b.String()
}
