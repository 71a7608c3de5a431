package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/giannaras12/dutybot2/internal/domain"
	"github.com/giannaras12/dutybot2/internal/duty"
)

// --- Duty lifecycle ---

func (r *Router) handleDutyStart(ctx context.Context, userID int64) {
	err := r.duty.Start(ctx, userID)
	switch {
	case err == nil:
		r.sendText(userID, dutyStartedText)
	case errors.Is(err, domain.ErrNotAuthorized):
		r.sendText(userID, notDutyEligibleText)
	case errors.Is(err, domain.ErrAlreadyOnDuty):
		r.sendText(userID, alreadyOnDutyText)
	default:
		r.log.Error("duty start failed", zap.Int64("user", userID), zap.Error(err))
		r.sendText(userID, internalErrorText)
	}
}

func (r *Router) handleEndDuty(ctx context.Context, userID int64) {
	sum, err := r.duty.End(ctx, userID, false, "")
	switch {
	case err == nil:
		r.sendText(userID, fmt.Sprintf(dutyEndedFmt,
			domain.FormatDuration(sum.Duration), sum.Points, sum.Total))
	case errors.Is(err, domain.ErrNotOnDuty):
		r.sendText(userID, notOnDutyText)
	default:
		r.log.Error("duty end failed", zap.Int64("user", userID), zap.Error(err))
		r.sendText(userID, internalErrorText)
	}
}

func (r *Router) handleDuties(userID int64) {
	sessions, err := r.duty.ListActive(userID)
	if errors.Is(err, domain.ErrNotAuthorized) {
		r.sendText(userID, notAuthorizedText)
		return
	}
	if err != nil {
		r.sendText(userID, internalErrorText)
		return
	}
	if len(sessions) == 0 {
		r.sendText(userID, noActiveDutiesText)
		return
	}

	var b strings.Builder
	b.WriteString("🧾 Active duties:\n")
	for _, s := range sessions {
		fmt.Fprintf(&b, "\n• %d since %s (continued %d times)",
			s.UserID, s.StartTime.Format(time.RFC1123), s.ContinueCount)
	}
	r.sendText(userID, b.String())
}

// --- Reminder button callbacks ---

func (r *Router) handleContinueSignal(userID int64, cbID string) {
	if !r.acks.Resolve(userID, duty.AckContinue) {
		r.answerCallback(cbID, noPendingReminderText)
		return
	}
	r.answerCallback(cbID, dutyContinuedText)
}

func (r *Router) handleEndSignal(userID int64, cbID string) {
	if !r.acks.Resolve(userID, duty.AckEnd) {
		r.answerCallback(cbID, noPendingReminderText)
		return
	}
	r.answerCallback(cbID, dutyEndAckText)
}

// --- Moderator registry (admin) ---

func (r *Router) handleAddMod(ctx context.Context, userID int64, arg string) {
	target, err := domain.ParseUserID(arg)
	if err != nil {
		r.sendText(userID, invalidUserIDText)
		return
	}
	added, err := r.duty.AddModerator(ctx, userID, target)
	switch {
	case errors.Is(err, domain.ErrNotAuthorized):
		r.sendText(userID, notAuthorizedText)
	case err != nil:
		r.log.Error("add moderator failed", zap.Error(err))
		r.sendText(userID, internalErrorText)
	case !added:
		r.sendText(userID, fmt.Sprintf("User %d is already authorized.", target))
	default:
		r.sendText(userID, fmt.Sprintf("User %d added as authorized moderator.", target))
	}
}

func (r *Router) handleRemoveMod(ctx context.Context, userID int64, arg string) {
	target, err := domain.ParseUserID(arg)
	if err != nil {
		r.sendText(userID, invalidUserIDText)
		return
	}
	removed, err := r.duty.RemoveModerator(ctx, userID, target)
	switch {
	case errors.Is(err, domain.ErrNotAuthorized):
		r.sendText(userID, notAuthorizedText)
	case err != nil:
		r.log.Error("remove moderator failed", zap.Error(err))
		r.sendText(userID, internalErrorText)
	case !removed:
		r.sendText(userID, fmt.Sprintf("User %d is not in the moderator list.", target))
	default:
		r.sendText(userID, fmt.Sprintf("User %d removed from authorized moderators.", target))
	}
}

func (r *Router) handleMods(ctx context.Context, userID int64) {
	mods, err := r.duty.ListModerators(ctx, userID)
	if errors.Is(err, domain.ErrNotAuthorized) {
		r.sendText(userID, notAuthorizedText)
		return
	}
	if err != nil {
		r.log.Error("list moderators failed", zap.Error(err))
		r.sendText(userID, internalErrorText)
		return
	}
	if len(mods) == 0 {
		r.sendText(userID, noModeratorsText)
		return
	}

	var b strings.Builder
	b.WriteString("👥 Authorized moderators:\n")
	for _, id := range mods {
		fmt.Fprintf(&b, "\n• %d", id)
	}
	r.sendText(userID, b.String())
}

// --- Points ledger (admin) ---

func (r *Router) handlePoints(ctx context.Context, userID int64, arg string) {
	target, err := domain.ParseUserID(arg)
	if err != nil {
		r.sendText(userID, invalidUserIDText)
		return
	}
	total, err := r.duty.GetPoints(ctx, userID, target)
	switch {
	case errors.Is(err, domain.ErrNotAuthorized):
		r.sendText(userID, notAuthorizedText)
	case err != nil:
		r.log.Error("get points failed", zap.Error(err))
		r.sendText(userID, internalErrorText)
	default:
		r.sendText(userID, fmt.Sprintf("User %d has %d points.", target, total))
	}
}

func (r *Router) handleResetPoints(ctx context.Context, userID int64) {
	err := r.duty.ResetPoints(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotAuthorized):
		r.sendText(userID, notAuthorizedText)
	case err != nil:
		r.log.Error("reset points failed", zap.Error(err))
		r.sendText(userID, internalErrorText)
	default:
		r.sendText(userID, "All points have been reset.")
	}
}
