package duty

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/giannaras12/dutybot2/internal/domain"
	"github.com/giannaras12/dutybot2/internal/observability"
)

// runReminderLoop is the per-session reminder scheduler. One instance runs
// per active shift, independently of all others, until its context is
// canceled or the session ends:
//
//	sleep a randomized interval → re-check the session → deliver a reminder
//	→ wait for the acknowledgment → continue or end.
//
// All session mutations go back through the manager, which re-validates
// existence under its lock, so a shift ended elsewhere during a sleep or an
// acknowledgment wait is observed here as ErrNotOnDuty and the loop stops
// without side effects.
func (m *Manager) runReminderLoop(ctx context.Context, userID int64) {
	log := m.log.With(zap.Int64("user", userID))

	for {
		delay := m.reminderDelay()
		log.Debug("next reminder scheduled", zap.Duration("sleep", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Debug("reminder loop cancelled during sleep")
			return
		case <-timer.C:
		}

		// The session may have been ended while we slept.
		s, ok := m.snapshot(userID)
		if !ok {
			log.Debug("session gone, stopping reminder loop")
			return
		}

		ack, err := m.notifier.SendReminder(ctx, userID, s.ContinueCount+1)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Debug("reminder loop cancelled during acknowledgment wait")
				return
			}
			// The session stays active; only this loop stops. Ending a shift
			// over a transport hiccup would forfeit the time already served.
			log.Error("reminder delivery failed, stopping reminder loop", zap.Error(err))
			return
		}
		observability.ReminderSent()

		switch ack {
		case AckEnd:
			if _, err := m.End(context.Background(), userID, false, ""); err != nil && !errors.Is(err, domain.ErrNotOnDuty) {
				log.Error("end from reminder failed", zap.Error(err))
			}
			return

		case AckContinue:
			snap, err := m.RecordContinue(ctx, userID)
			if err != nil {
				// Ended by another path while the user was answering.
				return
			}
			if m.now().UTC().Sub(snap.StartTime) >= m.cfg.MaxDutyDuration {
				if _, err := m.End(context.Background(), userID, true, ReasonDurationLimit); err != nil && !errors.Is(err, domain.ErrNotOnDuty) {
					log.Error("duration-limit end failed", zap.Error(err))
				}
				return
			}
			// Next cycle.

		case AckNone:
			if _, err := m.End(context.Background(), userID, true, ReasonNoResponse); err != nil && !errors.Is(err, domain.ErrNotOnDuty) {
				log.Error("no-response end failed", zap.Error(err))
			}
			return
		}
	}
}

// reminderDelay picks a uniform random wait within [ReminderMin, ReminderMax].
func (m *Manager) reminderDelay() time.Duration {
	lo, hi := m.cfg.ReminderMin, m.cfg.ReminderMax
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}
