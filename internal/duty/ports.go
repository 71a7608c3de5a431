package duty

import "context"

// Ack is the outcome of one reminder delivery.
type Ack int

const (
	// AckNone means the acknowledgment window elapsed with no answer.
	AckNone Ack = iota
	// AckContinue means the user confirmed they are still on duty.
	AckContinue
	// AckEnd means the user asked to end the shift from the reminder.
	AckEnd
)

// Field is one name/value pair of an event or direct notice.
type Field struct {
	Name  string
	Value string
}

// Notifier delivers reminders and duty events to the chat platform.
// telegram.Notifier implements it.
type Notifier interface {
	// SendReminder delivers reminder number seq to the user and blocks until
	// the user answers, the acknowledgment window elapses (AckNone), or ctx
	// is canceled. A non-nil error means the reminder was not delivered.
	SendReminder(ctx context.Context, userID int64, seq int) (Ack, error)

	// SendEvent publishes a fire-and-forget announcement to the log channel.
	SendEvent(title string, userID int64, fields []Field)

	// SendDirect sends a best-effort direct notice to the user.
	SendDirect(userID int64, title string, fields []Field) error
}

// Authorizer answers admin checks for privileged commands.
type Authorizer interface {
	IsAdmin(userID int64) bool
}

// AdminSet is a fixed-membership Authorizer backed by configuration.
type AdminSet map[int64]struct{}

func NewAdminSet(ids []int64) AdminSet {
	s := make(AdminSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s AdminSet) IsAdmin(userID int64) bool {
	_, ok := s[userID]
	return ok
}
