package duty

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/giannaras12/dutybot2/internal/domain"
	"github.com/giannaras12/dutybot2/internal/observability"
	"github.com/giannaras12/dutybot2/internal/store"
)

// Config holds the timing policy for duty shifts.
type Config struct {
	// ReminderMin/ReminderMax bound the randomized wait between reminders.
	ReminderMin time.Duration
	ReminderMax time.Duration
	// MaxDutyDuration caps a single shift; reaching it auto-ends the session.
	MaxDutyDuration time.Duration
}

const (
	defaultReminderMin = 20 * time.Minute
	defaultReminderMax = 30 * time.Minute
	defaultMaxDuration = 12 * time.Hour
)

func (c Config) withDefaults() Config {
	if c.ReminderMin <= 0 {
		c.ReminderMin = defaultReminderMin
	}
	if c.ReminderMax < c.ReminderMin {
		c.ReminderMax = c.ReminderMin + (defaultReminderMax - defaultReminderMin)
	}
	if c.MaxDutyDuration <= 0 {
		c.MaxDutyDuration = defaultMaxDuration
	}
	return c
}

// Auto-end reasons reported in events and direct notices.
const (
	ReasonNoResponse    = "no response to reminder"
	ReasonDurationLimit = "duration limit reached"
)

// Summary describes one ended duty shift.
type Summary struct {
	UserID        int64
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
	ContinueCount int
	Points        int64
	Total         int64
	Automatic     bool
	Reason        string
}

// handle controls one running reminder loop.
type handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns the active-session and reminder-loop tables. It is the only
// mutator of both; a single mutex serializes start/end/continue per user so
// existence checks and the following mutation are atomic together.
type Manager struct {
	repo     store.Repo
	notifier Notifier
	auth     Authorizer
	log      *zap.Logger
	cfg      Config

	mu       sync.Mutex
	sessions map[int64]*domain.Session
	handles  map[int64]*handle

	now func() time.Time // replaced in tests
}

// NewManager creates a session manager. Zero Config fields fall back to
// the default policy (20-30m reminders, 12h cap).
func NewManager(repo store.Repo, notifier Notifier, auth Authorizer, log *zap.Logger, cfg Config) *Manager {
	return &Manager{
		repo:     repo,
		notifier: notifier,
		auth:     auth,
		log:      log,
		cfg:      cfg.withDefaults(),
		sessions: make(map[int64]*domain.Session),
		handles:  make(map[int64]*handle),
		now:      time.Now,
	}
}

// Start begins a duty shift for the user: registers a session and spawns
// its reminder loop. Fails with ErrNotAuthorized for non-moderators and
// ErrAlreadyOnDuty if a session already exists.
func (m *Manager) Start(ctx context.Context, userID int64) error {
	ok, err := m.repo.IsModerator(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotAuthorized
	}

	m.mu.Lock()
	if _, exists := m.sessions[userID]; exists {
		m.mu.Unlock()
		return domain.ErrAlreadyOnDuty
	}
	// A stale loop can be left behind if a previous shift did not tear down
	// cleanly; make sure at most one loop runs per user.
	if h, ok := m.handles[userID]; ok {
		h.cancel()
		delete(m.handles, userID)
		m.log.Warn("cancelled stale reminder loop", zap.Int64("user", userID))
	}

	start := m.now().UTC()
	m.sessions[userID] = &domain.Session{
		UserID:       userID,
		StartTime:    start,
		LastContinue: start,
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	h := &handle{cancel: cancel, done: make(chan struct{})}
	m.handles[userID] = h
	m.mu.Unlock()

	go func() {
		defer close(h.done)
		m.runReminderLoop(loopCtx, userID)
	}()

	observability.SessionStarted()
	m.log.Info("duty started", zap.Int64("user", userID), zap.Time("start", start))
	m.notifier.SendEvent("Duty Started", userID, []Field{
		{Name: "Start Time", Value: start.Format(time.RFC1123)},
	})
	return nil
}

// End finishes a duty shift: cancels the reminder loop, removes the session,
// pays out points and emits notifications. Exactly one of any concurrent
// callers wins; the rest observe ErrNotOnDuty.
func (m *Manager) End(ctx context.Context, userID int64, automatic bool, reason string) (Summary, error) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if !ok {
		m.mu.Unlock()
		return Summary{}, domain.ErrNotOnDuty
	}
	delete(m.sessions, userID)
	if h, ok := m.handles[userID]; ok {
		h.cancel()
		delete(m.handles, userID)
	}
	end := m.now().UTC()
	snap := *s
	m.mu.Unlock()

	elapsed := end.Sub(snap.StartTime)
	points := domain.PointsForDuration(elapsed)

	total, err := m.repo.AddPoints(ctx, userID, points)
	if err != nil {
		// Durability degraded, but the in-memory teardown already happened;
		// surface the failure without undoing the end.
		m.log.Error("points not persisted", zap.Int64("user", userID),
			zap.Int64("points", points), zap.Error(err))
		total = points
	} else {
		observability.PointsAwarded(points)
	}

	sum := Summary{
		UserID:        userID,
		StartTime:     snap.StartTime,
		EndTime:       end,
		Duration:      elapsed,
		ContinueCount: snap.ContinueCount,
		Points:        points,
		Total:         total,
		Automatic:     automatic,
		Reason:        reason,
	}

	observability.SessionEnded(endReasonLabel(automatic, reason))
	m.log.Info("duty ended",
		zap.Int64("user", userID),
		zap.Bool("automatic", automatic),
		zap.String("reason", reason),
		zap.Duration("duration", elapsed),
		zap.Int64("points", points),
	)

	title := "Duty Ended"
	if automatic {
		title = "Duty Auto-Ended"
	}
	fields := []Field{
		{Name: "Start Time", Value: snap.StartTime.Format(time.RFC1123)},
		{Name: "End Time", Value: end.Format(time.RFC1123)},
		{Name: "Total Duration", Value: domain.FormatDuration(elapsed)},
		{Name: "Times Continued", Value: itoa(int64(snap.ContinueCount))},
		{Name: "Points Earned", Value: itoa(points)},
		{Name: "Total Points", Value: itoa(total)},
	}
	if automatic {
		fields = append(fields, Field{Name: "Reason", Value: reason})
	}
	m.notifier.SendEvent(title, userID, fields)

	if automatic {
		if err := m.notifier.SendDirect(userID, title, fields); err != nil {
			m.log.Warn("direct notice failed", zap.Int64("user", userID), zap.Error(err))
		}
	}
	return sum, nil
}

// RecordContinue acknowledges a reminder: bumps the continue counter and the
// last-continue timestamp. Returns a snapshot of the updated session, or
// ErrNotOnDuty if the session was ended before the acknowledgment landed.
func (m *Manager) RecordContinue(ctx context.Context, userID int64) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return domain.Session{}, domain.ErrNotOnDuty
	}
	s.ContinueCount++
	s.LastContinue = m.now().UTC()
	m.log.Info("duty continued", zap.Int64("user", userID), zap.Int("count", s.ContinueCount))
	return *s, nil
}

// ListActive returns snapshots of every active session, oldest first.
// Admin only.
func (m *Manager) ListActive(actorID int64) ([]domain.Session, error) {
	if !m.auth.IsAdmin(actorID) {
		return nil, domain.ErrNotAuthorized
	}
	m.mu.Lock()
	res := make([]domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		res = append(res, *s)
	}
	m.mu.Unlock()
	sort.Slice(res, func(i, j int) bool { return res[i].StartTime.Before(res[j].StartTime) })
	return res, nil
}

// AddModerator registers a user as duty-eligible. Admin only; duplicates
// report false.
func (m *Manager) AddModerator(ctx context.Context, actorID, targetID int64) (bool, error) {
	if !m.auth.IsAdmin(actorID) {
		return false, domain.ErrNotAuthorized
	}
	added, err := m.repo.AddModerator(ctx, targetID)
	if err != nil {
		return false, err
	}
	if added {
		m.log.Info("moderator added", zap.Int64("actor", actorID), zap.Int64("target", targetID))
	}
	return added, nil
}

// RemoveModerator revokes duty eligibility. Admin only; absent targets
// report false.
func (m *Manager) RemoveModerator(ctx context.Context, actorID, targetID int64) (bool, error) {
	if !m.auth.IsAdmin(actorID) {
		return false, domain.ErrNotAuthorized
	}
	removed, err := m.repo.RemoveModerator(ctx, targetID)
	if err != nil {
		return false, err
	}
	if removed {
		m.log.Info("moderator removed", zap.Int64("actor", actorID), zap.Int64("target", targetID))
	}
	return removed, nil
}

// ListModerators returns the registry contents. Admin only.
func (m *Manager) ListModerators(ctx context.Context, actorID int64) ([]int64, error) {
	if !m.auth.IsAdmin(actorID) {
		return nil, domain.ErrNotAuthorized
	}
	return m.repo.ListModerators(ctx)
}

// GetPoints returns a user's accrued balance. Admin only.
func (m *Manager) GetPoints(ctx context.Context, actorID, targetID int64) (int64, error) {
	if !m.auth.IsAdmin(actorID) {
		return 0, domain.ErrNotAuthorized
	}
	return m.repo.GetPoints(ctx, targetID)
}

// ResetPoints zeroes the whole ledger. Admin only.
func (m *Manager) ResetPoints(ctx context.Context, actorID int64) error {
	if !m.auth.IsAdmin(actorID) {
		return domain.ErrNotAuthorized
	}
	if err := m.repo.ResetPoints(ctx); err != nil {
		return err
	}
	m.log.Info("points ledger reset", zap.Int64("actor", actorID))
	return nil
}

// Shutdown cancels every reminder loop and waits for them to finish.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	handles := make([]*handle, 0, len(m.handles))
	for id, h := range m.handles {
		h.cancel()
		handles = append(handles, h)
		delete(m.handles, id)
	}
	m.mu.Unlock()

	for _, h := range handles {
		<-h.done
	}
}

// snapshot returns a copy of the user's session, if any.
func (m *Manager) snapshot(userID int64) (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return domain.Session{}, false
	}
	return *s, true
}

func endReasonLabel(automatic bool, reason string) string {
	if !automatic {
		return "manual"
	}
	switch reason {
	case ReasonNoResponse:
		return "no_response"
	case ReasonDurationLimit:
		return "duration_limit"
	default:
		return "auto"
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
