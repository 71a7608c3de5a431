package duty

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/giannaras12/dutybot2/internal/domain"
)

// fakeRepo is an in-memory store.Repo.
type fakeRepo struct {
	mu         sync.Mutex
	mods       map[int64]bool
	points     map[int64]int64
	addPoints  int // AddPoints invocations
	failPoints error
}

func newFakeRepo(mods ...int64) *fakeRepo {
	r := &fakeRepo{mods: make(map[int64]bool), points: make(map[int64]int64)}
	for _, id := range mods {
		r.mods[id] = true
	}
	return r
}

func (r *fakeRepo) IsModerator(_ context.Context, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mods[userID], nil
}

func (r *fakeRepo) AddModerator(_ context.Context, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mods[userID] {
		return false, nil
	}
	r.mods[userID] = true
	return true, nil
}

func (r *fakeRepo) RemoveModerator(_ context.Context, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.mods[userID] {
		return false, nil
	}
	delete(r.mods, userID)
	return true, nil
}

func (r *fakeRepo) ListModerators(context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []int64
	for id := range r.mods {
		res = append(res, id)
	}
	return res, nil
}

func (r *fakeRepo) AddPoints(_ context.Context, userID, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addPoints++
	if r.failPoints != nil {
		return 0, r.failPoints
	}
	r.points[userID] += delta
	return r.points[userID], nil
}

func (r *fakeRepo) GetPoints(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.points[userID], nil
}

func (r *fakeRepo) ResetPoints(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = make(map[int64]int64)
	return nil
}

func (r *fakeRepo) Close() error { return nil }

func (r *fakeRepo) payoutCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addPoints
}

// fakeNotifier scripts reminder acknowledgments and records traffic.
type fakeNotifier struct {
	mu        sync.Mutex
	acks      []Ack // consumed per SendReminder call; last one repeats
	ackErr    error
	directErr error

	reminders   int
	events      []string
	eventFields [][]Field
	directs     []string
}

func (n *fakeNotifier) SendReminder(ctx context.Context, userID int64, seq int) (Ack, error) {
	n.mu.Lock()
	n.reminders++
	var ack Ack
	if len(n.acks) > 0 {
		ack = n.acks[0]
		if len(n.acks) > 1 {
			n.acks = n.acks[1:]
		}
	}
	err := n.ackErr
	n.mu.Unlock()
	if err != nil {
		return AckNone, err
	}
	select {
	case <-ctx.Done():
		return AckNone, ctx.Err()
	default:
	}
	return ack, nil
}

func (n *fakeNotifier) SendEvent(title string, _ int64, fields []Field) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, title)
	n.eventFields = append(n.eventFields, fields)
}

func (n *fakeNotifier) lastEvent() (string, []Field) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return "", nil
	}
	return n.events[len(n.events)-1], n.eventFields[len(n.eventFields)-1]
}

func (n *fakeNotifier) SendDirect(_ int64, title string, _ []Field) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.directs = append(n.directs, title)
	return n.directErr
}

func (n *fakeNotifier) reminderCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reminders
}

func (n *fakeNotifier) directCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.directs)
}

// fakeClock lets tests move session time forward deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// longSleep keeps the reminder loop asleep for the whole test.
var longSleep = Config{ReminderMin: time.Hour, ReminderMax: time.Hour}

func newTestManager(t *testing.T, repo *fakeRepo, n *fakeNotifier, cfg Config) (*Manager, *fakeClock) {
	t.Helper()
	if n == nil {
		n = &fakeNotifier{}
	}
	m := NewManager(repo, n, NewAdminSet([]int64{adminID}), zap.NewNop(), cfg)
	clock := newFakeClock()
	m.now = clock.Now
	t.Cleanup(m.Shutdown)
	return m, clock
}

const (
	adminID = int64(1)
	modID   = int64(100)
)

func TestStartRequiresModerator(t *testing.T) {
	m, _ := newTestManager(t, newFakeRepo(), nil, longSleep)

	err := m.Start(context.Background(), 999)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	active, err := m.ListActive(adminID)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestStartTwiceKeepsOriginalSession(t *testing.T) {
	m, clock := newTestManager(t, newFakeRepo(modID), nil, longSleep)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, modID))
	active, err := m.ListActive(adminID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	started := active[0].StartTime

	clock.Advance(5 * time.Minute)
	require.ErrorIs(t, m.Start(ctx, modID), domain.ErrAlreadyOnDuty)

	active, err = m.ListActive(adminID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, started, active[0].StartTime)
}

func TestEndWithoutSession(t *testing.T) {
	repo := newFakeRepo(modID)
	m, _ := newTestManager(t, repo, nil, longSleep)

	_, err := m.End(context.Background(), modID, false, "")
	require.ErrorIs(t, err, domain.ErrNotOnDuty)
	require.Zero(t, repo.payoutCalls())
}

func TestEndPaysOutPoints(t *testing.T) {
	repo := newFakeRepo(modID)
	n := &fakeNotifier{}
	m, clock := newTestManager(t, repo, n, longSleep)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, modID))
	clock.Advance(47 * time.Minute)

	sum, err := m.End(ctx, modID, false, "")
	require.NoError(t, err)
	require.EqualValues(t, 11, sum.Points)
	require.EqualValues(t, 11, sum.Total)
	require.False(t, sum.Automatic)
	require.Equal(t, 47*time.Minute, sum.Duration)

	total, err := repo.GetPoints(ctx, modID)
	require.NoError(t, err)
	require.EqualValues(t, 11, total)

	// 48 minutes crosses the next 4-minute boundary.
	require.NoError(t, m.Start(ctx, modID))
	clock.Advance(48 * time.Minute)
	sum, err = m.End(ctx, modID, false, "")
	require.NoError(t, err)
	require.EqualValues(t, 12, sum.Points)
	require.EqualValues(t, 23, sum.Total)

	// Manual ends never send a direct notice.
	require.Zero(t, n.directCount())
}

func TestEndSurvivesPersistenceFailure(t *testing.T) {
	repo := newFakeRepo(modID)
	repo.failPoints = errors.New("disk full")
	m, _ := newTestManager(t, repo, nil, longSleep)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, modID))
	_, err := m.End(ctx, modID, false, "")
	require.NoError(t, err)

	// Session is gone even though the payout write failed.
	_, err = m.End(ctx, modID, false, "")
	require.ErrorIs(t, err, domain.ErrNotOnDuty)
}

func TestConcurrentEndSinglePayout(t *testing.T) {
	repo := newFakeRepo(modID)
	m, clock := newTestManager(t, repo, nil, longSleep)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, modID))
	clock.Advance(8 * time.Minute)

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.End(ctx, modID, false, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, domain.ErrNotOnDuty)
			losses++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, callers-1, losses)
	require.Equal(t, 1, repo.payoutCalls())

	total, err := repo.GetPoints(ctx, modID)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
}

func TestRecordContinue(t *testing.T) {
	m, clock := newTestManager(t, newFakeRepo(modID), nil, longSleep)
	ctx := context.Background()

	_, err := m.RecordContinue(ctx, modID)
	require.ErrorIs(t, err, domain.ErrNotOnDuty)

	require.NoError(t, m.Start(ctx, modID))
	clock.Advance(10 * time.Minute)

	snap, err := m.RecordContinue(ctx, modID)
	require.NoError(t, err)
	require.Equal(t, 1, snap.ContinueCount)
	require.Equal(t, clock.Now(), snap.LastContinue)

	snap, err = m.RecordContinue(ctx, modID)
	require.NoError(t, err)
	require.Equal(t, 2, snap.ContinueCount)
}

func TestAdminGatedOperations(t *testing.T) {
	repo := newFakeRepo()
	m, _ := newTestManager(t, repo, nil, longSleep)
	ctx := context.Background()
	const stranger = int64(555)

	_, err := m.AddModerator(ctx, stranger, modID)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
	_, err = m.RemoveModerator(ctx, stranger, modID)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
	_, err = m.ListModerators(ctx, stranger)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
	_, err = m.GetPoints(ctx, stranger, modID)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
	require.ErrorIs(t, m.ResetPoints(ctx, stranger), domain.ErrNotAuthorized)
	_, err = m.ListActive(stranger)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	added, err := m.AddModerator(ctx, adminID, modID)
	require.NoError(t, err)
	require.True(t, added)

	// duplicate add reports false
	added, err = m.AddModerator(ctx, adminID, modID)
	require.NoError(t, err)
	require.False(t, added)

	mods, err := m.ListModerators(ctx, adminID)
	require.NoError(t, err)
	require.Equal(t, []int64{modID}, mods)

	removed, err := m.RemoveModerator(ctx, adminID, modID)
	require.NoError(t, err)
	require.True(t, removed)
}
