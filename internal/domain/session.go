package domain

import "time"

// Session represents one active duty shift.
type Session struct {
	UserID        int64
	StartTime     time.Time // UTC, immutable after creation
	LastContinue  time.Time // UTC, updated on each acknowledged reminder
	ContinueCount int
}

// Elapsed returns the session duration as of now.
func (s *Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartTime)
}

// PointsForDuration converts a duty shift duration into points:
// one point per four full minutes on duty.
func PointsForDuration(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	minutes := int64(d / time.Minute)
	return minutes / 4
}
