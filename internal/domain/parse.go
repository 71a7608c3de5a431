package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseUserID parses a user identity given as a command argument.
// Telegram user IDs are positive integers; anything else is rejected.
func ParseUserID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidIdentity
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentity, s)
	}
	return id, nil
}

// FormatDuration renders a duration as whole minutes for user-facing texts.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%d min", int64(d/time.Minute))
}
