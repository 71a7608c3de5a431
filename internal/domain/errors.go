package domain

import "errors"

var (
	ErrNotAuthorized     = errors.New("not authorized")
	ErrAlreadyOnDuty     = errors.New("already on duty")
	ErrNotOnDuty         = errors.New("not on duty")
	ErrInvalidIdentity   = errors.New("invalid user id")
	ErrNoPendingReminder = errors.New("no pending reminder")
)
