package domain

import "time"

// AttemptState tracks consecutive credential failures for one identity key.
// A missing record is equivalent to zero failures and no lockout.
type AttemptState struct {
	Key         string
	Failures    int
	LockedUntil *time.Time
	UpdatedAt   time.Time
}
