package domain

import "time"

// Account holds the profile and balance head for a customer account.
// Balance is stored in whole currency units as int64; floating point is
// never used for money.
type Account struct {
	ID             int64
	AccountNumber  string
	Username       string
	FullName       string
	BirthPlace     string
	BirthDate      string
	Gender         string
	Address        string
	Phone          string
	Email          string
	PasswordHash   string
	Balance        int64
	FailedAttempts int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Profile carries the mutable profile fields of an account.
type Profile struct {
	FullName   string
	BirthPlace string
	BirthDate  string
	Gender     string
	Address    string
	Phone      string
	Email      string
}
