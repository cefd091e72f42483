package domain

import "time"

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// SortOrder controls the timestamp ordering of transaction listings.
type SortOrder string

const (
	OrderOldestFirst SortOrder = "asc"
	OrderNewestFirst SortOrder = "desc"
)

// Transaction is one immutable ledger entry. Entries are append-only: they
// are written exactly once per completed monetary movement and never updated
// or deleted, even after account closure.
type Transaction struct {
	ID            int64
	AccountNumber string
	Timestamp     time.Time
	Direction     Direction
	Narrative     string
	Amount        int64
	// Reference links the two legs of a transfer; empty for deposits and
	// withdrawals.
	Reference string
}
