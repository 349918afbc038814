package model

import "time"

// AccountBalanceTransaction is one append-only ledger entry. The sum of all
// entries for a user always equals that user's current credit balance.
type AccountBalanceTransaction struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Amount         int       `db:"amount" json:"amount"`
	Reason         string    `db:"reason" json:"reason"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
