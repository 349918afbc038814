package model

import "time"

// User represents a user in the system. The credit balance is only ever
// mutated through ledger adjustments; see repository.UserRepository.
type User struct {
	ID            string    `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	Name          string    `db:"name" json:"name"`
	CreditBalance int       `db:"credit_balance" json:"credit_balance"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
