package dto

import (
	"time"

	"app/internal/model"
)

// UserDTO is the wire form of the current user.
type UserDTO struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	CreditBalance int    `json:"creditBalance"`
}

func NewUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		CreditBalance: u.CreditBalance,
	}
}

// TransactionDTO is one ledger entry in the user's history.
type TransactionDTO struct {
	ID        string    `json:"id"`
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewTransactionDTO(t *model.AccountBalanceTransaction) TransactionDTO {
	return TransactionDTO{
		ID:        t.ID,
		Amount:    t.Amount,
		Reason:    t.Reason,
		CreatedAt: t.CreatedAt,
	}
}
