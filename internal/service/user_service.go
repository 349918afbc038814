package service

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"
	"app/internal/queue"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// UserService provisions users on first authenticated request and exposes
// their balance and ledger history.
type UserService interface {
	GetOrCreateUser(ctx context.Context, userID, email string) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	ListTransactions(ctx context.Context, userID string) ([]model.AccountBalanceTransaction, error)
}

type userService struct {
	users       repository.UserRepository
	queue       JobQueue
	queueName   string
	signupGrant int
	logger      zerolog.Logger
}

func NewUserService(users repository.UserRepository, queueClient JobQueue, queueName string, signupGrant int, logger zerolog.Logger) UserService {
	return &userService{
		users:       users,
		queue:       queueClient,
		queueName:   queueName,
		signupGrant: signupGrant,
		logger:      logger.With().Str("service", "UserService").Logger(),
	}
}

// GetOrCreateUser returns the user, provisioning the row on first sight.
// New users receive the signup credit grant through the ledger (idempotency
// key derived from the user ID, so a racing first request grants once) and a
// welcome email job.
func (s *userService) GetOrCreateUser(ctx context.Context, userID, email string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	user = &model.User{ID: userID, Email: email}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			// Lost the provisioning race; the other request created the row.
			return s.users.GetUserByID(ctx, userID)
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to provision user")
		return nil, err
	}
	s.logger.Info().Str("user_id", userID).Msg("Provisioned new user")

	if s.signupGrant > 0 {
		if err := s.users.AdjustBalance(ctx, userID, s.signupGrant, "Signup credit grant", "signup:"+userID); err != nil {
			return nil, fmt.Errorf("apply signup grant: %w", err)
		}
	}

	payload, err := queue.Encode(queue.KindSendWelcomeEmail, queue.SendWelcomeEmailPayload{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("encode welcome job: %w", err)
	}
	if err := s.queue.Send(ctx, s.queueName, payload); err != nil {
		// The user exists and is usable; a missed greeting is not fatal.
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to enqueue welcome email job")
	}

	return s.users.GetUserByID(ctx, userID)
}

func (s *userService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

func (s *userService) ListTransactions(ctx context.Context, userID string) ([]model.AccountBalanceTransaction, error) {
	return s.users.ListTransactions(ctx, userID)
}
