package service

import (
	"context"
	"errors"
	"testing"

	"app/internal/model"
	"app/internal/queue"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUserService(users *ledgerRecorder, q *queueStub) UserService {
	return NewUserService(users, q, "file_jobs", 3, zerolog.Nop())
}

func TestGetOrCreateUserExisting(t *testing.T) {
	users := newLedgerRecorder()
	users.users["u1"] = &model.User{ID: "u1", Email: "u1@example.com", CreditBalance: 10}
	q := &queueStub{}
	svc := newTestUserService(users, q)

	user, err := svc.GetOrCreateUser(context.Background(), "u1", "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, 10, user.CreditBalance)
	assert.Empty(t, q.sent, "existing users get no welcome job")
	assert.Empty(t, users.adjustments, "existing users get no grant")
}

func TestGetOrCreateUserProvisionsWithGrant(t *testing.T) {
	users := newLedgerRecorder()
	q := &queueStub{}
	svc := newTestUserService(users, q)

	user, err := svc.GetOrCreateUser(context.Background(), "u1", "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, user.CreditBalance)

	require.Len(t, users.adjustments, 1)
	assert.Equal(t, "signup:u1", users.adjustments[0].key)
	assert.Equal(t, 3, users.adjustments[0].amount)

	require.Len(t, q.sent, 1)
	env, err := queue.Decode(q.sent[0])
	require.NoError(t, err)
	assert.Equal(t, queue.KindSendWelcomeEmail, env.Job)
}

func TestGetOrCreateUserGrantIsIdempotent(t *testing.T) {
	users := newLedgerRecorder()
	svc := newTestUserService(users, &queueStub{})

	_, err := svc.GetOrCreateUser(context.Background(), "u1", "u1@example.com")
	require.NoError(t, err)

	// Simulate a replayed grant; the idempotency key must swallow it.
	require.NoError(t, users.AdjustBalance(context.Background(), "u1", 3, "Signup credit grant", "signup:u1"))
	user, err := users.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, user.CreditBalance)
}

func TestGetOrCreateUserLosesProvisioningRace(t *testing.T) {
	users := newLedgerRecorder()
	// The row appears between the miss and the insert: the first lookup
	// misses, the insert hits the unique constraint, the re-fetch succeeds.
	users.users["u1"] = &model.User{ID: "u1", Email: "u1@example.com", CreditBalance: 3}
	users.getMisses = 1
	q := &queueStub{}
	svc := newTestUserService(users, q)

	user, err := svc.GetOrCreateUser(context.Background(), "u1", "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Empty(t, q.sent)
}

func TestGetOrCreateUserWelcomeJobFailureIsNotFatal(t *testing.T) {
	users := newLedgerRecorder()
	q := &queueStub{sendErr: errors.New("queue unavailable")}
	svc := newTestUserService(users, q)

	user, err := svc.GetOrCreateUser(context.Background(), "u1", "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, user.CreditBalance)
}
