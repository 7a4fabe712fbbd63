package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/travel-lottery/internal/model"
	"github.com/iliyamo/travel-lottery/internal/repository/memstore"
	"github.com/iliyamo/travel-lottery/internal/utils"
)

func TestEnsureOperator(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	none, err := EnsureOperator(ctx, st, "", "", bcrypt.MinCost, nil)
	require.NoError(t, err)
	assert.Zero(t, none.ID)

	op, err := EnsureOperator(ctx, st, "ops@example.com", "change-me-now", bcrypt.MinCost, nil)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOperator, op.Role)
	assert.NotZero(t, op.ID)
	assert.Zero(t, op.TokenBalance)
	assert.True(t, utils.VerifyPassword(op.PasswordHash, "change-me-now"))

	again, err := EnsureOperator(ctx, st, "ops@example.com", "change-me-now", bcrypt.MinCost, nil)
	require.NoError(t, err)
	assert.Equal(t, op.ID, again.ID)
}

func TestEnsureOperatorRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	_, err := EnsureOperator(ctx, st, "not-an-email", "change-me-now", bcrypt.MinCost, nil)
	assert.Error(t, err)
	_, err = EnsureOperator(ctx, st, "ops@example.com", "short", bcrypt.MinCost, nil)
	assert.Error(t, err)

	player := model.User{Email: "player@example.com", PasswordHash: "x", Role: model.RolePlayer}
	require.NoError(t, st.CreateUser(ctx, &player))
	_, err = EnsureOperator(ctx, st, "player@example.com", "change-me-now", bcrypt.MinCost, nil)
	assert.ErrorIs(t, err, ErrBootstrapEmailTaken)
}
