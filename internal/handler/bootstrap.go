package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-lottery/internal/model"
	"github.com/iliyamo/travel-lottery/internal/repository"
	"github.com/iliyamo/travel-lottery/internal/utils"
)

// ErrBootstrapEmailTaken is returned when the bootstrap email already belongs
// to a non-operator account.  Existing players are never promoted.
var ErrBootstrapEmailTaken = errors.New("bootstrap operator email belongs to a player")

// EnsureOperator creates the OPERATOR account named by email unless it
// already exists.  An empty email is a no-op.  The credentials are held to
// the same rules as registration.
func EnsureOperator(ctx context.Context, accounts repository.Accounts, email, password string, cost int, log logrus.FieldLogger) (model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.User{}, nil
	}
	if err := NewValidator().Validate(registerReq{Email: email, Password: password}); err != nil {
		return model.User{}, fmt.Errorf("bootstrap operator: %s", validationMessage(err))
	}

	existing, err := accounts.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != model.RoleOperator {
			return model.User{}, ErrBootstrapEmailTaken
		}
		return existing, nil
	case !errors.Is(err, repository.ErrNotFound):
		return model.User{}, fmt.Errorf("bootstrap operator: lookup: %w", err)
	}

	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, fmt.Errorf("bootstrap operator: %w", err)
	}
	u := model.User{Email: email, PasswordHash: hash, Role: model.RoleOperator}
	if err := accounts.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return accounts.GetUserByEmail(ctx, email)
		}
		return model.User{}, fmt.Errorf("bootstrap operator: create: %w", err)
	}
	if log != nil {
		log.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("operator account created")
	}
	return u, nil
}
