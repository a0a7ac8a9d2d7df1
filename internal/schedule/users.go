package schedule

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PratikDhanave/event-scheduling-service/internal/models"
)

// UserStore persists participants.
type UserStore interface {
	// InsertUser returns false when the username is already taken.
	InsertUser(ctx context.Context, u models.User) (bool, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// UserService manages the participants events refer to.
type UserService struct {
	store  UserStore
	logger *zap.Logger
}

func NewUserService(store UserStore, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{store: store, logger: logger}
}

// CreateUser stores a participant under a trimmed, lowercased username.
func (s *UserService) CreateUser(ctx context.Context, username string) (models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return models.User{}, newError(ErrMissingField, "username is required")
	}

	u := models.User{ID: uuid.New().String(), Username: username}
	inserted, err := s.store.InsertUser(ctx, u)
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	if !inserted {
		return models.User{}, newError(ErrUsernameTaken, "username %q is already taken", username)
	}

	s.logger.Info("user created", zap.String("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
