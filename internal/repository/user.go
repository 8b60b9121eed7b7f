package repository

import (
	"context"

	"telecom-chat/internal/domain"
)

// UserRepository exposes read access to the credential table.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}
