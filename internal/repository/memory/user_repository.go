package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"telecom-chat/internal/domain"
	"telecom-chat/internal/repository"
)

// UserRepository is a read-only credential table held in process memory.
// It is filled once at construction and never mutated afterwards.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewUserRepository seeds the table. Usernames must be non-empty and unique.
func NewUserRepository(users []domain.User) (*UserRepository, error) {
	r := &UserRepository{users: make(map[string]domain.User, len(users))}
	for _, u := range users {
		username := strings.TrimSpace(u.Username)
		if username == "" {
			return nil, fmt.Errorf("seed user: username is required")
		}
		if _, exists := r.users[username]; exists {
			return nil, fmt.Errorf("seed user %q: %w", username, repository.ErrAlreadyExists)
		}
		u.Username = username
		r.users[username] = u
	}
	return r, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, repository.ErrNotFound)
	}
	return &u, nil
}

func (r *UserRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
