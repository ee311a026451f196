package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/account-service/internal/domain"
)

// InMemoryUserRepository keeps users in process memory. It backs tests
// and development runs without a configured POSTGRES_DSN, and enforces
// the same unique-email invariant the users table does.
type InMemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

// NewInMemoryUserRepository builds an empty store.
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *InMemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *InMemoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[user.ID]
	if !ok {
		return ErrNotFound
	}
	if otherID, taken := r.byEmail[user.Email]; taken && otherID != user.ID {
		return ErrDuplicateEmail
	}

	delete(r.byEmail, existing.Email)
	user.UpdatedAt = time.Now()

	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *InMemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *InMemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupEmail(email, false)
}

func (r *InMemoryUserRepository) GetByEmailAndActive(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupEmail(email, true)
}

func (r *InMemoryUserRepository) lookupEmail(email string, activeOnly bool) (*domain.User, error) {
	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	user := r.byID[id]
	if activeOnly && !user.IsActive {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

// InMemoryPasswordResetRepository stores reset tokens in memory.
type InMemoryPasswordResetRepository struct {
	mu      sync.Mutex
	byToken map[string]*domain.PasswordResetToken
}

// NewInMemoryPasswordResetRepository builds an empty store.
func NewInMemoryPasswordResetRepository() *InMemoryPasswordResetRepository {
	return &InMemoryPasswordResetRepository{byToken: make(map[string]*domain.PasswordResetToken)}
}

func (r *InMemoryPasswordResetRepository) Create(_ context.Context, token *domain.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	token.CreatedAt = time.Now()

	stored := *token
	r.byToken[token.Token] = &stored
	return nil
}

// LastCreated returns the most recently minted token. It stands in for
// the out-of-scope delivery channel in tests and dev runs.
func (r *InMemoryPasswordResetRepository) LastCreated(_ context.Context) (*domain.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *domain.PasswordResetToken
	for _, token := range r.byToken {
		if latest == nil || token.CreatedAt.After(latest.CreatedAt) {
			latest = token
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (r *InMemoryPasswordResetRepository) GetByToken(_ context.Context, tokenStr string) (*domain.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.byToken[tokenStr]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (r *InMemoryPasswordResetRepository) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range r.byToken {
		if token.ID == id {
			now := time.Now()
			token.UsedAt = &now
			return nil
		}
	}
	return ErrNotFound
}
