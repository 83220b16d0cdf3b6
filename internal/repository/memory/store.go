// Package memory provides process-local repositories for development and tests.
// Data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/school-auth-service/internal/domain"
	"github.com/prperemyshlev/school-auth-service/internal/repository"
	"github.com/prperemyshlev/school-auth-service/internal/utils"
)

// Store holds every entity behind a single mutex, so each call is atomic
type Store struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	credentials map[string]domain.UserCredentials
	sessions    map[string]domain.Session
	resetTokens map[string]domain.TempResetToken
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:       make(map[string]domain.User),
		credentials: make(map[string]domain.UserCredentials),
		sessions:    make(map[string]domain.Session),
		resetTokens: make(map[string]domain.TempResetToken),
	}
}

// NewRepositories creates all repositories over a fresh store
func NewRepositories() (*repository.Repositories, *Store) {
	s := NewStore()
	return &repository.Repositories{
		User:        &userRepository{s: s},
		Credentials: &credentialsRepository{s: s},
		Session:     &sessionRepository{s: s},
		ResetToken:  &resetTokenRepository{s: s},
	}, s
}

// SessionCount returns the number of stored sessions
func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ResetTokenCount returns the number of stored reset tokens
func (s *Store) ResetTokenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.resetTokens)
}

func copySecurity(sec *domain.Security) *domain.Security {
	if sec == nil {
		return nil
	}
	c := *sec
	return &c
}

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email && !u.IsDeleted {
			return fmt.Errorf("user with email %s already exists: %w", user.Email, repository.ErrDuplicateEmail)
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Status == "" {
		user.Status = domain.UserStatusActive
	}
	now := utils.StorageTime(time.Now())
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email && !u.IsDeleted {
			found := u
			return &found, nil
		}
	}
	return nil, fmt.Errorf("user with email %s not found: %w", email, repository.ErrNotFound)
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok || u.IsDeleted {
		return nil, fmt.Errorf("user with id %s not found: %w", id, repository.ErrNotFound)
	}
	return &u, nil
}

func (r *userRepository) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok || u.IsDeleted {
		return fmt.Errorf("user with id %s not found: %w", userID, repository.ErrNotFound)
	}
	u.LastLoginAt = &at
	u.UpdatedAt = at
	r.s.users[userID] = u
	return nil
}

func (r *userRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return fmt.Errorf("user with id %s not found: %w", id, repository.ErrNotFound)
	}
	delete(r.s.users, id)
	return nil
}

type credentialsRepository struct {
	s *Store
}

func (r *credentialsRepository) Create(_ context.Context, credentials *domain.UserCredentials) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.credentials {
		if c.UserID == credentials.UserID {
			return fmt.Errorf("credentials for user %s already exist: %w", credentials.UserID, repository.ErrDuplicateCredentials)
		}
	}

	if credentials.ID == "" {
		credentials.ID = uuid.New().String()
	}
	now := utils.StorageTime(time.Now())
	if credentials.CreatedAt.IsZero() {
		credentials.CreatedAt = now
	}
	if credentials.UpdatedAt.IsZero() {
		credentials.UpdatedAt = now
	}

	stored := *credentials
	stored.Security = copySecurity(credentials.Security)
	r.s.credentials[stored.ID] = stored
	return nil
}

func (r *credentialsRepository) GetByUserID(_ context.Context, userID string) (*domain.UserCredentials, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.credentials {
		if c.UserID == userID {
			found := c
			found.Security = copySecurity(c.Security)
			return &found, nil
		}
	}
	return nil, fmt.Errorf("credentials for user %s not found: %w", userID, repository.ErrNotFound)
}

func (r *credentialsRepository) GetByOtpRef(_ context.Context, otpRef string) (*domain.UserCredentials, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.credentials {
		if c.Security != nil && c.Security.OTPRef == otpRef {
			found := c
			found.Security = copySecurity(c.Security)
			return &found, nil
		}
	}
	return nil, fmt.Errorf("credentials with otp reference not found: %w", repository.ErrNotFound)
}

func (r *credentialsRepository) UpdateSecurity(_ context.Context, id string, security *domain.Security) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.credentials[id]
	if !ok {
		return fmt.Errorf("credentials with id %s not found: %w", id, repository.ErrNotFound)
	}

	if security != nil {
		for otherID, other := range r.s.credentials {
			if otherID != id && other.Security != nil && other.Security.OTPRef == security.OTPRef {
				return fmt.Errorf("failed to update security: %w", repository.ErrDuplicateOtpRef)
			}
		}
	}

	c.Security = copySecurity(security)
	c.UpdatedAt = utils.StorageTime(time.Now())
	r.s.credentials[id] = c
	return nil
}

type sessionRepository struct {
	s *Store
}

func (r *sessionRepository) Create(_ context.Context, session *domain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.sessions {
		if existing.AccessToken == session.AccessToken {
			return fmt.Errorf("session with this access token already exists: %w", repository.ErrDuplicateToken)
		}
	}

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	r.s.sessions[session.ID] = *session
	return nil
}

func (r *sessionRepository) GetByAccessToken(_ context.Context, accessToken string) (*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, session := range r.s.sessions {
		if session.AccessToken == accessToken {
			found := session
			return &found, nil
		}
	}
	return nil, fmt.Errorf("session not found: %w", repository.ErrNotFound)
}

func (r *sessionRepository) GetByUserID(_ context.Context, userID string) ([]*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var sessions []*domain.Session
	for _, session := range r.s.sessions {
		if session.UserID == userID {
			found := session
			sessions = append(sessions, &found)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LoginAt.After(sessions[j].LoginAt)
	})
	return sessions, nil
}

func (r *sessionRepository) UpdateStatus(_ context.Context, id string, status domain.SessionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[id]
	if !ok {
		return fmt.Errorf("session with id %s not found: %w", id, repository.ErrNotFound)
	}
	session.Status = status
	r.s.sessions[id] = session
	return nil
}

type resetTokenRepository struct {
	s *Store
}

func (r *resetTokenRepository) Create(_ context.Context, token *domain.TempResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.resetTokens {
		if existing.Token == token.Token {
			return fmt.Errorf("reset token already exists: %w", repository.ErrDuplicateToken)
		}
	}

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	now := utils.StorageTime(time.Now())
	if token.CreatedAt.IsZero() {
		token.CreatedAt = now
	}
	if token.UpdatedAt.IsZero() {
		token.UpdatedAt = now
	}

	r.s.resetTokens[token.ID] = *token
	return nil
}

func (r *resetTokenRepository) GetByToken(_ context.Context, token string) (*domain.TempResetToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, existing := range r.s.resetTokens {
		if existing.Token == token {
			found := existing
			return &found, nil
		}
	}
	return nil, fmt.Errorf("reset token not found: %w", repository.ErrNotFound)
}
