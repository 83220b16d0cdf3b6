package repository

import (
	"github.com/prperemyshlev/school-auth-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User        UserRepository
	Credentials CredentialsRepository
	Session     SessionRepository
	ResetToken  ResetTokenRepository
}

// NewRepositories creates all PostgreSQL-backed repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Credentials: NewCredentialsRepository(db),
		Session:     NewSessionRepository(db),
		ResetToken:  NewResetTokenRepository(db),
	}
}
