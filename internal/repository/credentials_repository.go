package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/school-auth-service/internal/domain"
	"github.com/prperemyshlev/school-auth-service/internal/utils"
	"github.com/prperemyshlev/school-auth-service/pkg/database"
)

// credentialsRepository implements CredentialsRepository interface.
// The otp challenge lives in nullable otp_* columns of the credentials row.
type credentialsRepository struct {
	db *database.Postgres
}

// NewCredentialsRepository creates a new credentials repository
func NewCredentialsRepository(db *database.Postgres) CredentialsRepository {
	return &credentialsRepository{db: db}
}

const credentialsColumns = `id, user_id, password, otp, otp_ref, otp_generated_at, otp_expired_at, created_at, updated_at`

// Create creates a new credentials record
func (r *credentialsRepository) Create(ctx context.Context, credentials *domain.UserCredentials) error {
	query := `
		INSERT INTO user_credentials (id, user_id, password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

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

	_, err := r.db.DB.ExecContext(ctx, query,
		credentials.ID,
		credentials.UserID,
		credentials.Password,
		credentials.CreatedAt,
		credentials.UpdatedAt,
	)

	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return fmt.Errorf("credentials for user %s already exist: %w", credentials.UserID, ErrDuplicateCredentials)
		}
		return fmt.Errorf("failed to create credentials: %w", err)
	}

	return nil
}

// GetByUserID retrieves the credentials of a user
func (r *credentialsRepository) GetByUserID(ctx context.Context, userID string) (*domain.UserCredentials, error) {
	query := `SELECT ` + credentialsColumns + ` FROM user_credentials WHERE user_id = $1`

	credentials, err := scanCredentials(r.db.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credentials for user %s not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get credentials by user id: %w", err)
	}

	return credentials, nil
}

// GetByOtpRef retrieves the credentials holding the given otp reference
func (r *credentialsRepository) GetByOtpRef(ctx context.Context, otpRef string) (*domain.UserCredentials, error) {
	query := `SELECT ` + credentialsColumns + ` FROM user_credentials WHERE otp_ref = $1`

	credentials, err := scanCredentials(r.db.DB.QueryRowContext(ctx, query, otpRef))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credentials with otp reference not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get credentials by otp reference: %w", err)
	}

	return credentials, nil
}

// UpdateSecurity overwrites the otp challenge in a single row update
func (r *credentialsRepository) UpdateSecurity(ctx context.Context, id string, security *domain.Security) error {
	query := `
		UPDATE user_credentials
		SET otp = $2, otp_ref = $3, otp_generated_at = $4, otp_expired_at = $5, updated_at = $6
		WHERE id = $1
	`

	var (
		otp                    sql.NullInt64
		otpRef                 sql.NullString
		generatedAt, expiredAt sql.NullTime
	)
	if security != nil {
		otp = sql.NullInt64{Int64: int64(security.OTP), Valid: true}
		otpRef = sql.NullString{String: security.OTPRef, Valid: true}
		generatedAt = sql.NullTime{Time: security.GeneratedAt, Valid: true}
		expiredAt = sql.NullTime{Time: security.ExpiredAt, Valid: true}
	}

	result, err := r.db.DB.ExecContext(ctx, query, id, otp, otpRef, generatedAt, expiredAt, utils.StorageTime(time.Now()))
	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return fmt.Errorf("failed to update security: %w", ErrDuplicateOtpRef)
		}
		return fmt.Errorf("failed to update security: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("credentials with id %s not found: %w", id, ErrNotFound)
	}

	return nil
}

func scanCredentials(row *sql.Row) (*domain.UserCredentials, error) {
	credentials := &domain.UserCredentials{}
	var (
		otp                    sql.NullInt64
		otpRef                 sql.NullString
		generatedAt, expiredAt sql.NullTime
	)

	err := row.Scan(
		&credentials.ID,
		&credentials.UserID,
		&credentials.Password,
		&otp,
		&otpRef,
		&generatedAt,
		&expiredAt,
		&credentials.CreatedAt,
		&credentials.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if otpRef.Valid {
		credentials.Security = &domain.Security{
			OTP:         int(otp.Int64),
			OTPRef:      otpRef.String,
			GeneratedAt: generatedAt.Time,
			ExpiredAt:   expiredAt.Time,
		}
	}

	return credentials, nil
}
