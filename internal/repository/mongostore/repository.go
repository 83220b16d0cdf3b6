// Package mongostore implements the repositories on MongoDB, using the
// collection layout of the school-management datasource.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/school-auth-service/internal/domain"
	"github.com/prperemyshlev/school-auth-service/internal/repository"
	"github.com/prperemyshlev/school-auth-service/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewRepositories creates all MongoDB-backed repositories
func NewRepositories(db *mongo.Database) *repository.Repositories {
	return &repository.Repositories{
		User:        &userRepository{coll: db.Collection(usersCollection)},
		Credentials: &credentialsRepository{coll: db.Collection(credentialsCollection)},
		Session:     &sessionRepository{coll: db.Collection(sessionsCollection)},
		ResetToken:  &resetTokenRepository{coll: db.Collection(resetTokensCollection)},
	}
}

type collectionIndex struct {
	collection string
	model      mongo.IndexModel
}

// indexes lists the unique indexes the repositories rely on. The email index
// only covers live users, like the partial index on the users table.
func indexes() []collectionIndex {
	return []collectionIndex{
		{usersCollection, mongo.IndexModel{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"isDeleted": false}),
		}},
		{credentialsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{credentialsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "security.otpRef", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		}},
		{sessionsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "accessToken", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{resetTokensCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
	}
}

// EnsureIndexes creates the unique indexes the repositories rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, idx := range indexes() {
		if _, err := db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.collection, err)
		}
	}

	return nil
}

type userRepository struct {
	coll *mongo.Collection
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	now := utils.StorageTime(time.Now())
	if user.Status == "" {
		user.Status = domain.UserStatusActive
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	oid := primitive.NewObjectID()
	doc := userDocument{
		ID:            oid,
		Email:         user.Email,
		Status:        string(user.Status),
		LastLoginAt:   user.LastLoginAt,
		TokenExpireAt: user.TokenExpireAt,
		IsDeleted:     user.IsDeleted,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user with email %s already exists: %w", user.Email, repository.ErrDuplicateEmail)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.ID = oid.Hex()
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	filter := bson.M{"email": email, "isDeleted": bson.M{"$ne": true}}

	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return doc.toDomain(), nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, fmt.Errorf("user with id %s not found: %w", id, repository.ErrNotFound)
	}

	var doc userDocument
	filter := bson.M{"_id": oid, "isDeleted": bson.M{"$ne": true}}
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return doc.toDomain(), nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	oid, ok := objectID(userID)
	if !ok {
		return fmt.Errorf("user with id %s not found: %w", userID, repository.ErrNotFound)
	}

	update := bson.M{"$set": bson.M{"lastLoginAt": at, "updatedAt": at}}
	result, err := r.coll.UpdateByID(ctx, oid, update)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user with id %s not found: %w", userID, repository.ErrNotFound)
	}

	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return fmt.Errorf("user with id %s not found: %w", id, repository.ErrNotFound)
	}

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("user with id %s not found: %w", id, repository.ErrNotFound)
	}

	return nil
}

type credentialsRepository struct {
	coll *mongo.Collection
}

func (r *credentialsRepository) Create(ctx context.Context, credentials *domain.UserCredentials) error {
	now := utils.StorageTime(time.Now())
	if credentials.CreatedAt.IsZero() {
		credentials.CreatedAt = now
	}
	if credentials.UpdatedAt.IsZero() {
		credentials.UpdatedAt = now
	}

	oid := primitive.NewObjectID()
	doc := credentialsDocument{
		ID:        oid,
		UserID:    credentials.UserID,
		Password:  credentials.Password,
		CreatedAt: credentials.CreatedAt,
		UpdatedAt: credentials.UpdatedAt,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("credentials for user %s already exist: %w", credentials.UserID, repository.ErrDuplicateCredentials)
		}
		return fmt.Errorf("failed to create credentials: %w", err)
	}

	credentials.ID = oid.Hex()
	return nil
}

func (r *credentialsRepository) GetByUserID(ctx context.Context, userID string) (*domain.UserCredentials, error) {
	return r.findOne(ctx, bson.M{"userId": userID}, "credentials for user "+userID)
}

func (r *credentialsRepository) GetByOtpRef(ctx context.Context, otpRef string) (*domain.UserCredentials, error) {
	return r.findOne(ctx, bson.M{"security.otpRef": otpRef}, "credentials with otp reference")
}

func (r *credentialsRepository) findOne(ctx context.Context, filter bson.M, what string) (*domain.UserCredentials, error) {
	var doc credentialsDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s not found: %w", what, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}

	return doc.toDomain(), nil
}

func (r *credentialsRepository) UpdateSecurity(ctx context.Context, id string, security *domain.Security) error {
	oid, ok := objectID(id)
	if !ok {
		return fmt.Errorf("credentials with id %s not found: %w", id, repository.ErrNotFound)
	}

	now := utils.StorageTime(time.Now())
	var update bson.M
	if security == nil {
		update = bson.M{
			"$unset": bson.M{"security": ""},
			"$set":   bson.M{"updatedAt": now},
		}
	} else {
		update = bson.M{"$set": bson.M{
			"security": securityDocument{
				OTP:         security.OTP,
				OTPRef:      security.OTPRef,
				GeneratedAt: security.GeneratedAt,
				ExpiredAt:   security.ExpiredAt,
			},
			"updatedAt": now,
		}}
	}

	result, err := r.coll.UpdateByID(ctx, oid, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to update security: %w", repository.ErrDuplicateOtpRef)
		}
		return fmt.Errorf("failed to update security: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("credentials with id %s not found: %w", id, repository.ErrNotFound)
	}

	return nil
}

type sessionRepository struct {
	coll *mongo.Collection
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	oid := primitive.NewObjectID()
	doc := sessionDocument{
		ID:          oid,
		UserID:      session.UserID,
		AccessToken: session.AccessToken,
		Status:      string(session.Status),
		LoginAt:     session.LoginAt,
		ExpireAt:    session.ExpireAt,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("session with this access token already exists: %w", repository.ErrDuplicateToken)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	session.ID = oid.Hex()
	return nil
}

func (r *sessionRepository) GetByAccessToken(ctx context.Context, accessToken string) (*domain.Session, error) {
	var doc sessionDocument
	if err := r.coll.FindOne(ctx, bson.M{"accessToken": accessToken}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("session not found: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session by access token: %w", err)
	}

	return doc.toDomain(), nil
}

func (r *sessionRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "loginAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get sessions by user id: %w", err)
	}

	var docs []sessionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	sessions := make([]*domain.Session, 0, len(docs))
	for _, doc := range docs {
		sessions = append(sessions, doc.toDomain())
	}

	return sessions, nil
}

func (r *sessionRepository) UpdateStatus(ctx context.Context, id string, status domain.SessionStatus) error {
	oid, ok := objectID(id)
	if !ok {
		return fmt.Errorf("session with id %s not found: %w", id, repository.ErrNotFound)
	}

	result, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"status": string(status)}})
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("session with id %s not found: %w", id, repository.ErrNotFound)
	}

	return nil
}

type resetTokenRepository struct {
	coll *mongo.Collection
}

func (r *resetTokenRepository) Create(ctx context.Context, token *domain.TempResetToken) error {
	now := utils.StorageTime(time.Now())
	if token.CreatedAt.IsZero() {
		token.CreatedAt = now
	}
	if token.UpdatedAt.IsZero() {
		token.UpdatedAt = now
	}

	oid := primitive.NewObjectID()
	doc := resetTokenDocument{
		ID:        oid,
		Token:     token.Token,
		ExpireAt:  token.ExpireAt,
		CreatedAt: token.CreatedAt,
		UpdatedAt: token.UpdatedAt,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("reset token already exists: %w", repository.ErrDuplicateToken)
		}
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	token.ID = oid.Hex()
	return nil
}

func (r *resetTokenRepository) GetByToken(ctx context.Context, token string) (*domain.TempResetToken, error) {
	var doc resetTokenDocument
	if err := r.coll.FindOne(ctx, bson.M{"token": token}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("reset token not found: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}

	return doc.toDomain(), nil
}
