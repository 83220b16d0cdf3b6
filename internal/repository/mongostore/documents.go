package mongostore

import (
	"time"

	"github.com/prperemyshlev/school-auth-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names match the model names of the school-management datasource
const (
	usersCollection       = "User"
	credentialsCollection = "UserCredentials"
	sessionsCollection    = "Session"
	resetTokensCollection = "TempResetToken"
)

type userDocument struct {
	ID            primitive.ObjectID `bson:"_id"`
	Email         string             `bson:"email"`
	Status        string             `bson:"status"`
	LastLoginAt   *time.Time         `bson:"lastLoginAt"`
	TokenExpireAt *time.Time         `bson:"tokenExpireAt"`
	IsDeleted     bool               `bson:"isDeleted"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:            d.ID.Hex(),
		Email:         d.Email,
		Status:        domain.UserStatus(d.Status),
		LastLoginAt:   d.LastLoginAt,
		TokenExpireAt: d.TokenExpireAt,
		IsDeleted:     d.IsDeleted,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type securityDocument struct {
	OTP         int       `bson:"otp"`
	OTPRef      string    `bson:"otpRef"`
	GeneratedAt time.Time `bson:"generatedAt"`
	ExpiredAt   time.Time `bson:"expiredAt"`
}

type credentialsDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    string             `bson:"userId"`
	Password  string             `bson:"password"`
	Security  *securityDocument  `bson:"security,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d credentialsDocument) toDomain() *domain.UserCredentials {
	c := &domain.UserCredentials{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Password:  d.Password,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Security != nil {
		c.Security = &domain.Security{
			OTP:         d.Security.OTP,
			OTPRef:      d.Security.OTPRef,
			GeneratedAt: d.Security.GeneratedAt,
			ExpiredAt:   d.Security.ExpiredAt,
		}
	}
	return c
}

type sessionDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	UserID      string             `bson:"userId"`
	AccessToken string             `bson:"accessToken"`
	Status      string             `bson:"status"`
	LoginAt     time.Time          `bson:"loginAt"`
	ExpireAt    time.Time          `bson:"expireAt"`
}

func (d sessionDocument) toDomain() *domain.Session {
	return &domain.Session{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		AccessToken: d.AccessToken,
		Status:      domain.SessionStatus(d.Status),
		LoginAt:     d.LoginAt,
		ExpireAt:    d.ExpireAt,
	}
}

type resetTokenDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Token     string             `bson:"token"`
	ExpireAt  time.Time          `bson:"expireAt"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d resetTokenDocument) toDomain() *domain.TempResetToken {
	return &domain.TempResetToken{
		ID:        d.ID.Hex(),
		Token:     d.Token,
		ExpireAt:  d.ExpireAt,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// objectID parses a hex id; unparsable ids can never match a document
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}
