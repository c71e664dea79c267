package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

const usersCollection = "users"

// AuthRepository is the Credential Store. Documents are written by the admin
// tooling; _id is the numeric user id shared with the rest of the system.
type AuthRepository struct {
	coll *mongo.Collection
}

func NewAuthRepository(db *mongo.Database) *AuthRepository {
	return &AuthRepository{coll: db.Collection(usersCollection)}
}

type mongoRole struct {
	ID   int64  `bson:"id"`
	Name string `bson:"name"`
}

type mongoUser struct {
	ID           int64      `bson:"_id"`
	Username     string     `bson:"username"`
	Email        string     `bson:"email,omitempty"`
	PasswordHash string     `bson:"password_hash"`
	FirstName    string     `bson:"first_name,omitempty"`
	LastName     string     `bson:"last_name,omitempty"`
	Phone        string     `bson:"phone,omitempty"`
	Status       string     `bson:"status"`
	Role         *mongoRole `bson:"role,omitempty"`
	CreatedAt    int64      `bson:"created_at"`
	UpdatedAt    int64      `bson:"updated_at"`
}

func (r *AuthRepository) FindActiveByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username, "status": domain.StatusActive})
}

func (r *AuthRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AuthRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func (mu *mongoUser) toDomain() *domain.User {
	u := &domain.User{
		ID:           mu.ID,
		Username:     mu.Username,
		Email:        mu.Email,
		PasswordHash: mu.PasswordHash,
		FirstName:    mu.FirstName,
		LastName:     mu.LastName,
		Phone:        mu.Phone,
		Status:       mu.Status,
		CreatedAt:    unixToTime(mu.CreatedAt),
		UpdatedAt:    unixToTime(mu.UpdatedAt),
	}
	if mu.Role != nil {
		u.Role = &domain.Role{ID: mu.Role.ID, Name: mu.Role.Name}
	}
	return u
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
