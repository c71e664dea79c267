package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

const tokensCollection = "personal_access_tokens"

// TokenRepository stores bearer token digests. The unique index on user_id
// makes every write below a single-document operation, so issuing and
// rotating never leave two live tokens for one user.
type TokenRepository struct {
	coll *mongo.Collection
}

func NewTokenRepository(db *mongo.Database) *TokenRepository {
	return &TokenRepository{coll: db.Collection(tokensCollection)}
}

type mongoToken struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	UserID     int64              `bson:"user_id"`
	Name       string             `bson:"name"`
	Token      string             `bson:"token"`
	Abilities  []string           `bson:"abilities"`
	CreatedAt  time.Time          `bson:"created_at"`
	ExpiresAt  time.Time          `bson:"expires_at"`
	LastUsedAt *time.Time         `bson:"last_used_at,omitempty"`
}

// Replace upserts token as the only document for its user.
func (r *TokenRepository) Replace(ctx context.Context, token *domain.AccessToken) error {
	doc := mongoToken{
		UserID:    token.UserID,
		Name:      token.Name,
		Token:     token.Digest,
		Abilities: token.Abilities,
		CreatedAt: token.CreatedAt,
		ExpiresAt: token.ExpiresAt,
	}
	filter := bson.M{"user_id": token.UserID}
	opts := options.Replace().SetUpsert(true)

	_, err := r.coll.ReplaceOne(ctx, filter, doc, opts)
	if mongo.IsDuplicateKeyError(err) {
		// Two upserts raced on the same user; the loser retries as a plain replace.
		_, err = r.coll.ReplaceOne(ctx, filter, doc, opts)
	}
	if err != nil {
		return fmt.Errorf("replace token: %w", err)
	}
	return nil
}

// Rotate overwrites the secret of a live token in place.
func (r *TokenRepository) Rotate(ctx context.Context, oldDigest string, next *domain.AccessToken, now time.Time) (int64, error) {
	filter := bson.M{"token": oldDigest, "expires_at": bson.M{"$gt": now}}
	update := bson.M{
		"$set": bson.M{
			"name":       next.Name,
			"token":      next.Digest,
			"abilities":  next.Abilities,
			"created_at": next.CreatedAt,
			"expires_at": next.ExpiresAt,
		},
		"$unset": bson.M{"last_used_at": ""},
	}

	var mt mongoToken
	err := r.coll.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&mt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, domain.ErrTokenNotFound
		}
		return 0, fmt.Errorf("rotate token: %w", err)
	}
	next.UserID = mt.UserID
	next.ID = mt.ID.Hex()
	return mt.UserID, nil
}

// Touch returns a live token and records its use.
func (r *TokenRepository) Touch(ctx context.Context, digest string, now time.Time) (*domain.AccessToken, error) {
	filter := bson.M{"token": digest, "expires_at": bson.M{"$gt": now}}
	update := bson.M{"$set": bson.M{"last_used_at": now}}

	var mt mongoToken
	err := r.coll.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&mt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("touch token: %w", err)
	}
	return mt.toDomain(), nil
}

func (r *TokenRepository) Delete(ctx context.Context, digest string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"token": digest})
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return res.DeletedCount, nil
}

func (mt *mongoToken) toDomain() *domain.AccessToken {
	return &domain.AccessToken{
		ID:         mt.ID.Hex(),
		UserID:     mt.UserID,
		Name:       mt.Name,
		Digest:     mt.Token,
		Abilities:  mt.Abilities,
		CreatedAt:  mt.CreatedAt.UTC(),
		ExpiresAt:  mt.ExpiresAt.UTC(),
		LastUsedAt: mt.LastUsedAt,
	}
}
