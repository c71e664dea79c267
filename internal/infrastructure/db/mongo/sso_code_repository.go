package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

const ssoCodesCollection = "sso_codes"

// SSOCodeRepository stores one-time codes behind a unique index on code.
type SSOCodeRepository struct {
	coll *mongo.Collection
}

func NewSSOCodeRepository(db *mongo.Database) *SSOCodeRepository {
	return &SSOCodeRepository{coll: db.Collection(ssoCodesCollection)}
}

type mongoSSOCode struct {
	Code      string    `bson:"code"`
	UserID    int64     `bson:"user_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	Used      bool      `bson:"used"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (r *SSOCodeRepository) Insert(ctx context.Context, code *domain.SSOCode) error {
	doc := mongoSSOCode{
		Code:      code.Code,
		UserID:    code.UserID,
		ExpiresAt: code.ExpiresAt,
		Used:      code.Used,
		CreatedAt: code.CreatedAt,
		UpdatedAt: code.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateCode
		}
		return fmt.Errorf("insert sso code: %w", err)
	}
	return nil
}

// Consume flips used to true only on an unused, unexpired row. Concurrent
// callers race on the same document and exactly one sees it match.
func (r *SSOCodeRepository) Consume(ctx context.Context, code string, now time.Time) (*domain.SSOCode, error) {
	filter := bson.M{
		"code":       code,
		"used":       false,
		"expires_at": bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{"used": true, "updated_at": now}}

	var doc mongoSSOCode
	err := r.coll.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, fmt.Errorf("consume sso code: %w", err)
	}
	return &domain.SSOCode{
		Code:      doc.Code,
		UserID:    doc.UserID,
		ExpiresAt: doc.ExpiresAt.UTC(),
		Used:      doc.Used,
		CreatedAt: doc.CreatedAt.UTC(),
	}, nil
}

func (r *SSOCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
	if err != nil {
		return 0, fmt.Errorf("delete expired sso codes: %w", err)
	}
	return res.DeletedCount, nil
}
