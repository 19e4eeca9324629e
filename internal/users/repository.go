package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rentwise/rentwise/backend/go-services/internal/autherr"
	"github.com/rentwise/rentwise/backend/go-services/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	phoneIndexName            = "phone_unique"
	externalIdentityIndexName = "external_identity_unique"
)

// Patch lists the fields a partial update may overwrite. Nil fields are left alone.
type Patch struct {
	DisplayName  *string
	Avatar       *string
	PasswordHash *string
	Roles        []models.Role
}

func (p Patch) empty() bool {
	return p.DisplayName == nil && p.Avatar == nil && p.PasswordHash == nil && p.Roles == nil
}

// UserRepository defines persistence operations for users.
// Lookups return (nil, nil) when no record matches. Insert must reject
// duplicate phones and external identities atomically.
type UserRepository interface {
	Insert(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByExternalIdentity(ctx context.Context, provider, providerUserID string) (*models.User, error)
	Patch(ctx context.Context, id string, p Patch) (*models.User, error)
}

// MongoUserRepository implements UserRepository using MongoDB
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col}
}

// EnsureIndexes creates the unique indexes that back the uniqueness
// guarantees, plus the lookup indexes on roles and verification status.
// Partial filters keep records without a phone (or external identity) out of
// the respective unique index.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	idx := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().
				SetName(phoneIndexName).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"phone": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{
				{Key: "externalIdentity.provider", Value: 1},
				{Key: "externalIdentity.providerUserId", Value: 1},
			},
			Options: options.Index().
				SetName(externalIdentityIndexName).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"externalIdentity.provider": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "roles", Value: 1}}},
		{Keys: bson.D{{Key: "verificationStatus", Value: 1}}},
	}
	if _, err := r.col.Indexes().CreateMany(ctx, idx); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) Insert(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	rec := u.Clone()
	rec.ID = primitive.NewObjectID().Hex()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, rec); err != nil {
		return nil, classifyInsertError(err)
	}
	return rec, nil
}

// classifyInsertError turns a unique-index violation into the matching
// duplicate kind. The index name is part of the E11000 message.
func classifyInsertError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert user: %w", err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, externalIdentityIndexName):
		return autherr.ErrDuplicateExternalIdentity
	case strings.Contains(msg, phoneIndexName):
		return autherr.ErrDuplicatePhone
	}
	return fmt.Errorf("insert user: %w", err)
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"phone": phone})
}

func (r *MongoUserRepository) GetByExternalIdentity(ctx context.Context, provider, providerUserID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{
		"externalIdentity.provider":       provider,
		"externalIdentity.providerUserId": providerUserID,
	})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoUserRepository) Patch(ctx context.Context, id string, p Patch) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if p.DisplayName != nil {
		set["displayName"] = *p.DisplayName
	}
	if p.Avatar != nil {
		set["avatar"] = *p.Avatar
	}
	if p.PasswordHash != nil {
		set["passwordHash"] = *p.PasswordHash
	}
	if p.Roles != nil {
		set["roles"] = p.Roles
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.User
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &updated, nil
}
