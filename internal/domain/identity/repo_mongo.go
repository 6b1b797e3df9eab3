package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/strokecare/api/internal/platform/errs"
)

type repoMongo struct {
	users  *mongo.Collection
	resets *mongo.Collection
}

// NewRepoMongo returns the document-store implementation of Repository.
// Object ids are rendered as hex strings at this boundary so callers never
// see the native type.
func NewRepoMongo(database *mongo.Database) Repository {
	return &repoMongo{
		users:  database.Collection("users"),
		resets: database.Collection("password_resets"),
	}
}

// EnsureMongoIndexes creates the unique indexes that back the username and
// email invariants, plus the TTL index that expires reset tokens.
func EnsureMongoIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection("users").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	_, err = database.Collection("password_resets").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("password_resets index: %w", err)
	}
	return nil
}

type userDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Username       string             `bson:"username"`
	Email          string             `bson:"email"`
	PasswordHash   string             `bson:"password_hash"`
	Role           string             `bson:"role"`
	FirstName      string             `bson:"first_name"`
	LastName       string             `bson:"last_name"`
	Phone          *string            `bson:"phone,omitempty"`
	Specialization *string            `bson:"specialization,omitempty"`
	LicenseNumber  *string            `bson:"license_number,omitempty"`
	IsActive       bool               `bson:"is_active"`
	CreatedAt      time.Time          `bson:"created_at"`
	LastLogin      *time.Time         `bson:"last_login,omitempty"`
}

func (d *userDoc) toUser() *User {
	return &User{
		ID:             d.ID.Hex(),
		Username:       d.Username,
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		Role:           d.Role,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Phone:          d.Phone,
		Specialization: d.Specialization,
		LicenseNumber:  d.LicenseNumber,
		IsActive:       d.IsActive,
		CreatedAt:      d.CreatedAt,
		LastLogin:      d.LastLogin,
	}
}

func docFromUser(u *User) *userDoc {
	return &userDoc{
		Username:       u.Username,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Role:           u.Role,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Phone:          u.Phone,
		Specialization: u.Specialization,
		LicenseNumber:  u.LicenseNumber,
		IsActive:       u.IsActive,
		CreatedAt:      u.CreatedAt,
		LastLogin:      u.LastLogin,
	}
}

func (r *repoMongo) Create(ctx context.Context, u *User) error {
	doc := docFromUser(u)
	doc.CreatedAt = time.Now().UTC()

	res, err := r.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.ErrDuplicateKey
		}
		return err
	}
	u.ID = res.InsertedID.(primitive.ObjectID).Hex()
	u.CreatedAt = doc.CreatedAt
	return nil
}

func (r *repoMongo) FindByID(ctx context.Context, id string) (*User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errs.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *repoMongo) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *repoMongo) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *repoMongo) findOne(ctx context.Context, filter bson.M) (*User, error) {
	doc := &userDoc{}
	err := r.users.FindOne(ctx, filter).Decode(doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return doc.toUser(), nil
}

func (r *repoMongo) FindAll(ctx context.Context, roleFilter string) ([]*User, error) {
	filter := bson.M{}
	if roleFilter != "" {
		filter["role"] = roleFilter
	}

	cursor, err := r.users.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*User
	for cursor.Next(ctx) {
		doc := &userDoc{}
		if err := cursor.Decode(doc); err != nil {
			return nil, err
		}
		users = append(users, doc.toUser())
	}
	return users, cursor.Err()
}

func (r *repoMongo) Update(ctx context.Context, u *User) error {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return errs.ErrNotFound
	}

	res, err := r.users.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"username":       u.Username,
		"email":          u.Email,
		"password_hash":  u.PasswordHash,
		"role":           u.Role,
		"first_name":     u.FirstName,
		"last_name":      u.LastName,
		"phone":          u.Phone,
		"specialization": u.Specialization,
		"license_number": u.LicenseNumber,
		"is_active":      u.IsActive,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.ErrDuplicateKey
		}
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repoMongo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errs.ErrNotFound
	}
	res, err := r.users.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repoMongo) TouchLastLogin(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errs.ErrNotFound
	}
	_, err = r.users.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"last_login": time.Now().UTC()}})
	return err
}

func (r *repoMongo) CountByRole(ctx context.Context, role string) (int, error) {
	count, err := r.users.CountDocuments(ctx, bson.M{"role": role})
	return int(count), err
}

func (r *repoMongo) CreatePasswordReset(ctx context.Context, reset *PasswordReset) error {
	reset.CreatedAt = time.Now().UTC()
	_, err := r.resets.InsertOne(ctx, bson.M{
		"token":      reset.Token,
		"email":      reset.Email,
		"expires_at": reset.ExpiresAt,
		"created_at": reset.CreatedAt,
	})
	return err
}

// ConsumePasswordReset uses FindOneAndDelete so a token can only ever be
// redeemed once, even under concurrent attempts.
func (r *repoMongo) ConsumePasswordReset(ctx context.Context, token string) (*PasswordReset, error) {
	var doc struct {
		Token     string    `bson:"token"`
		Email     string    `bson:"email"`
		ExpiresAt time.Time `bson:"expires_at"`
		CreatedAt time.Time `bson:"created_at"`
	}
	err := r.resets.FindOneAndDelete(ctx, bson.M{
		"token":      token,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &PasswordReset{
		Token:     doc.Token,
		Email:     doc.Email,
		ExpiresAt: doc.ExpiresAt,
		CreatedAt: doc.CreatedAt,
	}, nil
}
