// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

// Package mongo implements auth repositories backed by MongoDB.
package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/gridauth/gridauth/internal/auth"
)

const usersCollection = "users"

// Connect opens a client for the given connection string and waits for
// the deployment to answer a ping, retrying with exponential backoff so
// a server starting alongside the database comes up cleanly.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").
			With("operation", "connect").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := client.Ping(ctx, readpref.Primary()); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background()) //nolint:errcheck // Best effort on failed startup
		return nil, oops.Code("STORE_CONNECT_FAILED").
			With("operation", "ping").
			Wrap(err)
	}

	return client, nil
}

// userDoc is the stored shape of an auth.User.
type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toDoc(user *auth.User) userDoc {
	return userDoc{
		ID:           user.ID.String(),
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func fromDoc(doc userDoc) (*auth.User, error) {
	id, err := ulid.Parse(doc.ID)
	if err != nil {
		return nil, oops.Code("STORE_CORRUPT_RECORD").
			With("id", doc.ID).
			Wrap(err)
	}
	return &auth.User{
		ID:           id,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

// UserRepository implements auth.UserRepository using MongoDB.
type UserRepository struct {
	users *mongo.Collection
}

// NewUserRepository creates a UserRepository on the given database.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{users: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique index on email. The index is the
// arbiter for concurrent duplicate registrations; without it the
// one-record-per-email invariant does not hold.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return oops.Code("STORE_INDEX_FAILED").
			With("collection", usersCollection).
			Wrap(err)
	}
	return nil
}

// Create stores a new user. A duplicate email surfaces as
// auth.ErrConflict, whether caught by the pre-check upstream or by the
// unique index here.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.users.InsertOne(ctx, toDoc(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return oops.Code("USER_DUPLICATE").
				With("email", user.Email).
				Wrap(auth.ErrConflict)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// GetByEmail retrieves a user by exact, case-sensitive email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	var doc userDoc
	err := r.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "find user").
			With("email", email).
			Wrap(err)
	}
	return fromDoc(doc)
}

// UpdatePassword replaces the password hash for the user with the given
// email. Concurrent updates both succeed; last write wins.
func (r *UserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	res, err := r.users.UpdateOne(ctx,
		bson.D{{Key: "email", Value: email}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "password_hash", Value: passwordHash},
			{Key: "updated_at", Value: time.Now()},
		}}},
	)
	if err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("email", email).
			Wrap(err)
	}
	if res.MatchedCount == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	return nil
}
