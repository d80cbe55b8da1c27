// Package mongodb implements the user document store on a MongoDB collection,
// the persistence engine the service originally ran on.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Clark-Hu/mymovielist/internal/domain"
	"github.com/Clark-Hu/mymovielist/internal/store"
)

// CollectionName is the collection holding user documents.
const CollectionName = "users"

// UsersRepository stores one document per user with the movie list embedded.
type UsersRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewUsersRepository returns a repository over the users collection and
// ensures the unique username index exists.
func NewUsersRepository(ctx context.Context, m *store.Mongo) (*UsersRepository, error) {
	coll := m.Collection(CollectionName)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("username_unique"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ensure user indexes: %w", err)
	}
	return &UsersRepository{coll: coll, now: mongoNow}, nil
}

// Mongo keeps millisecond precision.
func mongoNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Create inserts a new user. A taken username yields domain.ErrConflict.
func (r *UsersRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	now := r.now()
	user.Version = 1
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.MovieEntries == nil {
		user.MovieEntries = []domain.MovieEntry{}
	}

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, fmt.Errorf("username %q: %w", user.Username, domain.ErrConflict)
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetByUsername fetches a user by its unique username.
func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username}, options.FindOne())
}

// GetByEmail fetches the oldest user registered with email.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "username", Value: 1}})
	return r.findOne(ctx, bson.M{"email": email}, opts)
}

func (r *UsersRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (domain.User, error) {
	var user domain.User
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return normalize(user), nil
}

// List returns every user ordered by registration time.
func (r *UsersRepository) List(ctx context.Context) ([]domain.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "username", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	users := make([]domain.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	for i := range users {
		users[i] = normalize(users[i])
	}
	return users, nil
}

// Save overwrites the mutable fields of user if its version is still current.
// A concurrent writer that got there first makes this call fail with
// domain.ErrConflict.
func (r *UsersRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	entries := user.MovieEntries
	if entries == nil {
		entries = []domain.MovieEntry{}
	}

	filter := bson.M{"username": user.Username, "version": user.Version}
	update := bson.M{
		"$set": bson.M{
			"email":         user.Email,
			"password_hash": user.PasswordHash,
			"movie_entries": entries,
			"updated_at":    r.now(),
		},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var saved domain.User
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	if err == nil {
		return normalize(saved), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}

	count, err := r.coll.CountDocuments(ctx, bson.M{"username": user.Username})
	if err != nil {
		return domain.User{}, fmt.Errorf("check user: %w", err)
	}
	if count == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	return domain.User{}, fmt.Errorf("user %q modified concurrently: %w", user.Username, domain.ErrConflict)
}

// Delete removes the user with username; deleting an absent user is a no-op.
func (r *UsersRepository) Delete(ctx context.Context, username string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"username": username}); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// DeleteAll removes every user.
func (r *UsersRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("delete users: %w", err)
	}
	return nil
}

func normalize(user domain.User) domain.User {
	if user.MovieEntries == nil {
		user.MovieEntries = []domain.MovieEntry{}
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user
}
