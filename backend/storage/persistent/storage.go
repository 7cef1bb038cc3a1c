package storage

import (
	"context"
	"fmt"

	"github.com/savepoint/savepoint/backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StorageInterface defines the set of methods that any persistent storage
// backend needs to implement. Lookups are typed rather than filter-based so
// callers cannot smuggle arbitrary query documents past ownership checks, and
// so the in-memory backend used by service tests stays trivial.
type StorageInterface interface {
	// Establishes a connection to the storage backend.
	Connect(dbName, uri string) error
	// Disconnects from the storage backend.
	Disconnect() error
	// WithTransaction runs fn so that every write it performs either commits
	// as a unit or not at all. fn must use the context it is handed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Users.
	AddUser(ctx context.Context, user *models.User) (*models.User, error)
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	ReplaceUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
	ListUsers(ctx context.Context) ([]models.User, error)

	// Habits.
	AddHabit(ctx context.Context, habit *models.Habit) (*models.Habit, error)
	FindHabit(ctx context.Context, id, userID primitive.ObjectID) (*models.Habit, error)
	FindHabitsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Habit, error)
	ReplaceHabit(ctx context.Context, habit *models.Habit) error
	DeleteHabit(ctx context.Context, id, userID primitive.ObjectID) error

	// Tasks.
	AddTask(ctx context.Context, task *models.Task) (*models.Task, error)
	FindTask(ctx context.Context, id, userID primitive.ObjectID) (*models.Task, error)
	FindTasksByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Task, error)
	ReplaceTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id, userID primitive.ObjectID) error

	// Achievement catalog.
	SeedAchievements(ctx context.Context, catalog []models.Achievement) error
	ListAchievements(ctx context.Context) ([]models.Achievement, error)

	// Email confirmations.
	AddConfirmation(ctx context.Context, confirmation *models.Confirmation) (*models.Confirmation, error)
	FindConfirmationByUser(ctx context.Context, userID primitive.ObjectID) (*models.Confirmation, error)
	DeleteConfirmation(ctx context.Context, id primitive.ObjectID) error
}

// NewStorage creates a new StorageInterface with a MongoDB backend,
// using the provided URI to connect to the MongoDB server.
func NewStorage(dbName, uri string) (StorageInterface, error) {
	store := NewMongoStorage()
	if err := store.Connect(dbName, uri); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}
