package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/savepoint/savepoint/backend/models"
	"github.com/savepoint/savepoint/lib/errs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStorage is a struct representing a MongoDB storage.
// It provides an interface to perform CRUD operations on the Save Point collections.
type MongoStorage struct {
	client *mongo.Client
	dbName string
}

// NewMongoStorage creates a new instance of MongoStorage.
// This function doesn't establish a connection to the MongoDB server.
// To connect to the server, use the Connect method of the returned MongoStorage instance.
func NewMongoStorage() *MongoStorage {
	return &MongoStorage{}
}

// Connect establishes a connection to the MongoDB server at the given URI and
// database name, and sets up indexes and unique constraints as necessary.
// Returns an error if any issues are encountered.
func (m *MongoStorage) Connect(dbName, uri string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("error connecting to MongoDB: %w", err)
	}

	m.client = client
	m.dbName = dbName

	// Every user has a unique email and username.
	users := m.collection("users")
	userIndexes := []mongo.IndexModel{
		{Keys: bson.M{"email": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"username": 1}, Options: options.Index().SetUnique(true)},
	}
	if _, err := users.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("error creating user indexes: %w", err)
	}

	// Habits are queried by owner, and a user cannot have two habits with the
	// same title.
	habits := m.collection("habits")
	habitIndexes := []mongo.IndexModel{
		{Keys: bson.M{"user_id": 1}, Options: options.Index()},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "title", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := habits.Indexes().CreateMany(ctx, habitIndexes); err != nil {
		return fmt.Errorf("error creating habit indexes: %w", err)
	}

	tasks := m.collection("tasks")
	taskIndex := mongo.IndexModel{Keys: bson.M{"user_id": 1}, Options: options.Index()}
	if _, err := tasks.Indexes().CreateOne(ctx, taskIndex); err != nil {
		return fmt.Errorf("error creating task index: %w", err)
	}

	confirmations := m.collection("confirmations")
	confirmationIndex := mongo.IndexModel{Keys: bson.M{"user_id": 1}, Options: options.Index()}
	if _, err := confirmations.Indexes().CreateOne(ctx, confirmationIndex); err != nil {
		return fmt.Errorf("error creating confirmation index: %w", err)
	}

	return nil
}

// Disconnect closes the connection to the MongoDB server.
// It should be called when the MongoStorage instance is no longer needed.
func (m *MongoStorage) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("error disconnecting from MongoDB: %w", err)
	}
	return nil
}

// WithTransaction runs fn inside a MongoDB session transaction so that a habit
// or task mutation and its matching gamification update commit as one unit.
// Requires a replica set or mongos; the per-user document flows rely on this to
// never leave points without the completion that earned them.
func (m *MongoStorage) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("error starting session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (m *MongoStorage) collection(name string) *mongo.Collection {
	return m.client.Database(m.dbName).Collection(name)
}

// AddUser adds a new user document to the 'users' collection.
// Returns the added user instance and an error if the insert operation fails.
func (m *MongoStorage) AddUser(ctx context.Context, user *models.User) (*models.User, error) {
	result, err := m.collection("users").InsertOne(ctx, user)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, errors.New("a user with this email or username already exists")
		}
		return nil, err
	}
	user.ID = result.InsertedID.(primitive.ObjectID)
	return user, nil
}

func (m *MongoStorage) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	user := &models.User{}
	err := m.collection("users").FindOne(ctx, filter).Decode(user)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindUserByID finds a user document by its object id.
func (m *MongoStorage) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.findUser(ctx, bson.M{"_id": id})
}

// FindUserByEmail finds a user document by email.
func (m *MongoStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": email})
}

// FindUserByUsername finds a user document by username.
func (m *MongoStorage) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"username": username})
}

// ReplaceUser overwrites the stored user document with the given one.
func (m *MongoStorage) ReplaceUser(ctx context.Context, user *models.User) error {
	result, err := m.collection("users").ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteUser deletes a user document along with all habits, tasks and
// confirmations associated with it.
func (m *MongoStorage) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	if _, err := m.collection("habits").DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
		return err
	}
	if _, err := m.collection("tasks").DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
		return err
	}
	if _, err := m.collection("confirmations").DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
		return err
	}

	result, err := m.collection("users").DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ListUsers returns every user document. Used by the daily sweep jobs, which
// walk users one at a time.
func (m *MongoStorage) ListUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := m.collection("users").Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AddHabit adds a new habit document to the 'habits' collection.
// Returns the added habit instance and an error if the insert operation fails.
func (m *MongoStorage) AddHabit(ctx context.Context, habit *models.Habit) (*models.Habit, error) {
	result, err := m.collection("habits").InsertOne(ctx, habit)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("a habit titled %q already exists for this user", habit.Title)
		}
		return nil, err
	}
	habit.ID = result.InsertedID.(primitive.ObjectID)
	return habit, nil
}

// FindHabit finds one habit owned by the given user. The user id is part of the
// filter so a habit can never be read across an ownership boundary.
func (m *MongoStorage) FindHabit(ctx context.Context, id, userID primitive.ObjectID) (*models.Habit, error) {
	habit := &models.Habit{}
	err := m.collection("habits").FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(habit)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return habit, nil
}

// FindHabitsByUser returns every habit owned by the given user, ordered by the
// user's chosen ordering index.
func (m *MongoStorage) FindHabitsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Habit, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})
	cursor, err := m.collection("habits").Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var habits []models.Habit
	if err := cursor.All(ctx, &habits); err != nil {
		return nil, err
	}
	return habits, nil
}

// ReplaceHabit overwrites the stored habit document with the given one.
func (m *MongoStorage) ReplaceHabit(ctx context.Context, habit *models.Habit) error {
	filter := bson.M{"_id": habit.ID, "user_id": habit.UserID}
	result, err := m.collection("habits").ReplaceOne(ctx, filter, habit)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteHabit deletes one habit owned by the given user.
func (m *MongoStorage) DeleteHabit(ctx context.Context, id, userID primitive.ObjectID) error {
	result, err := m.collection("habits").DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// AddTask adds a new task document to the 'tasks' collection.
func (m *MongoStorage) AddTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	result, err := m.collection("tasks").InsertOne(ctx, task)
	if err != nil {
		return nil, err
	}
	task.ID = result.InsertedID.(primitive.ObjectID)
	return task, nil
}

// FindTask finds one task owned by the given user.
func (m *MongoStorage) FindTask(ctx context.Context, id, userID primitive.ObjectID) (*models.Task, error) {
	task := &models.Task{}
	err := m.collection("tasks").FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(task)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// FindTasksByUser returns every task owned by the given user, newest first.
func (m *MongoStorage) FindTasksByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.collection("tasks").Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ReplaceTask overwrites the stored task document with the given one.
func (m *MongoStorage) ReplaceTask(ctx context.Context, task *models.Task) error {
	filter := bson.M{"_id": task.ID, "user_id": task.UserID}
	result, err := m.collection("tasks").ReplaceOne(ctx, filter, task)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteTask deletes one task owned by the given user.
func (m *MongoStorage) DeleteTask(ctx context.Context, id, userID primitive.ObjectID) error {
	result, err := m.collection("tasks").DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SeedAchievements upserts the static achievement catalog. Running it again
// with the same catalog is a no-op, so startup can call it unconditionally.
func (m *MongoStorage) SeedAchievements(ctx context.Context, catalog []models.Achievement) error {
	collection := m.collection("achievements")
	for _, a := range catalog {
		filter := bson.M{"_id": a.ID}
		update := bson.M{"$set": a}
		if _, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return fmt.Errorf("error seeding achievement %s: %w", a.ID, err)
		}
	}
	return nil
}

// ListAchievements returns the full achievement catalog.
func (m *MongoStorage) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	cursor, err := m.collection("achievements").Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var catalog []models.Achievement
	if err := cursor.All(ctx, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// AddConfirmation adds a new confirmation document to the 'confirmations' collection.
func (m *MongoStorage) AddConfirmation(ctx context.Context, confirmation *models.Confirmation) (*models.Confirmation, error) {
	result, err := m.collection("confirmations").InsertOne(ctx, confirmation)
	if err != nil {
		return nil, err
	}
	confirmation.ID = result.InsertedID.(primitive.ObjectID)
	return confirmation, nil
}

// FindConfirmationByUser finds the pending confirmation for a user.
func (m *MongoStorage) FindConfirmationByUser(ctx context.Context, userID primitive.ObjectID) (*models.Confirmation, error) {
	confirmation := &models.Confirmation{}
	err := m.collection("confirmations").FindOne(ctx, bson.M{"user_id": userID}).Decode(confirmation)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return confirmation, nil
}

// DeleteConfirmation deletes a confirmation document by id.
func (m *MongoStorage) DeleteConfirmation(ctx context.Context, id primitive.ObjectID) error {
	_, err := m.collection("confirmations").DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// isDuplicateKey reports whether err is a unique-index violation (code 11000).
func isDuplicateKey(err error) bool {
	var writeException mongo.WriteException
	if errors.As(err, &writeException) {
		for _, writeError := range writeException.WriteErrors {
			if writeError.Code == 11000 {
				return true
			}
		}
	}
	return false
}
