package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/savepoint/savepoint/backend/models"
	"github.com/savepoint/savepoint/lib/errs"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStorage is an in-memory StorageInterface used by service tests and
// local development. It holds copies of documents, so mutations only become
// visible through Replace calls, matching how the MongoDB backend behaves.
type MemoryStorage struct {
	mu            sync.RWMutex
	users         map[primitive.ObjectID]models.User
	habits        map[primitive.ObjectID]models.Habit
	tasks         map[primitive.ObjectID]models.Task
	achievements  map[string]models.Achievement
	confirmations map[primitive.ObjectID]models.Confirmation
}

// NewMemoryStorage creates an empty in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:         map[primitive.ObjectID]models.User{},
		habits:        map[primitive.ObjectID]models.Habit{},
		tasks:         map[primitive.ObjectID]models.Task{},
		achievements:  map[string]models.Achievement{},
		confirmations: map[primitive.ObjectID]models.Confirmation{},
	}
}

// Connect is a no-op for the in-memory backend.
func (m *MemoryStorage) Connect(dbName, uri string) error { return nil }

// Disconnect is a no-op for the in-memory backend.
func (m *MemoryStorage) Disconnect() error { return nil }

// WithTransaction runs fn directly. The in-memory backend offers no rollback;
// tests that need failure atomicity assert against the MongoDB backend.
func (m *MemoryStorage) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *MemoryStorage) AddUser(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return nil, errors.New("a user with this email or username already exists")
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.users[user.ID] = *user
	return user, nil
}

func (m *MemoryStorage) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &user, nil
}

func (m *MemoryStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m *MemoryStorage) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m *MemoryStorage) ReplaceUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return errs.ErrNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStorage) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return errs.ErrNotFound
	}
	delete(m.users, id)
	for hid, habit := range m.habits {
		if habit.UserID == id {
			delete(m.habits, hid)
		}
	}
	for tid, task := range m.tasks {
		if task.UserID == id {
			delete(m.tasks, tid)
		}
	}
	for cid, confirmation := range m.confirmations {
		if confirmation.UserID == id {
			delete(m.confirmations, cid)
		}
	}
	return nil
}

func (m *MemoryStorage) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *MemoryStorage) AddHabit(ctx context.Context, habit *models.Habit) (*models.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.habits {
		if existing.UserID == habit.UserID && existing.Title == habit.Title {
			return nil, fmt.Errorf("a habit titled %q already exists for this user", habit.Title)
		}
	}
	if habit.ID.IsZero() {
		habit.ID = primitive.NewObjectID()
	}
	m.habits[habit.ID] = *habit
	return habit, nil
}

func (m *MemoryStorage) FindHabit(ctx context.Context, id, userID primitive.ObjectID) (*models.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	habit, ok := m.habits[id]
	if !ok || habit.UserID != userID {
		return nil, errs.ErrNotFound
	}
	return &habit, nil
}

func (m *MemoryStorage) FindHabitsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var habits []models.Habit
	for _, habit := range m.habits {
		if habit.UserID == userID {
			habits = append(habits, habit)
		}
	}
	sort.Slice(habits, func(i, j int) bool { return habits[i].Order < habits[j].Order })
	return habits, nil
}

func (m *MemoryStorage) ReplaceHabit(ctx context.Context, habit *models.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.habits[habit.ID]
	if !ok || existing.UserID != habit.UserID {
		return errs.ErrNotFound
	}
	m.habits[habit.ID] = *habit
	return nil
}

func (m *MemoryStorage) DeleteHabit(ctx context.Context, id, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	habit, ok := m.habits[id]
	if !ok || habit.UserID != userID {
		return errs.ErrNotFound
	}
	delete(m.habits, id)
	return nil
}

func (m *MemoryStorage) AddTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	m.tasks[task.ID] = *task
	return task, nil
}

func (m *MemoryStorage) FindTask(ctx context.Context, id, userID primitive.ObjectID) (*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return nil, errs.ErrNotFound
	}
	return &task, nil
}

func (m *MemoryStorage) FindTasksByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var tasks []models.Task
	for _, task := range m.tasks {
		if task.UserID == userID {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return tasks, nil
}

func (m *MemoryStorage) ReplaceTask(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return errs.ErrNotFound
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *MemoryStorage) DeleteTask(ctx context.Context, id, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return errs.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *MemoryStorage) SeedAchievements(ctx context.Context, catalog []models.Achievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range catalog {
		m.achievements[a.ID] = a
	}
	return nil
}

func (m *MemoryStorage) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	catalog := make([]models.Achievement, 0, len(m.achievements))
	for _, a := range m.achievements {
		catalog = append(catalog, a)
	}
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].ID < catalog[j].ID })
	return catalog, nil
}

func (m *MemoryStorage) AddConfirmation(ctx context.Context, confirmation *models.Confirmation) (*models.Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if confirmation.ID.IsZero() {
		confirmation.ID = primitive.NewObjectID()
	}
	m.confirmations[confirmation.ID] = *confirmation
	return confirmation, nil
}

func (m *MemoryStorage) FindConfirmationByUser(ctx context.Context, userID primitive.ObjectID) (*models.Confirmation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, confirmation := range m.confirmations {
		if confirmation.UserID == userID {
			c := confirmation
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m *MemoryStorage) DeleteConfirmation(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.confirmations, id)
	return nil
}
