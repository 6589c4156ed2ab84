package gorm

import (
	"errors"

	"github.com/oyage/todo-vite-app/todosvc"
	"github.com/twinj/uuid"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryDSN names a shared-cache in-memory sqlite database.
func MemoryDSN(name string) string {
	return "file:" + name + "?mode=memory&cache=shared"
}

// Open opens the database and migrates the todo table.
func Open(dsn string) (*libgorm.DB, error) {
	db, err := libgorm.Open(sqlite.Open(dsn), &libgorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&todosvc.Todo{}); err != nil {
		return nil, err
	}
	return db, nil
}

// Seed inserts the given todos unless a todo with the same ID exists.
func Seed(db *libgorm.DB, todos ...todosvc.Todo) error {
	for _, t := range todos {
		t := t
		if result := db.Where(todosvc.Todo{ID: t.ID}).FirstOrCreate(&t); result.Error != nil {
			return result.Error
		}
	}
	return nil
}

type todoRepository struct {
	db *libgorm.DB
}

func NewTodoRepository(db *libgorm.DB) todosvc.TodoRepository {
	return &todoRepository{db}
}

func (t *todoRepository) Create(userID, text string) (todosvc.Todo, error) {
	todo := todosvc.Todo{
		ID:        uuid.NewV4().String(),
		Text:      text,
		Completed: false,
		UserID:    userID,
	}
	result := t.db.Create(&todo)

	return todo, result.Error
}

func (t *todoRepository) FindAll(userID string) ([]todosvc.Todo, error) {
	todos := []todosvc.Todo{}
	result := t.db.Where("user_id = ?", userID).Order("seq").Find(&todos)

	return todos, result.Error
}

func (t *todoRepository) Find(userID, todoID string) (todosvc.Todo, error) {
	var todo todosvc.Todo
	result := t.db.Where("id = ? AND user_id = ?", todoID, userID).First(&todo)
	if errors.Is(result.Error, libgorm.ErrRecordNotFound) {
		return todosvc.Todo{}, todosvc.ErrTodoNotFound
	}

	return todo, result.Error
}

func (t *todoRepository) Update(todo todosvc.Todo) (todosvc.Todo, error) {
	result := t.db.Model(&todosvc.Todo{}).
		Where("id = ? AND user_id = ?", todo.ID, todo.UserID).
		Updates(map[string]interface{}{
			"text":      todo.Text,
			"completed": todo.Completed,
		})
	if result.Error != nil {
		return todosvc.Todo{}, result.Error
	}
	if result.RowsAffected == 0 {
		return todosvc.Todo{}, todosvc.ErrTodoNotFound
	}

	return t.Find(todo.UserID, todo.ID)
}

func (t *todoRepository) Delete(userID, todoID string) error {
	result := t.db.Where("id = ? AND user_id = ?", todoID, userID).Delete(&todosvc.Todo{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return todosvc.ErrTodoNotFound
	}
	return nil
}
