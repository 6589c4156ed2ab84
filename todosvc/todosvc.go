package todosvc

import "errors"

type Todo struct {
	Seq       uint64 `json:"-" gorm:"primaryKey;autoIncrement"`
	ID        string `json:"id" gorm:"uniqueIndex"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	UserID    string `json:"userId" gorm:"index"`
}

type TodoRepository interface {
	Create(userID, text string) (Todo, error)
	FindAll(userID string) ([]Todo, error)
	Find(userID, todoID string) (Todo, error)
	Update(todo Todo) (Todo, error)
	Delete(userID, todoID string) error
}

// Auth identifies the caller of a todo operation, as read from the access
// token.
type Auth struct {
	AccessUUID string
	UserID     string
}

// DemoTodos returns the list the demo account starts with.
func DemoTodos(userID string) []Todo {
	return []Todo{
		{ID: "1", Text: "Learn React Context", Completed: true, UserID: userID},
		{ID: "2", Text: "Build a Todo App", Completed: false, UserID: userID},
		{ID: "3", Text: "Integrate Mock API", Completed: false, UserID: userID},
	}
}

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEmptyText       = errors.New("todo text is empty")
	ErrTodoNotFound    = errors.New("Todo not found")
	ErrDeleteNotFound  = errors.New("Todo not found for deletion")
	ErrClaimsMissing   = errors.New("JWT claims was not passed through the context")
)
