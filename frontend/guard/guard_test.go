package guard

import (
	"testing"

	"github.com/oyage/todo-vite-app/authsvc"
	"github.com/oyage/todo-vite-app/frontend/authstore"
)

func TestDecide(t *testing.T) {
	user := &authsvc.User{ID: "1", Email: "test@example.com"}

	tests := []struct {
		name  string
		state authstore.State
		want  Decision
	}{
		{"unresolved", authstore.State{}, Pending},
		{"unresolved with user", authstore.State{User: user}, Pending},
		{"loading", authstore.State{Resolved: true, Loading: true}, Pending},
		{"no user", authstore.State{Resolved: true}, Redirect},
		{"no user with error", authstore.State{Resolved: true, Err: "Invalid email or password"}, Redirect},
		{"user", authstore.State{Resolved: true, User: user}, Render},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.state); got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}
