// Package guard decides what a protected view shows for a given session.
package guard

import "github.com/oyage/todo-vite-app/frontend/authstore"

type Decision int

const (
	// Pending renders nothing while the session is being resolved.
	Pending Decision = iota
	// Redirect sends the user to the login view.
	Redirect
	// Render shows the protected content.
	Render
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case Redirect:
		return "redirect"
	case Render:
		return "render"
	}
	return "unknown"
}

func Decide(s authstore.State) Decision {
	if !s.Resolved || s.Loading {
		return Pending
	}
	if s.User == nil {
		return Redirect
	}
	return Render
}
