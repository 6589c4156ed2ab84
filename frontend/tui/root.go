// Package tui is the terminal front end: a login and signup form and the
// todo list behind the session guard.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/oyage/todo-vite-app/frontend/authstore"
	"github.com/oyage/todo-vite-app/frontend/guard"
	"github.com/oyage/todo-vite-app/frontend/todostore"
)

type formKind int

const (
	loginForm formKind = iota
	signupForm
)

const (
	emailField = iota
	passwordField
	fieldCount
)

// authDoneMsg reports the end of a session operation.
type authDoneMsg struct{ err error }

// todosDoneMsg reports the end of a todo operation.
type todosDoneMsg struct{ err error }

type Model struct {
	ctx   context.Context
	auth  *authstore.Store
	todos *todostore.Store

	formKeys FormKeyMap
	listKeys ListKeyMap
	help     help.Model
	spinner  spinner.Model

	form     formKind
	focus    int
	email    textinput.Model
	password textinput.Model

	input  textinput.Model
	adding bool
	cursor int
	loaded bool
}

func New(ctx context.Context, auth *authstore.Store, todos *todostore.Store) Model {
	email := textinput.New()
	email.Prompt = "Email:    "
	email.Placeholder = "you@example.com"
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "What needs to be done?"
	input.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	return Model{
		ctx:      ctx,
		auth:     auth,
		todos:    todos,
		formKeys: DefaultFormKeyMap(),
		listKeys: DefaultListKeyMap(),
		help:     help.New(),
		spinner:  sp,
		email:    email,
		password: password,
		input:    input,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, m.initSession())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case authDoneMsg:
		return m.sessionChanged()

	case todosDoneMsg:
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		switch guard.Decide(m.auth.State()) {
		case guard.Redirect:
			return m.updateForm(msg)
		case guard.Render:
			return m.updateList(msg)
		}
		return m, nil
	}

	return m.updateInputs(msg)
}

func (m Model) sessionChanged() (tea.Model, tea.Cmd) {
	switch guard.Decide(m.auth.State()) {
	case guard.Render:
		if !m.loaded {
			m.loaded = true
			m.password.SetValue("")
			return m, m.loadTodos()
		}
	case guard.Redirect:
		if m.loaded {
			m.loaded = false
			m.adding = false
			m.cursor = 0
			m.input.Reset()
			m.todos.Reset()
		}
		return m, m.focusField(m.focus)
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.formKeys.Next):
		return m, m.focusField((m.focus + 1) % fieldCount)
	case key.Matches(msg, m.formKeys.Prev):
		return m, m.focusField((m.focus + fieldCount - 1) % fieldCount)
	case key.Matches(msg, m.formKeys.Switch):
		if m.form == loginForm {
			m.form = signupForm
		} else {
			m.form = loginForm
		}
		m.auth.ClearError()
		return m, nil
	case key.Matches(msg, m.formKeys.Dismiss):
		m.auth.ClearError()
		return m, nil
	case key.Matches(msg, m.formKeys.Submit):
		if m.focus == emailField {
			return m, m.focusField(passwordField)
		}
		return m, m.submit()
	}
	return m.updateInputs(msg)
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.adding {
		switch {
		case key.Matches(msg, m.listKeys.Submit):
			text := m.input.Value()
			m.adding = false
			m.input.Reset()
			m.input.Blur()
			return m, m.add(text)
		case key.Matches(msg, m.listKeys.Cancel):
			m.adding = false
			m.input.Reset()
			m.input.Blur()
			return m, nil
		}
		return m.updateInputs(msg)
	}

	todos := m.todos.State().Todos
	switch {
	case key.Matches(msg, m.listKeys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.listKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.listKeys.Down):
		if m.cursor < len(todos)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.listKeys.Add):
		m.adding = true
		return m, m.input.Focus()
	case key.Matches(msg, m.listKeys.Toggle):
		if m.cursor < len(todos) {
			return m, m.toggle(todos[m.cursor].ID)
		}
	case key.Matches(msg, m.listKeys.Delete):
		if m.cursor < len(todos) {
			return m, m.delete(todos[m.cursor].ID)
		}
	case key.Matches(msg, m.listKeys.Reload):
		return m, m.loadTodos()
	case key.Matches(msg, m.listKeys.Logout):
		return m, m.logout()
	case key.Matches(msg, m.listKeys.Dismiss):
		m.todos.ClearError()
		m.auth.ClearError()
	}
	return m, nil
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds [3]tea.Cmd
	m.email, cmds[0] = m.email.Update(msg)
	m.password, cmds[1] = m.password.Update(msg)
	m.input, cmds[2] = m.input.Update(msg)
	return m, tea.Batch(cmds[:]...)
}

func (m *Model) focusField(field int) tea.Cmd {
	m.focus = field
	if field == emailField {
		m.password.Blur()
		return m.email.Focus()
	}
	m.email.Blur()
	return m.password.Focus()
}

func (m *Model) clampCursor() {
	n := len(m.todos.State().Todos)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) initSession() tea.Cmd {
	ctx, auth := m.ctx, m.auth
	return func() tea.Msg {
		return authDoneMsg{auth.Init(ctx)}
	}
}

func (m Model) submit() tea.Cmd {
	ctx, auth := m.ctx, m.auth
	email, password := strings.TrimSpace(m.email.Value()), m.password.Value()
	if m.form == signupForm {
		return func() tea.Msg {
			return authDoneMsg{auth.Signup(ctx, email, password)}
		}
	}
	return func() tea.Msg {
		return authDoneMsg{auth.Login(ctx, email, password)}
	}
}

func (m Model) logout() tea.Cmd {
	ctx, auth := m.ctx, m.auth
	return func() tea.Msg {
		return authDoneMsg{auth.Logout(ctx)}
	}
}

func (m Model) loadTodos() tea.Cmd {
	ctx, todos := m.ctx, m.todos
	return func() tea.Msg {
		return todosDoneMsg{todos.Load(ctx)}
	}
}

func (m Model) add(text string) tea.Cmd {
	ctx, todos := m.ctx, m.todos
	return func() tea.Msg {
		return todosDoneMsg{todos.Add(ctx, text)}
	}
}

func (m Model) toggle(id string) tea.Cmd {
	ctx, todos := m.ctx, m.todos
	return func() tea.Msg {
		return todosDoneMsg{todos.Toggle(ctx, id)}
	}
}

func (m Model) delete(id string) tea.Cmd {
	ctx, todos := m.ctx, m.todos
	return func() tea.Msg {
		return todosDoneMsg{todos.Delete(ctx, id)}
	}
}

func (m Model) View() string {
	auth := m.auth.State()

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Todo App"))
	if auth.User != nil {
		b.WriteString("  " + MutedStyle.Render(auth.User.Email))
	}
	b.WriteString("\n\n")

	if msg := m.errorMessage(auth); msg != "" {
		b.WriteString(ErrorStyle.Render("Error: " + msg))
		b.WriteString(" " + MutedStyle.Render("(esc to dismiss)") + "\n\n")
	}

	switch guard.Decide(auth) {
	case guard.Pending:
		b.WriteString(m.spinner.View() + " Loading...")
	case guard.Redirect:
		b.WriteString(m.formView())
	case guard.Render:
		b.WriteString(m.listView())
	}

	return AppStyle.Render(b.String())
}

func (m Model) errorMessage(auth authstore.State) string {
	if auth.Err != "" {
		return auth.Err
	}
	return m.todos.State().Err
}

func (m Model) formView() string {
	var b strings.Builder

	if m.form == signupForm {
		b.WriteString(HeadingStyle.Render("Sign Up"))
	} else {
		b.WriteString(HeadingStyle.Render("Login"))
	}
	b.WriteString("\n")
	b.WriteString(m.email.View() + "\n")
	b.WriteString(m.password.View() + "\n\n")

	if m.form == loginForm {
		b.WriteString(MutedStyle.Render("Demo account: test@example.com / password") + "\n")
	}
	b.WriteString(m.help.View(m.formKeys))

	return b.String()
}

func (m Model) listView() string {
	st := m.todos.State()

	var b strings.Builder

	done := 0
	for _, t := range st.Todos {
		if t.Completed {
			done++
		}
	}
	header := fmt.Sprintf("%s  %s %d/%d",
		HeadingStyle.Render("Todos"),
		SuccessStyle.Render("✔"), done, len(st.Todos),
	)
	if st.Loading {
		header += " " + m.spinner.View()
	}
	b.WriteString(header + "\n")

	if len(st.Todos) == 0 && !st.Loading {
		b.WriteString(MutedStyle.Render("No todos yet. Press a to add one.") + "\n")
	}

	for i, t := range st.Todos {
		box, text := MutedStyle.Render(boxUnchecked), t.Text
		if t.Completed {
			box, text = SuccessStyle.Render(boxChecked), DoneStyle.Render(t.Text)
		}

		prefix := "  "
		if i == m.cursor {
			prefix = SelectedStyle.Render("> ")
		}
		b.WriteString(prefix + box + " " + text + "\n")
	}

	if m.adding {
		b.WriteString("\n" + m.input.View() + "\n")
	}

	b.WriteString("\n" + m.help.View(m.listKeys))
	return b.String()
}
