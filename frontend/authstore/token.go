package authstore

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
)

// Token is the access and refresh token pair handed out at login.
type Token struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenStore keeps the token of the current session between operations.
type TokenStore interface {
	Load() (Token, error)
	Save(t Token) error
	Clear() error
}

// ErrNoToken is returned by Load when no session has been stored.
var ErrNoToken = errors.New("no stored token")

// TokenEnv overrides any stored access token when set.
const TokenEnv = "TODO_TOKEN"

type memoryTokenStore struct {
	mtx   sync.Mutex
	token *Token
}

// NewMemoryTokenStore returns a TokenStore that forgets the token when the
// process exits.
func NewMemoryTokenStore() TokenStore {
	return &memoryTokenStore{}
}

func (s *memoryTokenStore) Load() (Token, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.token == nil {
		return Token{}, ErrNoToken
	}
	return *s.token, nil
}

func (s *memoryTokenStore) Save(t Token) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.token = &t
	return nil
}

func (s *memoryTokenStore) Clear() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.token = nil
	return nil
}

type fileTokenStore struct {
	mtx  sync.Mutex
	path string
}

// NewFileTokenStore returns a TokenStore that keeps the token in a JSON file
// readable only by the current user.
func NewFileTokenStore(path string) TokenStore {
	return &fileTokenStore{path: path}
}

// DefaultTokenFile is ~/.todo/credentials.json.
func DefaultTokenFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".todo", "credentials.json"), nil
}

func (s *fileTokenStore) Load() (Token, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	b, err := ioutil.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Token{}, ErrNoToken
	}
	if err != nil {
		return Token{}, err
	}

	var t Token
	if err := json.Unmarshal(b, &t); err != nil {
		return Token{}, err
	}
	if t.Access == "" {
		return Token{}, ErrNoToken
	}
	return t, nil
}

func (s *fileTokenStore) Save(t Token) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}

	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(s.path, b, 0o600)
}

func (s *fileTokenStore) Clear() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

type envTokenStore struct {
	TokenStore
}

// WithEnvOverride makes Load prefer the access token found in TODO_TOKEN.
// Save and Clear still go to next.
func WithEnvOverride(next TokenStore) TokenStore {
	return envTokenStore{next}
}

func (s envTokenStore) Load() (Token, error) {
	if v := os.Getenv(TokenEnv); v != "" {
		return Token{Access: v}, nil
	}
	return s.TokenStore.Load()
}
