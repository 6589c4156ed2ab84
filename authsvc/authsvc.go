package authsvc

import (
	"errors"
	"os"
)

var (
	AccessSecret   = getEnv("ACCESS_SECRET", "access-secret")
	RefreshSecret  = getEnv("REFRESH_SECRET", "refresh-secret")
	CookieHashKey  = getEnv("COOKIE_HASH_KEY", "very-secret")
	CookieBlockKey = getEnv("COOKIE_BLOCK_KEY", "a-lots-of-secret")
)

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = fallback
	}
	return value
}

// Demo account seeded at startup, and the address that makes Login fail
// the way an unreachable backend would.
const (
	DemoUserID   = "1"
	DemoEmail    = "test@example.com"
	DemoPassword = "password"
	FailingEmail = "error@example.com"
)

type User struct {
	ID           string `json:"id" gorm:"primaryKey"`
	Email        string `json:"email" gorm:"uniqueIndex"`
	PasswordHash string `json:"-"`
}

// Session is what a successful login or signup hands back to the client.
type Session struct {
	User   User              `json:"user"`
	Tokens map[string]string `json:"tokens"`
}

type UserRepository interface {
	Create(email, passwordHash string) (User, error)
	ByEmail(email string) (User, error)
	ByID(id string) (User, error)
}

type contextKey string

const (
	JWTUUIDContextKey contextKey = "JWTUUID"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrSimulatedFailure   = errors.New("Simulated server error during login.")
	ErrInvalidEmail       = errors.New("Invalid email format for signup.")
	ErrEmailExists        = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrClaimsMissing      = errors.New("JWT claims was not passed through the context")
	ErrClaimsInvalid      = errors.New("JWT claims was invalid")
	ErrUUIDMissing        = errors.New("JWT uuid claim was missing")
)
