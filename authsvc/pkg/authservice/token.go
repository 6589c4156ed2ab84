package authservice

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/oyage/todo-vite-app/authsvc"
	"github.com/twinj/uuid"
)

const (
	accessTTL  = 30 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

func AccessTokenExpiry() time.Duration  { return accessTTL }
func RefreshTokenExpiry() time.Duration { return refreshTTL }

// AccessToken is a signed access JWT. UUID is the session key in the KV.
type AccessToken struct {
	UUID    string
	Hash    string
	Expires time.Time
}

type RefreshToken struct {
	AccessUUID  string
	RefreshUUID string
	Hash        string
	Expires     time.Time
}

type Tokenizer interface {
	Generate(user authsvc.User) (*AccessToken, *RefreshToken, error)
}

type tokenizer struct {
	now           func() time.Time
	accessSecret  []byte
	refreshSecret []byte
}

func NewTokenizer() Tokenizer {
	return &tokenizer{
		now:           time.Now,
		accessSecret:  []byte(authsvc.AccessSecret),
		refreshSecret: []byte(authsvc.RefreshSecret),
	}
}

// Generate issues a token pair for one session. Both tokens are keyed by
// the access uuid.
func (t *tokenizer) Generate(user authsvc.User) (*AccessToken, *RefreshToken, error) {
	issued := t.now()

	access := &AccessToken{
		UUID:    uuid.NewV4().String(),
		Expires: issued.Add(accessTTL),
	}
	hash, err := sign(t.accessSecret, jwt.MapClaims{
		"uuid":    access.UUID,
		"user_id": user.ID,
		"email":   user.Email,
		"iat":     issued.Unix(),
		"exp":     access.Expires.Unix(),
	})
	if err != nil {
		return nil, nil, err
	}
	access.Hash = hash

	refresh := &RefreshToken{
		AccessUUID:  access.UUID,
		RefreshUUID: RefreshUUID(access.UUID),
		Expires:     issued.Add(refreshTTL),
	}
	hash, err = sign(t.refreshSecret, jwt.MapClaims{
		"access_uuid":  refresh.AccessUUID,
		"refresh_uuid": refresh.RefreshUUID,
		"user_id":      user.ID,
		"iat":          issued.Unix(),
		"exp":          refresh.Expires.Unix(),
	})
	if err != nil {
		return nil, nil, err
	}
	refresh.Hash = hash

	return access, refresh, nil
}

// RefreshUUID derives the refresh token uuid from its access token uuid, so
// revoking a session only needs the access uuid.
func RefreshUUID(accessUUID string) string {
	return uuid.NewV5(uuid.NameSpaceURL, accessUUID).String()
}

func sign(secret []byte, claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
