package authtransport

import (
	"context"
	"errors"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/oyage/todo-vite-app/authsvc"
	"github.com/oyage/todo-vite-app/authsvc/inmem"
)

// NewAuthenticater admits a parsed token only while its session is live:
// the uuid must still be in the session store and map to the token's user.
func NewAuthenticater(c inmem.Client) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (interface{}, error) {
			claims, ok := ctx.Value(kitjwt.JWTClaimsContextKey).(stdjwt.MapClaims)
			if !ok {
				return nil, authsvc.ErrClaimsMissing
			}

			uuid, ok := claims["uuid"].(string)
			if !ok || uuid == "" {
				return nil, authsvc.ErrUUIDMissing
			}

			owner, err := c.Get(uuid)
			switch {
			case errors.Is(err, inmem.ErrKeyNotFound):
				return nil, authsvc.ErrSessionNotFound
			case err != nil:
				return nil, err
			}

			if userID, _ := claims["user_id"].(string); userID != string(owner) {
				return nil, authsvc.ErrSessionNotFound
			}

			return next(context.WithValue(ctx, authsvc.JWTUUIDContextKey, uuid), request)
		}
	}
}
