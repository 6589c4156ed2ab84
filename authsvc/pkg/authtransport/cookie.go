package authtransport

import (
	"context"
	"net/http"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/securecookie"
	"github.com/oyage/todo-vite-app/authsvc"
	"github.com/oyage/todo-vite-app/authsvc/pkg/authservice"
)

// SessionCookieName is the cookie holding the signed and encrypted access
// token for browser clients.
const SessionCookieName = "todo_session"

func newCookieCodec() *securecookie.SecureCookie {
	return securecookie.New([]byte(authsvc.CookieHashKey), []byte(authsvc.CookieBlockKey))
}

// CookieToContext moves the access token found in the session cookie into
// the context, unless an Authorization header already put one there.
func CookieToContext() httptransport.RequestFunc {
	return cookieToContext(newCookieCodec())
}

func cookieToContext(codec *securecookie.SecureCookie) httptransport.RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		if _, ok := ctx.Value(kitjwt.JWTContextKey).(string); ok {
			return ctx
		}

		c, err := r.Cookie(SessionCookieName)
		if err != nil {
			return ctx
		}

		var token string
		if err := codec.Decode(SessionCookieName, c.Value, &token); err != nil {
			return ctx
		}

		return context.WithValue(ctx, kitjwt.JWTContextKey, token)
	}
}

func setSessionCookie(w http.ResponseWriter, codec *securecookie.SecureCookie, token string) error {
	encoded, err := codec.Encode(SessionCookieName, token)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(authservice.AccessTokenExpiry().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
