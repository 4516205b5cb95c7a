package httpapi

import (
	"net/http"
	"time"
)

// sessionCookieName is the cookie that carries the raw session token
// for browser clients. API clients use the Authorization header
// instead.
const sessionCookieName = "tausession"

// setSessionCookie installs the session token with a max-age matching
// the server-side session lifetime. Re-setting it on every
// authenticated request keeps the client-visible expiry sliding in
// step with the stored one.
func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookie tells the client to drop the session cookie.
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// sessionCookieValue extracts the raw token from the request cookie,
// or "" when absent.
func sessionCookieValue(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
