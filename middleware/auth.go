package middleware

import (
	"crypto/subtle"
	"net/http"

	"growset/pkg/logger"
)

// Credentials is the single shared account that guards management routes.
type Credentials struct {
	Username string
	Password string
	Realm    string
}

// Authorized reports whether the request carries matching Basic credentials.
func (c Credentials) Authorized(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(c.Password)) == 1
	return userOK && passOK
}

// BasicAuth rejects requests without valid credentials with 401 and a
// challenge. The check runs before anything else, so even unsupported
// methods on a guarded path are answered with 401.
func BasicAuth(creds Credentials) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !creds.Authorized(r) {
				logger.Sugar.Infof("Unauthorized %s %s from %s", r.Method, r.URL.Path, GetClientIP(r))
				setNoCache(w)
				w.Header().Set("WWW-Authenticate", `Basic realm="`+creds.Realm+`"`)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
