package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// Auth guards the admin API with HTTP basic auth
type Auth struct {
	User  string
	Hash  []byte
	Realm string
}

// NewAuth creates a new Auth instance from a username and bcrypt hash
func NewAuth(user string, hash []byte) *Auth {
	return &Auth{User: user, Hash: hash, Realm: "statusboard admin"}
}

// Enabled reports whether admin credentials were configured
func (a *Auth) Enabled() bool {
	return a.User != "" && len(a.Hash) > 0
}

// CheckCredentials validates a username/password pair
func (a *Auth) CheckCredentials(user, pass string) bool {
	wantUser, hash := a.User, a.Hash
	if wantUser == "" || len(hash) == 0 {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	passOK := bcrypt.CompareHashAndPassword(hash, []byte(pass)) == nil
	return userOK && passOK
}

// RequireAuth is middleware that requires basic auth credentials.
// With no credentials configured the admin API is closed.
func (a *Auth) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			writeError(w, http.StatusForbidden, "admin API disabled")
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || !a.CheckCredentials(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="`+a.Realm+`", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
