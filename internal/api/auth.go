package api

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

const authRealm = `Basic realm="camview API"`

var (
	errAuthRequired      = errors.New("authentication required")
	errInvalidAuthType   = errors.New("invalid authentication type")
	errInvalidFormat     = errors.New("invalid credentials format")
	errInvalidCredential = errors.New("invalid credentials")
)

// checkCredentials validates basic auth taken from the Authorization header or,
// for EventSource and <img> clients that cannot set headers, from the base64
// "auth" query parameter.
func checkCredentials(authHeader, queryAuth, username, password string) error {
	var encoded string
	switch {
	case authHeader != "":
		const prefix = "Basic "
		if !strings.HasPrefix(authHeader, prefix) {
			return errInvalidAuthType
		}
		encoded = authHeader[len(prefix):]
	case queryAuth != "":
		encoded = queryAuth
	default:
		return errAuthRequired
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return errInvalidFormat
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return errInvalidFormat
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
	if !userOK || !passOK {
		return errInvalidCredential
	}
	return nil
}

// basicAuthMiddleware creates middleware for HTTP basic authentication
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		// Skip auth for operations without security requirements
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		if err := checkCredentials(ctx.Header("Authorization"), ctx.Query("auth"), username, password); err != nil {
			ctx.SetHeader("WWW-Authenticate", authRealm)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, err.Error())
			return
		}

		next(ctx)
	}
}

// requireAuth guards plain mux handlers with the same credentials as the API.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	if !s.authEnabled() {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		err := checkCredentials(r.Header.Get("Authorization"), r.URL.Query().Get("auth"),
			s.options.AuthUsername, s.options.AuthPassword)
		if err != nil {
			w.Header().Set("WWW-Authenticate", authRealm)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
