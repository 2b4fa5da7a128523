package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// exemptPaths bypass authentication and tenant resolution.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware validates API keys sent as "Authorization: Bearer <key>"
// or in the X-API-Key header. With no non-empty keys configured it passes
// every request through.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, msg := credentials(r)
			if msg != "" {
				writeError(w, http.StatusUnauthorized, ErrorResponseCodeUnauthorized, msg)
				return
			}
			if !validKey(keys, token) {
				writeError(w, http.StatusUnauthorized, ErrorResponseCodeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func credentials(r *http.Request) (token, problem string) {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k, ""
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", "missing authorization header"
	}
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(auth, bearerPrefix) {
		return "", "authorization header must use Bearer scheme"
	}
	return auth[len(bearerPrefix):], ""
}

func validKey(keys [][]byte, token string) bool {
	t := []byte(token)
	for _, k := range keys {
		if subtle.ConstantTimeCompare(k, t) == 1 {
			return true
		}
	}
	return false
}
