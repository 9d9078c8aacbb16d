package middleware

import (
	"net/http"
	"strings"
)

// UserContextHeader carries the JSON-encoded visitor context.
const UserContextHeader = "X-User-Context"

var (
	corsAllowHeaders  = strings.Join([]string{"Content-Type", SessionHeader, UserContextHeader}, ", ")
	corsAllowMethods  = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsExposeHeaders = "X-Request-Id"
)

// originRule matches one configured origin. "http://localhost:*" matches the
// host on any port.
type originRule struct {
	prefix  string
	anyPort bool
}

func (o originRule) match(origin string) bool {
	if !o.anyPort {
		return origin == o.prefix
	}
	rest, ok := strings.CutPrefix(origin, o.prefix)
	if !ok {
		return false
	}
	if rest == "" {
		return true
	}
	port, ok := strings.CutPrefix(rest, ":")
	if !ok || port == "" {
		return false
	}
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CORS lets host pages embedding the widget call the API. "*" echoes any
// Origin back.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAny := false
	var rules []originRule
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch {
		case origin == "":
		case origin == "*":
			allowAny = true
		case strings.HasSuffix(origin, ":*"):
			rules = append(rules, originRule{prefix: strings.TrimSuffix(origin, ":*"), anyPort: true})
		default:
			rules = append(rules, originRule{prefix: origin})
		}
	}
	allowed := func(origin string) bool {
		if allowAny {
			return true
		}
		for _, r := range rules {
			if r.match(origin) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			ok := origin != "" && allowed(origin)
			if origin != "" {
				w.Header().Add("Vary", "Origin")
			}
			if ok {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
				h.Set("Access-Control-Max-Age", "600")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if ok {
					w.WriteHeader(http.StatusNoContent)
				} else {
					w.WriteHeader(http.StatusForbidden)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
