package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"web-shop/internal/auth"
)

type Resolver interface {
	Resolve(ctx context.Context, token string) (auth.Identity, error)
}

func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// Authenticate resolves the bearer token before any handler runs. Failures
// never reach role checks.
func Authenticate(res Resolver, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := res.Resolve(r.Context(), tokenFrom(r))
			if err != nil {
				writeError(w, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
