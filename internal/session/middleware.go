package session

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Obyedullah7/Advanced-Backend/internal/user/entity"
	"github.com/Obyedullah7/Advanced-Backend/pkg/utilities"
)

type ctxKey struct{}

func WithProfile(ctx context.Context, p *entity.Profile) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// ProfileFromContext returns the profile attached by RequireAuth.
func ProfileFromContext(ctx context.Context) (*entity.Profile, bool) {
	p, ok := ctx.Value(ctxKey{}).(*entity.Profile)
	return p, ok && p != nil
}

// RequireAuth rejects requests without a valid access token. The token is
// read from the access cookie first, then from a Bearer header.
func RequireAuth(m *Manager, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := m.VerifyAccess(r.Context(), accessToken(r))
			if err != nil {
				utilities.WriteError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithProfile(r.Context(), p)))
		})
	}
}

func accessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
