package router

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/Obyedullah7/Advanced-Backend/internal/session"
	"github.com/Obyedullah7/Advanced-Backend/internal/user"
	"github.com/Obyedullah7/Advanced-Backend/pkg/utilities"
)

// Config for the HTTP listener.
type Config struct {
	Addr        string   `envconfig:"ADDR" default:"0.0.0.0:8431"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`
}

// ConfigFromEnv reads HTTP_* env vars.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("HTTP", &cfg); err != nil {
		return Config{}, fmt.Errorf("http config: %w", err)
	}
	return cfg, nil
}

// statusRecorder wraps http.ResponseWriter to capture status and size.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.size += n
	return n, err
}

const requestIDHeader = "X-Request-ID"

// LoggingMiddleware tags every request with an id and logs it once it
// completes. Server errors are logged at warn level, everything else at debug.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = utilities.NewKSUID()
			}
			w.Header().Set(requestIDHeader, id)

			sr := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(sr, r)
			if sr.status == 0 {
				sr.status = http.StatusOK
			}

			log := logger.Debugw
			if sr.status >= http.StatusInternalServerError {
				log = logger.Warnw
			}
			log("http request",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", sr.status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", sr.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets response headers suited to a JSON API
// that is never framed or rendered as a document.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Cache-Control", "no-store")
			// HSTS over TLS only
			if r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deps are the handlers mounted by RegisterRoutes.
type Deps struct {
	Users    *user.Handler
	Sessions *session.Handler
	Manager  *session.Manager
}

const usersPrefix = "/api/v1/users"

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(cfg Config, deps Deps, logger *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	auth := session.RequireAuth(deps.Manager, logger)
	protected := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux.HandleFunc("POST "+usersPrefix+"/register", deps.Users.Register)
	mux.HandleFunc("POST "+usersPrefix+"/login", deps.Users.Login)
	mux.HandleFunc("POST "+usersPrefix+"/refresh-token", deps.Sessions.RefreshAccessToken)

	mux.Handle("POST "+usersPrefix+"/logout", protected(deps.Sessions.Logout))
	mux.Handle("POST "+usersPrefix+"/change-password", protected(deps.Users.ChangePassword))
	mux.Handle("GET "+usersPrefix+"/current-user", protected(deps.Users.CurrentUser))
	mux.Handle("PATCH "+usersPrefix+"/update-account", protected(deps.Users.UpdateAccount))
	mux.Handle("PATCH "+usersPrefix+"/avatar", protected(deps.Users.UpdateAvatar))
	mux.Handle("PATCH "+usersPrefix+"/cover-image", protected(deps.Users.UpdateCoverImage))

	// logging outermost so rejected preflights are logged too
	handler := SecurityHeadersMiddleware()(mux)
	if c := corsMiddleware(cfg.CORSOrigins); c != nil {
		handler = c.Handler(handler)
	}
	return LoggingMiddleware(logger)(handler)
}

// corsMiddleware allows credentialed requests so the session cookies are
// sent cross-origin. It returns nil when no origin is configured.
func corsMiddleware(origins []string) *cors.Cors {
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		return nil
	}
	return cors.New(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           600,
	})
}
