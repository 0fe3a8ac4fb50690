package session

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/Obyedullah7/Advanced-Backend/pkg/apierr"
	"github.com/Obyedullah7/Advanced-Backend/pkg/utilities"
)

// Handler exposes refresh and logout.
type Handler struct {
	mgr     *Manager
	cookies CookieWriter
	logger  *zap.SugaredLogger
}

func NewHandler(mgr *Manager, cookies CookieWriter, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{mgr: mgr, cookies: cookies, logger: logger}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshAccessToken rotates the presented refresh token. A rejected token
// also clears the client's cookies.
func (h *Handler) RefreshAccessToken(w http.ResponseWriter, r *http.Request) {
	pair, err := h.mgr.ValidateAndRotate(r.Context(), refreshToken(r))
	if err != nil {
		if apierr.From(err).Status == http.StatusUnauthorized {
			h.cookies.Clear(w)
		}
		utilities.WriteError(w, h.logger, err)
		return
	}
	h.cookies.Set(w, pair)
	utilities.WriteJSON(w, http.StatusOK, pair, "Access token refreshed")
}

// Logout revokes the caller's refresh token. Requires RequireAuth.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := ProfileFromContext(r.Context())
	if !ok {
		utilities.WriteError(w, h.logger, apierr.Unauthorized("unauthorized request", nil))
		return
	}
	if err := h.mgr.Revoke(r.Context(), p.ID); err != nil {
		utilities.WriteError(w, h.logger, err)
		return
	}
	h.cookies.Clear(w)
	h.logger.Infow("user logged out", "user_id", p.ID)
	utilities.WriteJSON(w, http.StatusOK, struct{}{}, "User logged out successfully")
}

func refreshToken(r *http.Request) string {
	if c, err := r.Cookie(RefreshCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if r.Body == nil {
		return ""
	}
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ""
	}
	return req.RefreshToken
}
