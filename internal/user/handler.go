package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/Obyedullah7/Advanced-Backend/internal/media"
	"github.com/Obyedullah7/Advanced-Backend/internal/session"
	"github.com/Obyedullah7/Advanced-Backend/internal/user/entity"
	"github.com/Obyedullah7/Advanced-Backend/pkg/apierr"
	"github.com/Obyedullah7/Advanced-Backend/pkg/utilities"
)

const (
	maxUploadMemory = 10 << 20
	// maxUploadBody bounds a whole multipart request, files included.
	maxUploadBody = 2*maxUploadMemory + 1<<20
)

// Handler exposes HTTP endpoints for account operations.
type Handler struct {
	svc       *UserService
	cookies   session.CookieWriter
	uploadDir string
	maxBody   int64
	logger    *zap.SugaredLogger
}

func NewHandler(svc *UserService, cookies session.CookieWriter, uploadDir string, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, cookies: cookies, uploadDir: uploadDir, maxBody: maxUploadBody, logger: logger}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		utilities.WriteError(w, h.logger, multipartError(err))
		return
	}
	avatar, err := h.saveUpload(r, "avatar")
	if err != nil {
		utilities.WriteError(w, h.logger, err)
		return
	}
	defer removeTemp(avatar)
	cover, err := h.saveUpload(r, "coverImage")
	if err != nil {
		utilities.WriteError(w, h.logger, err)
		return
	}
	defer removeTemp(cover)

	p, err := h.svc.Register(r.Context(), RegisterInput{
		FullName:   r.FormValue("fullName"),
		Username:   r.FormValue("username"),
		Email:      r.FormValue("email"),
		Password:   r.FormValue("password"),
		AvatarPath: avatar,
		CoverPath:  cover,
	})
	if err != nil {
		utilities.WriteError(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, p, "User registered successfully")
}

// LoginRequest login payload. Either Username or Email is enough.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		utilities.WriteError(w, h.logger, err)
		return
	}
	h.cookies.Set(w, &session.Pair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken})
	utilities.WriteJSON(w, http.StatusOK, res, "User logged in successfully")
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profile(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), p.ID, req.OldPassword, req.NewPassword); err != nil {
		utilities.WriteError(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, struct{}{}, "Password changed successfully")
}

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profile(w, r)
	if !ok {
		return
	}
	utilities.WriteJSON(w, http.StatusOK, p, "User fetched successfully")
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profile(w, r)
	if !ok {
		return
	}
	var req updateAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := h.svc.UpdateAccountDetails(r.Context(), p.ID, req.FullName, req.Email)
	if err != nil {
		utilities.WriteError(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, updated, "Account details updated successfully")
}

func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.svc.UpdateAvatar, "Avatar image updated successfully")
}

func (h *Handler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.svc.UpdateCoverImage, "Cover image updated successfully")
}

type imageUpdater func(ctx context.Context, id, localPath string) (*entity.Profile, error)

func (h *Handler) updateImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater, msg string) {
	p, ok := h.profile(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		utilities.WriteError(w, h.logger, multipartError(err))
		return
	}
	path, err := h.saveUpload(r, field)
	if err != nil {
		utilities.WriteError(w, h.logger, err)
		return
	}
	defer removeTemp(path)

	updated, err := update(r.Context(), p.ID, path)
	if err != nil {
		utilities.WriteError(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, updated, msg)
}

// saveUpload stores the named form file under uploadDir. A missing file
// yields "".
func (h *Handler) saveUpload(r *http.Request, field string) (string, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return "", nil
	}
	path, err := media.SaveTemp(h.uploadDir, r.MultipartForm.File[field][0])
	if err != nil {
		return "", apierr.Internal("could not store upload", err)
	}
	return path, nil
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) (*entity.Profile, bool) {
	p, ok := session.ProfileFromContext(r.Context())
	if !ok {
		utilities.WriteError(w, h.logger, apierr.Unauthorized("unauthorized request", nil))
	}
	return p, ok
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		utilities.WriteError(w, h.logger, apierr.BadRequest("invalid payload"))
		return false
	}
	return true
}

func multipartError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apierr.New(http.StatusRequestEntityTooLarge, apierr.KindBadRequest, "Upload is too large", err)
	}
	return apierr.BadRequest("invalid multipart form")
}

func removeTemp(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}
