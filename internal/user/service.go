package user

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/Obyedullah7/Advanced-Backend/internal/media"
	"github.com/Obyedullah7/Advanced-Backend/internal/session"
	"github.com/Obyedullah7/Advanced-Backend/internal/user/entity"
	userrepo "github.com/Obyedullah7/Advanced-Backend/internal/user/repo"
	"github.com/Obyedullah7/Advanced-Backend/pkg/apierr"
	"github.com/Obyedullah7/Advanced-Backend/pkg/utilities"
)

// Store is the account data the service reads and writes.
type Store interface {
	Create(ctx context.Context, u *entity.User) error
	GetProfileByID(ctx context.Context, id string) (*entity.Profile, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	UpdateAccountDetails(ctx context.Context, id, fullName, email string) (*entity.Profile, error)
	UpdateAvatar(ctx context.Context, id, url string) (*entity.Profile, error)
	UpdateCoverImage(ctx context.Context, id, url string) (*entity.Profile, error)
}

var _ Store = (*userrepo.UserRepo)(nil)

// UserService orchestrates account lifecycle flows. Credentials are
// delegated to the session manager.
type UserService struct {
	repo     Store
	sessions *session.Manager
	hasher   PasswordHasher
	uploader media.Uploader
	logger   *zap.SugaredLogger
	newID    func() string
}

func NewUserService(r Store, sessions *session.Manager, hasher PasswordHasher, uploader media.Uploader, logger *zap.SugaredLogger) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &UserService{
		repo:     r,
		sessions: sessions,
		hasher:   hasher,
		uploader: uploader,
		logger:   logger,
		newID:    utilities.NewSnowflakeID,
	}
}

// RegisterInput carries a sign-up form. Paths point at already saved
// temporary files; CoverPath may be empty.
type RegisterInput struct {
	FullName   string
	Username   string
	Email      string
	Password   string
	AvatarPath string
	CoverPath  string
}

// Register creates an account after publishing its images.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entity.Profile, error) {
	for _, f := range []string{in.FullName, in.Username, in.Email, in.Password} {
		if strings.TrimSpace(f) == "" {
			return nil, apierr.BadRequest("All fields are required")
		}
	}
	username := normalize(in.Username)
	email := normalize(in.Email)

	_, err := s.repo.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		return nil, apierr.Conflict("User with email or username already exists", nil)
	case !errors.Is(err, userrepo.ErrNotFound):
		return nil, apierr.Internal("could not check existing user", err)
	}

	if in.AvatarPath == "" {
		return nil, apierr.BadRequest("Avatar file is required")
	}
	avatar, err := s.uploader.Upload(ctx, in.AvatarPath)
	if err != nil || avatar == nil {
		return nil, apierr.Internal("Error uploading avatar", err)
	}
	var coverURL string
	if cover, err := s.uploader.Upload(ctx, in.CoverPath); err != nil {
		s.logger.Warnw("cover image upload failed", "err", err)
	} else if cover != nil {
		coverURL = cover.URL
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apierr.Internal("could not hash password", err)
	}
	u := &entity.User{
		ID:           s.newID(),
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		Avatar:       avatar.URL,
		CoverImage:   coverURL,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrDuplicate) {
			return nil, apierr.Conflict("User with email or username already exists", err)
		}
		return nil, apierr.Internal("Something went wrong while registering the user", err)
	}
	s.logger.Infow("user registered", "user_id", u.ID, "username", u.Username)
	return u.Profile(), nil
}

// LoginResult is returned on successful login.
type LoginResult struct {
	User         *entity.Profile `json:"user"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

// Login authenticates by username or email and issues a fresh pair.
func (s *UserService) Login(ctx context.Context, username, email, password string) (*LoginResult, error) {
	username, email = normalize(username), normalize(email)
	if username == "" && email == "" {
		return nil, apierr.BadRequest("Username or email is required")
	}
	u, err := s.repo.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case errors.Is(err, userrepo.ErrNotFound):
		return nil, apierr.NotFound("User does not exist")
	case err != nil:
		return nil, apierr.Internal("could not load user", err)
	}

	ok, err := s.sessions.VerifyPassword(ctx, u.ID, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.Unauthorized("Invalid user credentials", nil)
	}
	pair, err := s.sessions.Issue(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("user logged in", "user_id", u.ID)
	return &LoginResult{User: u.Profile(), AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// ChangePassword replaces the password after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apierr.BadRequest("Old and new password are required")
	}
	ok, err := s.sessions.VerifyPassword(ctx, id, oldPassword)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.BadRequest("Invalid old password")
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apierr.Internal("could not hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return apierr.NotFound("User does not exist")
		}
		return apierr.Internal("could not update password", err)
	}
	return nil
}

func (s *UserService) UpdateAccountDetails(ctx context.Context, id, fullName, email string) (*entity.Profile, error) {
	fullName, email = strings.TrimSpace(fullName), normalize(email)
	if fullName == "" || email == "" {
		return nil, apierr.BadRequest("All fields are required")
	}
	p, err := s.repo.UpdateAccountDetails(ctx, id, fullName, email)
	switch {
	case errors.Is(err, userrepo.ErrDuplicate):
		return nil, apierr.Conflict("Email is already in use", err)
	case errors.Is(err, userrepo.ErrNotFound):
		return nil, apierr.NotFound("User does not exist")
	case err != nil:
		return nil, apierr.Internal("could not update account", err)
	}
	return p, nil
}

func (s *UserService) UpdateAvatar(ctx context.Context, id, localPath string) (*entity.Profile, error) {
	if localPath == "" {
		return nil, apierr.BadRequest("Avatar file is missing")
	}
	return s.replaceImage(ctx, id, localPath, "Error while uploading avatar", s.repo.UpdateAvatar)
}

func (s *UserService) UpdateCoverImage(ctx context.Context, id, localPath string) (*entity.Profile, error) {
	if localPath == "" {
		return nil, apierr.BadRequest("Cover image file is missing")
	}
	return s.replaceImage(ctx, id, localPath, "Error while uploading cover image", s.repo.UpdateCoverImage)
}

func (s *UserService) replaceImage(ctx context.Context, id, localPath, failMsg string,
	store func(ctx context.Context, id, url string) (*entity.Profile, error)) (*entity.Profile, error) {
	asset, err := s.uploader.Upload(ctx, localPath)
	if err != nil || asset == nil || asset.URL == "" {
		return nil, apierr.Internal(failMsg, err)
	}
	p, err := store(ctx, id, asset.URL)
	switch {
	case errors.Is(err, userrepo.ErrNotFound):
		return nil, apierr.NotFound("User does not exist")
	case err != nil:
		return nil, apierr.Internal(failMsg, err)
	}
	return p, nil
}

// normalize is applied to usernames and emails; both are stored lowercased.
func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
