package user

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Obyedullah7/Advanced-Backend/internal/media"
	"github.com/Obyedullah7/Advanced-Backend/internal/session"
	"github.com/Obyedullah7/Advanced-Backend/internal/user/entity"
)

// mockStore satisfies both Store and session.IdentityStore.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Create(ctx context.Context, u *entity.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockStore) GetByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *mockStore) GetProfileByID(ctx context.Context, id string) (*entity.Profile, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*entity.Profile)
	return p, args.Error(1)
}

func (m *mockStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error) {
	args := m.Called(ctx, username, email)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *mockStore) SetRefreshToken(ctx context.Context, id, token string) error {
	return m.Called(ctx, id, token).Error(0)
}

func (m *mockStore) SwapRefreshToken(ctx context.Context, id, old, token string) (bool, error) {
	args := m.Called(ctx, id, old, token)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) ClearRefreshToken(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) UpdatePassword(ctx context.Context, id, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *mockStore) UpdateAccountDetails(ctx context.Context, id, fullName, email string) (*entity.Profile, error) {
	args := m.Called(ctx, id, fullName, email)
	p, _ := args.Get(0).(*entity.Profile)
	return p, args.Error(1)
}

func (m *mockStore) UpdateAvatar(ctx context.Context, id, url string) (*entity.Profile, error) {
	args := m.Called(ctx, id, url)
	p, _ := args.Get(0).(*entity.Profile)
	return p, args.Error(1)
}

func (m *mockStore) UpdateCoverImage(ctx context.Context, id, url string) (*entity.Profile, error) {
	args := m.Called(ctx, id, url)
	p, _ := args.Get(0).(*entity.Profile)
	return p, args.Error(1)
}

// fakeUploader publishes to an imaginary CDN.
type fakeUploader struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, localPath string) (*media.Asset, error) {
	if localPath == "" {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, localPath)
	if f.err != nil {
		return nil, f.err
	}
	key := "images/" + filepath.Base(localPath)
	return &media.Asset{Key: key, URL: "https://cdn.example.com/" + key}, nil
}

var fastHasher = BcryptHasher{Cost: bcrypt.MinCost}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := fastHasher.Hash(pw)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func sessionConfig() session.Config {
	return session.Config{
		AccessSecret:  "access",
		AccessTTL:     time.Minute,
		RefreshSecret: "refresh",
		RefreshTTL:    time.Hour,
		CookieSecure:  true,
	}
}

func newTestService(store *mockStore, up media.Uploader) *UserService {
	log := zap.NewNop().Sugar()
	mgr := session.NewManager(store, session.NewSigner(sessionConfig()), fastHasher, log)
	svc := NewUserService(store, mgr, fastHasher, up, log)
	svc.newID = func() string { return "1001" }
	return svc
}

func existingUser(t *testing.T) *entity.User {
	return &entity.User{
		ID:           "1001",
		Username:     "alice",
		Email:        "alice@example.com",
		FullName:     "Alice A",
		Avatar:       "https://cdn.example.com/a.png",
		PasswordHash: mustHash(t, "secret"),
	}
}
