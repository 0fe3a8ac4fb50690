package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Obyedullah7/Advanced-Backend/internal/user/entity"
	"github.com/Obyedullah7/Advanced-Backend/internal/user/repo"
)

// memStore is an in-memory IdentityStore.
type memStore struct {
	mu    sync.Mutex
	users map[string]*entity.User
	err   error
}

func newMemStore(users ...*entity.User) *memStore {
	s := &memStore{users: map[string]*entity.User{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memStore) GetByID(_ context.Context, id string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) GetProfileByID(ctx context.Context, id string) (*entity.Profile, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Profile(), nil
}

func (s *memStore) SetRefreshToken(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.RefreshToken = &token
	return nil
}

func (s *memStore) SwapRefreshToken(_ context.Context, id, old, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.StoredRefreshToken() != old {
		return false, nil
	}
	u.RefreshToken = &token
	return true, nil
}

func (s *memStore) ClearRefreshToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.RefreshToken = nil
	}
	return nil
}

func (s *memStore) stored(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id].StoredRefreshToken()
}

type plainVerifier struct{}

func (plainVerifier) Verify(hash, password string) bool { return hash == "hashed:"+password }

func testConfig() Config {
	return Config{
		AccessSecret:  "access-secret",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    time.Hour,
		CookieSecure:  true,
	}
}

func testUser() *entity.User {
	return &entity.User{
		ID:           "u1",
		Username:     "alice",
		Email:        "alice@example.com",
		FullName:     "Alice A",
		PasswordHash: "hashed:secret",
	}
}

func newTestManager(t *testing.T, store IdentityStore, opts ...Option) *Manager {
	t.Helper()
	return NewManager(store, NewSigner(testConfig()), plainVerifier{}, zap.NewNop().Sugar(), opts...)
}
