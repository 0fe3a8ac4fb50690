package session

import (
	"context"
	"crypto/subtle"
	"errors"

	"go.uber.org/zap"

	"github.com/Obyedullah7/Advanced-Backend/internal/user/entity"
	"github.com/Obyedullah7/Advanced-Backend/internal/user/repo"
	"github.com/Obyedullah7/Advanced-Backend/pkg/apierr"
)

// IdentityStore is the part of the user store the manager needs.
// Lookups return repo.ErrNotFound for unknown identities.
type IdentityStore interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetProfileByID(ctx context.Context, id string) (*entity.Profile, error)
	SetRefreshToken(ctx context.Context, id, token string) error
	SwapRefreshToken(ctx context.Context, id, old, token string) (bool, error)
	ClearRefreshToken(ctx context.Context, id string) error
}

type PasswordVerifier interface {
	Verify(hash, password string) bool
}

// Pair is the result of every issuance. Both halves are produced and
// persisted together.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Manager issues, rotates and revokes credential pairs. The identity record
// holds exactly one refresh token: the one issued last.
type Manager struct {
	store     IdentityStore
	signer    *Signer
	passwords PasswordVerifier
	strict    bool
	logger    *zap.SugaredLogger
}

type Option func(*Manager)

// WithStrictRotation enables compare-and-swap rotation.
func WithStrictRotation(on bool) Option {
	return func(m *Manager) { m.strict = on }
}

func NewManager(store IdentityStore, signer *Signer, passwords PasswordVerifier, logger *zap.SugaredLogger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	m := &Manager{store: store, signer: signer, passwords: passwords, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue signs a fresh pair for identityID and stores its refresh token.
// Every failure is reported as the same internal error.
func (m *Manager) Issue(ctx context.Context, identityID string) (*Pair, error) {
	u, err := m.store.GetByID(ctx, identityID)
	if err != nil {
		return nil, m.issueFailed(identityID, err)
	}
	pair, err := m.sign(u)
	if err != nil {
		return nil, m.issueFailed(identityID, err)
	}
	if err := m.store.SetRefreshToken(ctx, u.ID, pair.RefreshToken); err != nil {
		return nil, m.issueFailed(identityID, err)
	}
	issuedTotal.Inc()
	return pair, nil
}

func (m *Manager) sign(u *entity.User) (*Pair, error) {
	access, err := m.signer.SignAccess(u)
	if err != nil {
		return nil, err
	}
	refresh, err := m.signer.SignRefresh(u.ID)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *Manager) issueFailed(identityID string, err error) error {
	m.logger.Errorw("token issuance failed", "user_id", identityID, "err", err)
	return apierr.Internal("Error generating tokens", err)
}

// ValidateAndRotate exchanges a refresh token for a new pair. The presented
// token must verify and must equal the one stored on its identity; after a
// successful call it is no longer accepted.
func (m *Manager) ValidateAndRotate(ctx context.Context, presented string) (*Pair, error) {
	if presented == "" {
		rotationsTotal.WithLabelValues(outcomeMissing).Inc()
		return nil, apierr.Unauthorized("unauthorized request", nil)
	}

	claims, err := m.signer.VerifyRefresh(presented)
	if err != nil {
		msg := "invalid or expired refresh token"
		outcome := outcomeInvalid
		if errors.Is(err, ErrTokenExpired) {
			msg += ": " + ErrTokenExpired.Error()
			outcome = outcomeExpired
		}
		rotationsTotal.WithLabelValues(outcome).Inc()
		return nil, apierr.Unauthorized(msg, err)
	}

	u, err := m.store.GetByID(ctx, claims.Subject)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		rotationsTotal.WithLabelValues(outcomeUnknownIdentity).Inc()
		return nil, apierr.Unauthorized("invalid refresh token", err)
	case err != nil:
		rotationsTotal.WithLabelValues(outcomeError).Inc()
		return nil, apierr.Internal("could not validate refresh token", err)
	}

	if !sameToken(presented, u.StoredRefreshToken()) {
		rotationsTotal.WithLabelValues(outcomeReuse).Inc()
		m.logger.Warnw("refresh token reuse detected", "user_id", u.ID)
		return nil, apierr.TokenReuse("refresh token expired or used")
	}

	var pair *Pair
	if m.strict {
		pair, err = m.swap(ctx, u, presented)
	} else {
		pair, err = m.Issue(ctx, u.ID)
	}
	if err != nil {
		if !apierr.IsKind(err, apierr.KindTokenReuse) {
			rotationsTotal.WithLabelValues(outcomeError).Inc()
		}
		return nil, err
	}
	rotationsTotal.WithLabelValues(outcomeRotated).Inc()
	return pair, nil
}

// swap stores the new refresh token only if presented is still current.
func (m *Manager) swap(ctx context.Context, u *entity.User, presented string) (*Pair, error) {
	pair, err := m.sign(u)
	if err != nil {
		return nil, m.issueFailed(u.ID, err)
	}
	ok, err := m.store.SwapRefreshToken(ctx, u.ID, presented, pair.RefreshToken)
	if err != nil {
		return nil, m.issueFailed(u.ID, err)
	}
	if !ok {
		rotationsTotal.WithLabelValues(outcomeReuse).Inc()
		m.logger.Warnw("concurrent refresh token rotation lost", "user_id", u.ID)
		return nil, apierr.TokenReuse("refresh token expired or used")
	}
	issuedTotal.Inc()
	return pair, nil
}

// Revoke clears the stored refresh token. Revoking twice is not an error.
func (m *Manager) Revoke(ctx context.Context, identityID string) error {
	if err := m.store.ClearRefreshToken(ctx, identityID); err != nil {
		return apierr.Internal("Error logging out", err)
	}
	revocationsTotal.Inc()
	return nil
}

// VerifyPassword reports whether candidate matches the identity's password.
// A mismatch is not an error.
func (m *Manager) VerifyPassword(ctx context.Context, identityID, candidate string) (bool, error) {
	u, err := m.store.GetByID(ctx, identityID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return false, apierr.NotFound("User does not exist")
	case err != nil:
		return false, apierr.Internal("could not load user", err)
	}
	return m.passwords.Verify(u.PasswordHash, candidate), nil
}

// VerifyAccess resolves an access token to the profile of its identity.
func (m *Manager) VerifyAccess(ctx context.Context, token string) (*entity.Profile, error) {
	if token == "" {
		return nil, apierr.Unauthorized("unauthorized request", nil)
	}
	claims, err := m.signer.VerifyAccess(token)
	if err != nil {
		return nil, apierr.Unauthorized("invalid access token", err)
	}
	p, err := m.store.GetProfileByID(ctx, claims.Subject)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil, apierr.Unauthorized("invalid access token", err)
	case err != nil:
		return nil, apierr.Internal("could not load user", err)
	}
	return p, nil
}

func sameToken(a, b string) bool {
	if b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
