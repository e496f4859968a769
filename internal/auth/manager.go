package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"barbershop/internal/domain"
	"barbershop/internal/models"
	"barbershop/internal/validation"

	"github.com/rs/zerolog"
)

const msgAlreadyRegistered = "This email is already registered. Please sign in instead."

var (
	ErrNoCredentials = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrSignedOut     = errors.New("session has been signed out")
	ErrRateLimited   = errors.New("booking submission rate limit exceeded")
)

// Session is the authenticated caller as seen by the core services.
type Session struct {
	UserID      string
	Email       string
	IsAdmin     bool
	BearerToken string
	ExpiresAt   time.Time
}

type Options struct {
	CacheTTL         time.Duration
	SubmissionLimit  int
	SubmissionWindow time.Duration
}

// Manager is the single owner of session resolution, refresh and invalidation.
type Manager struct {
	verifier *Verifier
	provider domain.IdentityProvider
	sessions domain.SessionRepository
	roles    domain.RoleRepository
	opts     Options
	logger   zerolog.Logger
	now      func() time.Time
}

func NewManager(
	verifier *Verifier,
	provider domain.IdentityProvider,
	sessions domain.SessionRepository,
	roles domain.RoleRepository,
	opts Options,
	logger *zerolog.Logger,
) *Manager {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Duration(models.DefaultSessionCacheTTL) * time.Second
	}
	if opts.SubmissionLimit <= 0 {
		opts.SubmissionLimit = models.SubmissionRateLimit
	}
	if opts.SubmissionWindow <= 0 {
		opts.SubmissionWindow = time.Duration(models.SubmissionRateWindow) * time.Second
	}
	return &Manager{
		verifier: verifier,
		provider: provider,
		sessions: sessions,
		roles:    roles,
		opts:     opts,
		logger:   logger.With().Str("component", "auth").Logger(),
		now:      time.Now,
	}
}

// TokenKey is the cache key for an access token. Raw tokens are never stored.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// BearerFromHeader extracts the token from an Authorization header value.
func BearerFromHeader(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// Resolve turns a bearer token into a Session. The admin flag is looked up
// on every call.
func (m *Manager) Resolve(ctx context.Context, bearer string) (*Session, error) {
	if bearer == "" {
		return nil, ErrNoCredentials
	}
	key := TokenKey(bearer)

	state, err := m.sessions.GetSession(ctx, key)
	if err != nil {
		m.logger.Warn().Err(err).Msg("session cache lookup failed")
		state = nil
	}
	if state != nil && state.Revoked {
		return nil, ErrSignedOut
	}
	if state == nil || state.Expired(m.now()) {
		state, err = m.verify(ctx, bearer, key)
		if err != nil {
			return nil, err
		}
	}

	sess := &Session{
		UserID:      state.UserID,
		Email:       state.Email,
		BearerToken: bearer,
		ExpiresAt:   state.ExpiresAt,
	}
	isAdmin, err := m.roles.HasRole(ctx, sess.UserID, models.RoleAdmin)
	if err != nil {
		m.logger.Error().Err(err).Str("user_id", sess.UserID).Msg("role lookup failed")
	}
	sess.IsAdmin = isAdmin && err == nil
	return sess, nil
}

func (m *Manager) verify(ctx context.Context, bearer, key string) (*models.SessionState, error) {
	claims, err := m.verifier.Verify(bearer)
	if err != nil {
		m.logger.Debug().Err(err).Msg("token rejected")
		return nil, ErrInvalidToken
	}

	state := &models.SessionState{
		TokenID: key,
		UserID:  claims.Subject,
		Email:   claims.Email,
	}
	if claims.ExpiresAt != nil {
		state.ExpiresAt = claims.ExpiresAt.Time
	}

	ttl := m.opts.CacheTTL
	if remaining := state.ExpiresAt.Sub(m.now()); remaining < ttl {
		ttl = remaining
	}
	if ttl > 0 {
		if err := m.sessions.SetSession(ctx, key, state, ttl); err != nil {
			m.logger.Warn().Err(err).Msg("failed to cache session")
		}
	}
	return state, nil
}

func (m *Manager) SignIn(ctx context.Context, form validation.SignInForm) (*models.AuthTokens, error) {
	form, err := validation.ValidateSignIn(form)
	if err != nil {
		return nil, err
	}
	tokens, err := m.provider.SignIn(ctx, form.Email, form.Password)
	if err != nil {
		return nil, m.providerFailure("sign in", err)
	}
	return tokens, nil
}

func (m *Manager) SignUp(ctx context.Context, form validation.SignUpForm) (*models.AuthTokens, error) {
	form, err := validation.ValidateSignUp(form)
	if err != nil {
		return nil, err
	}
	tokens, err := m.provider.SignUp(ctx, form.Email, form.Password, form.FullName)
	if err != nil {
		return nil, m.providerFailure("sign up", err)
	}
	return tokens, nil
}

func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, &validation.ValidationError{Field: "refresh_token", Message: "Please fill in all fields"}
	}
	tokens, err := m.provider.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, m.providerFailure("refresh", err)
	}
	return tokens, nil
}

// Invalidate signs the token out at the provider and remembers the
// revocation locally until the token would have expired anyway.
func (m *Manager) Invalidate(ctx context.Context, bearer string) error {
	if bearer == "" {
		return ErrNoCredentials
	}
	claims, err := m.verifier.Verify(bearer)
	if err != nil {
		return ErrInvalidToken
	}

	if err := m.provider.SignOut(ctx, bearer); err != nil {
		m.logger.Warn().Err(err).Str("user_id", claims.Subject).Msg("provider sign out failed")
	}

	ttl := m.opts.CacheTTL
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(m.now())
	}
	if ttl <= 0 {
		return nil
	}
	key := TokenKey(bearer)
	state := &models.SessionState{TokenID: key, UserID: claims.Subject, Email: claims.Email, Revoked: true}
	if err := m.sessions.SetSession(ctx, key, state, ttl); err != nil {
		return fmt.Errorf("failed to record sign out: %w", err)
	}
	return nil
}

// CheckRateLimit applies the per-user booking submission limit.
func (m *Manager) CheckRateLimit(ctx context.Context, userID string) error {
	allowed, err := m.sessions.CheckRateLimit(ctx, userID, m.opts.SubmissionLimit, m.opts.SubmissionWindow)
	if err != nil {
		m.logger.Warn().Err(err).Str("user_id", userID).Msg("rate limit check failed")
		return nil
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}

func (m *Manager) providerFailure(op string, err error) error {
	var perr *ProviderError
	if errors.As(err, &perr) {
		if strings.Contains(strings.ToLower(perr.Message), "already registered") {
			return &ProviderError{Status: perr.Status, Message: msgAlreadyRegistered}
		}
		return perr
	}
	m.logger.Error().Err(err).Str("op", op).Msg("identity provider unreachable")
	return &ProviderError{Status: http.StatusBadGateway, Message: "Authentication service is unavailable. Please try again."}
}
