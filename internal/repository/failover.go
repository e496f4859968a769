package repository

import (
	"context"
	"sync/atomic"
	"time"

	"barbershop/internal/domain"
	"barbershop/internal/models"

	"github.com/rs/zerolog"
)

const defaultRecoveryInterval = time.Minute

// FailoverSessionRepository uses redis while it answers and the in-process
// store otherwise. Revocations are always written to the in-process store as
// well, and a lookup that the primary does not report as revoked is checked
// against them, so a primary that lost them cannot revive a signed-out token.
type FailoverSessionRepository struct {
	primary          domain.SessionRepository
	fallback         domain.SessionRepository
	logger           *zerolog.Logger
	recoveryInterval time.Duration
	isDown           atomic.Bool
	lastCheck        atomic.Int64
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:          primary,
		fallback:         fallback,
		logger:           logger,
		recoveryInterval: defaultRecoveryInterval,
	}
}

// WithRecoveryInterval sets how long the primary is skipped after a failure.
func (r *FailoverSessionRepository) WithRecoveryInterval(d time.Duration) *FailoverSessionRepository {
	r.recoveryInterval = d
	return r
}

func (r *FailoverSessionRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary session repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

// usePrimary reports whether the primary should be tried for this call.
func (r *FailoverSessionRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > r.recoveryInterval
}

func (r *FailoverSessionRepository) recovered() {
	if r.isDown.CompareAndSwap(true, false) {
		r.logger.Info().Msg("Primary session repository recovered")
	}
}

func (r *FailoverSessionRepository) GetSession(ctx context.Context, key string) (*models.SessionState, error) {
	if r.usePrimary() {
		state, err := r.primary.GetSession(ctx, key)
		if err == nil {
			r.recovered()
			if state == nil || !state.Revoked {
				if local := r.localRevocation(ctx, key); local != nil {
					return local, nil
				}
			}
			return state, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetSession(ctx, key)
}

func (r *FailoverSessionRepository) localRevocation(ctx context.Context, key string) *models.SessionState {
	state, err := r.fallback.GetSession(ctx, key)
	if err != nil || state == nil || !state.Revoked {
		return nil
	}
	return state
}

func (r *FailoverSessionRepository) SetSession(ctx context.Context, key string, state *models.SessionState, ttl time.Duration) error {
	revoked := state != nil && state.Revoked
	if revoked {
		if err := r.fallback.SetSession(ctx, key, state, ttl); err != nil {
			return err
		}
	}
	if r.usePrimary() {
		err := r.primary.SetSession(ctx, key, state, ttl)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	if revoked {
		return nil
	}
	return r.fallback.SetSession(ctx, key, state, ttl)
}

func (r *FailoverSessionRepository) ClearSession(ctx context.Context, key string) error {
	if r.usePrimary() {
		err := r.primary.ClearSession(ctx, key)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.ClearSession(ctx, key)
}

func (r *FailoverSessionRepository) CheckRateLimit(ctx context.Context, subject string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, subject, limit, window)
		if err == nil {
			r.recovered()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, subject, limit, window)
}
