package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/repositories"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/identity"
	"github.com/rs/zerolog"
)

// ReconcilerConfig tunes the saga reconciler
type ReconcilerConfig struct {
	Interval time.Duration
	// Grace is how long a saga may stay PENDING before it counts as abandoned
	Grace     time.Duration
	BatchSize int
}

// SagaReconciler settles provisioning sagas abandoned by a crash or a failed
// compensation
type SagaReconciler struct {
	repos    *repositories.Repositories
	identity identity.Provider
	cfg      ReconcilerConfig
	now      Clock
	logger   zerolog.Logger
}

// NewSagaReconciler creates a new SagaReconciler
func NewSagaReconciler(repos *repositories.Repositories, provider identity.Provider, cfg ReconcilerConfig, logger zerolog.Logger) *SagaReconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Grace <= 0 {
		cfg.Grace = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &SagaReconciler{
		repos:    repos,
		identity: provider,
		cfg:      cfg,
		now:      utcNow,
		logger:   logger.With().Str("component", "saga-reconciler").Logger(),
	}
}

// Run reconciles on every tick until ctx is done
func (r *SagaReconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.cfg.Interval).Msg("Saga reconciler started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Saga reconciler stopped")
			return
		case <-ticker.C:
			if n, err := r.ReconcileOnce(ctx); err != nil {
				r.logger.Error().Err(err).Msg("Saga reconciliation failed")
			} else if n > 0 {
				r.logger.Info().Int("settled", n).Msg("Sagas reconciled")
			}
		}
	}
}

// ReconcileOnce settles one batch of stale PENDING sagas and returns how many left
// the PENDING state. A saga whose user record exists is COMPLETED; otherwise its
// identity is deleted and it is COMPENSATED.
func (r *SagaReconciler) ReconcileOnce(ctx context.Context) (int, error) {
	sagas, err := r.repos.Sagas.ListPending(ctx, r.now().Add(-r.cfg.Grace), r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending sagas: %w", err)
	}

	settled := 0
	for _, saga := range sagas {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		state, lastErr := r.settle(ctx, saga)
		if err := r.repos.Sagas.UpdateState(ctx, saga.ID, state, lastErr); err != nil {
			r.logger.Error().Err(err).Str("saga", saga.ID).Msg("Failed to update saga")
			continue
		}
		if state != models.SagaPending {
			settled++
		}
	}
	return settled, nil
}

func (r *SagaReconciler) settle(ctx context.Context, saga *models.ProvisioningSaga) (models.SagaState, string) {
	log := r.logger.With().Str("saga", saga.ID).Str("uid", saga.AuthUID).Logger()

	_, err := r.repos.Users.GetUserByUID(ctx, saga.AuthUID)
	switch {
	case err == nil:
		log.Info().Msg("User record exists, saga completed")
		return models.SagaCompleted, ""
	case !errors.Is(err, apperrors.ErrUserNotFound):
		log.Warn().Err(err).Msg("Failed to look up user record")
		return models.SagaPending, saga.LastError
	}

	if err := r.identity.DeleteUser(ctx, saga.AuthUID); err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		log.Warn().Err(err).Msg("Failed to delete orphaned identity")
		return models.SagaPending, err.Error()
	}
	log.Info().Msg("Orphaned identity removed, saga compensated")
	return models.SagaCompensated, saga.LastError
}
