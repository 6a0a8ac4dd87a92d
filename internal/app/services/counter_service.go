package services

import (
	"context"
	"fmt"

	"github.com/campusops/erp/internal/app/repositories"
)

// CounterService hands out per-key sequence numbers
type CounterService struct {
	tx repositories.Transactor
}

// NewCounterService creates a new CounterService
func NewCounterService(tx repositories.Transactor) *CounterService {
	return &CounterService{tx: tx}
}

// NextSequence increments the counter of key in its own serializable transaction and
// returns the new value. Two callers never receive the same value for a key.
func (s *CounterService) NextSequence(ctx context.Context, key string) (int64, error) {
	var seq int64
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		n, err := repos.Counters.Next(ctx, key)
		if err != nil {
			return err
		}
		seq = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence for %s: %w", key, err)
	}
	return seq, nil
}
