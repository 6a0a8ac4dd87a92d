package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/repositories"
	"github.com/campusops/erp/internal/app/services"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/rs/zerolog"
)

// AdminConfig describes the first administrator
type AdminConfig struct {
	Name        string
	Email       string
	DateOfBirth string
	Department  string
	Position    string
}

// CreateDefaultAdmin provisions the first administrator so that the other accounts can be
// registered through the API. It does nothing when no email is configured or the
// address is already registered.
func CreateDefaultAdmin(
	ctx context.Context,
	repos *repositories.Repositories,
	accounts *services.AccountService,
	cfg AdminConfig,
	lgr zerolog.Logger,
) error {
	if cfg.Email == "" {
		lgr.Debug().Msg("No seed admin configured, skipping")
		return nil
	}

	_, err := repos.Users.GetUserByEmail(ctx, cfg.Email)
	switch {
	case err == nil:
		lgr.Debug().Str("email", cfg.Email).Msg("Seed admin already exists")
		return nil
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return fmt.Errorf("failed to look up seed admin: %w", err)
	}

	resp, err := accounts.ProvisionStaff(ctx, &dto.CreateStaffRequest{
		Name:        cfg.Name,
		Email:       cfg.Email,
		DateOfBirth: cfg.DateOfBirth,
		Role:        models.RoleAdmin,
		Department:  cfg.Department,
		Position:    cfg.Position,
	})
	if errors.Is(err, apperrors.ErrAlreadyRegistered) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create seed admin: %w", err)
	}

	lgr.Info().Str("email", cfg.Email).Str("loginId", resp.LoginID).Msg("Seed admin created")
	return nil
}
