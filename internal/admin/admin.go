// Package admin wraps the admin endpoints behind a local role check.
package admin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jefrnc/stratlab/internal/models"
)

// Backend is the admin part of the API client.
type Backend interface {
	AdminListUsers(ctx context.Context) ([]models.AdminUser, error)
	AdminDeleteUser(ctx context.Context, id int64) error
	AdminUserStrategies(ctx context.Context, id int64) ([]models.Strategy, error)
	AdminListStrategies(ctx context.Context) ([]models.Strategy, error)
	AdminListComparisons(ctx context.Context) ([]models.SavedComparison, error)
}

// Gate checks that the current session belongs to an admin.
type Gate interface {
	RequireAdmin() (models.User, error)
}

// Service runs admin operations once the gate lets them through.
type Service struct {
	backend Backend
	gate    Gate
	logger  *zap.Logger
}

// NewService creates an admin service.
func NewService(backend Backend, gate Gate, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, gate: gate, logger: logger}
}

func (s *Service) Users(ctx context.Context) ([]models.AdminUser, error) {
	if _, err := s.gate.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.backend.AdminListUsers(ctx)
}

// DeleteUser removes a user and everything they own. An admin cannot delete
// their own account from here.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	me, err := s.gate.RequireAdmin()
	if err != nil {
		return err
	}
	if me.ID == id {
		return fmt.Errorf("refusing to delete the logged-in admin (id %d)", id)
	}
	if err := s.backend.AdminDeleteUser(ctx, id); err != nil {
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id), zap.String("by", me.Email))
	return nil
}

func (s *Service) UserStrategies(ctx context.Context, id int64) ([]models.Strategy, error) {
	if _, err := s.gate.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.backend.AdminUserStrategies(ctx, id)
}

func (s *Service) Strategies(ctx context.Context) ([]models.Strategy, error) {
	if _, err := s.gate.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.backend.AdminListStrategies(ctx)
}

func (s *Service) Comparisons(ctx context.Context) ([]models.SavedComparison, error) {
	if _, err := s.gate.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.backend.AdminListComparisons(ctx)
}
