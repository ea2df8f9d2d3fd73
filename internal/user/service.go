package user

import (
	"context"
	"fmt"

	"github.com/gianix81/payAnalyst/internal/payslip"
)

type Repository interface {
	ListAccounts(ctx context.Context) ([]User, error)
	GetByUID(ctx context.Context, uid string) (*User, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// List returns the registered accounts plus the employees found in archive.
func (s *Service) List(ctx context.Context, archive []payslip.Payslip) ([]User, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return Merge(accounts, FromPayslips(archive)), nil
}

func (s *Service) GetByUID(ctx context.Context, uid string) (*User, error) {
	u, err := s.repo.GetByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by uid: %w", err)
	}
	u.Source = SourceAccount
	return u, nil
}
