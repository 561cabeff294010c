package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"sharemore/internal/domain"
)

// TransferRepository 是 repository.TransferRepository 的 Mock 实现。
type TransferRepository struct {
	mock.Mock
}

func (m *TransferRepository) Save(ctx context.Context, entry *domain.TransferEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *TransferRepository) Remove(ctx context.Context, code string) (*domain.TransferEntry, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransferEntry), args.Error(1)
}

func (m *TransferRepository) Exists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *TransferRepository) DeleteExpired(ctx context.Context, olderThan time.Time) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}
