// Package mocks 提供 repository 接口的 testify Mock 实现，仅用于测试。
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"sharemore/internal/domain"
)

// StateRepository 是 repository.StateRepository 的 Mock 实现。
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) GetRoomState(ctx context.Context, roomID string) (domain.RoomState, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.RoomState), args.Error(1)
}

func (m *StateRepository) SetRoomState(ctx context.Context, roomID string, state domain.RoomState, ttl time.Duration) error {
	args := m.Called(ctx, roomID, state, ttl)
	return args.Error(0)
}

func (m *StateRepository) GetRecentChat(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChatMessage), args.Error(1)
}

func (m *StateRepository) PushChatMessage(ctx context.Context, roomID string, msg domain.ChatMessage, limit int, ttl time.Duration) error {
	args := m.Called(ctx, roomID, msg, limit, ttl)
	return args.Error(0)
}
