package repository

import (
	"context"
	"time"

	"sharemore/internal/domain"
)

// StateRepository 定义了与房间共享状态相关的操作，由 Redis 实现。
// 房间状态独立于成员关系存在：最后一个成员离开后状态仍然保留，
// 由 TTL 负责让被遗弃的房间自然过期。
type StateRepository interface {
	// GetRoomState 获取指定房间当前的播放状态。
	// 房间从未设置过状态 (或已过期) 时返回 ErrNotFound。
	GetRoomState(ctx context.Context, roomID string) (domain.RoomState, error)

	// SetRoomState 无条件覆盖房间的播放状态，并刷新过期时间。
	SetRoomState(ctx context.Context, roomID string, state domain.RoomState, ttl time.Duration) error

	// GetRecentChat 获取房间最近的聊天记录 (最多 limit 条，按时间升序)。
	GetRecentChat(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)

	// PushChatMessage 将一条聊天消息追加到房间的滚动记录，
	// 只保留最近 limit 条，并刷新过期时间。
	PushChatMessage(ctx context.Context, roomID string, msg domain.ChatMessage, limit int, ttl time.Duration) error
}
