package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// 导入 Redis 客户端库
	"github.com/go-redis/redis/v8"

	"sharemore/internal/domain"
	"sharemore/internal/repository"

	"github.com/sirupsen/logrus" // 用于日志记录
)

// RedisStateRepository 是 StateRepository 接口的 Redis 实现。
// 房间的播放状态和聊天记录都带 TTL：写入时刷新，
// 因此被遗弃的房间会在最后一次活动之后自然过期，无需清扫任务。
type RedisStateRepository struct {
	client *redis.Client // 依赖 Redis 客户端
	// Redis key 的前缀，方便多实例共用一个 Redis
	keyPrefix string
}

// NewRedisStateRepository 创建 RedisStateRepository 实例。
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "sm:" // 默认前缀 "sm:" (sharemore)
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// --- Key Generation Helpers ---

func (r *RedisStateRepository) roomStateKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:state", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) roomChatKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:chat", r.keyPrefix, roomID)
}

// --- StateRepository Interface Implementation ---

// GetRoomState 获取指定房间当前的播放状态。
// key 不存在 (从未设置或已过期) 时映射为 repository.ErrNotFound。
func (r *RedisStateRepository) GetRoomState(ctx context.Context, roomID string) (domain.RoomState, error) {
	key := r.roomStateKey(roomID)
	stateStr, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrRoomStateNotFound
		}
		return nil, fmt.Errorf("redis: failed to get room state for room %s from %s: %w", roomID, key, err)
	}
	return domain.RoomState(stateStr), nil
}

// SetRoomState 无条件覆盖房间的播放状态 (最后写入者获胜)，并刷新 TTL。
func (r *RedisStateRepository) SetRoomState(ctx context.Context, roomID string, state domain.RoomState, ttl time.Duration) error {
	key := r.roomStateKey(roomID)
	if err := r.client.Set(ctx, key, []byte(state), ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to set room state for room %s on key %s: %w", roomID, key, err)
	}
	return nil
}

// GetRecentChat 获取房间最近的聊天记录 (最多 limit 条，按时间升序)。
func (r *RedisStateRepository) GetRecentChat(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 100 // 默认获取 100 条
	}
	key := r.roomChatKey(roomID)
	msgStrs, err := r.client.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to get recent chat for room %s from %s: %w", roomID, key, err)
	}
	messages := make([]domain.ChatMessage, 0, len(msgStrs))
	for _, msgStr := range msgStrs {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(msgStr), &msg); err == nil {
			messages = append(messages, msg)
		} else {
			logrus.Warnf("redis: failed to unmarshal chat message for room %s: %v, data: %s", roomID, err, msgStr)
		}
	}
	return messages, nil
}

// PushChatMessage 将一条聊天消息追加到房间的滚动记录。
// 使用 Pipeline 执行 RPush + LTrim + Expire，保留最近 limit 条并刷新 TTL。
func (r *RedisStateRepository) PushChatMessage(ctx context.Context, roomID string, msg domain.ChatMessage, limit int, ttl time.Duration) error {
	if limit <= 0 {
		limit = 100
	}
	key := r.roomChatKey(roomID)
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal chat message for room %s: %w", roomID, err)
	}
	pipe := r.client.Pipeline()
	pipe.RPush(ctx, key, string(msgBytes))
	pipe.LTrim(ctx, key, int64(-limit), -1)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to push chat message for room %s on key %s: %w", roomID, key, err)
	}
	return nil
}
