package service

import (
	"context"
	"errors"
	"time"

	"sharemore/internal/domain"
	"sharemore/internal/repository"

	"github.com/sirupsen/logrus"
)

// RoomStateService 负责房间共享状态 (播放状态 + 聊天记录) 的业务逻辑。
// 成员关系不在这里：Hub 独占成员簿记，本服务只管理随房间存续的状态。
type RoomStateService struct {
	stateRepo repository.StateRepository
	stateTTL  time.Duration // 房间状态在最后一次写入后的保留时间
	chatLimit int           // 滚动保留的聊天条数
}

// NewRoomStateService 创建 RoomStateService 实例。
func NewRoomStateService(stateRepo repository.StateRepository, stateTTL time.Duration, chatLimit int) *RoomStateService {
	if stateRepo == nil {
		panic("StateRepository cannot be nil for RoomStateService")
	}
	if stateTTL <= 0 {
		stateTTL = 24 * time.Hour
	}
	if chatLimit <= 0 {
		chatLimit = 100
	}
	return &RoomStateService{
		stateRepo: stateRepo,
		stateTTL:  stateTTL,
		chatLimit: chatLimit,
	}
}

// Replay 组装发送给新加入成员的回放数据：
// 最后一次写入的播放状态 (从未设置过则为 nil) 和最近的聊天记录。
func (s *RoomStateService) Replay(ctx context.Context, roomID string) (domain.RoomState, []domain.ChatMessage, error) {
	logCtx := logrus.WithField("room_id", roomID)

	state, err := s.stateRepo.GetRoomState(ctx, roomID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logCtx.WithError(err).Error("Replay: failed to get room state")
			return nil, nil, ErrInternalServer
		}
		// 没有状态不是错误：加入一个全新房间就是这种情况
		state = nil
	}

	chat, err := s.stateRepo.GetRecentChat(ctx, roomID, s.chatLimit)
	if err != nil {
		logCtx.WithError(err).Error("Replay: failed to get recent chat")
		return nil, nil, ErrInternalServer
	}

	return state, chat, nil
}

// UpdateState 无条件覆盖房间的播放状态 (最后写入者获胜)。
// 房间记录不存在时会隐式创建——状态可以先于任何成员加入而存在。
func (s *RoomStateService) UpdateState(ctx context.Context, roomID string, state domain.RoomState) error {
	if err := s.stateRepo.SetRoomState(ctx, roomID, state, s.stateTTL); err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("UpdateState: failed to set room state")
		return ErrInternalServer
	}
	return nil
}

// AppendChat 将一条聊天消息追加到房间的滚动记录。
func (s *RoomStateService) AppendChat(ctx context.Context, roomID string, msg domain.ChatMessage) error {
	if err := s.stateRepo.PushChatMessage(ctx, roomID, msg, s.chatLimit, s.stateTTL); err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("AppendChat: failed to push chat message")
		return ErrInternalServer
	}
	return nil
}
