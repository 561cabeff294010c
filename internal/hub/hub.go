package hub

import (
	"context"
	"encoding/json" // 用于序列化广播事件
	"sync"
	"time"

	"sharemore/internal/domain"
	"sharemore/internal/service"

	"github.com/sirupsen/logrus"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096 // 聊天和播放事件都很小，4KB 足够
)

// Hub 独占房间成员簿记，并协调回放与广播。
//
// 并发模型：rooms 表由读写锁保护，只用于查找/创建/移除房间记录；
// 每个房间的全部变更 (包括向成员 send 通道的入队) 都在该房间自己的
// 互斥锁内完成，因此单个房间内的事件是全序的，不同房间完全并发。
// 向单个成员的投递是非阻塞的：慢客户端的消息被丢弃并记录警告，
// 不影响其他成员的投递。
type Hub struct {
	roomsMu sync.RWMutex
	rooms   map[string]*room

	// 注入的 Service，负责随房间存续的状态 (播放状态 + 聊天记录)
	stateService *service.RoomStateService
}

// NewHub 创建并返回一个新的 Hub 实例。
func NewHub(stateService *service.RoomStateService) *Hub {
	// 启动时检查依赖注入是否有效
	if stateService == nil {
		panic("RoomStateService cannot be nil for Hub")
	}
	return &Hub{
		rooms:        make(map[string]*room),
		stateService: stateService,
	}
}

// Join 将连接注册到其房间：惰性创建房间记录、写入成员表、
// 仅向新成员回放当前状态，然后向包括新成员在内的所有成员广播名册。
func (h *Hub) Join(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to join a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": client.RoomID(),
		"name":    client.Name(),
		"action":  "join",
	})

	for {
		r := h.getOrCreateRoom(client.RoomID())
		r.mu.Lock()
		if r.closed {
			// 房间在获取锁之前被并发的 Leave 移除了，重新创建
			r.mu.Unlock()
			continue
		}

		r.members[client] = client.Name()

		// 回放当前状态：仅发给新加入的连接
		state, chat, err := h.stateService.Replay(context.Background(), r.id)
		if err != nil {
			logCtx.WithError(err).Error("Failed to load replay state for joining client")
			h.deliver(r, client, mustMarshal(ErrorEvent{Type: EventError, Message: "Failed to load room state"}))
		} else {
			if chat == nil {
				chat = []domain.ChatMessage{}
			}
			h.deliver(r, client, mustMarshal(RoomStateEvent{Type: EventRoomState, State: state, Chat: chat}))
		}

		// 成员变更广播：包括新成员自己
		h.fanout(r, mustMarshal(UserJoinedEvent{
			Type:  EventUserJoined,
			User:  client.Name(),
			Users: r.roster(),
		}), nil)

		memberCount := len(r.members)
		r.mu.Unlock()
		logCtx.WithField("member_count", memberCount).Info("Client joined room")
		return
	}
}

// Leave 将连接从其房间移除并向剩余成员广播名册。
// 连接不是成员时为无操作 (不是错误)：断开清理和显式 leave_room
// 都会走到这里，第二次调用必须无害。
func (h *Hub) Leave(client *Client) {
	if client == nil {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": client.RoomID(),
		"action":  "leave",
	})

	r := h.getRoom(client.RoomID())
	if r == nil {
		return
	}

	r.mu.Lock()
	name, isMember := r.members[client]
	if !isMember {
		r.mu.Unlock()
		return
	}
	delete(r.members, client)

	// 关闭此客户端的 send 通道，这将导致其 WritePump 退出。
	// deliver 只在持有 r.mu 时对成员入队，从成员表移除后不会再有写入，
	// 也不会走到第二次 close (非成员的 Leave 在上面已经返回)。
	// 缓冲里未投递的事件仍可被 WritePump 读完。
	close(client.send)

	empty := len(r.members) == 0
	if !empty {
		h.fanout(r, mustMarshal(UserLeftEvent{
			Type:  EventUserLeft,
			User:  name,
			Users: r.roster(),
		}), nil)
	}
	r.mu.Unlock()

	if empty {
		// 成员簿记随房间清空而丢弃；播放状态留在 Redis 里等待 TTL，
		// 刷新页面的最后一个观众可以原样回到之前的进度。
		h.removeRoomIfEmpty(r)
		logCtx.WithField("name", name).Info("Last client left, room record discarded")
	} else {
		logCtx.WithField("name", name).Info("Client left room")
	}
}

// Rename 更新连接的显示名并向所有成员广播变更和新名册。
func (h *Hub) Rename(client *Client, newName string) error {
	if newName == "" {
		return nil // 空名视为无操作
	}
	r := h.getRoom(client.RoomID())
	if r == nil {
		return service.ErrRoomNotFound
	}

	r.mu.Lock()
	oldName, isMember := r.members[client]
	if !isMember {
		r.mu.Unlock()
		return service.ErrNotAMember
	}
	r.members[client] = newName

	h.fanout(r, mustMarshal(NameChangedEvent{
		Type:    EventNameChanged,
		OldName: oldName,
		NewName: newName,
		Users:   r.roster(),
	}), nil)
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"room_id":  client.RoomID(),
		"old_name": oldName,
		"new_name": newName,
	}).Info("Client renamed")
	return nil
}

// SetState 无条件覆盖房间的播放状态 (最后写入者获胜) 并广播给
// 除发起者以外的所有成员——发起者本地已经处于该状态，回显会造成抖动。
// 房间记录不存在时惰性创建：状态可以先于其他成员的加入而存在。
func (h *Hub) SetState(client *Client, payload json.RawMessage) error {
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": client.RoomID(),
		"action":  "set_state",
	})

	for {
		r := h.getOrCreateRoom(client.RoomID())
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			continue
		}

		// 持久化在房间锁内完成，保证 Redis 中的最终状态
		// 与成员看到的最后一条广播一致
		if err := h.stateService.UpdateState(context.Background(), r.id, domain.RoomState(payload)); err != nil {
			r.mu.Unlock()
			logCtx.WithError(err).Error("Failed to persist room state")
			return err
		}

		name := r.members[client] // 非成员时为空串，载荷照常转发
		h.fanout(r, mustMarshal(VideoEvent{
			Type: EventVideo,
			User: name,
			Data: payload,
		}), client)
		empty := len(r.members) == 0
		r.mu.Unlock()

		if empty {
			// 非成员写状态是合法的 (状态可以先于加入而存在，留在 Redis 里)，
			// 但惰性创建出的空房间记录不能等到下一次 Leave 才回收
			h.removeRoomIfEmpty(r)
		}

		logCtx.Debugf("Room state updated and broadcast (payload size: %d)", len(payload))
		return nil
	}
}

// Message 解析发送者的显示名并把聊天消息广播给包括发送者在内的
// 整个房间——与 SetState 不同，发送者通过同一条广播路径看到自己的消息。
func (h *Hub) Message(client *Client, content string, timestamp float64) error {
	r := h.getRoom(client.RoomID())
	if r == nil {
		return service.ErrNotAMember
	}

	r.mu.Lock()
	name, isMember := r.members[client]
	if !isMember {
		r.mu.Unlock()
		return service.ErrNotAMember
	}

	msg := domain.ChatMessage{User: name, Content: content, Timestamp: timestamp}
	// 转写失败不阻止广播：实时投递优先于记录回放
	if err := h.stateService.AppendChat(context.Background(), r.id, msg); err != nil {
		logrus.WithError(err).WithField("room_id", r.id).Warn("Failed to append chat message to history")
	}

	h.fanout(r, mustMarshal(ChatMessageEvent{
		Type:      EventChat,
		User:      name,
		Content:   content,
		Timestamp: timestamp,
	}), nil)
	r.mu.Unlock()
	return nil
}

// --- 私有辅助方法 ---

// getRoom 返回指定房间的记录，不存在时返回 nil。
func (h *Hub) getRoom(roomID string) *room {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return h.rooms[roomID]
}

// getOrCreateRoom 返回指定房间的记录，不存在时创建。
func (h *Hub) getOrCreateRoom(roomID string) *room {
	h.roomsMu.RLock()
	r, ok := h.rooms[roomID]
	h.roomsMu.RUnlock()
	if ok {
		return r
	}

	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	if r, ok := h.rooms[roomID]; ok {
		return r
	}
	r = newRoom(roomID)
	h.rooms[roomID] = r
	logrus.WithField("room_id", roomID).Info("Room record created")
	return r
}

// removeRoomIfEmpty 在房间确实为空时把它从房间表移除。
// 锁顺序固定为 roomsMu -> room.mu，与所有其他路径一致。
func (h *Hub) removeRoomIfEmpty(r *room) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) == 0 && h.rooms[r.id] == r {
		delete(h.rooms, r.id)
		r.closed = true
	}
}

// fanout 将消息入队给房间的所有成员，排除 exclude (可为 nil)。
// 调用方必须持有 r.mu。
func (h *Hub) fanout(r *room, message []byte, exclude *Client) {
	if message == nil {
		return
	}
	for client := range r.members {
		if client == exclude {
			continue
		}
		h.deliver(r, client, message)
	}
}

// deliver 将消息非阻塞地入队给单个成员。
// 通道已满说明客户端写出太慢，丢弃该消息并记录警告，
// 后续的断开处理交给该客户端自己的 WritePump。
func (h *Hub) deliver(r *room, client *Client, message []byte) {
	if message == nil {
		return
	}
	select {
	case client.send <- message:
	default:
		logrus.WithFields(logrus.Fields{
			"room_id": r.id,
			"name":    r.members[client],
		}).Warn("Client send channel full, dropping message")
	}
}

// mustMarshal 序列化事件；失败时记录错误并返回 nil (调用方跳过投递)。
func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to marshal hub event %T", v)
		return nil
	}
	return data
}
