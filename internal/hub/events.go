package hub

import (
	"encoding/json"

	"sharemore/internal/domain"
)

// 服务端到客户端的事件类型
const (
	EventRoomState   = "room_state"   // 回放：仅发给新加入的连接
	EventUserJoined  = "user_joined"  // 成员变更广播 (加入)
	EventUserLeft    = "user_left"    // 成员变更广播 (离开)
	EventNameChanged = "name_changed" // 显示名变更广播
	EventVideo       = "video_event"  // 播放状态广播 (不含发起者)
	EventChat        = "chat_message" // 聊天广播 (含发送者)
	EventError       = "error"        // 仅发给出错的连接
)

// RoomStateEvent 是发给新加入连接的回放载荷：
// 房间最后一次写入的播放状态 (从未设置过则省略) 和最近的聊天记录。
type RoomStateEvent struct {
	Type  string               `json:"type"`
	State domain.RoomState     `json:"state,omitempty"`
	Chat  []domain.ChatMessage `json:"chat"`
}

// UserJoinedEvent 在有成员加入后广播给包括新成员在内的所有成员。
type UserJoinedEvent struct {
	Type  string   `json:"type"`
	User  string   `json:"user"`
	Users []string `json:"users"`
}

// UserLeftEvent 在有成员离开后广播给剩余成员。
type UserLeftEvent struct {
	Type  string   `json:"type"`
	User  string   `json:"user"`
	Users []string `json:"users"`
}

// NameChangedEvent 在成员改名后广播给所有成员。
type NameChangedEvent struct {
	Type    string   `json:"type"`
	OldName string   `json:"old_name"`
	NewName string   `json:"new_name"`
	Users   []string `json:"users"`
}

// VideoEvent 把发起者的播放事件原样转发给房间内的其他成员。
// Data 是不透明载荷 (url/play/pause/seek 及其字段)，服务端不解释。
type VideoEvent struct {
	Type string          `json:"type"`
	User string          `json:"user"`
	Data json.RawMessage `json:"data"`
}

// ChatMessageEvent 把聊天消息广播给包括发送者在内的所有成员。
type ChatMessageEvent struct {
	Type      string  `json:"type"`
	User      string  `json:"user"`
	Content   string  `json:"content"`
	Timestamp float64 `json:"timestamp"`
}

// ErrorEvent 仅发给出错的连接，不广播。
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
