// Package domain 定义了应用程序中使用的核心数据结构。
package domain

import "encoding/json"

// RoomState 表示房间当前的共享播放状态 (最后写入者获胜，无版本合并)。
// 服务端把它当作不透明的 JSON 载荷透传：前端发什么 (url/play/pause/seek
// 及其字段) 就存什么、广播什么，服务端不解释其内容。
type RoomState = json.RawMessage

// ChatMessage 表示房间内的一条聊天消息。
// 每个房间只滚动保留最近若干条，供迟到的成员回放。
type ChatMessage struct {
	User      string  `json:"user"`      // 发送者当时的显示名
	Content   string  `json:"content"`   // 消息正文
	Timestamp float64 `json:"timestamp"` // 客户端提供的毫秒时间戳，服务端不校准
}
