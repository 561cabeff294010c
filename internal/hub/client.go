package hub

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// 客户端到服务端的事件类型，信封与 WatchParty 前端的协议对应
const (
	eventInVideo   = "video_event"  // 播放状态事件，data 为不透明载荷
	eventInChat    = "chat_message" // 聊天消息
	eventInSetName = "set_name"     // 修改显示名
	eventInLeave   = "leave_room"   // 显式离开，连接随之关闭
)

// inboundEvent 是客户端到服务端的统一事件信封。
// 各字段按事件类型选用，未用到的字段保持零值。
type inboundEvent struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`      // video_event 的载荷
	Name      string          `json:"name,omitempty"`      // set_name 的新显示名
	Content   string          `json:"content,omitempty"`   // chat_message 的正文
	Timestamp float64         `json:"timestamp,omitempty"` // chat_message 的时间戳
}

// Client 代表一个连接到 Hub 的 WebSocket 客户端。
// 一个连接从升级时起只属于一个房间，直到连接关闭。
type Client struct {
	hub    *Hub            // 指向其所属的 Hub
	conn   *websocket.Conn // WebSocket 连接
	roomID string          // 客户端所在的房间 ID
	name   string          // 加入时的显示名 (之后以 Hub 成员表为准)
	send   chan []byte     // 用于向此客户端发送消息的缓冲通道
}

// NewClient 创建一个新的 Client 实例。
func NewClient(hub *Hub, conn *websocket.Conn, roomID string, name string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		roomID: roomID,
		name:   name,
		send:   make(chan []byte, 256),
	}
}

// Run 启动客户端的读写 goroutine。
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump 从 WebSocket 连接读取事件并分发给 Hub 的对应操作。
// 它在自己的 goroutine 中运行；同一连接的事件因此天然有序。
func (c *Client) ReadPump() {
	defer func() {
		// 清理操作：把此连接从房间中移除 (重复调用无害)
		c.hub.Leave(c)
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"room_id": c.roomID, "name": c.name}).Info("ReadPump exited, client left room")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	// 设置初始读取超时和 Pong 处理程序
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait)) // 收到 Pong 后重置读取超时
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"room_id": c.roomID, "name": c.name})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed normally or read error")
			}
			break // 退出循环，触发 defer 中的清理
		}

		// 只处理文本消息
		if messageType != websocket.TextMessage {
			logrus.WithFields(logrus.Fields{"room_id": c.roomID, "name": c.name}).Debugf("Received non-text message type: %d", messageType)
			continue
		}

		c.dispatch(message)
	}
}

// dispatch 解析事件信封并调用 Hub 的对应操作。
// 畸形或未知的事件只记录日志并丢弃，绝不让泵崩溃。
func (c *Client) dispatch(message []byte) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": c.roomID, "name": c.name})

	var ev inboundEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		logCtx.WithError(err).Warnf("Dropping malformed client event (size: %d)", len(message))
		return
	}

	switch ev.Type {
	case eventInVideo:
		if err := c.hub.SetState(c, ev.Data); err != nil {
			logCtx.WithError(err).Warn("Failed to apply video event")
		}
	case eventInChat:
		if err := c.hub.Message(c, ev.Content, ev.Timestamp); err != nil {
			logCtx.WithError(err).Warn("Failed to deliver chat message")
		}
	case eventInSetName:
		if err := c.hub.Rename(c, ev.Name); err != nil {
			logCtx.WithError(err).Warn("Failed to rename client")
		}
	case eventInLeave:
		// 显式离开：从房间移除后关闭连接，ReadPump 随之退出
		c.hub.Leave(c)
		c.conn.Close()
	default:
		logCtx.Warnf("Dropping client event with unknown type: %s", ev.Type)
	}
}

// WritePump 将消息从 Client 的 send 通道泵送到 WebSocket 连接。
// 它在自己的 goroutine 中运行。
func (c *Client) WritePump() {
	// 创建一个定时器，用于定期发送 Ping 消息
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"room_id": c.roomID, "name": c.name}).Info("WritePump exited")
		// 不需要在这里 Leave，ReadPump 退出会处理
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// send 通道被 Hub 关闭了 (通常在离开房间时)
				logrus.WithFields(logrus.Fields{"room_id": c.roomID, "name": c.name}).Info("Hub closed send channel")
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"room_id": c.roomID, "name": c.name}).WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			// 定时器触发，发送 Ping 消息以保持连接活跃并检测断开
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithFields(logrus.Fields{"room_id": c.roomID, "name": c.name}).WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}

func (c *Client) RoomID() string { return c.roomID }
func (c *Client) Name() string   { return c.name }
func (c *Client) CloseConn()     { c.conn.Close() }
