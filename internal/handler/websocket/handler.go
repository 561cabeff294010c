package websocket

import (
	"net/http"
	"strings"

	"sharemore/internal/hub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// defaultDisplayName 是未提供显示名时的占位显示名。
// 显示名允许重复，成员以连接为键，因此不需要唯一化。
const defaultDisplayName = "Anonymous"

// WebSocketHandler 负责处理 WebSocket 升级请求和客户端注册。
// 加入发生在升级时：URL 形如 /ws?room=ROOMID&name=Alice，
// 连接从此属于该房间，直到关闭。
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewWebSocketHandler 创建 WebSocketHandler 实例。
func NewWebSocketHandler(h *hub.Hub) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 允许所有来源连接 (生产环境应配置具体的允许来源)
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &WebSocketHandler{
		upgrader: upgrader,
		hub:      h,
	}
}

// HandleConnection 处理 GET /ws?room=<roomId>&name=<displayName>。
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	// 1. 校验房间 ID (任意非空不透明字符串)
	roomID := strings.TrimSpace(c.Query("room"))
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing room parameter"})
		return // 返回 HTTP 错误，因为此时还未升级到 WebSocket
	}

	// 2. 显示名缺省为占位名
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		name = defaultDisplayName
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "name": name})

	// 3. 升级 HTTP 连接到 WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 方法会自动发送 HTTP 错误响应，所以这里只需要记录日志
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	// 4. 创建 Client、注册到 Hub (回放 + 名册广播在 Join 内完成)、启动泵
	client := hub.NewClient(h.hub, conn, roomID, name)
	h.hub.Join(client)
	client.Run()
	// 一旦启动了 goroutine，这个函数就结束了；
	// 后续通信由 client 的 ReadPump 和 WritePump 处理。
}
