package hub

import (
	"sort"
	"sync"
)

// room 保存一个房间的成员簿记。
// 房间在第一个成员加入时惰性创建，在最后一个成员离开时从 Hub 中移除；
// 播放状态和聊天记录不在这里——它们随 Redis 中的房间状态存续。
type room struct {
	id string

	// mu 串行化该房间的所有变更操作 (加入/离开/改名/状态/聊天)，
	// 包括变更后的扇出入队，保证每个成员看到同一事件总序。
	// 不同房间各持各的锁，互不串行。
	mu      sync.Mutex
	members map[*Client]string // 连接 -> 显示名
	closed  bool               // 已从 Hub 的房间表移除，不得再加入成员
}

func newRoom(id string) *room {
	return &room{
		id:      id,
		members: make(map[*Client]string),
	}
}

// roster 返回当前成员显示名的排序副本。调用方必须持有 r.mu。
func (r *room) roster() []string {
	names := make([]string, 0, len(r.members))
	for _, name := range r.members {
		names = append(names, name)
	}
	sort.Strings(names) // 固定顺序，方便客户端 diff 和测试断言
	return names
}
