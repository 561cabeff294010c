// Package memory 提供 TransferRepository 的进程内实现。
// 传输载荷是一次性的、明确不持久化的数据 (进程重启即全部丢失)，
// 因此直接放在互斥锁保护的 map 中，而不是外部存储。
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"sharemore/internal/domain"
	"sharemore/internal/repository"
)

// MemoryTransferRepository 是 TransferRepository 接口的内存实现。
// 领取码到条目的映射由单个互斥锁保护；Remove 在持锁期间完成
// "检查并删除"，保证同一个码的并发领取恰好一个成功。
type MemoryTransferRepository struct {
	mu      sync.Mutex
	entries map[string]*domain.TransferEntry
}

// NewMemoryTransferRepository 创建 MemoryTransferRepository 实例。
func NewMemoryTransferRepository() *MemoryTransferRepository {
	return &MemoryTransferRepository{
		entries: make(map[string]*domain.TransferEntry),
	}
}

// Save 保存一个新的传输条目。领取码已被占用时返回 ErrDuplicateEntry。
func (r *MemoryTransferRepository) Save(_ context.Context, entry *domain.TransferEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.Code]; exists {
		return repository.ErrDuplicateEntry
	}
	r.entries[entry.Code] = entry
	return nil
}

// Remove 原子地查找并删除指定领取码的条目。
// 未找到 (从未存在或已被领取) 时返回 ErrNotFound，两种情况不作区分。
func (r *MemoryTransferRepository) Remove(_ context.Context, code string) (*domain.TransferEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[code]
	if !exists {
		return nil, repository.ErrTransferNotFound
	}
	delete(r.entries, code)
	return entry, nil
}

// Exists 检查领取码是否对应一个待领取条目。
func (r *MemoryTransferRepository) Exists(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.entries[code]
	return exists, nil
}

// DeleteExpired 删除所有创建时间早于 olderThan 的条目，返回删除数量。
func (r *MemoryTransferRepository) DeleteExpired(_ context.Context, olderThan time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for code, entry := range r.entries {
		if entry.CreatedAt.Before(olderThan) {
			delete(r.entries, code)
			removed++
			logrus.WithFields(logrus.Fields{
				"code":     code,
				"filename": entry.Filename,
				"size":     entry.Size,
			}).Debug("Expired transfer entry removed")
		}
	}
	return removed, nil
}

// Len 返回当前待领取条目的数量 (用于监控和测试)。
func (r *MemoryTransferRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
