package repository

import (
	"context"
	"time"

	"sharemore/internal/domain"
)

// TransferRepository 定义了待领取文件传输条目的存储和检索操作。
// 所有实现都必须保证 Remove 是原子的查删：两个并发的 Remove 对同一个
// 领取码最多只有一个能拿到条目，另一个必须观察到 ErrNotFound。
type TransferRepository interface {
	// Save 保存一个新的传输条目。
	// 如果该领取码已存在待领取条目，返回 ErrDuplicateEntry。
	Save(ctx context.Context, entry *domain.TransferEntry) error

	// Remove 原子地查找并删除指定领取码的条目，返回被删除的条目。
	// 领取码未知或已被领取时返回 ErrNotFound。
	Remove(ctx context.Context, code string) (*domain.TransferEntry, error)

	// Exists 检查领取码是否对应一个待领取条目 (用于生成时查重)。
	Exists(ctx context.Context, code string) (bool, error)

	// DeleteExpired 删除所有创建时间早于 olderThan 的条目，返回删除数量。
	DeleteExpired(ctx context.Context, olderThan time.Time) (int, error)
}
