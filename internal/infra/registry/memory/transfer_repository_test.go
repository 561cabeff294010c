package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sharemore/internal/domain"
	"sharemore/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(code string, createdAt time.Time) *domain.TransferEntry {
	return &domain.TransferEntry{
		Code:      code,
		Payload:   []byte("payload-" + code),
		Filename:  code + ".bin",
		Size:      int64(len("payload-" + code)),
		CreatedAt: createdAt,
	}
}

func TestMemoryTransferRepository_SaveAndRemove(t *testing.T) {
	repo := NewMemoryTransferRepository()
	ctx := context.Background()

	entry := newEntry("ABC123", time.Now())
	require.NoError(t, repo.Save(ctx, entry))

	exists, err := repo.Exists(ctx, "ABC123")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := repo.Remove(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, entry, got, "Remove 应返回保存时的同一条目")

	// 领取之后条目即不存在
	exists, err = repo.Exists(ctx, "ABC123")
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = repo.Remove(ctx, "ABC123")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestMemoryTransferRepository_Save_DuplicateCode(t *testing.T) {
	repo := NewMemoryTransferRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newEntry("DUP001", time.Now())))
	err := repo.Save(ctx, newEntry("DUP001", time.Now()))

	require.Error(t, err, "占用中的领取码不允许重复写入")
	assert.True(t, errors.Is(err, repository.ErrDuplicateEntry))
	assert.Equal(t, 1, repo.Len())
}

// TestMemoryTransferRepository_Remove_Concurrent 验证 Remove 的原子查删：
// 同一个码并发删除只有一个 goroutine 能拿到条目。
func TestMemoryTransferRepository_Remove_Concurrent(t *testing.T) {
	repo := NewMemoryTransferRepository()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, newEntry("RACE01", time.Now())))

	const racers = 16
	var wg sync.WaitGroup
	winners := make(chan *domain.TransferEntry, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if entry, err := repo.Remove(ctx, "RACE01"); err == nil {
				winners <- entry
			}
		}()
	}
	wg.Wait()
	close(winners)

	count := 0
	for range winners {
		count++
	}
	assert.Equal(t, 1, count, "恰好一个 goroutine 能拿到条目")
	assert.Equal(t, 0, repo.Len())
}

func TestMemoryTransferRepository_DeleteExpired(t *testing.T) {
	repo := NewMemoryTransferRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Save(ctx, newEntry("OLD001", now.Add(-time.Hour))))
	require.NoError(t, repo.Save(ctx, newEntry("OLD002", now.Add(-2*time.Hour))))
	require.NoError(t, repo.Save(ctx, newEntry("NEW001", now)))

	removed, err := repo.DeleteExpired(ctx, now.Add(-30*time.Minute))

	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, repo.Len())
	exists, _ := repo.Exists(ctx, "NEW001")
	assert.True(t, exists, "未过期条目必须保留")
}
