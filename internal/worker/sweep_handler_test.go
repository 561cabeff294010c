package worker

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharemore/internal/domain"
	"sharemore/internal/infra/registry/memory"
	"sharemore/internal/service"
	"sharemore/internal/tasks"
)

func TestTransferSweepHandler_RemovesOnlyExpiredEntries(t *testing.T) {
	repo := memory.NewMemoryTransferRepository()
	transferService := service.NewTransferService(repo, 30*time.Minute)
	handler := NewTransferSweepHandler(transferService)
	ctx := context.Background()

	// 一条早已过期的条目和一条新鲜条目
	require.NoError(t, repo.Save(ctx, &domain.TransferEntry{
		Code:      "OLD001",
		Payload:   []byte("stale"),
		Filename:  "stale.bin",
		Size:      5,
		CreatedAt: time.Now().Add(-time.Hour),
	}))
	freshCode, err := transferService.Store(ctx, []byte("fresh"), "fresh.bin")
	require.NoError(t, err)

	payload, err := tasks.NewTransferSweepTask()
	require.NoError(t, err)
	task := asynq.NewTask(tasks.TypeTransferSweep, payload)
	require.NoError(t, handler.ProcessTask(ctx, task))

	// 过期条目被清走，新鲜条目不受影响
	assert.Equal(t, 1, repo.Len())
	exists, err := repo.Exists(ctx, freshCode)
	require.NoError(t, err)
	assert.True(t, exists, "未过期的条目不应被清扫")

	// 再跑一次应当是无操作
	require.NoError(t, handler.ProcessTask(ctx, task))
	assert.Equal(t, 1, repo.Len())
}
