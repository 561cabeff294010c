package service_test // 测试包

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"sharemore/internal/domain"
	"sharemore/internal/infra/registry/memory"
	"sharemore/internal/repository/mocks"
	"sharemore/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// codePattern 校验领取码格式：6 位大写字母数字
var codePattern = regexp.MustCompile(`^[0-9A-Z]{6}$`)

func newTransferService(t *testing.T) (*service.TransferService, *memory.MemoryTransferRepository) {
	t.Helper()
	repo := memory.NewMemoryTransferRepository()
	return service.NewTransferService(repo, 30*time.Minute), repo
}

// --- 测试 Store / Redeem ---

func TestTransferService_StoreAndRedeem_RoundTrip(t *testing.T) {
	// Arrange
	svc, _ := newTransferService(t)
	ctx := context.Background()
	payload := []byte("hi")
	filename := "hello.txt"

	// Act: 上传
	code, err := svc.Store(ctx, payload, filename)

	// Assert: 领取码格式正确
	require.NoError(t, err, "上传不应失败")
	assert.Regexp(t, codePattern, code, "领取码应为 6 位大写字母数字")

	// Act: 领取
	entry, err := svc.Redeem(ctx, code)

	// Assert: 拿回的载荷和文件名与上传时一致
	require.NoError(t, err, "首次领取不应失败")
	require.NotNil(t, entry)
	assert.Equal(t, payload, entry.Payload, "载荷应逐字节一致")
	assert.Equal(t, filename, entry.Filename)
	assert.Equal(t, int64(len(payload)), entry.Size)

	// Act & Assert: 第二次领取与从未存在的码一样得到 NotFound
	_, err = svc.Redeem(ctx, code)
	require.Error(t, err, "重复领取必须失败")
	assert.True(t, errors.Is(err, service.ErrTransferNotFound), "错误类型应为 ErrTransferNotFound")
}

func TestTransferService_Store_EmptyPayload(t *testing.T) {
	svc, repo := newTransferService(t)

	_, err := svc.Store(context.Background(), nil, "empty.bin")

	require.Error(t, err, "空载荷必须被拒绝")
	assert.True(t, errors.Is(err, service.ErrInvalidUpload), "错误类型应为 ErrInvalidUpload")
	assert.Equal(t, 0, repo.Len(), "被拒绝的上传不应留下条目")
}

func TestTransferService_Redeem_UnknownCode(t *testing.T) {
	svc, _ := newTransferService(t)

	_, err := svc.Redeem(context.Background(), "ZZZZZZ")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrTransferNotFound))
}

func TestTransferService_Store_UniqueCodes(t *testing.T) {
	// 连续上传多个文件，所有领取码都必须互不相同
	svc, _ := newTransferService(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := svc.Store(ctx, []byte("payload"), "f.txt")
		require.NoError(t, err)
		assert.False(t, seen[code], "领取码 %s 不应重复", code)
		seen[code] = true
	}
}

// TestTransferService_Redeem_ConcurrentRace 验证核心不变量：
// 同一个领取码的并发领取恰好一个成功，其余全部观察到 NotFound。
func TestTransferService_Redeem_ConcurrentRace(t *testing.T) {
	svc, _ := newTransferService(t)
	ctx := context.Background()

	code, err := svc.Store(ctx, []byte("race payload"), "race.bin")
	require.NoError(t, err)

	const racers = 32
	var wg sync.WaitGroup
	var successCount, notFoundCount int64
	var mu sync.Mutex

	start := make(chan struct{}) // 同步起跑线，让竞争尽量真实
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			entry, err := svc.Redeem(ctx, code)
			mu.Lock()
			defer mu.Unlock()
			if err == nil && entry != nil {
				successCount++
			} else if errors.Is(err, service.ErrTransferNotFound) {
				notFoundCount++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), successCount, "并发领取必须恰好一个成功")
	assert.Equal(t, int64(racers-1), notFoundCount, "其余全部必须观察到 NotFound")
}

// --- 测试过期清理 ---

func TestTransferService_EvictExpired(t *testing.T) {
	// Arrange: TTL 设为 1 分钟，直接向仓库塞入一条过期和一条新鲜的条目
	repo := memory.NewMemoryTransferRepository()
	svc := service.NewTransferService(repo, 1*time.Minute)
	ctx := context.Background()

	expired := &domain.TransferEntry{
		Code:      "OLD001",
		Payload:   []byte("stale"),
		Filename:  "stale.txt",
		Size:      5,
		CreatedAt: time.Now().Add(-2 * time.Minute),
	}
	fresh := &domain.TransferEntry{
		Code:      "NEW001",
		Payload:   []byte("fresh"),
		Filename:  "fresh.txt",
		Size:      5,
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Save(ctx, expired))
	require.NoError(t, repo.Save(ctx, fresh))

	// Act
	removed, err := svc.EvictExpired(ctx)

	// Assert: 只有超过保留时间的条目被清掉
	require.NoError(t, err)
	assert.Equal(t, 1, removed, "应恰好清除一条过期条目")
	_, err = svc.Redeem(ctx, "OLD001")
	assert.True(t, errors.Is(err, service.ErrTransferNotFound), "过期条目应不可领取")
	entry, err := svc.Redeem(ctx, "NEW001")
	require.NoError(t, err, "未过期条目应仍可领取")
	assert.Equal(t, "fresh.txt", entry.Filename)
}

// --- 使用 Mock 验证仓库故障被映射为内部错误 ---

func TestTransferService_Store_RepositoryError(t *testing.T) {
	// Arrange
	mockRepo := new(mocks.TransferRepository)
	svc := service.NewTransferService(mockRepo, time.Minute)
	ctx := context.Background()

	// 设置 Mock 预期: Exists 查重通过，Save 返回底层故障
	mockRepo.On("Exists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	mockRepo.On("Save", ctx, mock.AnythingOfType("*domain.TransferEntry")).Return(errors.New("out of memory")).Once()

	// Act
	_, err := svc.Store(ctx, []byte("data"), "f.txt")

	// Assert: 底层故障必须以 Internal 暴露，而不是 NotFound
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInternalServer), "仓库故障应映射为 ErrInternalServer")
	mockRepo.AssertExpectations(t)
}
