package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"sharemore/internal/domain"
	"sharemore/internal/repository"

	"github.com/sirupsen/logrus"
)

// TransferService 负责一次性文件传输相关的业务逻辑：
// 分配领取码、存入条目、原子领取、过期清理。
type TransferService struct {
	transferRepo repository.TransferRepository
	ttl          time.Duration // 未被领取条目的最长保留时间
}

// NewTransferService 创建 TransferService 实例。
func NewTransferService(transferRepo repository.TransferRepository, ttl time.Duration) *TransferService {
	if transferRepo == nil {
		panic("TransferRepository cannot be nil for TransferService")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute // 默认保留 30 分钟
	}
	return &TransferService{
		transferRepo: transferRepo,
		ttl:          ttl,
	}
}

// Store 保存一个上传的文件并返回其领取码。
// 空载荷视为客户端错误，返回 ErrInvalidUpload。
func (s *TransferService) Store(ctx context.Context, payload []byte, filename string) (string, error) {
	logCtx := logrus.WithFields(logrus.Fields{"filename": filename, "size": len(payload)})

	if len(payload) == 0 {
		logCtx.Warn("Store rejected: empty payload")
		return "", ErrInvalidUpload
	}

	// 1. 生成唯一的领取码
	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate unique transfer code")
		return "", ErrInternalServer // 领取码生成失败视为内部错误
	}
	logCtx = logCtx.WithField("code", code)

	// 2. 创建并保存条目
	entry := &domain.TransferEntry{
		Code:      code,
		Payload:   payload,
		Filename:  filename,
		Size:      int64(len(payload)),
		CreatedAt: time.Now(),
	}
	if err := s.transferRepo.Save(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// 理论上不应发生：generateUniqueCode 刚确认过不存在。
			// 仍然映射为内部错误而不是向客户端暴露碰撞细节。
			logCtx.WithError(err).Error("Failed to save transfer entry due to code collision")
			return "", ErrInternalServer
		}
		logCtx.WithError(err).Error("Failed to save transfer entry")
		return "", ErrInternalServer
	}

	logCtx.Info("Transfer entry stored")
	return code, nil
}

// Redeem 原子地领取并删除指定领取码的条目。
// 领取码未知、已被领取或已过期时统一返回 ErrTransferNotFound ——
// 这是重复提交/输错码的稳态错误，不作为服务端故障记录。
func (s *TransferService) Redeem(ctx context.Context, code string) (*domain.TransferEntry, error) {
	logCtx := logrus.WithField("code", code)

	entry, err := s.transferRepo.Remove(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logCtx.Debug("Redeem: code not found or already redeemed")
			return nil, ErrTransferNotFound
		}
		logCtx.WithError(err).Error("Redeem: repository error")
		return nil, ErrInternalServer
	}

	logCtx.WithFields(logrus.Fields{"filename": entry.Filename, "size": entry.Size}).Info("Transfer entry redeemed")
	return entry, nil
}

// EvictExpired 删除所有超过保留时间仍未被领取的条目，返回删除数量。
// 由周期性清扫任务调用。
func (s *TransferService) EvictExpired(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.ttl)
	removed, err := s.transferRepo.DeleteExpired(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Error("EvictExpired: repository error")
		return 0, ErrInternalServer
	}
	if removed > 0 {
		logrus.WithFields(logrus.Fields{"removed": removed, "ttl": s.ttl.String()}).Info("Expired transfer entries evicted")
	}
	return removed, nil
}

// --- 私有辅助函数 ---

// generateUniqueCode 生成一个在当前待领取条目中唯一的领取码
func (s *TransferService) generateUniqueCode(ctx context.Context) (string, error) {
	const letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	const codeLength = 6
	const maxAttempts = 10

	b := make([]byte, codeLength)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for i := range b {
			b[i] = letters[int(b[i])%len(letters)]
		}
		code := string(b)

		// 检查领取码是否已被占用
		exists, err := s.transferRepo.Exists(ctx, code)
		if err != nil {
			logrus.WithError(err).WithField("code", code).Error("Repository error checking transfer code uniqueness")
			return "", fmt.Errorf("repository error checking transfer code: %w", err)
		}
		if !exists {
			// 找到唯一码
			logrus.WithField("code", code).Debugf("Generated unique transfer code after %d attempt(s).", attempt+1)
			return code, nil
		}
		// code 已存在，重试
		logrus.WithField("code", code).Warnf("Generated transfer code already exists, retrying (attempt %d)...", attempt+1)
	}
	// 达到最大尝试次数
	logrus.Errorf("Failed to generate a unique transfer code after %d attempts", maxAttempts)
	return "", fmt.Errorf("failed to generate a unique transfer code after %d attempts", maxAttempts)
}
