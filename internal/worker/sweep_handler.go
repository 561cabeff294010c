package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"sharemore/internal/service"
)

// TransferSweepHandler 处理过期传输条目的清扫任务。
// 清扫是对 "上传后从不领取" 这一资源泄漏的兜底：
// 条目超过保留时间仍未被领取就直接丢弃。
type TransferSweepHandler struct {
	transferService *service.TransferService
}

// NewTransferSweepHandler 创建 TransferSweepHandler 实例。
func NewTransferSweepHandler(transferService *service.TransferService) *TransferSweepHandler {
	if transferService == nil {
		panic("TransferService cannot be nil for TransferSweepHandler")
	}
	return &TransferSweepHandler{transferService: transferService}
}

// ProcessTask 实现 asynq.Handler。
func (h *TransferSweepHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	removed, err := h.transferService.EvictExpired(ctx)
	if err != nil {
		// 返回错误让 Asynq 按重试策略处理
		return err
	}
	if removed > 0 {
		logrus.WithField("removed", removed).Info("Transfer sweep completed")
	}
	return nil
}
