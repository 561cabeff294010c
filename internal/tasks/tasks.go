package tasks

import "encoding/json"

// 定义任务类型常量
const (
	TypeTransferSweep = "transfer:sweep" // 过期传输条目清扫任务类型
)

// TransferSweepPayload 定义了清扫任务的数据结构。
// 保留时间在服务端配置中，任务本身不携带参数；
// 保留空结构体是为了将来扩展 (例如只扫某个前缀) 时不破坏队列兼容。
type TransferSweepPayload struct{}

// NewTransferSweepTask 创建一个新的清扫任务载荷。
func NewTransferSweepTask() ([]byte, error) {
	payloadBytes, err := json.Marshal(TransferSweepPayload{})
	if err != nil {
		return nil, err
	}
	return payloadBytes, nil
}
