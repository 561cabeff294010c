package domain

import "time"

// TransferEntry 表示一次已上传、尚未被领取的文件传输。
// Payload 在领取之前由注册表独占持有；领取成功后所有权转移给调用方，
// 注册表随即释放对它的引用。
type TransferEntry struct {
	Code      string    // 领取码 (6 位大写字母数字)，在所有待领取条目中唯一
	Payload   []byte    // 文件内容，完整读入内存
	Filename  string    // 上传方提供的原始文件名，仅用于响应元数据
	Size      int64     // Payload 的字节长度，创建时计算
	CreatedAt time.Time // 创建时间，过期清理任务依据此字段判断
}
