package service

import "errors"

// 前两条的文本会原样出现在 HTTP 错误响应体中，
// 与既有客户端的提示文案保持一致，不要改动大小写。
var (
	ErrInvalidUpload    = errors.New("No file provided")
	ErrTransferNotFound = errors.New("Invalid code or the transfer has expired")
	ErrRoomNotFound     = errors.New("room not found")
	ErrNotAMember       = errors.New("connection is not a member of this room")
	ErrInternalServer   = errors.New("internal server error")
)
