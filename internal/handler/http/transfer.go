package http

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"sharemore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TransferHandler 处理一次性文件传输的 HTTP 请求。
type TransferHandler struct {
	transferService *service.TransferService
}

// NewTransferHandler 创建 TransferHandler 实例。
func NewTransferHandler(transferService *service.TransferService) *TransferHandler {
	if transferService == nil {
		panic("TransferService cannot be nil for TransferHandler")
	}
	return &TransferHandler{transferService: transferService}
}

// Upload 处理 POST /api/upload。
// 预期 multipart 表单字段 "file"；成功时返回 {"code", "name", "size"}。
func (h *TransferHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		logrus.WithError(err).Debug("Upload: no file in multipart form")
		HandleServiceError(c, service.ErrInvalidUpload)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logrus.WithError(err).WithField("filename", fileHeader.Filename).Error("Upload: failed to open multipart file")
		HandleServiceError(c, service.ErrInternalServer)
		return
	}
	defer file.Close()

	// 完整读入内存：载荷在 Store 之前就绪，核心操作本身不做 IO
	payload, err := io.ReadAll(file)
	if err != nil {
		logrus.WithError(err).WithField("filename", fileHeader.Filename).Error("Upload: failed to read multipart file")
		HandleServiceError(c, service.ErrInternalServer)
		return
	}

	code, err := h.transferService.Store(c.Request.Context(), payload, fileHeader.Filename)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, gin.H{
		"code": code,
		"name": fileHeader.Filename,
		"size": len(payload),
	})
}

// downloadRequest 是 POST /api/download 的请求体。
type downloadRequest struct {
	Code string `json:"code" binding:"required"`
}

// Download 处理 POST /api/download。
// 领取恰好发生一次：成功响应后该领取码立即失效，
// 再次请求与从未存在的码一样得到 404。
func (h *TransferHandler) Download(c *gin.Context) {
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Debug("Download: invalid request body")
		ErrorResponse(c, http.StatusBadRequest, "Missing or invalid code")
		return
	}

	entry, err := h.transferService.Redeem(c.Request.Context(), req.Code)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	// 与原有客户端兼容的响应头：RFC 5987 编码的文件名 + 内容长度
	quotedFilename := url.PathEscape(entry.Filename)
	c.Header("Content-Disposition", fmt.Sprintf("attachment;filename*=UTF-8''%s", quotedFilename))
	c.Header("Content-Length", strconv.FormatInt(entry.Size, 10))
	c.Data(http.StatusOK, "application/octet-stream", entry.Payload)
}
