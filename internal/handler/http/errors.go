package http

import (
	"errors"
	"net/http"

	"sharemore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HandleServiceError 把服务层的业务错误映射为 HTTP 状态码。
// NotFound 一类是稳态错误 (输错码/重复领取)，不记录为服务端故障；
// 其余一律按内部错误记录并返回 500，便于监控区分滥用和真正的故障。
func HandleServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidUpload) {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	} else if errors.Is(err, service.ErrTransferNotFound) || errors.Is(err, service.ErrRoomNotFound) || errors.Is(err, service.ErrNotAMember) {
		ErrorResponse(c, http.StatusNotFound, err.Error())
	} else {
		// Log the internal error for debugging
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
