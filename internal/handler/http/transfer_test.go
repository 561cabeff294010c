package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharemore/internal/infra/registry/memory"
	"sharemore/internal/service"
)

// setupTransferRouter 组装一条真实的中转链路：
// 内存登记表 -> TransferService -> TransferHandler -> gin 路由。
func setupTransferRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.NewMemoryTransferRepository()
	transferService := service.NewTransferService(repo, 30*time.Minute)
	handler := NewTransferHandler(transferService)

	router := gin.New()
	router.POST("/api/upload", handler.Upload)
	router.POST("/api/download", handler.Download)
	return router
}

// uploadFile 以 multipart 表单上传一份文件并返回响应记录。
func uploadFile(t *testing.T, router *gin.Engine, filename string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// downloadCode 以 JSON 请求体领取指定代码。
func downloadCode(t *testing.T, router *gin.Engine, code string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(gin.H{"code": code})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/download", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTransferHandler_UploadThenDownload(t *testing.T) {
	router := setupTransferRouter(t)
	payload := []byte("movie bytes go here")
	filename := "movie night.mp4"

	// 上传：返回 6 位领取码和文件元数据
	uploadResp := uploadFile(t, router, filename, payload)
	require.Equal(t, http.StatusOK, uploadResp.Code, "上传应成功")

	var uploaded struct {
		Code string `json:"code"`
		Name string `json:"name"`
		Size int    `json:"size"`
	}
	require.NoError(t, json.Unmarshal(uploadResp.Body.Bytes(), &uploaded))
	assert.Len(t, uploaded.Code, 6)
	assert.Equal(t, filename, uploaded.Name)
	assert.Equal(t, len(payload), uploaded.Size)

	// 领取：拿回原始字节和兼容的响应头
	downloadResp := downloadCode(t, router, uploaded.Code)
	require.Equal(t, http.StatusOK, downloadResp.Code, "首次领取应成功")
	assert.Equal(t, payload, downloadResp.Body.Bytes())
	assert.Equal(t, "application/octet-stream", downloadResp.Header().Get("Content-Type"))
	assert.Equal(t, "19", downloadResp.Header().Get("Content-Length"))

	disposition := downloadResp.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, "attachment;filename*=UTF-8''"), "应使用 RFC 5987 文件名编码")
	assert.Contains(t, disposition, url.PathEscape(filename))
}

func TestTransferHandler_DownloadIsOneShot(t *testing.T) {
	router := setupTransferRouter(t)

	uploadResp := uploadFile(t, router, "secret.txt", []byte("only once"))
	require.Equal(t, http.StatusOK, uploadResp.Code)
	var uploaded struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(uploadResp.Body.Bytes(), &uploaded))

	first := downloadCode(t, router, uploaded.Code)
	require.Equal(t, http.StatusOK, first.Code)

	// 第二次领取必须与从未存在过的代码无法区分
	second := downloadCode(t, router, uploaded.Code)
	assert.Equal(t, http.StatusNotFound, second.Code)
	assert.JSONEq(t, `{"error":"Invalid code or the transfer has expired"}`, second.Body.String())
}

func TestTransferHandler_UploadWithoutFileFails(t *testing.T) {
	router := setupTransferRouter(t)

	// 没有 multipart 表单字段 "file" 的请求
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(""))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No file provided"}`, w.Body.String())
}

func TestTransferHandler_DownloadUnknownCodeFails(t *testing.T) {
	router := setupTransferRouter(t)

	resp := downloadCode(t, router, "ZZZZZZ")

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.JSONEq(t, `{"error":"Invalid code or the transfer has expired"}`, resp.Body.String())
}

func TestTransferHandler_DownloadMissingCodeFails(t *testing.T) {
	router := setupTransferRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/download", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing or invalid code"}`, w.Body.String())
}
