package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mediroute-data/internal/domain"

	"go.uber.org/zap"
)

const (
	maxBodyBytes = 1 << 20
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// decodeBody 读取 JSON；格式错误按 400 返回，返回 false 表示已写响应
func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := readBodyJSON(r, maxBodyBytes, out); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body: "+err.Error()))
		return false
	}
	return true
}

// statusFor 错误类别 -> HTTP 状态码
func statusFor(err error) int {
	switch domain.Kind(err) {
	case domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrAuth:
		return http.StatusUnauthorized
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrConflict, domain.ErrInvalidTransition:
		return http.StatusConflict
	case domain.ErrUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError 存储/未知错误只返回通用信息并记录日志
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("op", op), zap.Error(err))
		writeJSON(w, status, Fail("Error "+op))
		return
	}
	if status == http.StatusBadGateway {
		logger.Warn("Upstream failure", zap.String("op", op), zap.Error(err))
	}
	writeJSON(w, status, Fail(clientMessage(err)))
}

// clientMessage 去掉 "validation failed: " 之类的类别前缀
func clientMessage(err error) string {
	msg := err.Error()
	if errors.Is(err, domain.ErrValidation) {
		msg = strings.TrimPrefix(msg, domain.ErrValidation.Error()+": ")
	}
	return msg
}

func writeExcel(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, Fail("method not allowed"))
}

// splitPath "/api/patients/abc/accept" with prefix "/api/patients/" -> ["abc", "accept"]
func splitPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
