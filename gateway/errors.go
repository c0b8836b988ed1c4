package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrClientNotConfigured = errors.New("http client not set")

// APIError 对应 Binance 错误体 {"code":-1121,"msg":"Invalid symbol."}。
type APIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance code %d: %s", e.Code, e.Msg)
}

// CommunicationError 包装一次 REST 调用失败（网络错误或非 2xx）。
type CommunicationError struct {
	Op         string
	StatusCode int // 0 表示请求未得到响应
	Err        error
}

func (e *CommunicationError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s status %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }

// Temporary 网络错误、429 与 5xx 视为可重试。
func (e *CommunicationError) Temporary() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// IsCommunication 判断 err 链上是否有 CommunicationError。
func IsCommunication(err error) bool {
	var ce *CommunicationError
	return errors.As(err, &ce)
}
