package httpx

import (
	"context"
	"fmt"

	"github.com/ceyewan/storekit/xerrors"
)

// ErrTimeout 请求超出截止时间
var ErrTimeout = xerrors.New("httpx: request timed out")

// StatusError 非 2xx 响应错误
type StatusError struct {
	// Status HTTP 状态码
	Status int
	// Endpoint 产生错误的请求（METHOD path）
	Endpoint string
	// Message 响应体携带的错误消息（可为空）
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("httpx: %s returned %d: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("httpx: %s returned %d", e.Endpoint, e.Status)
}

// IsClientError 判断错误是否为 4xx 客户端错误
func IsClientError(err error) bool {
	var se *StatusError
	return xerrors.As(err, &se) && se.Status >= 400 && se.Status < 500
}

// IsServerError 判断错误是否为 5xx 服务端错误
func IsServerError(err error) bool {
	var se *StatusError
	return xerrors.As(err, &se) && se.Status >= 500
}

// IsTimeout 判断错误是否为超时
func IsTimeout(err error) bool {
	return xerrors.Is(err, ErrTimeout) || xerrors.Is(err, context.DeadlineExceeded)
}

// QualifiesForTrip 判断失败是否计入熔断
//
// 服务端错误、超时与网络错误计入；4xx 客户端错误是调用方问题，不计入。
// 可直接用作 breaker.Config.Classifier。
func QualifiesForTrip(err error) bool {
	if err == nil {
		return false
	}
	return !IsClientError(err)
}

// StatusOf 提取错误携带的 HTTP 状态码，非状态错误返回 0
func StatusOf(err error) int {
	var se *StatusError
	if xerrors.As(err, &se) {
		return se.Status
	}
	return 0
}
