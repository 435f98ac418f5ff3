package storefront

import (
	"fmt"

	"github.com/ceyewan/storekit/breaker"
	"github.com/ceyewan/storekit/httpx"
	"github.com/ceyewan/storekit/xerrors"
)

// ErrSearchSuperseded 搜索结果已被更晚发起的搜索取代，调用方应丢弃
var ErrSearchSuperseded = xerrors.New("storefront: search superseded by a later query")

// mock 模式下的业务错误，按 4xx 客户端错误建模（不计入熔断）
var (
	errMockNotFound   = &httpx.StatusError{Status: 404, Endpoint: "mock", Message: "not found"}
	errMockEmptyCart  = &httpx.StatusError{Status: 400, Endpoint: "mock", Message: "cart is empty"}
	errMockEmailTaken = &httpx.StatusError{Status: 409, Endpoint: "mock", Message: "email already registered"}
)

// ErrorKind 面向用户的错误类别
type ErrorKind string

const (
	// KindClient 调用方错误（4xx），展示校验/认证相关提示
	KindClient ErrorKind = "client"
	// KindServer 服务端错误（5xx）
	KindServer ErrorKind = "server"
	// KindTimeout 请求超时
	KindTimeout ErrorKind = "timeout"
	// KindUnavailable 熔断打开，服务暂不可用
	KindUnavailable ErrorKind = "unavailable"
)

// ServiceError 翻译后的用户可见错误
//
// 保留端点名与 HTTP 状态码，满足日志与观测需要。
type ServiceError struct {
	// Endpoint 逻辑端点名（products/cart/auth/orders）
	Endpoint string
	// Kind 错误类别
	Kind ErrorKind
	// Status 底层 HTTP 状态码，无则为 0
	Status int
	// Message 面向用户的提示语
	Message string
	// Err 底层错误
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("storefront: %s: %s", e.Endpoint, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// translateError 将底层错误翻译为 *ServiceError
func translateError(endpoint string, err error) *ServiceError {
	se := &ServiceError{Endpoint: endpoint, Err: err, Status: httpx.StatusOf(err)}

	switch {
	case breaker.IsCircuitOpen(err):
		se.Kind = KindUnavailable
		se.Message = "service temporarily unavailable"
	case httpx.IsTimeout(err):
		se.Kind = KindTimeout
		se.Message = "request timed out, check your connection"
	case httpx.IsClientError(err):
		se.Kind = KindClient
		var st *httpx.StatusError
		if xerrors.As(err, &st) && st.Message != "" {
			se.Message = st.Message
		} else {
			se.Message = "request rejected"
		}
	default:
		se.Kind = KindServer
		se.Message = "service is experiencing issues, try again"
	}
	return se
}
