// Package httpx 提供了 storefront 使用的 JSON HTTP 客户端与错误分类。
//
// 错误分类是弹性层的输入：4xx 归为客户端错误（不计入熔断），
// 5xx、超时与网络错误归为合格失败（计入熔断）。QualifiesForTrip
// 即熔断器对 HTTP 操作的默认 Classifier。
//
// ## 基本使用
//
//	client, _ := httpx.New(&httpx.Config{BaseURL: "https://api.example.com"})
//
//	var products []Product
//	err := client.Do(ctx, http.MethodGet, "/api/products", nil, &products)
//	if httpx.IsServerError(err) {
//		// 计入熔断
//	}
package httpx

import "context"

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Client JSON HTTP 客户端核心接口
type Client interface {
	// Do 发起 JSON 请求
	//
	// body 非 nil 时序列化为请求体；out 非 nil 时将 2xx 响应体反序列化进去。
	// 非 2xx 返回 *StatusError，超时返回包裹 ErrTimeout 的错误。
	Do(ctx context.Context, method, path string, body, out any) error

	// SetToken 设置后续请求携带的 Bearer 令牌，空串清除
	SetToken(token string)
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建 HTTP 客户端实例
//
// 参数:
//   - cfg: 客户端配置，为 nil 时使用 DefaultConfig()
//   - opts: 可选参数 (Logger)
func New(cfg *Config, opts ...Option) (Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opt := applyOptions(opts...)
	return newClient(cfg, opt.logger), nil
}
