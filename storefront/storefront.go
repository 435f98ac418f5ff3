// Package storefront 提供了商城前端的 API 服务层。
//
// 每个对外操作都遵循同一形态：构造真实网络调用（或 mock 模式下的本地
// 数据调用）与可选降级，一并交给按端点名（products/cart/auth/orders）
// 取用的熔断器执行；网络调用内部经过请求去重器合并并发重复请求；
// 成功结果以业务键写入降级缓存，供后续熔断打开时兜底。
//
// 降级次序（查询）：显式降级（mock/静态/过滤数据）→ 降级缓存 → 空结果。
// 集合查询降级到空集合而非报错；单对象查询返回 nil 与翻译后的
// *ServiceError。变更操作（登录、加购、下单等）没有任何静默降级：
// 失败必须到达调用方，由 UI 提供重试入口。
//
// ## 基本使用
//
//	client, _ := storefront.New(&storefront.Config{
//		BaseURL: "https://api.example.com",
//	}, storefront.WithLogger(logger))
//	defer client.Close()
//
//	products, _ := client.GetProducts(ctx)       // 熔断打开时返回静态目录
//	err := client.AddToCart(ctx, "7", "7-blue", 1) // 失败原样上抛
package storefront

import "time"

// ========================================
// 数据模型 (Data Model)
// ========================================

// Product 商品
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Featured    bool    `json:"featured"`
}

// CartLine 购物车行
type CartLine struct {
	ProductID string  `json:"product_id"`
	VariantID string  `json:"variant_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Cart 购物车
type Cart struct {
	Items []CartLine `json:"items"`
	Total float64    `json:"total"`
}

// Order 订单
type Order struct {
	ID        string     `json:"id"`
	Items     []CartLine `json:"items"`
	Total     float64    `json:"total"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// User 已认证用户
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// Credentials 登录凭证
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration 注册信息
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}
