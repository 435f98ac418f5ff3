package storefront

import (
	"context"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/ceyewan/storekit/breaker"
	"github.com/ceyewan/storekit/clog"
	"github.com/ceyewan/storekit/dedup"
	"github.com/ceyewan/storekit/httpx"
	"github.com/ceyewan/storekit/stale"
)

// Client API 服务层客户端
//
// 显式持有熔断注册表、去重器与降级缓存（而非全局单例），
// 生命周期可测试，测试间无状态泄漏。
type Client struct {
	cfg      *Config
	logger   clog.Logger
	registry *breaker.Registry
	dedup    dedup.Deduplicator
	stale    stale.Store
	http     httpx.Client
	mock     *mockCatalog

	// searchSeq 搜索请求序号，后发的搜索取代先发的（last-issued-wins）
	searchSeq atomic.Uint64
}

// New 创建 API 服务层客户端
//
// 参数:
//   - cfg: 服务层配置，为 nil 时使用 DefaultConfig()（mock 模式）
//   - opts: 可选参数 (Logger, Registerer, Transport)
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opt := applyOptions(opts...)

	brkCfg := cfg.Breaker
	if brkCfg == nil {
		brkCfg = breaker.DefaultConfig()
	}
	if brkCfg.Classifier == nil {
		brkCfg.Classifier = httpx.QualifiesForTrip
	}

	regOpts := []breaker.Option{
		breaker.WithLogger(opt.logger),
		breaker.WithRegisterer(opt.registerer),
	}
	for name, override := range cfg.BreakerOverrides {
		regOpts = append(regOpts, breaker.WithEndpointConfig(name, override))
	}

	dedupe, err := dedup.New(cfg.Dedup,
		dedup.WithLogger(opt.logger), dedup.WithRegisterer(opt.registerer))
	if err != nil {
		return nil, err
	}

	staleStore, err := stale.New(cfg.Stale, stale.WithLogger(opt.logger))
	if err != nil {
		return nil, err
	}

	transport := opt.transport
	if transport == nil && !cfg.UseMockData {
		transport, err = httpx.New(&httpx.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout},
			httpx.WithLogger(opt.logger))
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		cfg:      cfg,
		logger:   opt.logger,
		registry: breaker.NewRegistry(brkCfg, regOpts...),
		dedup:    dedupe,
		stale:    staleStore,
		http:     transport,
		mock:     newMockCatalog(),
	}, nil
}

// Close 释放后台资源
func (c *Client) Close() error {
	return c.stale.Close()
}

// Registry 返回熔断注册表，供 UI 订阅状态变更事件
func (c *Client) Registry() *breaker.Registry {
	return c.registry
}

// DegradedMode 判断是否处于整体降级状态
//
// 任意两个及以上熔断器打开，或关键端点（auth/orders）熔断打开时为真，
// UI 据此展示全局降级提示而非逐请求报错。
func (c *Client) DegradedMode() bool {
	open := 0
	for name, m := range c.registry.AllMetrics() {
		if m.State != breaker.StateOpen {
			continue
		}
		if name == EndpointAuth || name == EndpointOrders {
			return true
		}
		open++
	}
	return open >= 2
}

// ========================================
// 内部执行骨架 (Execution Skeleton)
// ========================================

// fetchJSON 真实网络调用：经去重器合并后发起 HTTP 请求
//
// 同签名并发调用共享同一份结果对象，调用方只读不改。
func (c *Client) fetchJSON(method, path string, body any, priority dedup.Priority,
	fetch func(ctx context.Context) (any, error)) breaker.Operation {
	return func(ctx context.Context) (any, error) {
		return c.dedup.Do(ctx, dedup.Request{
			Method:   method,
			URL:      path,
			Body:     body,
			Priority: priority,
		}, fetch)
	}
}

// query 查询类操作的公共骨架
//
// 熔断执行 → 后端成功才写降级缓存 → 熔断打开且无显式降级时读降级缓存。
// 降级次序：显式 fallback → stale 缓存 → (nil, *ServiceError)。
func (c *Client) query(ctx context.Context, endpoint, cacheKey string,
	op breaker.Operation, fb breaker.Fallback) (any, error) {
	brk := c.registry.Get(endpoint)

	// 降级值不是后端数据，不得污染 last-known-good 缓存
	servedFallback := false
	result, err := brk.Execute(ctx, op, fb.OnServe(func() { servedFallback = true }))
	if err == nil {
		if cacheKey != "" && result != nil && !servedFallback {
			if cerr := c.stale.Set(ctx, cacheKey, result); cerr != nil {
				c.logger.Warn("stale cache write failed",
					clog.String("key", cacheKey), clog.Error(cerr))
			}
		}
		return result, nil
	}

	// 显式降级已在熔断器内部解决；走到这里说明没有降级可用
	if breaker.IsCircuitOpen(err) && cacheKey != "" {
		if cached, ok := c.stale.Get(ctx, cacheKey); ok {
			c.logger.Info("serving stale data",
				clog.String("endpoint", endpoint), clog.String("key", cacheKey))
			return cached, nil
		}
	}
	return nil, translateError(endpoint, err)
}

// mutate 变更类操作的公共骨架：永远没有静默降级，失败翻译后上抛
func (c *Client) mutate(ctx context.Context, endpoint string, op breaker.Operation,
	invalidate ...string) (any, error) {
	brk := c.registry.Get(endpoint)

	result, err := brk.Execute(ctx, op, breaker.NoFallback())
	if err != nil {
		return nil, translateError(endpoint, err)
	}

	// 写成功后失效相关读缓存，避免读到变更前的数据
	for _, pattern := range invalidate {
		c.dedup.InvalidateByPattern(pattern)
	}
	return result, nil
}

// ========================================
// 商品查询 (Product Queries)
// ========================================

// GetProducts 返回全部商品；熔断打开时降级为内置静态目录
func (c *Client) GetProducts(ctx context.Context) ([]Product, error) {
	op := c.productsOp("/api/products", dedup.PriorityNormal, func(ctx context.Context) (any, error) {
		var out []Product
		if err := c.http.Do(ctx, http.MethodGet, "/api/products", nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	}, func() any { return c.mock.products() })

	result, err := c.query(ctx, EndpointProducts, "products:all", op,
		breaker.FallbackValue(c.mock.products()))
	if err != nil {
		// 集合查询降级到空集合，页面展示"无结果"而非崩溃
		c.logger.Warn("products query degraded to empty", clog.Error(err))
		return nil, nil
	}
	return result.([]Product), nil
}

// GetProductByID 返回单个商品
//
// 降级次序：静态目录同 ID 商品 → 降级缓存 → (nil, *ServiceError)。
func (c *Client) GetProductByID(ctx context.Context, id string) (*Product, error) {
	path := "/api/products/" + url.PathEscape(id)
	op := c.productsOp(path, dedup.PriorityNormal, func(ctx context.Context) (any, error) {
		var out Product
		if err := c.http.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}, func() any {
		if p := c.mock.productByID(id); p != nil {
			return p
		}
		return nil
	})

	var fb breaker.Fallback
	if static := c.mock.productByID(id); static != nil {
		fb = breaker.FallbackValue(static)
	} else {
		fb = breaker.NoFallback()
	}

	result, err := c.query(ctx, EndpointProducts, "product:"+id, op, fb)
	if err != nil {
		return nil, err
	}
	return result.(*Product), nil
}

// GetFeaturedProducts 返回精选商品；降级为静态目录中的精选子集
func (c *Client) GetFeaturedProducts(ctx context.Context) ([]Product, error) {
	path := "/api/products?featured=true"
	op := c.productsOp(path, dedup.PriorityHigh, func(ctx context.Context) (any, error) {
		var out []Product
		if err := c.http.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	}, func() any { return c.mock.featured() })

	result, err := c.query(ctx, EndpointProducts, "products:featured", op,
		breaker.FallbackValue(c.mock.featured()))
	if err != nil {
		c.logger.Warn("featured query degraded to empty", clog.Error(err))
		return nil, nil
	}
	return result.([]Product), nil
}

// GetProductsByCategory 按类目返回商品；降级为静态目录的类目子集
func (c *Client) GetProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	path := "/api/products?category=" + url.QueryEscape(category)
	op := c.productsOp(path, dedup.PriorityNormal, func(ctx context.Context) (any, error) {
		var out []Product
		if err := c.http.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	}, func() any { return c.mock.byCategory(category) })

	result, err := c.query(ctx, EndpointProducts, "products:category:"+category, op,
		breaker.FallbackValue(c.mock.byCategory(category)))
	if err != nil {
		c.logger.Warn("category query degraded to empty", clog.Error(err))
		return nil, nil
	}
	return result.([]Product), nil
}

// SearchProducts 搜索商品
//
// 后发的搜索取代先发的：结果返回前若有更晚的搜索发起，
// 返回 ErrSearchSuperseded，调用方应丢弃本次结果。
func (c *Client) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	seq := c.searchSeq.Add(1)

	path := "/api/products/search?q=" + url.QueryEscape(query)
	op := c.productsOp(path, dedup.PriorityLow, func(ctx context.Context) (any, error) {
		var out []Product
		if err := c.http.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	}, func() any { return c.mock.search(query) })

	result, err := c.query(ctx, EndpointProducts, "", op,
		breaker.FallbackValue(c.mock.search(query)))

	if c.searchSeq.Load() != seq {
		return nil, ErrSearchSuperseded
	}
	if err != nil {
		c.logger.Warn("search degraded to empty", clog.Error(err))
		return nil, nil
	}
	return result.([]Product), nil
}

// productsOp 商品端点操作：mock 模式直读静态数据，否则经去重走网络
func (c *Client) productsOp(path string, priority dedup.Priority,
	fetch func(ctx context.Context) (any, error), local func() any) breaker.Operation {
	if c.cfg.UseMockData {
		return func(ctx context.Context) (any, error) {
			if v := local(); v != nil {
				return v, nil
			}
			return nil, errMockNotFound
		}
	}
	return c.fetchJSON(http.MethodGet, path, nil, priority, fetch)
}

// ========================================
// 购物车 (Cart)
// ========================================

// GetCart 返回当前购物车；熔断打开时退化为降级缓存中的最后快照
func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	var op breaker.Operation
	if c.cfg.UseMockData {
		op = func(ctx context.Context) (any, error) { return c.mock.getCart(), nil }
	} else {
		op = c.fetchJSON(http.MethodGet, "/api/cart", nil, dedup.PriorityNormal,
			func(ctx context.Context) (any, error) {
				var out Cart
				if err := c.http.Do(ctx, http.MethodGet, "/api/cart", nil, &out); err != nil {
					return nil, err
				}
				return &out, nil
			})
	}

	result, err := c.query(ctx, EndpointCart, "cart", op, breaker.NoFallback())
	if err != nil {
		return nil, err
	}
	return result.(*Cart), nil
}

// AddToCart 加入购物车；失败原样上抛，无静默降级
func (c *Client) AddToCart(ctx context.Context, productID, variantID string, quantity int) (*Cart, error) {
	var op breaker.Operation
	if c.cfg.UseMockData {
		op = func(ctx context.Context) (any, error) {
			return c.mock.upsertCartLine(productID, variantID, quantity)
		}
	} else {
		body := map[string]any{"product_id": productID, "variant_id": variantID, "quantity": quantity}
		op = func(ctx context.Context) (any, error) {
			var out Cart
			if err := c.http.Do(ctx, http.MethodPost, "/api/cart/items", body, &out); err != nil {
				return nil, err
			}
			return &out, nil
		}
	}

	result, err := c.mutate(ctx, EndpointCart, op, "/cart")
	if err != nil {
		return nil, err
	}
	return result.(*Cart), nil
}

// UpdateCartItem 修改购物车行数量
func (c *Client) UpdateCartItem(ctx context.Context, productID, variantID string, quantity int) (*Cart, error) {
	var op breaker.Operation
	if c.cfg.UseMockData {
		op = func(ctx context.Context) (any, error) {
			return c.mock.upsertCartLine(productID, variantID, quantity)
		}
	} else {
		path := "/api/cart/items/" + url.PathEscape(productID+"|"+variantID)
		body := map[string]any{"quantity": quantity}
		op = func(ctx context.Context) (any, error) {
			var out Cart
			if err := c.http.Do(ctx, http.MethodPut, path, body, &out); err != nil {
				return nil, err
			}
			return &out, nil
		}
	}

	result, err := c.mutate(ctx, EndpointCart, op, "/cart")
	if err != nil {
		return nil, err
	}
	return result.(*Cart), nil
}

// RemoveFromCart 删除购物车行
func (c *Client) RemoveFromCart(ctx context.Context, productID, variantID string) (*Cart, error) {
	var op breaker.Operation
	if c.cfg.UseMockData {
		op = func(ctx context.Context) (any, error) {
			return c.mock.removeCartLine(productID, variantID), nil
		}
	} else {
		path := "/api/cart/items/" + url.PathEscape(productID+"|"+variantID)
		op = func(ctx context.Context) (any, error) {
			var out Cart
			if err := c.http.Do(ctx, http.MethodDelete, path, nil, &out); err != nil {
				return nil, err
			}
			return &out, nil
		}
	}

	result, err := c.mutate(ctx, EndpointCart, op, "/cart")
	if err != nil {
		return nil, err
	}
	return result.(*Cart), nil
}

// ========================================
// 认证 (Auth)
// ========================================

// Login 登录；成功后后续请求携带令牌，失败原样上抛
func (c *Client) Login(ctx context.Context, creds Credentials) (*User, error) {
	var op breaker.Operation
	if c.cfg.UseMockData {
		op = func(ctx context.Context) (any, error) { return c.mock.login(creds) }
	} else {
		op = func(ctx context.Context) (any, error) {
			var out User
			if err := c.http.Do(ctx, http.MethodPost, "/api/auth/login", creds, &out); err != nil {
				return nil, err
			}
			return &out, nil
		}
	}

	// 身份切换后所有已缓存的读都不可信
	result, err := c.mutate(ctx, EndpointAuth, op, "/cart", "/orders")
	if err != nil {
		return nil, err
	}
	user := result.(*User)
	if c.http != nil {
		c.http.SetToken(user.Token)
	}
	return user, nil
}

// Register 注册新用户
func (c *Client) Register(ctx context.Context, reg Registration) (*User, error) {
	var op breaker.Operation
	if c.cfg.UseMockData {
		op = func(ctx context.Context) (any, error) { return c.mock.register(reg) }
	} else {
		op = func(ctx context.Context) (any, error) {
			var out User
			if err := c.http.Do(ctx, http.MethodPost, "/api/auth/register", reg, &out); err != nil {
				return nil, err
			}
			return &out, nil
		}
	}

	result, err := c.mutate(ctx, EndpointAuth, op)
	if err != nil {
		return nil, err
	}
	user := result.(*User)
	if c.http != nil {
		c.http.SetToken(user.Token)
	}
	return user, nil
}

// ========================================
// 订单 (Orders)
// ========================================

// GetOrders 返回历史订单；熔断打开时退化为降级缓存
func (c *Client) GetOrders(ctx context.Context) ([]Order, error) {
	var op breaker.Operation
	if c.cfg.UseMockData {
		op = func(ctx context.Context) (any, error) { return c.mock.listOrders(), nil }
	} else {
		op = c.fetchJSON(http.MethodGet, "/api/orders", nil, dedup.PriorityNormal,
			func(ctx context.Context) (any, error) {
				var out []Order
				if err := c.http.Do(ctx, http.MethodGet, "/api/orders", nil, &out); err != nil {
					return nil, err
				}
				return out, nil
			})
	}

	result, err := c.query(ctx, EndpointOrders, "orders", op, breaker.NoFallback())
	if err != nil {
		return nil, err
	}
	return result.([]Order), nil
}

// GetOrderByID 返回单个订单
func (c *Client) GetOrderByID(ctx context.Context, id string) (*Order, error) {
	var op breaker.Operation
	if c.cfg.UseMockData {
		op = func(ctx context.Context) (any, error) {
			if o := c.mock.orderByID(id); o != nil {
				return o, nil
			}
			return nil, errMockNotFound
		}
	} else {
		path := "/api/orders/" + url.PathEscape(id)
		op = c.fetchJSON(http.MethodGet, path, nil, dedup.PriorityNormal,
			func(ctx context.Context) (any, error) {
				var out Order
				if err := c.http.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
					return nil, err
				}
				return &out, nil
			})
	}

	result, err := c.query(ctx, EndpointOrders, "order:"+id, op, breaker.NoFallback())
	if err != nil {
		return nil, err
	}
	return result.(*Order), nil
}

// CreateOrder 创建订单
//
// 金融性写操作：刻意不提供任何降级，熔断打开或调用失败时错误必须
// 到达调用方，由 UI 提供重试入口。用伪造数据"成功"是正确性违例。
func (c *Client) CreateOrder(ctx context.Context) (*Order, error) {
	var op breaker.Operation
	if c.cfg.UseMockData {
		op = func(ctx context.Context) (any, error) { return c.mock.createOrder() }
	} else {
		op = func(ctx context.Context) (any, error) {
			var out Order
			if err := c.http.Do(ctx, http.MethodPost, "/api/orders", nil, &out); err != nil {
				return nil, err
			}
			return &out, nil
		}
	}

	result, err := c.mutate(ctx, EndpointOrders, op, "/cart", "/orders")
	if err != nil {
		return nil, err
	}
	return result.(*Order), nil
}
