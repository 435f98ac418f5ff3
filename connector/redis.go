package connector

import (
	"context"
	"sync/atomic"

	"github.com/ceyewan/storekit/clog"
	"github.com/ceyewan/storekit/xerrors"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
)

// redisConnector Redis 连接器实现（非导出）
//
// StoreKit 中由 cartsync 的结账锁存储与 cacheopt 的持久化器借用，
// 借用方不得调用 Close。客户端在构造时创建，连通性校验推迟到 Connect。
type redisConnector struct {
	cfg     *RedisConfig
	client  *redis.Client
	logger  clog.Logger
	healthy atomic.Bool
}

// NewRedis 创建 Redis 连接器
//
// 只构造客户端与连接池配置，不触网；实际连通性在 Connect 时通过 Ping 校验。
func NewRedis(cfg *RedisConfig, opts ...Option) (RedisConnector, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrapf(err, "invalid redis config")
	}

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	opt.applyDefaults()

	c := &redisConnector{
		cfg:    cfg,
		logger: opt.logger.With(clog.String("connector", "redis"), clog.String("name", cfg.Name)),
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})

	return c, nil
}

// Connect 建立连接（幂等：已健康时直接返回）
func (c *redisConnector) Connect(ctx context.Context) error {
	if c.healthy.Load() {
		return nil
	}

	c.logger.Info("connecting to redis", clog.String("addr", c.cfg.Addr))

	if err := c.client.Ping(ctx).Err(); err != nil {
		c.logger.Error("redis connection failed", clog.Error(err), clog.String("addr", c.cfg.Addr))
		return xerrors.Wrapf(err, "redis connector[%s]: connection failed", c.cfg.Name)
	}

	c.healthy.Store(true)
	c.logger.Info("redis connected", clog.String("addr", c.cfg.Addr))

	return nil
}

// Close 关闭连接池并释放资源
func (c *redisConnector) Close() error {
	c.logger.Info("closing redis connection", clog.String("addr", c.cfg.Addr))
	c.healthy.Store(false)

	if c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		c.logger.Error("failed to close redis connection", clog.Error(err))
		return xerrors.Wrapf(err, "redis connector[%s]: close", c.cfg.Name)
	}
	return nil
}

// HealthCheck 通过 Ping 校验连通性并刷新健康状态缓存
func (c *redisConnector) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("redis health check failed", clog.Error(err))
		return xerrors.Wrapf(err, "redis connector[%s]: health check failed", c.cfg.Name)
	}

	c.healthy.Store(true)
	return nil
}

// IsHealthy 返回缓存的健康状态（无阻塞）
func (c *redisConnector) IsHealthy() bool {
	return c.healthy.Load()
}

// Name 返回连接器名称
func (c *redisConnector) Name() string {
	return c.cfg.Name
}

// GetClient 返回 Redis 客户端，供借用方执行实际数据操作
func (c *redisConnector) GetClient() *redis.Client {
	return c.client
}
