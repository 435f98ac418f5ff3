package breaker

import "time"

// Classifier 失败分类函数
//
// 返回 true 表示该错误是"合格失败"（计入熔断统计），
// 返回 false 表示客户端错误之类的失败，不计入熔断且始终透传。
type Classifier func(err error) bool

// Config 熔断器配置，实例创建后不可变
type Config struct {
	// FailureThreshold 连续合格失败达到此值后熔断（默认：5）
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold"`

	// ResetTimeout 打开状态持续时间（默认：30s）
	// 超时后下一次调用触发半开探测（惰性检查，无后台定时器）
	ResetTimeout time.Duration `json:"reset_timeout" yaml:"reset_timeout"`

	// SuccessThreshold 半开状态下连续成功此值次后闭合（默认：2）
	SuccessThreshold int `json:"success_threshold" yaml:"success_threshold"`

	// Classifier 失败分类规则
	// 默认：所有非 nil 错误均为合格失败。
	// HTTP 场景应注入 httpx.QualifiesForTrip，使 4xx 不触发熔断。
	Classifier Classifier `json:"-" yaml:"-"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 2,
	}
}

func (c *Config) setDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.Classifier == nil {
		c.Classifier = func(err error) bool { return err != nil }
	}
}

func (c *Config) validate() error {
	if c.FailureThreshold <= 0 || c.SuccessThreshold <= 0 {
		return ErrInvalidConfig
	}
	if c.ResetTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// clone 复制配置，避免 Registry 的调用方共享可变状态
func (c *Config) clone() *Config {
	dup := *c
	return &dup
}
