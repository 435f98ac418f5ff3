package config

import (
	"strings"

	"github.com/ceyewan/storekit/clog"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	name      string
	paths     []string
	fileType  string
	envPrefix string
	logger    clog.Logger
}

// WithConfigName 设置配置文件名称（不含扩展名），默认 "storekit"
func WithConfigName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithConfigPaths 设置配置文件搜索路径，默认 ["."、"./config"]
func WithConfigPaths(paths ...string) Option {
	return func(o *options) {
		o.paths = paths
	}
}

// WithConfigType 设置配置文件类型（yaml/json），默认 yaml
func WithConfigType(typ string) Option {
	return func(o *options) {
		o.fileType = typ
	}
}

// WithEnvPrefix 设置环境变量前缀，默认 "STOREKIT"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// WithLogger 设置 Logger，内部会自动追加 namespace: "config"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func applyOptions(opts ...Option) options {
	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	if opt.name == "" {
		opt.name = "storekit"
	}
	if opt.paths == nil {
		opt.paths = []string{".", "./config"}
	}
	if opt.fileType == "" {
		opt.fileType = "yaml"
	}
	if opt.envPrefix == "" {
		opt.envPrefix = "STOREKIT"
	}
	opt.envPrefix = strings.ToUpper(opt.envPrefix)

	if opt.logger == nil {
		opt.logger = clog.Discard()
	} else {
		opt.logger = opt.logger.WithNamespace("config")
	}
	return opt
}
