package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/storekit/clog"
	"github.com/ceyewan/storekit/xerrors"
)

// ErrEmptyConfig 加载后配置为空
var ErrEmptyConfig = xerrors.New("config: configuration is empty")

// loader 配置加载器实现（非导出）
type loader struct {
	v      *viper.Viper
	opts   options
	logger clog.Logger

	mu        sync.RWMutex
	watches   map[string][]chan Event
	oldValues map[string]any
}

func newLoader(opt options) *loader {
	return &loader{
		v:         viper.New(),
		opts:      opt,
		logger:    opt.logger,
		watches:   make(map[string][]chan Event),
		oldValues: make(map[string]any),
	}
}

func (l *loader) Load(ctx context.Context) error {
	l.v.SetConfigName(l.opts.name)
	l.v.SetConfigType(l.opts.fileType)
	for _, path := range l.opts.paths {
		l.v.AddConfigPath(path)
	}

	// 环境变量优先级最高，先行注册
	l.v.SetEnvPrefix(l.opts.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.loadDotEnv(); err != nil {
		l.logger.Warn("no .env file loaded", clog.Error(err))
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return xerrors.Wrapf(err, "config: read %s", l.opts.name)
		}
		l.logger.Warn("no configuration file found",
			clog.String("name", l.opts.name))
	}

	if err := l.loadEnvironmentConfig(); err != nil {
		return err
	}

	if len(l.v.AllSettings()) == 0 {
		return ErrEmptyConfig
	}

	l.captureCurrentValues()

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if err := l.loadEnvironmentConfig(); err != nil {
			l.logger.Error("reload environment config failed", clog.Error(err))
		}
		if err := l.loadDotEnv(); err != nil {
			l.logger.Warn("reload .env failed", clog.Error(err))
		}
		l.notifyWatches()
	})
	l.v.WatchConfig()

	return nil
}

// loadDotEnv 尝试从搜索路径加载 .env 文件
func (l *loader) loadDotEnv() error {
	var loaded bool
	var lastErr error

	if err := godotenv.Load(); err == nil {
		loaded = true
	} else {
		lastErr = err
	}
	for _, path := range l.opts.paths {
		if err := godotenv.Load(filepath.Join(path, ".env")); err == nil {
			loaded = true
		} else {
			lastErr = err
		}
	}

	if !loaded {
		return lastErr
	}
	return nil
}

// loadEnvironmentConfig 合并环境特定配置（如 storekit.production.yaml）
func (l *loader) loadEnvironmentConfig() error {
	env := os.Getenv(l.opts.envPrefix + "_ENV")
	if env == "" {
		return nil
	}

	envName := l.opts.name + "." + env
	l.v.SetConfigName(envName)
	defer l.v.SetConfigName(l.opts.name)

	if err := l.v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return xerrors.Wrapf(err, "config: merge %s", envName)
		}
		l.logger.Info("no environment-specific config",
			clog.String("env", env))
		return nil
	}

	l.logger.Info("environment config merged", clog.String("env", env))
	return nil
}

func (l *loader) captureCurrentValues() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.watches {
		l.oldValues[key] = l.v.Get(key)
	}
}

func (l *loader) Get(key string) any {
	return l.v.Get(key)
}

func (l *loader) Unmarshal(v any) error {
	return l.v.Unmarshal(v)
}

func (l *loader) UnmarshalKey(key string, v any) error {
	return l.v.UnmarshalKey(key, v)
}

func (l *loader) Watch(ctx context.Context, key string) (<-chan Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Event, 10)
	l.watches[key] = append(l.watches[key], ch)
	l.oldValues[key] = l.v.Get(key)

	go func() {
		<-ctx.Done()
		l.removeWatch(key, ch)
	}()

	return ch, nil
}

func (l *loader) removeWatch(key string, ch chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	chans := l.watches[key]
	for i, c := range chans {
		if c == ch {
			l.watches[key] = append(chans[:i], chans[i+1:]...)
			close(ch)
			break
		}
	}
	if len(l.watches[key]) == 0 {
		delete(l.watches, key)
		delete(l.oldValues, key)
	}
}

func (l *loader) notifyWatches() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, channels := range l.watches {
		newValue := l.v.Get(key)
		oldValue := l.oldValues[key]
		if reflect.DeepEqual(oldValue, newValue) {
			continue
		}

		event := Event{
			Key:       key,
			Value:     newValue,
			OldValue:  oldValue,
			Source:    "file",
			Timestamp: time.Now(),
		}
		l.oldValues[key] = newValue

		for _, ch := range channels {
			select {
			case ch <- event:
			default:
				l.logger.Warn("watch channel full, event dropped",
					clog.String("key", key))
			}
		}
	}
}
