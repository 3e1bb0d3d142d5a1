package factory

import (
	"fmt"
	"sync"

	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"go.uber.org/zap"
)

// BaseFactory 通用工厂基础结构
type BaseFactory struct {
	logger *logger.Logger
}

// NewBaseFactory 创建基础工厂
func NewBaseFactory(lgr *logger.Logger) *BaseFactory {
	if lgr == nil {
		lgr = logger.L()
	}
	return &BaseFactory{logger: lgr}
}

// Logger 获取 logger
func (f *BaseFactory) Logger() *logger.Logger {
	return f.logger
}

// Registry 按 key 缓存长生命周期实例，同一 key 只构建一次
type Registry[T any] struct {
	*BaseFactory
	name      string
	mu        sync.Mutex
	instances map[string]T
}

// NewRegistry 创建实例注册表
func NewRegistry[T any](name string, lgr *logger.Logger) *Registry[T] {
	return &Registry[T]{
		BaseFactory: NewBaseFactory(lgr),
		name:        name,
		instances:   make(map[string]T),
	}
}

// GetOrCreate 返回 key 对应的实例，不存在时调用 build 构建。build 失败不会被缓存
func (r *Registry[T]) GetOrCreate(key string, build func() (T, error)) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.instances[key]; ok {
		return inst, nil
	}

	inst, err := build()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to build %s %q: %w", r.name, key, err)
	}
	r.instances[key] = inst
	r.logger.Info("instance registered", zap.String("registry", r.name), zap.String("key", key))
	return inst, nil
}

// Len 已构建实例数
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}
