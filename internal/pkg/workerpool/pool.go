package workerpool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var (
	ErrPoolClosed   = errors.New("worker pool is closed")
	ErrPoolOverload = errors.New("worker pool is overloaded")
)

// Config Worker Pool 配置
type Config struct {
	Workers int `mapstructure:"workers"` // worker 数量
	// Nonblocking 为 true 时池满直接返回 ErrPoolOverload，不阻塞调用方
	Nonblocking bool `mapstructure:"nonblocking"`
	// ExpiryDuration 空闲 worker 回收间隔
	ExpiryDuration time.Duration `mapstructure:"expiry_duration"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Workers:        64,
		Nonblocking:    true,
		ExpiryDuration: time.Minute,
	}
}

// Statistics 统计信息
type Statistics struct {
	Submitted int64 // 已提交
	Completed int64 // 已完成
	Failed    int64 // 任务 panic
	Dropped   int64 // 池满或已关闭被丢弃
}

// Pool 基于 ants 的后台任务池，用于请求结束后仍需运行的分离任务
type Pool struct {
	pool   *ants.Pool
	config *Config
	logger *zap.Logger

	inflight sync.WaitGroup
	closed   atomic.Bool

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// New 创建 Worker Pool
func New(config *Config, logger *zap.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		return nil, fmt.Errorf("workers must be > 0, got %d", config.Workers)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ExpiryDuration <= 0 {
		config.ExpiryDuration = time.Minute
	}

	antsPool, err := ants.NewPool(config.Workers,
		ants.WithNonblocking(config.Nonblocking),
		ants.WithExpiryDuration(config.ExpiryDuration),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}
	return &Pool{pool: antsPool, config: config, logger: logger}, nil
}

// Submit 提交任务。池满（非阻塞模式）返回 ErrPoolOverload
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		p.dropped.Add(1)
		return ErrPoolClosed
	}

	p.inflight.Add(1)
	err := p.pool.Submit(func() {
		defer p.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				p.failed.Add(1)
				p.logger.Error("worker panic", zap.Any("error", r), zap.Stack("stacktrace"))
				return
			}
			p.completed.Add(1)
		}()
		task()
	})
	if err != nil {
		p.inflight.Done()
		p.dropped.Add(1)
		if errors.Is(err, ants.ErrPoolOverload) {
			return ErrPoolOverload
		}
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		return err
	}
	p.submitted.Add(1)
	return nil
}

// Go 提交一个分离任务，失败只记录日志，从不返回给调用方
func (p *Pool) Go(name string, task func()) {
	if err := p.Submit(task); err != nil {
		p.logger.Debug("background task dropped", zap.String("task", name), zap.Error(err))
	}
}

// Wait 等待已提交任务全部结束，超时返回 false
func (p *Pool) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Running 获取运行中的 worker 数量
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Free 获取空闲 worker 数量
func (p *Pool) Free() int {
	return p.pool.Free()
}

// Stats 获取统计信息
func (p *Pool) Stats() Statistics {
	return Statistics{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}

// Shutdown 拒绝新任务，等待在途任务至多 timeout 后释放
func (p *Pool) Shutdown(timeout time.Duration) {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	if !p.Wait(timeout) {
		p.logger.Warn("worker pool shutdown timed out", zap.Duration("timeout", timeout))
	}
	p.pool.Release()
}
