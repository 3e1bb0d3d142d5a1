package milvus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"go.uber.org/zap"
)

// Client Milvus 客户端封装
type Client struct {
	cfg    *Config
	client *milvusclient.Client
	logger *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// New 创建新的 Milvus 客户端
func New(ctx context.Context, cfg *Config, log *logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapError("New", err, "", "")
	}
	if log == nil {
		log = logger.L()
	}
	cfg.SetDefaults()

	clientCfg := &milvusclient.ClientConfig{
		Address: cfg.Address,
		DBName:  cfg.Database,
	}
	if cfg.Username != "" && cfg.Password != "" {
		clientCfg.Username = cfg.Username
		clientCfg.Password = cfg.Password
	}
	if cfg.APIKey != "" {
		clientCfg.APIKey = cfg.APIKey
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	client, err := milvusclient.New(dialCtx, clientCfg)
	if err != nil {
		return nil, WrapError("New", err, "", "")
	}

	log.Info("milvus client created successfully",
		zap.String("address", cfg.Address),
		zap.String("database", cfg.Database))

	return &Client{cfg: cfg, client: client, logger: log.Named("milvus")}, nil
}

// Close 关闭客户端连接
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	if c.client != nil {
		if err := c.client.Close(ctx); err != nil {
			c.logger.Error("failed to close milvus client", zap.Error(err))
			return WrapError("Close", err, "", "")
		}
	}
	c.closed = true
	c.logger.Info("milvus client closed successfully")
	return nil
}

// GetClient 获取底层的 Milvus 客户端，已关闭时返回 nil
func (c *Client) GetClient() *milvusclient.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	return c.client
}

// GetConfig 获取客户端配置副本
func (c *Client) GetConfig() Config {
	return *c.cfg
}

// HasCollection 检查 Collection 是否存在
func (c *Client) HasCollection(ctx context.Context, collectionName string) (bool, error) {
	cli := c.GetClient()
	if cli == nil {
		return false, ErrClientClosed
	}
	if collectionName == "" {
		return false, ErrInvalidCollectionName
	}

	var exists bool
	err := c.execWithRetry(ctx, "HasCollection", func(ctx context.Context) error {
		var err error
		exists, err = cli.HasCollection(ctx, milvusclient.NewHasCollectionOption(collectionName))
		return err
	})
	if err != nil {
		return false, WrapError("HasCollection", err, collectionName, "")
	}
	return exists, nil
}

// execWithRetry 执行操作并支持重试，等待受 ctx 约束
func (c *Client) execWithRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for i := 0; i <= c.cfg.MaxRetries; i++ {
		if i > 0 {
			c.logger.Debug("retrying operation",
				zap.String("operation", op),
				zap.Int("attempt", i),
				zap.Error(err))

			select {
			case <-ctx.Done():
				return WrapError(op, ctx.Err(), "", "")
			case <-time.After(c.cfg.RetryDelay):
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !isRetryable(err) {
			return WrapError(op, err, "", "")
		}
	}
	return WrapError(op, fmt.Errorf("max retries exceeded: %w", err), "", "")
}
