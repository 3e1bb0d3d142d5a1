package embedding

import (
	"context"
	"errors"

	"github.com/lk2023060901/activity-search/internal/search/types"
)

var (
	// ErrDimensionMismatch 返回向量维度与模型声明不一致
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmptyQuery 归一化后查询为空
	ErrEmptyQuery = errors.New("query is empty after normalization")
	// ErrUnknownProvider 未配置的 provider
	ErrUnknownProvider = errors.New("unknown embedding provider")
)

// Provider 远程向量化服务
type Provider interface {
	// Embed 批量生成向量，返回顺序与输入一致
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Model 返回该客户端绑定的模型
	Model() types.ModelRef
}
