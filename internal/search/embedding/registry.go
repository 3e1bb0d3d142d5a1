package embedding

import (
	"fmt"

	"github.com/lk2023060901/activity-search/internal/pkg/factory"
	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/search/types"
)

// Registry 每个 ModelRef 只创建一个长连接 provider，之后所有请求复用
type Registry struct {
	providers *factory.Registry[Provider]
	configs   map[string]ProviderConfig
}

// NewRegistry 创建 provider 注册表，configs 以 provider 名称为 key
func NewRegistry(configs map[string]ProviderConfig, lgr *logger.Logger) *Registry {
	cp := make(map[string]ProviderConfig, len(configs))
	for name, c := range configs {
		cp[name] = c
	}
	return &Registry{
		providers: factory.NewRegistry[Provider]("embedding provider", lgr),
		configs:   cp,
	}
}

// Get 返回 model 对应的 provider
func (r *Registry) Get(model types.ModelRef) (Provider, error) {
	return r.providers.GetOrCreate(model.Key(), func() (Provider, error) {
		cfg, ok := r.configs[model.Provider]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, model.Provider)
		}
		return NewOpenAIProvider(cfg, model, r.providers.Logger())
	})
}

// Register 直接登记一个已构建的 provider
func (r *Registry) Register(p Provider) error {
	_, err := r.providers.GetOrCreate(p.Model().Key(), func() (Provider, error) { return p, nil })
	return err
}

// Len 已创建的 provider 数
func (r *Registry) Len() int {
	return r.providers.Len()
}
