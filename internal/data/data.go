package data

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/activity-search/internal/conf"
	"github.com/lk2023060901/activity-search/internal/pkg/database"
	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/pkg/milvus"
	pkgredis "github.com/lk2023060901/activity-search/internal/pkg/redis"
	searchdata "github.com/lk2023060901/activity-search/internal/search/data"
	"go.uber.org/zap"
)

// Data 进程级存储连接。Redis 未启用、Milvus 不可用时对应字段为 nil
type Data struct {
	DB     *database.DB
	Redis  *pkgredis.Client
	Milvus *milvus.Client
	Logger *logger.Logger
}

func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	if log == nil {
		log = logger.L()
	}

	// Initialize PostgreSQL
	db, err := database.New(&config.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}
	if config.Database.AutoMigrate {
		if err := db.AutoMigrate(searchdata.Models()...); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize Redis
	var redisClient *pkgredis.Client
	if config.Redis.Enabled {
		redisClient, err = pkgredis.New(&config.Redis.Config, log)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to init redis: %w", err)
		}
	} else {
		log.Info("redis disabled, caches fall back to in-process LRU")
	}

	// Initialize Milvus
	var milvusClient *milvus.Client
	if config.Milvus.Address != "" {
		milvusClient, err = milvus.New(context.Background(), &config.Milvus, log)
		if err != nil {
			log.Warn("failed to init milvus (vector path disabled)", zap.Error(err))
			milvusClient = nil
		}
	}

	d := &Data{
		DB:     db,
		Redis:  redisClient,
		Milvus: milvusClient,
		Logger: log,
	}

	cleanup := func() {
		log.Info("cleaning up data resources")

		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}

		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Warn("failed to close redis", zap.Error(err))
			}
		}

		if milvusClient != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := milvusClient.Close(ctx); err != nil {
				log.Warn("failed to close milvus", zap.Error(err))
			}
		}
	}

	return d, cleanup, nil
}

// HealthCheck 检查数据库与 Redis 连通性
func (d *Data) HealthCheck(ctx context.Context) map[string]string {
	status := map[string]string{"database": "ok"}
	if err := d.DB.HealthCheck(ctx); err != nil {
		status["database"] = err.Error()
	}
	if d.Redis != nil {
		status["redis"] = "ok"
		if err := d.Redis.Ping(ctx); err != nil {
			status["redis"] = err.Error()
		}
	}
	if d.Milvus != nil {
		status["milvus"] = "ok"
	}
	return status
}
