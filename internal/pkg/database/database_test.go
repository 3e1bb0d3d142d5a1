package database

import (
	"testing"

	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type rowPO struct {
	ID          uint
	WorkspaceID string
	Weight      float64
}

// dryRunDB builds a gorm handle that renders SQL without a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: DefaultConfig().DSN()}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "default config", mutate: func(c *Config) {}},
		{name: "missing host", mutate: func(c *Config) { c.Host = "" }, wantErr: true},
		{name: "invalid port", mutate: func(c *Config) { c.Port = 0 }, wantErr: true},
		{name: "invalid SSL mode", mutate: func(c *Config) { c.SSLMode = "maybe" }, wantErr: true},
		{name: "invalid log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: true},
		{name: "idle over open", mutate: func(c *Config) { c.MaxIdleConns = 100; c.MaxOpenConns = 10 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = ""
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=activity sslmode=disable TimeZone=UTC",
		cfg.DSN())
}

func TestScopes(t *testing.T) {
	db := dryRunDB(t)

	var rows []rowPO
	stmt := db.Model(&rowPO{}).
		Scopes(ForWorkspace("ws-1"), WhereIf(false, "weight > ?", 1), OrderBy("weight", true), LimitTo(5)).
		Find(&rows).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "workspace_id = $1")
	assert.NotContains(t, sql, "weight >")
	assert.Contains(t, sql, "ORDER BY weight DESC")
	assert.Contains(t, sql, "LIMIT $2")
	assert.Equal(t, []interface{}{"ws-1", 5}, stmt.Vars)
}

func TestIsRecordNotFoundError(t *testing.T) {
	assert.True(t, IsRecordNotFoundError(gorm.ErrRecordNotFound))
	assert.False(t, IsRecordNotFoundError(nil))
}

func TestWrapDefaults(t *testing.T) {
	w := Wrap(dryRunDB(t), nil, logger.NewNop())
	assert.NotNil(t, w.GetDB())
}
