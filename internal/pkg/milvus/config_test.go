package milvus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost:19530", cfg.Address)
	assert.Equal(t, "default", cfg.Database)
	assert.Equal(t, "activity_", cfg.CollectionPrefix)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, DefaultRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultRetryDelay, cfg.RetryDelay)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "valid", cfg: &Config{Address: "localhost:19530"}},
		{name: "empty address", cfg: &Config{}, wantErr: true},
		{name: "api key and password", cfg: &Config{Address: "x", APIKey: "k", Username: "u"}, wantErr: true},
		{name: "negative retries", cfg: &Config{Address: "x", MaxRetries: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_StringHidesSecrets(t *testing.T) {
	cfg := &Config{Address: "x", Username: "u", Password: "secret"}
	assert.NotContains(t, cfg.String(), "secret")
}
