package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, "varejo-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "varejosaas.com.br", cfg.Tenant.BaseDomain)

	assert.Equal(t, 2*time.Minute, cfg.Entitlement.TTL)
	assert.Equal(t, []time.Duration{
		5 * time.Minute,
		7 * time.Minute,
		10 * time.Minute,
		12 * time.Minute,
		15 * time.Minute,
		20 * time.Minute,
		30 * time.Minute,
	}, cfg.Entitlement.RetryLadder)
	assert.Equal(t, 30*time.Minute, cfg.Entitlement.SalesDisableAfter)
	assert.Equal(t, 24*time.Hour, cfg.Entitlement.EntryRetention)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		App:         AppConfig{Port: "9000"},
		Entitlement: EntitlementConfig{TTL: 5 * time.Minute},
	}
	applyDefaults(cfg)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, 5*time.Minute, cfg.Entitlement.TTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "idle conns above open conns",
			mutate:  func(cfg *Config) { cfg.Database.MaxIdleConns = 100 },
			wantErr: "max_idle_conns",
		},
		{
			name:    "non-positive ttl",
			mutate:  func(cfg *Config) { cfg.Entitlement.TTL = -time.Second },
			wantErr: "entitlement.ttl",
		},
		{
			name: "sales window shorter than ttl",
			mutate: func(cfg *Config) {
				cfg.Entitlement.TTL = 10 * time.Minute
				cfg.Entitlement.SalesDisableAfter = 5 * time.Minute
			},
			wantErr: "sales_disable_after",
		},
		{
			name: "decreasing retry ladder",
			mutate: func(cfg *Config) {
				cfg.Entitlement.RetryLadder = []time.Duration{10 * time.Minute, 5 * time.Minute}
			},
			wantErr: "non-decreasing",
		},
		{
			name: "entry retention shorter than sales window",
			mutate: func(cfg *Config) {
				cfg.Entitlement.EntryRetention = 10 * time.Minute
			},
			wantErr: "entry_retention",
		},
		{
			name:    "sampling ratio out of range",
			mutate:  func(cfg *Config) { cfg.Telemetry.SamplingRatio = 1.5 },
			wantErr: "sampling_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateProductionRules(t *testing.T) {
	productionConfig := func() *Config {
		cfg := validConfig()
		cfg.App.Env = "production"
		cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
		cfg.Database.Password = "secret"
		cfg.Database.SSLMode = "require"
		return cfg
	}

	assert.NoError(t, productionConfig().validate())

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:    "missing jwt secret",
			mutate:  func(cfg *Config) { cfg.JWT.Secret = "" },
			wantErr: "jwt.secret",
		},
		{
			name:    "short jwt secret",
			mutate:  func(cfg *Config) { cfg.JWT.Secret = "too-short" },
			wantErr: "32 characters",
		},
		{
			name:    "missing database password",
			mutate:  func(cfg *Config) { cfg.Database.Password = "" },
			wantErr: "database.password",
		},
		{
			name:    "ssl disabled",
			mutate:  func(cfg *Config) { cfg.Database.SSLMode = "disable" },
			wantErr: "sslmode",
		},
		{
			name:    "default tenant set",
			mutate:  func(cfg *Config) { cfg.Tenant.DefaultTenant = "demo" },
			wantErr: "default_tenant",
		},
		{
			name:    "wildcard cors origin",
			mutate:  func(cfg *Config) { cfg.HTTP.CORSAllowOrigins = []string{"*"} },
			wantErr: "cors_allow_origins",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := productionConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseLadder(t *testing.T) {
	ladder := parseLadder([]string{"5m", "bogus", "7m", "-1m", "10m"})
	assert.Equal(t, []time.Duration{5 * time.Minute, 7 * time.Minute, 10 * time.Minute}, ladder)

	assert.Nil(t, parseLadder(nil))
}

func TestDatabaseDSNEscaping(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "varejo",
		Password: "p@ss:w/rd",
		DBName:   "varejo",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// special characters in the password must be escaped
	assert.NotContains(t, dsn, "p@ss:w/rd")
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}
