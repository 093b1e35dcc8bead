package config

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/vault-client-go"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Otel struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"OTEL"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Session struct {
		TTL time.Duration `mapstructure:"TTL"`
	} `mapstructure:"SESSION"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Gateway struct {
		URL          string        `mapstructure:"URL"`
		Timeout      time.Duration `mapstructure:"TIMEOUT"`
		RefreshDelay time.Duration `mapstructure:"REFRESH_DELAY"`
	} `mapstructure:"GATEWAY"`
	Resolver struct {
		BaseURL        string        `mapstructure:"BASE_URL"`
		UserAgent      string        `mapstructure:"USER_AGENT"`
		ResolveTimeout time.Duration `mapstructure:"RESOLVE_TIMEOUT"`
		FetchTimeout   time.Duration `mapstructure:"FETCH_TIMEOUT"`
	} `mapstructure:"RESOLVER"`
	Automation struct {
		TickInterval time.Duration `mapstructure:"TICK_INTERVAL"`
		Cooldown     time.Duration `mapstructure:"COOLDOWN"`
	} `mapstructure:"AUTOMATION"`
	Rates struct {
		URL      string        `mapstructure:"URL"`
		Currency string        `mapstructure:"CURRENCY"`
		Fallback float64       `mapstructure:"FALLBACK"`
		Timeout  time.Duration `mapstructure:"TIMEOUT"`
	} `mapstructure:"RATES"`
	SecretAES string `mapstructure:"SECRET_AES"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

func LoadConfig(p Params) *Config {

	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	setDefaults()

	if err := config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			zap.L().Error("failed to read config file", zap.Error(err))
			os.Exit(1)
		}
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to unmarshal config", zap.Error(err))
		os.Exit(1)
	}

	if p.Vault != nil {
		client := p.Vault
		ctx := context.Background()

		zap.L().Info("Starting Get Secrets", zap.String("path", cfg.AppEnv))
		secret, err := client.Secrets.KvV2Read(ctx, cfg.AppEnv, vault.WithMountPath("secret"))
		if err != nil {
			zap.L().Error("failed get secret from vault", zap.Error(err))
			os.Exit(1)
		}
		zap.L().Info("Success Get Secret")

		get := func(key string) string {
			if val, ok := secret.Data.Data[key].(string); ok {
				return val
			}
			return ""
		}

		cfg.Database.User = get("database_user")
		cfg.Database.Password = get("database_password")
		cfg.Redis.Password = get("redis_password")
		cfg.SecretAES = get("secret_aes")
	}

	return &cfg
}

func setDefaults() {
	config.SetDefault("APP_ENV", "development")
	config.SetDefault("APP_NAME", "boostpanel")
	config.SetDefault("HTTP_SERVER.ADDR", ":4000")
	config.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	config.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 30*time.Second)
	config.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", time.Minute)
	config.SetDefault("SESSION.TTL", 24*time.Hour)
	config.SetDefault("DATABASE.TYPE", "sqlite")
	config.SetDefault("DATABASE.DBNAME", "boostpanel.db")
	config.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	config.SetDefault("GATEWAY.URL", "https://smmgen.com/api/v2")
	config.SetDefault("GATEWAY.TIMEOUT", 20*time.Second)
	config.SetDefault("GATEWAY.REFRESH_DELAY", 5*time.Minute)
	config.SetDefault("RESOLVER.BASE_URL", "https://www.tiktok.com")
	config.SetDefault("RESOLVER.USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	config.SetDefault("RESOLVER.RESOLVE_TIMEOUT", 10*time.Second)
	config.SetDefault("RESOLVER.FETCH_TIMEOUT", 15*time.Second)
	config.SetDefault("AUTOMATION.TICK_INTERVAL", time.Minute)
	config.SetDefault("AUTOMATION.COOLDOWN", 10*time.Minute)
	config.SetDefault("RATES.URL", "https://open.er-api.com/v6/latest/USD")
	config.SetDefault("RATES.CURRENCY", "BDT")
	config.SetDefault("RATES.FALLBACK", 122.0)
	config.SetDefault("RATES.TIMEOUT", 5*time.Second)
}
