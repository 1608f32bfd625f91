package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type PlanConfig struct {
	Name          string        `mapstructure:"NAME"`
	Rate          float64       `mapstructure:"RATE"`
	HoldingPeriod time.Duration `mapstructure:"HOLDING_PERIOD"`
}

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	Server     struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
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
	Engine struct {
		// Plan table is immutable for the lifetime of the process; the
		// maturity sweeper resolves plan names against it.
		Plans             []PlanConfig `mapstructure:"PLANS"`
		MinWithdraw       float64      `mapstructure:"MIN_WITHDRAW"`
		ReferralBonusRate float64      `mapstructure:"REFERRAL_BONUS_RATE"`
	} `mapstructure:"ENGINE"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("ENGINE.MIN_WITHDRAW", 1.00)
	v.SetDefault("ENGINE.REFERRAL_BONUS_RATE", 0.05)
	v.SetDefault("ENGINE.PLANS", []map[string]any{
		{"NAME": "Amateur Plan", "RATE": 0.05, "HOLDING_PERIOD": "168h"},
		{"NAME": "Exclusive Plan", "RATE": 0.08, "HOLDING_PERIOD": "168h"},
		{"NAME": "Diamond Plan", "RATE": 0.12, "HOLDING_PERIOD": "168h"},
	})
}

func LoadConfig() *Config {
	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()
	setDefaults(config)

	if err := config.ReadInConfig(); err != nil {
		zap.L().Error("failed to read config file", zap.Error(err))
		os.Exit(1)
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to unmarshal config", zap.Error(err))
		os.Exit(1)
	}

	return &cfg
}
