package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"wavelet-trader-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env         string           `yaml:"env"`
	Instrument  InstrumentConfig `yaml:"instrument"`
	Strategy    StrategyConfig   `yaml:"strategy"`
	Feed        FeedConfig       `yaml:"feed"`
	Logger      logger.Config    `yaml:"logger"`
	MetricsAddr string           `yaml:"metricsAddr"`
	Alert       AlertConfig      `yaml:"alert"`
	Breaker     BreakerConfig    `yaml:"breaker"`
}

// BreakerConfig 连续止损熔断；lossThreshold 为 0 时关闭。
type BreakerConfig struct {
	LossThreshold   int `yaml:"lossThreshold"`
	CooldownSeconds int `yaml:"cooldownSeconds"`
	ProbeTrades     int `yaml:"probeTrades"`
}

// InstrumentConfig 合约规格
type InstrumentConfig struct {
	Symbol         string  `yaml:"symbol"`
	PointValue     float64 `yaml:"pointValue"`     // 每点价值（货币）
	QtyStep        float64 `yaml:"qtyStep"`        // 数量最小步长
	RewardMultiple float64 `yaml:"rewardMultiple"` // 止盈距离 = 止损距离 * 该倍数
}

// StrategyConfig 策略参数，支持热更新。
type StrategyConfig struct {
	BaseQty          float64 `yaml:"baseQty"`          // 标准下单数量
	Multiplier       float64 `yaml:"multiplier"`       // 信号强度倍数
	MaxRiskDollars   float64 `yaml:"maxRiskDollars"`   // 单笔最大风险（货币）
	StopMultiplier   float64 `yaml:"stopMultiplier"`   // 止损距离 = WATR * 该倍数
	MinStopPoints    float64 `yaml:"minStopPoints"`    // 止损距离下限（点）
	MaxStopPoints    float64 `yaml:"maxStopPoints"`    // 止损距离上限（点）
	TrailPoints      float64 `yaml:"trailPoints"`      // trailing 距离（点），0 表示关闭
	NearStopFraction float64 `yaml:"nearStopFraction"` // 逼近止损告警阈值
}

// FeedConfig 成交回报源；Endpoint 为空时仅用本地撮合回报。
type FeedConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// AlertConfig 告警通道与限流配置；LogFile 非空时额外写一份纯文本告警日志。
type AlertConfig struct {
	ThrottleSeconds int    `yaml:"throttleSeconds"`
	LogFile         string `yaml:"logFile"`
}

// ThrottleInterval 返回限流间隔；未配置时默认 5 分钟。
func (a AlertConfig) ThrottleInterval() time.Duration {
	if a.ThrottleSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(a.ThrottleSeconds) * time.Second
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides deploy-specific fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("WT_FEED_ENDPOINT"); v != "" {
		cfg.Feed.Endpoint = v
	}
	if v := os.Getenv("WT_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("WT_SYMBOL"); v != "" {
		cfg.Instrument.Symbol = v
	}
	return cfg, Validate(cfg)
}
