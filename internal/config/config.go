package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/orchestrator"
	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Amap         AmapConfig         `yaml:"amap" mapstructure:"amap"`
	Xianyu       GatewayConfig      `yaml:"xianyu" mapstructure:"xianyu"`
	Zhuanzhuan   GatewayConfig      `yaml:"zhuanzhuan" mapstructure:"zhuanzhuan"`
	Bilibili     GatewayConfig      `yaml:"bilibili" mapstructure:"bilibili"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" mapstructure:"orchestrator"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// LLMConfig holds Anthropic API settings.
type LLMConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	VisionModel string `yaml:"vision_model" mapstructure:"vision_model"`
}

// AmapConfig holds AMap Web API settings.
type AmapConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GatewayConfig holds a plain HTTP gateway endpoint.
type GatewayConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OrchestratorConfig tunes the recommendation tree.
type OrchestratorConfig struct {
	BranchTimeoutSecs      int  `yaml:"branch_timeout_secs" mapstructure:"branch_timeout_secs"`
	CoordinatorTimeoutSecs int  `yaml:"coordinator_timeout_secs" mapstructure:"coordinator_timeout_secs"`
	Serial                 bool `yaml:"serial" mapstructure:"serial"`
	RetryMaxAttempts       int  `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`

	BreakerFailureThreshold int `yaml:"breaker_failure_threshold" mapstructure:"breaker_failure_threshold"`
	BreakerResetSecs        int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`

	VideoTopN        int `yaml:"video_top_n" mapstructure:"video_top_n"`
	VideoSearchLimit int `yaml:"video_search_limit" mapstructure:"video_search_limit"`
	VideoMinPlay     int `yaml:"video_min_play" mapstructure:"video_min_play"`

	MarketSearchLimit int `yaml:"market_search_limit" mapstructure:"market_search_limit"`
	POIRadius         int `yaml:"poi_radius" mapstructure:"poi_radius"`
	POILimit          int `yaml:"poi_limit" mapstructure:"poi_limit"`

	ScoreSumMin int `yaml:"score_sum_min" mapstructure:"score_sum_min"`
	ScoreSumMax int `yaml:"score_sum_max" mapstructure:"score_sum_max"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Orchestrator converts the tuning section into the orchestrator's own
// config type.
func (c OrchestratorConfig) Orchestrator() orchestrator.Config {
	retry := resilience.DefaultRetryConfig()
	if c.RetryMaxAttempts > 0 {
		retry.MaxAttempts = c.RetryMaxAttempts
	}
	mode := orchestrator.Parallel
	if c.Serial {
		mode = orchestrator.Serial
	}
	cfg := orchestrator.Config{
		BranchTimeout:      time.Duration(c.BranchTimeoutSecs) * time.Second,
		CoordinatorTimeout: time.Duration(c.CoordinatorTimeoutSecs) * time.Second,
		Mode:               mode,
		Retry:              retry,
		Breaker: resilience.CircuitConfig{
			FailureThreshold: c.BreakerFailureThreshold,
			ResetTimeout:     time.Duration(c.BreakerResetSecs) * time.Second,
		},
		VideoTopN:          c.VideoTopN,
		VideoSearchLimit:   c.VideoSearchLimit,
		MarketSearchLimit:  c.MarketSearchLimit,
		POIRadius:          c.POIRadius,
		POILimit:           c.POILimit,
		ScoreSumMin:        c.ScoreSumMin,
		ScoreSumMax:        c.ScoreSumMax,
	}
	if c.VideoMinPlay > 0 {
		cfg.VideoMinThresholds = map[string]float64{"play": float64(c.VideoMinPlay)}
	}
	return cfg
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("llm.model", "claude-haiku-4-5-20251001")
	v.SetDefault("llm.vision_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("amap.base_url", "https://restapi.amap.com/v3")
	v.SetDefault("bilibili.base_url", "https://api.bilibili.com")
	v.SetDefault("orchestrator.branch_timeout_secs", 25)
	v.SetDefault("orchestrator.coordinator_timeout_secs", 60)
	v.SetDefault("orchestrator.retry_max_attempts", 2)
	v.SetDefault("orchestrator.breaker_failure_threshold", 5)
	v.SetDefault("orchestrator.breaker_reset_secs", 30)
	v.SetDefault("orchestrator.video_top_n", 5)
	v.SetDefault("orchestrator.video_search_limit", 20)
	v.SetDefault("orchestrator.video_min_play", 100)
	v.SetDefault("orchestrator.market_search_limit", 20)
	v.SetDefault("orchestrator.poi_radius", 5000)
	v.SetDefault("orchestrator.poi_limit", 10)
	v.SetDefault("orchestrator.score_sum_min", 80)
	v.SetDefault("orchestrator.score_sum_max", 120)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
