// Package config holds the typed runtime settings, read through viper from
// defaults, an optional config file and AGENT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "AGENT"

type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Retry    RetryConfig    `mapstructure:"retry" yaml:"retry"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
}

type PipelineConfig struct {
	IoUThreshold  float64 `mapstructure:"iou_threshold" yaml:"iou_threshold"`
	MinConfidence float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
	// FallbackMinConfidence is the floor of the single re-run; 0 disables it.
	FallbackMinConfidence float64  `mapstructure:"fallback_min_confidence" yaml:"fallback_min_confidence"`
	StrictScreenshot      bool     `mapstructure:"strict_screenshot" yaml:"strict_screenshot"`
	Workers               int      `mapstructure:"workers" yaml:"workers"`
	ExtraElementTypes     []string `mapstructure:"extra_element_types" yaml:"extra_element_types"`
}

type LLMConfig struct {
	BaseURL       string  `mapstructure:"base_url" yaml:"base_url"`
	APIKeyEnv     string  `mapstructure:"api_key_env" yaml:"api_key_env"`
	PlannerModel  string  `mapstructure:"planner_model" yaml:"planner_model"`
	VisionModel   string  `mapstructure:"vision_model" yaml:"vision_model"`
	Temperature   float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxImageWidth int     `mapstructure:"max_image_width" yaml:"max_image_width"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval" yaml:"max_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Dir    string `mapstructure:"dir" yaml:"dir"`
}

type BrowserConfig struct {
	Headless   bool          `mapstructure:"headless" yaml:"headless"`
	NoSandbox  bool          `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	SlowMotion time.Duration `mapstructure:"slow_motion" yaml:"slow_motion"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	StartURL   string        `mapstructure:"start_url" yaml:"start_url"`
}

func SetDefaults(v *viper.Viper) {
	// -- Pipeline --
	v.SetDefault("pipeline.iou_threshold", 0.5)
	v.SetDefault("pipeline.min_confidence", 0.3)
	v.SetDefault("pipeline.fallback_min_confidence", 0.15)
	v.SetDefault("pipeline.strict_screenshot", false)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.extra_element_types", []string{})

	// -- LLM --
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.api_key_env", "OPENROUTER_API_KEY")
	v.SetDefault("llm.planner_model", "openai/gpt-4o-mini")
	v.SetDefault("llm.vision_model", "openai/gpt-4o")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_image_width", 1024)

	// -- Retry --
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_interval", "1s")
	v.SetDefault("retry.max_interval", "8s")

	// -- Log --
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.dir", "log")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.slow_motion", "0s")
	v.SetDefault("browser.timeout", "10s")
	v.SetDefault("browser.start_url", "about:blank")
}

func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Init points v at cfgFile (or ./agent.yaml when empty) and the AGENT_*
// environment. A missing default config file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("agent")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	p := c.Pipeline
	if p.IoUThreshold <= 0 || p.IoUThreshold > 1 {
		return fmt.Errorf("pipeline.iou_threshold must be in (0, 1]")
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		return fmt.Errorf("pipeline.min_confidence must be in [0, 1]")
	}
	if p.FallbackMinConfidence < 0 || (p.FallbackMinConfidence > 0 && p.FallbackMinConfidence >= p.MinConfidence) {
		return fmt.Errorf("pipeline.fallback_min_confidence must be 0 or below pipeline.min_confidence")
	}
	if p.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be a positive integer")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be a positive integer")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json")
	}
	return nil
}
