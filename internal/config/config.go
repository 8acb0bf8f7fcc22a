// Package config loads client settings from defaults, config.yaml and PLOTLINE_* env vars.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const DefaultServerURL = "http://localhost:3000"

type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	AI     AIConfig     `mapstructure:"ai" yaml:"ai"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Export ExportConfig `mapstructure:"export" yaml:"export"`
}

type ServerConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type AIConfig struct {
	// DevFallback substitutes canned text when generation fails. Development only.
	DevFallback  bool   `mapstructure:"dev_fallback" yaml:"dev_fallback"`
	DefaultStyle string `mapstructure:"default_style" yaml:"default_style"`
	WordLimit    int    `mapstructure:"word_limit" yaml:"word_limit"`
	Model        string `mapstructure:"model" yaml:"model"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	// File is relative to the config dir unless absolute. "-" disables file logging.
	File string `mapstructure:"file" yaml:"file"`
}

type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Load reads <path> when present (missing file is fine), then applies env overrides.
// Precedence: env PLOTLINE_* > file > defaults. Flags are layered on by the caller.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if strings.TrimSpace(path) != "" {
		if err := loadConfigFile(v, path); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix("PLOTLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.URL = strings.TrimRight(strings.TrimSpace(cfg.Server.URL), "/")
	return &cfg, nil
}

func loadConfigFile(v *viper.Viper, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := v.ReadConfig(strings.NewReader(expandEnv(string(content)))); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

var envPlaceholder = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// expandEnv replaces ${VAR} and ${VAR:default}; unknown vars without a default are kept as-is.
func expandEnv(s string) string {
	return envPlaceholder.ReplaceAllStringFunc(s, func(match string) string {
		sub := envPlaceholder.FindStringSubmatch(match)
		if val, ok := os.LookupEnv(sub[1]); ok {
			return val
		}
		if sub[2] != "" {
			return sub[3]
		}
		return match
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", DefaultServerURL)
	v.SetDefault("server.timeout", "30s")

	v.SetDefault("ai.dev_fallback", false)
	v.SetDefault("ai.default_style", "default")
	v.SetDefault("ai.word_limit", 1000)
	v.SetDefault("ai.model", "qwen-turbo")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "plotline.log")

	v.SetDefault("export.dir", ".")
}

// YAML renders c as a config.yaml document that Load reads back unchanged.
func (c Config) YAML() ([]byte, error) {
	type server struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	}
	doc := struct {
		Server server       `yaml:"server"`
		AI     AIConfig     `yaml:"ai"`
		Log    LogConfig    `yaml:"log"`
		Export ExportConfig `yaml:"export"`
	}{
		Server: server{URL: c.Server.URL, Timeout: c.Server.Timeout.String()},
		AI:     c.AI,
		Log:    c.Log,
		Export: c.Export,
	}
	return yaml.Marshal(doc)
}
