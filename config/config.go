package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	config *Config
	once   sync.Once
	mu     sync.Mutex
	v      *viper.Viper
)

// Config represents the configuration implementation.
type Config struct {
	AppName string
	RunMode string
	Runtime *Runtime
	Logger  *Logger
	Metrics *Metrics
	Viper   *viper.Viper
}

func init() {
	v = viper.New()
}

// Init initializes and loads the configuration.
func Init(configPath string) (cfg *Config, err error) {
	once.Do(func() {
		cfg, err = LoadConfig(configPath)
		if err == nil {
			config = cfg
		}
	})
	return config, err
}

// GetConfig returns the configuration.
func GetConfig() (*Config, error) {
	if config == nil {
		var err error
		config, err = LoadConfig("")
		if err != nil {
			return nil, fmt.Errorf("failed to initialize config: %w", err)
		}
	}
	return config, nil
}

// LoadConfig loads the configuration from the file.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".apphost"))
		}
	}

	v.SetEnvPrefix("APPHOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing file is fine, defaults and env cover it
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch watches the configuration file and invokes fn on change.
func Watch(fn func(*Config)) {
	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		cfg := fromViper(v)
		if err := cfg.Validate(); err != nil {
			return
		}
		config = cfg
		if fn != nil {
			fn(cfg)
		}
	})
}

// fromViper builds a Config from the given viper instance
func fromViper(v *viper.Viper) *Config {
	return &Config{
		AppName: getStringDefault(v, "app_name", "apphost"),
		RunMode: getStringDefault(v, "run_mode", "release"),
		Runtime: getRuntimeConfig(v),
		Logger:  getLoggerConfig(v),
		Metrics: getMetricsConfig(v),
		Viper:   v,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Runtime != nil {
		if err := c.Runtime.Validate(); err != nil {
			return fmt.Errorf("runtime config validation failed: %w", err)
		}
	}
	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics config validation failed: %w", err)
		}
	}
	return nil
}

// IsDevelopmentMode checks if running in development mode
func (c *Config) IsDevelopmentMode() bool {
	return c.RunMode == "development" || c.RunMode == "dev" || c.RunMode == "debug"
}

func getStringDefault(v *viper.Viper, key, fallback string) string {
	if s := v.GetString(key); s != "" {
		return s
	}
	return fallback
}
