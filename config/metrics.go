package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Metrics defines runtime metrics configuration
type Metrics struct {
	Enabled       bool            `json:"enabled" yaml:"enabled"`
	FlushInterval string          `json:"flush_interval" yaml:"flush_interval"`
	BatchSize     int             `json:"batch_size" yaml:"batch_size"`
	Retention     string          `json:"retention" yaml:"retention"`
	Storage       *MetricsStorage `json:"storage" yaml:"storage"`
}

// MetricsStorage defines metrics storage configuration
type MetricsStorage struct {
	// Type is "memory" or "redis"
	Type      string `json:"type" yaml:"type"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
	// Redis connection options, used when Type is "redis"
	RedisAddr     string `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `json:"redis_password" yaml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db"`
}

func getMetricsConfig(v *viper.Viper) *Metrics {
	m := &Metrics{
		Enabled:       v.GetBool("metrics.enabled"),
		FlushInterval: v.GetString("metrics.flush_interval"),
		BatchSize:     v.GetInt("metrics.batch_size"),
		Retention:     v.GetString("metrics.retention"),
		Storage: &MetricsStorage{
			Type:          v.GetString("metrics.storage.type"),
			KeyPrefix:     v.GetString("metrics.storage.key_prefix"),
			RedisAddr:     v.GetString("metrics.storage.redis_addr"),
			RedisPassword: v.GetString("metrics.storage.redis_password"),
			RedisDB:       v.GetInt("metrics.storage.redis_db"),
		},
	}
	if m.FlushInterval == "" {
		m.FlushInterval = "30s"
	}
	if m.BatchSize == 0 {
		m.BatchSize = 100
	}
	if m.Retention == "" {
		m.Retention = "168h"
	}
	if m.Storage.Type == "" {
		m.Storage.Type = "memory"
	}
	if m.Storage.KeyPrefix == "" {
		m.Storage.KeyPrefix = "apphost"
	}
	return m
}

// Validate validates the metrics configuration
func (m *Metrics) Validate() error {
	if !m.Enabled {
		return nil
	}

	if m.FlushInterval != "" {
		if _, err := time.ParseDuration(m.FlushInterval); err != nil {
			return fmt.Errorf("invalid flush_interval: %v", err)
		}
	}
	if m.Retention != "" {
		if _, err := time.ParseDuration(m.Retention); err != nil {
			return fmt.Errorf("invalid retention: %v", err)
		}
	}
	if m.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be greater than 0, got: %d", m.BatchSize)
	}

	if m.Storage != nil {
		switch m.Storage.Type {
		case "memory", "redis":
		default:
			return fmt.Errorf("unknown metrics storage type: %s", m.Storage.Type)
		}
		if m.Storage.Type == "redis" && m.Storage.RedisAddr == "" {
			return fmt.Errorf("redis storage requires redis_addr")
		}
	}
	return nil
}
