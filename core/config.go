package core

import (
	"fmt"
	"strings"
)

type DeliveryConfig struct {
	UserAgent                string `koanf:"user_agent" mapstructure:"user_agent"`
	DefaultTimeoutSeconds    int    `koanf:"default_timeout_seconds" mapstructure:"default_timeout_seconds"`
	MaxConnectTimeoutSeconds int    `koanf:"max_connect_timeout_seconds" mapstructure:"max_connect_timeout_seconds"`
	MaxResponseBodyBytes     int64  `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Delivery    DeliveryConfig `koanf:"delivery" mapstructure:"delivery"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: DefaultServiceName,
		Delivery: DeliveryConfig{
			UserAgent:                DefaultUserAgent,
			DefaultTimeoutSeconds:    DefaultTimeoutSeconds,
			MaxConnectTimeoutSeconds: int(DefaultMaxConnectTimeout.Seconds()),
			MaxResponseBodyBytes:     DefaultMaxResponseBodyBytes,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Delivery.UserAgent) == "" {
		return fmt.Errorf("core: delivery.user_agent is required")
	}
	if c.Delivery.DefaultTimeoutSeconds < 0 {
		return fmt.Errorf("core: delivery.default_timeout_seconds must not be negative")
	}
	if c.Delivery.MaxConnectTimeoutSeconds < 0 {
		return fmt.Errorf("core: delivery.max_connect_timeout_seconds must not be negative")
	}
	if c.Delivery.MaxResponseBodyBytes < 0 {
		return fmt.Errorf("core: delivery.max_response_body_bytes must not be negative")
	}
	return nil
}
