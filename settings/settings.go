// Package settings loads the static charge point settings from an INI file.
package settings

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/ini.v1"
)

const (
	ProtocolV16  = "1.6"
	ProtocolV201 = "2.0.1"

	envChargePointID = "CHARGE_POINT_ID"
	envServerURL     = "CENTRAL_SYSTEM_URL"
)

type Settings struct {
	ChargePoint struct {
		ID                string  `ini:"id" validate:"required"`
		Vendor            string  `ini:"vendor" validate:"required"`
		Model             string  `ini:"model" validate:"required"`
		ProtocolVersion   string  `ini:"protocol_version" validate:"oneof=1.6 2.0.1"`
		MaxChargingTime   int     `ini:"max_charging_time_minutes" validate:"gt=0"`
		MinPowerThreshold float64 `ini:"min_power_threshold" validate:"gte=0"`
		LogLevel          string  `ini:"log_level" validate:"oneof=trace debug info warn warning error"`
	} `ini:"charge_point"`

	Server struct {
		URL      string `ini:"url" validate:"required,url"`
		Username string `ini:"username"`
		Password string `ini:"password"`
	} `ini:"server"`

	Files struct {
		Connectors           string `ini:"connectors" validate:"required"`
		Configuration        string `ini:"configuration" validate:"required"`
		AuthorizationCache   string `ini:"authorization_cache" validate:"required"`
		UpdatesDir           string `ini:"updates_dir" validate:"required"`
		TransactionSequences string `ini:"transaction_sequences" validate:"required"`
	} `ini:"files"`

	NATS struct {
		Enabled               bool   `ini:"enabled"`
		URL                   string `ini:"url" validate:"required_if=Enabled true"`
		RequestTimeoutSeconds int    `ini:"request_timeout_seconds" validate:"gte=0"`
	} `ini:"nats"`

	MQTT struct {
		Enabled  bool   `ini:"enabled"`
		Host     string `ini:"host" validate:"required_if=Enabled true"`
		Port     int    `ini:"port" validate:"gte=0,lte=65535"`
		Username string `ini:"username"`
		Password string `ini:"password"`
	} `ini:"mqtt"`

	HTTP struct {
		Enabled bool   `ini:"enabled"`
		Address string `ini:"address" validate:"required_if=Enabled true"`
	} `ini:"http"`

	Database struct {
		URL string `ini:"url"`
	} `ini:"database"`

	Redis struct {
		Enabled  bool   `ini:"enabled"`
		Address  string `ini:"address" validate:"required_if=Enabled true"`
		Password string `ini:"password"`
		DB       int    `ini:"db" validate:"gte=0"`
	} `ini:"redis"`
}

// Default returns the settings used for keys the file does not set.
func Default() *Settings {
	s := &Settings{}
	s.ChargePoint.Vendor = "UltimateFactory"
	s.ChargePoint.Model = "ChargePi"
	s.ChargePoint.ProtocolVersion = ProtocolV16
	s.ChargePoint.MaxChargingTime = 180
	s.ChargePoint.MinPowerThreshold = 100
	s.ChargePoint.LogLevel = "info"
	s.Files.Connectors = "connectors.json"
	s.Files.Configuration = "configuration.json"
	s.Files.AuthorizationCache = "auth.json"
	s.Files.UpdatesDir = "updates"
	s.Files.TransactionSequences = "transaction_sequences.json"
	s.NATS.URL = "nats://127.0.0.1:4222"
	s.NATS.RequestTimeoutSeconds = 30
	s.MQTT.Port = 1883
	s.HTTP.Address = ":8080"
	s.Redis.Address = "127.0.0.1:6379"
	return s
}

// Load reads the INI file at path over the defaults, applies environment overrides and validates
// the result.
func Load(path string) (*Settings, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	s := Default()
	if err := cfg.MapTo(s); err != nil {
		return nil, fmt.Errorf("map settings: %w", err)
	}
	if id, ok := os.LookupEnv(envChargePointID); ok {
		s.ChargePoint.ID = id
	}
	if url, ok := os.LookupEnv(envServerURL); ok {
		s.Server.URL = url
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

func (s *Settings) SaveTo(path string) error {
	cfg := ini.Empty()
	if err := cfg.ReflectFrom(s); err != nil {
		return err
	}
	return cfg.SaveTo(path)
}

func (s *Settings) MaxChargingTime() time.Duration {
	return time.Duration(s.ChargePoint.MaxChargingTime) * time.Minute
}

func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.NATS.RequestTimeoutSeconds) * time.Second
}
