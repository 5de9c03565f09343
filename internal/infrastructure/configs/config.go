package configs

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/vaporchat/vapor/internal/infrastructure/env"
)

type Config struct {
	HTTP    HTTPConfig    `koanf:"http"`
	Rooms   RoomsConfig   `koanf:"rooms"`
	WS      WSConfig      `koanf:"ws"`
	Tracing TracingConfig `koanf:"tracing"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
}

type RoomsConfig struct {
	// MessageCapacity caps the per-room history; the oldest messages are
	// evicted once it is exceeded.
	MessageCapacity uint `koanf:"message_capacity"`
	// IdleExpiry controls reclaiming of rooms whose participants never
	// connected. Zero disables the janitor.
	IdleExpiry time.Duration `koanf:"idle_expiry"`
	// WipeHistoryOnLeave clears the room history for everyone whenever a
	// participant exits or disconnects.
	WipeHistoryOnLeave bool `koanf:"wipe_history_on_leave"`
}

type WSConfig struct {
	WriteWait      time.Duration `koanf:"write_wait"`
	PongWait       time.Duration `koanf:"pong_wait"`
	MaxMessageSize int64         `koanf:"max_message_size"`
	SendBuffer     int           `koanf:"send_buffer"`
}

type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load from YAML file if it exists
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})

	setDefault(k, "rooms.message_capacity", 500)
	setDefault(k, "rooms.idle_expiry", time.Hour)
	setDefault(k, "rooms.wipe_history_on_leave", true)

	setDefault(k, "ws.write_wait", 10*time.Second)
	setDefault(k, "ws.pong_wait", 60*time.Second)
	setDefault(k, "ws.max_message_size", 8192)
	setDefault(k, "ws.send_buffer", 64)

	setDefault(k, "tracing.enabled", false)
	setDefault(k, "tracing.endpoint", "http://localhost:4318")
	setDefault(k, "tracing.service_name", "vapor")
}

func applyEnvOverrides(k *koanf.Koanf) {
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if readTimeout := env.GetInt("HTTP_READ_TIMEOUT_SECONDS", 0); readTimeout > 0 {
		k.Set("http.read_timeout", time.Duration(readTimeout)*time.Second)
	}
	if writeTimeout := env.GetInt("HTTP_WRITE_TIMEOUT_SECONDS", 0); writeTimeout > 0 {
		k.Set("http.write_timeout", time.Duration(writeTimeout)*time.Second)
	}

	if capacity := env.GetInt("ROOMS_MESSAGE_CAPACITY", 0); capacity > 0 {
		k.Set("rooms.message_capacity", uint(capacity))
	}
	if idle := env.GetInt("ROOMS_IDLE_EXPIRY_MINUTES", 0); idle > 0 {
		k.Set("rooms.idle_expiry", time.Duration(idle)*time.Minute)
	}
	if wipe := env.GetString("ROOMS_WIPE_HISTORY_ON_LEAVE", ""); wipe != "" {
		k.Set("rooms.wipe_history_on_leave", wipe == "true")
	}

	if endpoint := env.GetString("TRACING_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
		k.Set("tracing.enabled", true)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
