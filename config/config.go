package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Weather     WeatherConfig     `mapstructure:"weather"`
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
	API         APIConfig         `mapstructure:"api"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

type WeatherConfig struct {
	Provider        string          `mapstructure:"provider"`
	APIKey          string          `mapstructure:"api_key"`
	BaseURL         string          `mapstructure:"base_url"`
	GeocodingURL    string          `mapstructure:"geocoding_url"`
	Language        string          `mapstructure:"language"`
	Units           string          `mapstructure:"units"`
	StrictNameMatch bool            `mapstructure:"strict_name_match"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// GeolocationConfig is the position used when the user asks for "my
// location" outside a browser.
type GeolocationConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`

	// Enabled marks Latitude/Longitude as set, so (0,0) is a usable position.
	Enabled   bool    `mapstructure:"enabled"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

// HasPosition reports whether a fixed position is configured.
func (g GeolocationConfig) HasPosition() bool {
	return g.Enabled
}

type APIConfig struct {
	Port    int  `mapstructure:"port"`
	Enabled bool `mapstructure:"enabled"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ZipkinURL   string `mapstructure:"zipkin_url"`
	ServiceName string `mapstructure:"service_name"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/weather-widget")
	}

	// Set defaults
	v.SetDefault("weather.provider", "openweather")
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.base_url", "")
	v.SetDefault("weather.geocoding_url", "")
	v.SetDefault("weather.language", "en")
	v.SetDefault("weather.units", "metric")
	v.SetDefault("weather.strict_name_match", false)
	v.SetDefault("weather.rate_limit.rps", 1.0)
	v.SetDefault("weather.rate_limit.burst", 5)
	v.SetDefault("geolocation.timeout", "10s")
	v.SetDefault("geolocation.enabled", false)
	v.SetDefault("geolocation.latitude", 0)
	v.SetDefault("geolocation.longitude", 0)
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.enabled", true)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic_prefix", "weather")
	v.SetDefault("mqtt.client_id", "weather-widget")
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.path", "./weather-widget.db")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.zipkin_url", "http://localhost:9411/api/v2/spans")
	v.SetDefault("telemetry.service_name", "weather-widget")

	// The API key usually lives in the environment (or a .env file).
	_ = v.BindEnv("weather.api_key", "WEATHER_API_KEY")
	_ = v.BindEnv("weather.provider", "WEATHER_PROVIDER")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
