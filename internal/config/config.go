// Package config loads gateway configuration from an optional YAML
// file with environment-variable overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Upload    UploadConfig    `mapstructure:"upload"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type OpenAIConfig struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	ImageTimeoutSeconds int    `mapstructure:"image_timeout_seconds"`
}

type AuthConfig struct {
	Secret string `mapstructure:"secret"`
}

type UploadConfig struct {
	// Dir for temporary artifacts; empty means the OS temp directory.
	Dir string `mapstructure:"dir"`
}

type RateLimitConfig struct {
	GlobalLimit         int `mapstructure:"global_limit"`
	GlobalWindowMinutes int `mapstructure:"global_window_minutes"`
	ImageLimit          int `mapstructure:"image_limit"`
	ImageWindowMinutes  int `mapstructure:"image_window_minutes"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  "disable",
	}, nil
}

// normalizeAddr accepts "8080", ":8080" or "127.0.0.1:8080".
func normalizeAddr(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ":5050", nil
	}
	if strings.Contains(addr, ":") {
		return addr, nil
	}
	if strings.Contains(addr, " ") {
		return "", fmt.Errorf("invalid server address: %q", addr)
	}
	return ":" + addr, nil
}

func Load(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.addr", ":5050")
	v.SetDefault("server.cors_origin", "http://localhost:5173")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", true)
	v.SetDefault("openai.model", "gpt-4")
	v.SetDefault("openai.image_timeout_seconds", 55)
	v.SetDefault("rate_limit.global_limit", 100)
	v.SetDefault("rate_limit.global_window_minutes", 15)
	v.SetDefault("rate_limit.image_limit", 10)
	v.SetDefault("rate_limit.image_window_minutes", 60)

	// Enable environment variable support
	v.AutomaticEnv()

	// The config file is optional; env vars alone are enough.
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	if port := v.GetString("PORT"); port != "" {
		config.Server.Addr = port
	}
	if origin := v.GetString("CORS_ORIGIN"); origin != "" {
		config.Server.CORSOrigin = origin
	}
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if secret := v.GetString("AUTH_SECRET"); secret != "" {
		config.Auth.Secret = secret
	}
	if dir := v.GetString("UPLOAD_DIR"); dir != "" {
		config.Upload.Dir = dir
	}

	addr, err := normalizeAddr(config.Server.Addr)
	if err != nil {
		return nil, err
	}
	config.Server.Addr = addr

	return &config, nil
}
