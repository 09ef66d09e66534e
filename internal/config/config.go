package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. FOCUSFLOW_SERVER_ADDR.
const EnvPrefix = "FOCUSFLOW"

// Config is the merged configuration for the server, the client and the tools.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Client ClientConfig `mapstructure:"client"`
	Gemini GeminiConfig `mapstructure:"gemini"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Addr     string        `mapstructure:"addr"`
	DBPath   string        `mapstructure:"db_path"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type ClientConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	DataDir string        `mapstructure:"data_dir"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// AuthConfig enables bearer-token auth on the server when Secret is set.
type AuthConfig struct {
	Secret       string `mapstructure:"secret"`
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Enabled reports whether the server should require tokens.
func (a AuthConfig) Enabled() bool {
	return a.Secret != ""
}

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v.SetDefault("server.addr", ":3001")
	v.SetDefault("server.db_path", "focusflow.db")
	v.SetDefault("server.cache_ttl", 30*time.Second)

	v.SetDefault("client.api_url", "http://localhost:3001/api")
	v.SetDefault("client.data_dir", filepath.Join(home, ".focusflow"))
	v.SetDefault("client.token", "")
	v.SetDefault("client.timeout", 10*time.Second)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-pro")
	v.SetDefault("gemini.base_url", "")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.username", "focusflow")
	v.SetDefault("auth.password_hash", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load merges defaults, an optional YAML file and FOCUSFLOW_* environment
// variables, in increasing precedence. A .env file in the working directory is
// loaded into the environment first when present. If path is empty the file
// is looked up as focusflow.yaml in the working directory and in ~/.focusflow.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("focusflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".focusflow"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Client.APIURL = strings.TrimRight(cfg.Client.APIURL, "/")
	return cfg, nil
}
