package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPort is the port the bridge listens on unless overridden.
const DefaultPort = 18060

type BrowserConfig struct {
	Driver         string        `yaml:"driver"` // playwright | rod
	Headless       bool          `yaml:"headless"`
	BinPath        string        `yaml:"bin_path"`
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	InstallDriver  bool          `yaml:"install_driver"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Key        string `yaml:"key"`
	MaxEntries int64  `yaml:"max_entries"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type LoginConfig struct {
	ProbeCron    string        `yaml:"probe_cron"`
	WaitTimeout  time.Duration `yaml:"wait_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Config is the full process configuration.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	Browser  BrowserConfig `yaml:"browser"`
	Server   ServerConfig  `yaml:"server"`
	Redis    RedisConfig   `yaml:"redis"`
	NATS     NATSConfig    `yaml:"nats"`
	Login    LoginConfig   `yaml:"login"`
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Browser: BrowserConfig{
			Driver:         "playwright",
			Headless:       true,
			DefaultTimeout: 60 * time.Second,
			InstallDriver:  true,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: DefaultPort,
		},
		Redis: RedisConfig{
			Key:        "xhs:history",
			MaxEntries: 500,
		},
		NATS: NATSConfig{
			Subject: "xhs.events.action",
		},
		Login: LoginConfig{
			WaitTimeout:  5 * time.Minute,
			PollInterval: 5 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, a .env
// file and the environment, in that order of precedence (last wins).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			slog.Debug("config file not found, using defaults", "path", path)
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if envPath, err := loadEnvFile(); err == nil {
		slog.Debug("loaded .env file", "path", envPath)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Browser.Driver {
	case "playwright", "rod":
	default:
		return fmt.Errorf("unknown browser driver %q", c.Browser.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Login.PollInterval <= 0 {
		return fmt.Errorf("login poll interval must be positive")
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := getenvTrim("XHS_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("XHS_HEADLESS: %w", err)
		}
		cfg.Browser.Headless = b
	}
	if v := getenvTrim("XHS_BROWSER_BIN"); v != "" {
		cfg.Browser.BinPath = v
	}
	if v := getenvTrim("XHS_DRIVER"); v != "" {
		cfg.Browser.Driver = strings.ToLower(v)
	}
	if v := getenvTrim("XHS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("XHS_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := getenvTrim("XHS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenvTrim("REDIS_URL"); v != "" {
		cfg.Redis.Addr = NormalizeRedisAddr(v)
	}
	if v := getenvTrim("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := getenvTrim("XHS_LOGIN_PROBE_CRON"); v != "" {
		cfg.Login.ProbeCron = v
	}
	return nil
}

func getenvTrim(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// loadEnvFile looks for .env in the working directory and up to three parents.
func loadEnvFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 4; i++ {
		envPath := filepath.Join(dir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			return envPath, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf(".env file not found")
}

// NormalizeRedisAddr strips a redis:// scheme and trailing slash and adds the
// default port when none is given.
func NormalizeRedisAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	addr = strings.TrimPrefix(addr, "redis://")
	addr = strings.TrimSuffix(addr, "/")
	if !strings.Contains(addr, ":") {
		addr += ":6379"
	}
	return addr
}
