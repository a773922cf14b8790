package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the YAML file read when FRONTPORCH_CONFIG is unset.
const DefaultFile = "frontporch.yaml"

// Config is the server and CLI configuration.
type Config struct {
	Addr          string      `yaml:"addr"`
	Env           string      `yaml:"env"`
	LogLevel      string      `yaml:"log_level"`
	DBPath        string      `yaml:"db"`
	PublicURL     string      `yaml:"public_url"`
	Admin         AdminConfig `yaml:"admin"`
	Redis         RedisConfig `yaml:"redis"`
	Email         EmailConfig `yaml:"email"`
	CSRFKey       string      `yaml:"csrf_key"`
	Banner        string      `yaml:"banner"`
	RateLimit     float64     `yaml:"rate_limit"`
	CORSOrigins   []string    `yaml:"cors_origins"`
	SlowQueryMs   int         `yaml:"slow_query_ms"`
	SlowRequestMs int         `yaml:"slow_request_ms"`
}

// AdminConfig is the bootstrap admin account.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// RedisConfig selects the Redis session store. An empty Addr keeps sessions in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// EmailConfig controls coordinator notifications. An empty ResendKey disables delivery.
type EmailConfig struct {
	ResendKey string   `yaml:"resend_key"`
	From      string   `yaml:"from"`
	NotifyTo  []string `yaml:"notify_to"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:          ":8080",
		Env:           "development",
		LogLevel:      "info",
		DBPath:        "volunteers.db",
		Admin:         AdminConfig{Username: "frontporchadmin"},
		Email:         EmailConfig{From: "Front Porch <volunteers@example.org>"},
		RateLimit:     10,
		SlowQueryMs:   100,
		SlowRequestMs: 200,
	}
}

// Load builds the configuration from defaults, a .env file, a YAML file and the environment,
// each layer overriding the one before it.
// PRE: path is a YAML file, or "" for FRONTPORCH_CONFIG or DefaultFile
// POST: A missing .env or default YAML file is not an error; an explicit missing file is
func Load(path string) (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	explicit := path != ""
	if !explicit {
		path = os.Getenv("FRONTPORCH_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultFile
	}

	cfg := Default()
	if err := cfg.readYAML(path, explicit); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readYAML(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Addr, "FRONTPORCH_ADDR")
	setString(&c.Env, "FRONTPORCH_ENV")
	setString(&c.LogLevel, "FRONTPORCH_LOG_LEVEL")
	setString(&c.DBPath, "FRONTPORCH_DB")
	setString(&c.PublicURL, "FRONTPORCH_PUBLIC_URL")
	setString(&c.Admin.Username, "ADMIN_USERNAME")
	setString(&c.Admin.Password, "ADMIN_PASSWORD")
	setString(&c.Redis.Addr, "FRONTPORCH_REDIS_ADDR")
	setString(&c.Redis.Password, "FRONTPORCH_REDIS_PASSWORD")
	setString(&c.Email.ResendKey, "FRONTPORCH_RESEND_KEY")
	setString(&c.Email.From, "FRONTPORCH_EMAIL_FROM")
	setString(&c.CSRFKey, "FRONTPORCH_CSRF_KEY")
	setString(&c.Banner, "FRONTPORCH_BANNER")
	setList(&c.Email.NotifyTo, "FRONTPORCH_NOTIFY_TO")
	setList(&c.CORSOrigins, "FRONTPORCH_CORS_ORIGINS")

	var errs []error
	errs = append(errs,
		setInt(&c.Redis.DB, "FRONTPORCH_REDIS_DB"),
		setInt(&c.SlowQueryMs, "FRONTPORCH_SLOW_QUERY_MS"),
		setInt(&c.SlowRequestMs, "FRONTPORCH_SLOW_REQUEST_MS"),
	)
	if v, ok := os.LookupEnv("FRONTPORCH_RATE_LIMIT"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("FRONTPORCH_RATE_LIMIT: %w", err))
		} else {
			c.RateLimit = f
		}
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setList(dst *[]string, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

// IsProduction reports whether the server runs with production safeguards.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// CSRFKeyBytes decodes the hex CSRF key. An empty key yields nil.
func (c Config) CSRFKeyBytes() ([]byte, error) {
	if c.CSRFKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.CSRFKey)
	if err != nil {
		return nil, fmt.Errorf("csrf key is not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("csrf key must be 32 bytes (64 hex characters), got %d bytes", len(key))
	}
	return key, nil
}

// SlogLevel parses LogLevel, falling back to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate checks the settings the web server depends on.
// POST: Returns nil, or every problem joined into one error
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db path must not be empty"))
	}
	if strings.TrimSpace(c.Admin.Username) == "" {
		errs = append(errs, errors.New("ADMIN_USERNAME must not be empty"))
	}
	if c.Admin.Password == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD is required"))
	}
	if _, err := c.CSRFKeyBytes(); err != nil {
		errs = append(errs, err)
	}
	if c.IsProduction() && c.CSRFKey == "" {
		errs = append(errs, errors.New("FRONTPORCH_CSRF_KEY is required in production"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit must not be negative, got %v", c.RateLimit))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("redis db must not be negative, got %d", c.Redis.DB))
	}
	if c.SlowQueryMs < 0 || c.SlowRequestMs < 0 {
		errs = append(errs, errors.New("slow thresholds must not be negative"))
	}
	return errors.Join(errs...)
}
