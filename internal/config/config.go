package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the checker service.
type Config struct {
	AppName         string
	AppEnv          string
	AppHost         string
	AppPort         string
	LogLevel        zerolog.Level
	RateLimitMax    int
	RateLimitWindow time.Duration
	ProxyHeader     string
	TrustedProxies  []string
	ShutdownTimeout time.Duration
}

// FiberConfig returns the fiber application settings derived from the config.
// When a proxy header is set, client IPs (and so rate limit buckets) come from
// that header; TrustedProxies restricts which peers may supply it.
func (c Config) FiberConfig() fiber.Config {
	cfg := fiber.Config{
		AppName:               c.AppName,
		ServerHeader:          c.AppName,
		DisableStartupMessage: true,
		ProxyHeader:           c.ProxyHeader,
	}
	if len(c.TrustedProxies) > 0 {
		cfg.EnableTrustedProxyCheck = true
		cfg.TrustedProxies = c.TrustedProxies
	}
	return cfg
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	port := strings.TrimPrefix(c.AppPort, ":")
	if port == "" {
		port = "4000"
	}
	return net.JoinHostPort(c.AppHost, port)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CHECKER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// PORT keeps the plain variable hosting platforms inject.
	if err := v.BindEnv("app.port", "CHECKER_APP_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	v.SetDefault("app.name", "Rust Learning Checker")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", "4000")
	v.SetDefault("log.level", "info")
	v.SetDefault("rate_limit.max", 0)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("shutdown.timeout", "5s")

	port := strings.TrimSpace(v.GetString("app.port"))
	portNumber, err := strconv.Atoi(strings.TrimPrefix(port, ":"))
	if err != nil || portNumber <= 0 || portNumber > 65535 {
		return Config{}, fmt.Errorf("invalid port %q", port)
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(v.GetString("log.level"))))
	if err != nil {
		return Config{}, fmt.Errorf("invalid log level: %w", err)
	}

	window, err := parseDuration(v.GetString("rate_limit.window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	shutdownTimeout, err := parseDuration(v.GetString("shutdown.timeout"), 5*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppHost:         v.GetString("app.host"),
		AppPort:         strconv.Itoa(portNumber),
		LogLevel:        level,
		RateLimitMax:    v.GetInt("rate_limit.max"),
		RateLimitWindow: window,
		ProxyHeader:     strings.TrimSpace(v.GetString("proxy.header")),
		TrustedProxies:  splitAndTrim(v.GetString("proxy.trusted")),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.RateLimitMax < 0 {
		cfg.RateLimitMax = 0
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
