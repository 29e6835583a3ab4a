package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabasePath      string
	SessionSecret     string
	GinMode           string
	LogLevel          string
	Location          *time.Location
	ViewsAPIBaseURL   string
	ViewsAPIToken     string
	ViewsAPITimeout   time.Duration
	SyncInterval      time.Duration
	CacheSize         int
	SuperRootUserName string
	SuperRootPassword string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
// 只有格式错误（如无法解析的时区或时长）才会返回 error。
func Load() (AppConfig, error) {
	port := env("PORT", "8080")

	cfg := AppConfig{
		Port:              port,
		ListenAddr:        env("LISTEN_ADDR", fmt.Sprintf(":%s", port)),
		DatabasePath:      env("DATABASE_PATH", "inkboard.db"),
		SessionSecret:     env("SESSION_SECRET", "inkboard-dev-secret"),
		GinMode:           env("GIN_MODE", "release"),
		LogLevel:          env("LOG_LEVEL", "info"),
		ViewsAPIBaseURL:   strings.TrimRight(env("VIEWS_API_BASE_URL", ""), "/"),
		ViewsAPIToken:     env("VIEWS_API_TOKEN", ""),
		SuperRootUserName: env("SUPER_ROOT_USER_NAME", ""),
		SuperRootPassword: env("SUPER_ROOT_PASSWORD", ""),
	}

	loc, err := loadLocation(env("TIMEZONE", ""))
	if err != nil {
		return AppConfig{}, err
	}
	cfg.Location = loc

	if cfg.ViewsAPITimeout, err = durationEnv("VIEWS_API_TIMEOUT", 15*time.Second); err != nil {
		return AppConfig{}, err
	}
	if cfg.SyncInterval, err = durationEnv("SYNC_INTERVAL", 0); err != nil {
		return AppConfig{}, err
	}

	cacheSize := env("CACHE_SIZE", "256")
	cfg.CacheSize, err = strconv.Atoi(cacheSize)
	if err != nil || cfg.CacheSize < 0 {
		return AppConfig{}, fmt.Errorf("invalid CACHE_SIZE %q", cacheSize)
	}

	return cfg, nil
}

// RemoteSyncEnabled 报告是否配置了远端浏览记录接口。
func (c AppConfig) RemoteSyncEnabled() bool {
	return c.ViewsAPIBaseURL != ""
}

func env(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := env(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}
