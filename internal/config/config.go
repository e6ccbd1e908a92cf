package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig `yaml:"server"`
	Canvas CanvasConfig `yaml:"canvas"`
	CORS   CORSConfig   `yaml:"cors"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
}

// CanvasConfig 描述画布会话与导出相关配置。
type CanvasConfig struct {
	MaxDimension int    `yaml:"maxDimension"`
	MirrorBuffer int    `yaml:"mirrorBuffer"`
	PDFCompress  bool   `yaml:"pdfCompress"`
	PDFTitle     string `yaml:"pdfTitle"`
}

// CORSConfig 描述跨域访问策略。
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default 返回内置默认配置。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":3000",
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Canvas: CanvasConfig{
			MaxDimension: 16384,
			MirrorBuffer: 64,
			PDFCompress:  true,
		},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
		Log:  LogConfig{Level: "info", Format: "console"},
	}
}

// Load 先读取可选的 YAML 文件 (CANVAS_CONFIG_FILE)，再用环境变量覆盖。
func Load() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CANVAS_CONFIG_FILE")); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置取值范围。
func (c *Config) Validate() error {
	if c.Canvas.MaxDimension < 0 {
		return fmt.Errorf("invalid canvas max dimension: %d", c.Canvas.MaxDimension)
	}
	if c.Canvas.MirrorBuffer < 1 {
		return fmt.Errorf("invalid canvas mirror buffer: %d", c.Canvas.MirrorBuffer)
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("cors allowed origins must not be empty")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	addr, err := parseAddr(os.Getenv("PORT"))
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	if maxDim, err := parseOptionalIntEnv("CANVAS_MAX_DIMENSION"); err != nil {
		return err
	} else if maxDim != nil {
		cfg.Canvas.MaxDimension = *maxDim
	}

	if buffer, err := parseOptionalIntEnv("CANVAS_MIRROR_BUFFER"); err != nil {
		return err
	} else if buffer != nil {
		cfg.Canvas.MirrorBuffer = *buffer
	}

	compress, err := parseBoolEnv("CANVAS_PDF_COMPRESS", cfg.Canvas.PDFCompress)
	if err != nil {
		return err
	}
	cfg.Canvas.PDFCompress = compress
	cfg.Canvas.PDFTitle = getEnvOrDefault("CANVAS_PDF_TITLE", cfg.Canvas.PDFTitle)

	if timeout, err := parseOptionalDurationEnv("SERVER_WRITE_TIMEOUT"); err != nil {
		return err
	} else if timeout != nil {
		cfg.Server.WriteTimeout = *timeout
	}

	if origins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); origins != "" {
		cfg.CORS.AllowedOrigins = splitList(origins)
	}

	cfg.Log.Level = getEnvOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnvOrDefault("LOG_FORMAT", cfg.Log.Format)
	return nil
}

// parseAddr 解析服务器监听地址，空值表示沿用默认值。
func parseAddr(raw string) (string, error) {
	port := strings.TrimSpace(raw)
	if port == "" {
		return "", nil
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalDurationEnv(key string) (*time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil, nil
	}

	val, err := time.ParseDuration(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
