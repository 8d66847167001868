package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr     string `env:"LISTEN_ADDR"`
	Port           string `env:"PORT" envDefault:"8080"`
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	// DatabasePath 用于 sqlite，DatabaseDSN 用于 postgres。
	DatabasePath   string        `env:"DATABASE_PATH" envDefault:"neuralwired.db"`
	DatabaseDSN    string        `env:"DATABASE_DSN"`
	SessionSecret  string        `env:"SESSION_SECRET" envDefault:"neuralwired-dev-secret"`
	SessionSecure  bool          `env:"SESSION_SECURE" envDefault:"false"`
	GinMode        string        `env:"GIN_MODE" envDefault:"release"`
	AdminUsername  string        `env:"ADMIN_USERNAME"`
	AdminPassword  string        `env:"ADMIN_PASSWORD"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	ExcerptLength  int           `env:"EXCERPT_LENGTH" envDefault:"150"`

	Upload  UploadConfig
	Logging LoggingConfig
}

// UploadConfig 描述上传文件的存储位置。
type UploadConfig struct {
	Backend  string `env:"UPLOAD_BACKEND" envDefault:"fs"`
	Dir      string `env:"UPLOAD_DIR" envDefault:"static/uploads"`
	URLPath  string `env:"UPLOAD_URL_PATH" envDefault:"/static/uploads"`
	MaxBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"16777216"`

	S3 S3Config
}

// S3Config 仅在 UPLOAD_BACKEND=s3 时使用。
type S3Config struct {
	Bucket          string `env:"S3_BUCKET"`
	Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"S3_ENDPOINT"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
	PublicURL       string `env:"S3_PUBLIC_URL"`
}

// LoggingConfig 控制 zap 日志输出。
type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	SQL        bool   `env:"LOG_SQL" envDefault:"false"`
}

// LoadDotEnv 读取可选的 .env 文件，文件不存在时忽略。已设置的环境变量不会被覆盖。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() (AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() {
	c.Port = strings.TrimSpace(c.Port)
	if c.Port == "" {
		c.Port = "8080"
	}

	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	if c.ListenAddr == "" {
		c.ListenAddr = fmt.Sprintf(":%s", c.Port)
	}

	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	c.DatabasePath = strings.TrimSpace(c.DatabasePath)
	c.DatabaseDSN = strings.TrimSpace(c.DatabaseDSN)
	c.SessionSecret = strings.TrimSpace(c.SessionSecret)
	c.GinMode = strings.TrimSpace(c.GinMode)
	c.AdminUsername = strings.TrimSpace(c.AdminUsername)
	c.AdminPassword = strings.TrimSpace(c.AdminPassword)

	c.Upload.Backend = strings.ToLower(strings.TrimSpace(c.Upload.Backend))
	c.Upload.Dir = strings.TrimSpace(c.Upload.Dir)
	c.Upload.URLPath = "/" + strings.Trim(strings.TrimSpace(c.Upload.URLPath), "/")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// Validate 检查互相依赖的配置项。
func (c AppConfig) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseDSN == "" {
			return errors.New("DATABASE_DSN is required when DATABASE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.Upload.Backend {
	case "fs":
		if c.Upload.Dir == "" {
			return errors.New("UPLOAD_DIR is required when UPLOAD_BACKEND=fs")
		}
	case "s3":
		if strings.TrimSpace(c.Upload.S3.Bucket) == "" {
			return errors.New("S3_BUCKET is required when UPLOAD_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unsupported UPLOAD_BACKEND %q", c.Upload.Backend)
	}

	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET must not be empty")
	}
	if c.Upload.MaxBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// DatabaseSource 返回当前驱动使用的连接参数。
func (c AppConfig) DatabaseSource() string {
	if c.DatabaseDriver == "postgres" {
		return c.DatabaseDSN
	}
	return c.DatabasePath
}
