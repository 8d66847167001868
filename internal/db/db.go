package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// DriverSQLite 使用本地 SQLite 文件。
	DriverSQLite = "sqlite"
	// DriverPostgres 使用 PostgreSQL 连接串。
	DriverPostgres = "postgres"

	defaultDatabasePath = "neuralwired.db"
)

// Options 描述打开数据库所需的参数。
type Options struct {
	Driver string
	// DSN 对 sqlite 是文件路径（或 file: URI），对 postgres 是连接串。
	DSN    string
	Logger logger.Interface
}

// Open 建立数据库连接。唯一约束冲突会被翻译为 gorm.ErrDuplicatedKey。
func Open(opts Options) (*gorm.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = DriverSQLite
	}

	cfg := &gorm.Config{TranslateError: true}
	if opts.Logger != nil {
		cfg.Logger = opts.Logger
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		path := strings.TrimSpace(opts.DSN)
		if path == "" {
			path = defaultDatabasePath
		}
		if !strings.HasPrefix(path, "file:") {
			if err := ensureParentDir(path); err != nil {
				return nil, err
			}
		}
		dialector = sqlite.Open(path)
	case DriverPostgres:
		dsn := strings.TrimSpace(opts.DSN)
		if dsn == "" {
			return nil, errors.New("postgres dsn is required")
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	gdb, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	return gdb, nil
}

// Migrate 执行自动迁移并写入默认数据。
func Migrate(ctx context.Context, gdb *gorm.DB) error {
	if err := gdb.WithContext(ctx).AutoMigrate(
		&User{},
		&Page{},
		&Setting{},
		&Upload{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return seedDefaultSettings(ctx, gdb)
}

// Init 打开数据库并完成迁移，是服务启动与命令行工具的统一入口。
func Init(ctx context.Context, opts Options) (*gorm.DB, error) {
	gdb, err := Open(opts)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, gdb); err != nil {
		Close(gdb)
		return nil, err
	}
	return gdb, nil
}

// Close 释放底层连接池。
func Close(gdb *gorm.DB) {
	if gdb == nil {
		return
	}
	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.Close()
	}
}

func seedDefaultSettings(ctx context.Context, gdb *gorm.DB) error {
	for key, value := range defaultSettings {
		var count int64
		if err := gdb.WithContext(ctx).Model(&Setting{}).Where("key = ?", key).Count(&count).Error; err != nil {
			return fmt.Errorf("check default setting %s: %w", key, err)
		}
		if count > 0 {
			continue
		}
		if err := gdb.WithContext(ctx).Create(&Setting{Key: key, Value: value}).Error; err != nil {
			return fmt.Errorf("seed default setting %s: %w", key, err)
		}
	}
	return nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
