// Package cli wires configuration, storage and the HTTP server behind cobra commands.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rulercosta/neuralwired/internal/config"
	"github.com/rulercosta/neuralwired/internal/db"
	"github.com/rulercosta/neuralwired/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewRootCommand 返回 neuralwired 命令行入口。不带子命令时启动 HTTP 服务。
func NewRootCommand(out io.Writer) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "neuralwired",
		Short:         "Single-author CMS backend for pages and blog posts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), out)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")

	cmd.AddCommand(newServeCommand(out))
	cmd.AddCommand(newInitDBCommand(out))
	cmd.AddCommand(newCreateAdminCommand(out))
	cmd.AddCommand(newSeedCommand(out))
	return cmd
}

// runtime 是各子命令共享的依赖。
type runtime struct {
	cfg    config.AppConfig
	logger *zap.Logger
	db     *gorm.DB
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		Development: cfg.GinMode == "debug",
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	gdb, err := db.Init(ctx, db.Options{
		Driver: cfg.DatabaseDriver,
		DSN:    cfg.DatabaseSource(),
		Logger: logging.GormLogger(logger, cfg.Logging.SQL),
	})
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}

	return &runtime{cfg: cfg, logger: logger, db: gdb}, nil
}

func (r *runtime) Close() {
	db.Close(r.db)
	_ = r.logger.Sync()
}
