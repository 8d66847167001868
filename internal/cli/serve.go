package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rulercosta/neuralwired/internal/config"
	"github.com/rulercosta/neuralwired/internal/db"
	"github.com/rulercosta/neuralwired/internal/handler"
	"github.com/rulercosta/neuralwired/internal/router"
	"github.com/rulercosta/neuralwired/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), out)
		},
	}
}

func runServe(ctx context.Context, out io.Writer) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.cfg

	if created, err := db.EnsureUser(ctx, rt.db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	} else if created {
		rt.logger.Info("created admin user", zap.String("username", cfg.AdminUsername))
	}

	backend, err := newBackend(ctx, cfg.Upload)
	if err != nil {
		return err
	}

	gin.SetMode(ginMode(cfg.GinMode))
	api := handler.NewAPI(rt.db, backend, handler.Options{
		ExcerptLength:  cfg.ExcerptLength,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Logger:         rt.logger,
	})

	routerOpts := router.Options{
		SessionSecret:  cfg.SessionSecret,
		SessionSecure:  cfg.SessionSecure,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         rt.logger,
	}
	if fsBackend, ok := backend.(*storage.FSBackend); ok {
		routerOpts.UploadDir = fsBackend.Dir()
		routerOpts.UploadURLPath = cfg.Upload.URLPath
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.SetupRouter(api, routerOpts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("server listening", zap.String("addr", cfg.ListenAddr), zap.String("upload_backend", storage.Kind(backend)))
		fmt.Fprintf(out, "neuralwired listening on %s\n", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	rt.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}

// newBackend 根据配置选择上传文件的存储后端。
func newBackend(ctx context.Context, cfg config.UploadConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case "s3":
		backend, err := storage.NewS3Backend(ctx, storage.S3Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Endpoint:        cfg.S3.Endpoint,
			UsePathStyle:    cfg.S3.UsePathStyle,
			PublicURL:       cfg.S3.PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 backend: %w", err)
		}
		return backend, nil
	default:
		backend, err := storage.NewFSBackend(storage.FSConfig{BaseDir: cfg.Dir, URLPrefix: cfg.URLPath})
		if err != nil {
			return nil, fmt.Errorf("init upload dir: %w", err)
		}
		return backend, nil
	}
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}
