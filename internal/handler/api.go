package handler

import (
	"github.com/rulercosta/neuralwired/internal/service"
	"github.com/rulercosta/neuralwired/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db             *gorm.DB
	pages          *service.PageService
	settings       *service.SettingService
	uploads        *service.UploadService
	auth           *service.AuthService
	backend        storage.Backend
	logger         *zap.Logger
	maxUploadBytes int64
}

// Options tunes the services behind the handlers.
type Options struct {
	ExcerptLength  int
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB, backend storage.Backend, opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBytes := opts.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = service.DefaultMaxUploadBytes
	}

	pages := service.NewPageService(db)
	pages.SetExcerptLength(opts.ExcerptLength)

	return &API{
		db:             db,
		pages:          pages,
		settings:       service.NewSettingService(db),
		uploads:        service.NewUploadService(db, backend, maxBytes),
		auth:           service.NewAuthService(db),
		backend:        backend,
		logger:         logger,
		maxUploadBytes: maxBytes,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}
