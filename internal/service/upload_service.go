package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rulercosta/neuralwired/internal/db"
	"github.com/rulercosta/neuralwired/internal/storage"
	_ "golang.org/x/image/webp"
	"gorm.io/gorm"
)

// DefaultMaxUploadBytes caps a single upload at 16 MiB.
const DefaultMaxUploadBytes int64 = 16 << 20

var allowedUploadExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// UploadService stores files through a storage backend and tracks them.
type UploadService struct {
	db       *gorm.DB
	backend  storage.Backend
	maxBytes int64
	newID    func() string
}

// NewUploadService returns a new UploadService instance.
func NewUploadService(gdb *gorm.DB, backend storage.Backend, maxBytes int64) *UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadService{
		db:       gdb,
		backend:  backend,
		maxBytes: maxBytes,
		newID: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

// Store saves the file under a unique sanitised name and records it.
func (s *UploadService) Store(ctx context.Context, editor Editor, reader io.Reader, originalName, contentType string) (*db.Upload, error) {
	if err := requireEditor(editor); err != nil {
		return nil, err
	}
	if reader == nil {
		return nil, ErrUploadInvalid
	}

	safeName := secureFilename(originalName)
	ext := strings.ToLower(filepath.Ext(safeName))
	if safeName == "" || !allowedUploadExtensions[ext] {
		return nil, ErrUploadInvalid
	}

	data, err := io.ReadAll(io.LimitReader(reader, s.maxBytes+1))
	if err != nil {
		return nil, storeError("read upload", err)
	}
	if len(data) == 0 {
		return nil, ErrUploadInvalid
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrUploadTooLarge
	}

	if strings.TrimSpace(contentType) == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	record := db.Upload{
		Filename:         s.newID() + "_" + safeName,
		OriginalFilename: strings.TrimSpace(originalName),
		Size:             int64(len(data)),
		ContentType:      contentType,
	}
	if imageExtensions[ext] {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, ErrUploadInvalid
		}
		record.Width = cfg.Width
		record.Height = cfg.Height
	}
	record.URL = s.backend.URL(record.Filename)

	if err := s.backend.Put(ctx, record.Filename, bytes.NewReader(data), record.Size, contentType); err != nil {
		return nil, storeError("store upload", err)
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		// 记录写入失败时回收已保存的文件
		_ = s.backend.Delete(context.WithoutCancel(ctx), record.Filename)
		return nil, storeError("record upload", err)
	}
	return &record, nil
}

// List returns tracked uploads, newest first.
func (s *UploadService) List(ctx context.Context) ([]db.Upload, error) {
	uploads := make([]db.Upload, 0)
	if err := s.db.WithContext(ctx).Order("created_at desc").Order("id desc").Find(&uploads).Error; err != nil {
		return nil, storeError("list uploads", err)
	}
	return uploads, nil
}

// Delete removes the stored file and its record. It reports whether anything
// existed under name: the upload record, or a file the backend confirms
// through storage.Stater.
func (s *UploadService) Delete(ctx context.Context, editor Editor, name string) (bool, error) {
	if err := requireEditor(editor); err != nil {
		return false, err
	}
	if err := storage.ValidateKey(name); err != nil {
		return false, ErrUploadInvalid
	}

	tx := s.db.WithContext(ctx)
	var record db.Upload
	found := true
	if err := tx.Where("filename = ?", name).First(&record).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, storeError("load upload", err)
		}
		found = false
	}

	if !found {
		// 没有记录时只有能确认文件存在的后端才继续删除
		exists, err := s.objectExists(ctx, name)
		if err != nil {
			return false, storeError("stat upload", err)
		}
		if !exists {
			return false, nil
		}
	}

	if err := s.backend.Delete(ctx, name); err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			return false, storeError("delete upload", err)
		}
		if !found {
			return false, nil
		}
	}

	if found {
		if err := tx.Delete(&db.Upload{}, record.ID).Error; err != nil {
			return false, storeError("delete upload record", err)
		}
	}
	return true, nil
}

func (s *UploadService) objectExists(ctx context.Context, name string) (bool, error) {
	stater, ok := s.backend.(storage.Stater)
	if !ok {
		return false, nil
	}
	return stater.Exists(ctx, name)
}

// secureFilename keeps ASCII letters, digits, dots, dashes and underscores,
// turning whitespace into underscores and dropping leading dots.
func secureFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}

	var b strings.Builder
	for _, r := range strings.Join(strings.Fields(base), "_") {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	for strings.Contains(cleaned, "..") {
		cleaned = strings.ReplaceAll(cleaned, "..", ".")
	}
	return strings.Trim(cleaned, "._")
}
