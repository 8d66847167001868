package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rulercosta/neuralwired/internal/db"
	"github.com/rulercosta/neuralwired/internal/service"
	"github.com/rulercosta/neuralwired/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var handlerDBSeq atomic.Int64

func setupTestAPI(t *testing.T) (*API, *gorm.DB) {
	t.Helper()
	return setupTestAPIWithLogger(t, zap.NewNop())
}

func setupTestAPIWithLogger(t *testing.T, zl *zap.Logger) (*API, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", handlerDBSeq.Add(1))
	gdb, err := db.Open(db.Options{Driver: db.DriverSQLite, DSN: dsn, Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(context.Background(), gdb); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() { db.Close(gdb) })

	backend, err := storage.NewFSBackend(storage.FSConfig{BaseDir: t.TempDir(), URLPrefix: "/static/uploads"})
	if err != nil {
		t.Fatalf("failed to create upload backend: %v", err)
	}

	return NewAPI(gdb, backend, Options{MaxUploadBytes: 1 << 20, Logger: zl}), gdb
}

// newJSONContext builds a test context carrying body as JSON. A non-empty
// editor marks the request as authenticated.
func newJSONContext(t *testing.T, method, target string, body interface{}, editor string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if editor != "" {
		c.Set(editorContextKey, service.Editor{Username: editor})
	}
	return c, w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}
