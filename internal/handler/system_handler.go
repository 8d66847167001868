package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rulercosta/neuralwired/internal/storage"
	"go.uber.org/zap"
)

// HealthCheck 检查数据库连通性和本地上传目录，并报告当前使用的存储后端。
func (a *API) HealthCheck(c *gin.Context) {
	driver := a.db.Dialector.Name()
	sqlDB, err := a.db.DB()
	if err != nil {
		a.logger.Error("database handle unavailable", zap.String("driver", driver), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "database handle unavailable"})
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		a.logger.Warn("database ping failed", zap.String("driver", driver), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "database unreachable"})
		return
	}

	// S3 不做探测，避免每次健康检查都产生请求费用
	if fsBackend, ok := a.backend.(*storage.FSBackend); ok {
		if info, err := os.Stat(fsBackend.Dir()); err != nil || !info.IsDir() {
			a.logger.Warn("upload directory unavailable", zap.String("dir", fsBackend.Dir()), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "upload directory unavailable"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": driver,
		"uploads": gin.H{
			"backend":   storage.Kind(a.backend),
			"max_bytes": a.maxUploadBytes,
		},
	})
}
