package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rulercosta/neuralwired/internal/handler"
	"github.com/rulercosta/neuralwired/internal/logging"
	"go.uber.org/zap"
)

const sessionName = "neuralwired_session"

// Options 描述路由层需要的运行参数。
type Options struct {
	SessionSecret  string
	SessionSecure  bool
	RequestTimeout time.Duration
	// UploadDir 非空时以静态文件方式挂载到 UploadURLPath。
	UploadDir     string
	UploadURLPath string
	Logger        *zap.Logger
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(logging.GinLogger(logger), gin.Recovery())
	r.Use(handler.SecurityHeaders(), handler.NoStore(), handler.RequestTimeout(opts.RequestTimeout))

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   opts.SessionSecure,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	// 静态文件服务
	if dir := strings.TrimSpace(opts.UploadDir); dir != "" {
		urlPath := "/" + strings.Trim(strings.TrimSpace(opts.UploadURLPath), "/")
		if urlPath == "/" {
			urlPath = "/static/uploads"
		}
		r.Static(urlPath, dir)
	}

	r.GET("/health", api.HealthCheck)

	apiGroup := r.Group("/api")
	{
		auth := apiGroup.Group("/auth")
		auth.POST("/login", api.Login)
		auth.POST("/logout", api.Logout)
		auth.GET("/status", api.AuthStatus)

		apiGroup.GET("/pages", api.ListPages)
		apiGroup.GET("/pages/:slug", api.GetPage)
		apiGroup.GET("/settings", api.GetSettings)
		apiGroup.GET("/settings/:key", api.GetSetting)
		apiGroup.GET("/uploads/list", api.ListUploads)

		// 需要认证的路由
		protected := apiGroup.Group("")
		protected.Use(handler.AuthRequired())
		{
			protected.POST("/pages", api.CreatePage)
			protected.PUT("/pages/:slug", api.UpdatePage)
			protected.PATCH("/pages/:slug", api.UpdatePage)
			protected.DELETE("/pages/:slug", api.DeletePage)
			protected.POST("/pages/:slug/feature", api.ToggleFeatured)

			protected.POST("/settings", api.UpdateSettings)
			protected.PUT("/settings", api.UpdateSettings)
			protected.PUT("/settings/:key", api.PutSetting)
			protected.DELETE("/settings/:key", api.DeleteSetting)

			protected.POST("/uploads", api.UploadFile)
			protected.DELETE("/uploads/:filename", api.DeleteUpload)
		}
	}

	return r
}
