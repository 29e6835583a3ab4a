package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/inkboard/internal/handler"
	"github.com/inkboard/internal/logger"
	"github.com/inkboard/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const sessionName = "inkboard_session"

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string, log logrus.FieldLogger, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestID(), logger.Middleware(log))
	if m != nil {
		r.Use(m.Middleware())
	}

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/healthz", api.HealthCheck)
	if m != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	// 后台管理路由
	admin := r.Group("/admin/api")
	{
		admin.POST("/login", api.Login)
		admin.POST("/logout", api.Logout)

		// 需要认证的接口
		auth := admin.Group("")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("/me", api.CurrentUser)

			viewsGroup := auth.Group("/views")
			{
				viewsGroup.GET("", api.ListViews)
				viewsGroup.GET("/summary", api.ViewSummary)
				viewsGroup.GET("/groups/type", api.ViewsByType)
				viewsGroup.GET("/groups/viewable", api.ViewsByViewable)
				viewsGroup.GET("/groups/day", api.ViewsByDay)
				viewsGroup.GET("/groups/hour", api.ViewsByHour)
				viewsGroup.GET("/top-viewers", api.TopViewers)
				viewsGroup.GET("/sync", api.LatestSync)
				viewsGroup.POST("/sync", api.TriggerSync)
			}
		}
	}

	return r
}
