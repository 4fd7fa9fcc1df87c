package router

import (
	"net/http"

	"github.com/Thanaruk598-0/CPmail/config"
	"github.com/Thanaruk598-0/CPmail/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// RouteRegistrar 各业务处理器实现该接口，在 /api 下注册自己的路由
type RouteRegistrar interface {
	RegisterRoutes(router *gin.RouterGroup)
}

func Setup(cfg *config.Config, auth gin.HandlerFunc, handlers ...RouteRegistrar) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept-Language", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(auth)
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}

	return r
}
