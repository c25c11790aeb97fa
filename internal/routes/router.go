package routes

import (
	"todo-api/internal/controller"
	"todo-api/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options tunes the optional middleware.
type Options struct {
	RateLimitRPS   float64 // 0 disables rate limiting
	RateLimitBurst int
}

func Router(h *controller.Handler, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())

	// Health for load balancers and K8s probes
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/openapi.json", h.OpenAPI)
	router.GET("/docs", h.Docs)

	api := router.Group("/todos")
	if opts.RateLimitRPS > 0 {
		api.Use(middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}
	{
		api.GET("", h.ListTodos)
		api.POST("", h.CreateTodo)
		api.GET("/stats/summary", h.Stats)
		api.GET("/:id", h.GetTodo)
		api.PUT("/:id", h.UpdateTodo)
		api.PATCH("/:id/toggle", h.ToggleTodo)
		api.DELETE("/:id", h.DeleteTodo)
	}

	return router
}
