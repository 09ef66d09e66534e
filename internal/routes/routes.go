package routes

import (
	"focusflow/internal/auth"
	"focusflow/internal/handlers"
	"focusflow/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes builds the task service router. Call it after auth.Configure:
// /api/login only exists when a signing secret is set.
func SetupRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS())

	r.GET("/health", handlers.Health)

	api := r.Group("/api")
	api.GET("/health", handlers.Health)
	if auth.Enabled() {
		api.POST("/login", handlers.Login)
	}

	tasks := api.Group("")
	tasks.Use(middleware.JWTAuthMiddleware())
	{
		tasks.GET("/tasks", handlers.GetTasks)
		tasks.POST("/tasks", handlers.CreateTask)
		tasks.POST("/tasks/bulk", handlers.BulkCreateTasks)
		tasks.GET("/tasks/:id", handlers.GetTaskByID)
		tasks.PUT("/tasks/:id", handlers.UpdateTask)
		tasks.DELETE("/tasks/:id", handlers.DeleteTask)
		tasks.GET("/stats", handlers.GetStats)
		tasks.GET("/ws", handlers.WebSocketHandler)
	}

	return r
}
