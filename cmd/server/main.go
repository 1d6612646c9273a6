package main

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/turnoverhq/turnover-api/pkg/auth"
	"github.com/turnoverhq/turnover-api/pkg/config"
	"github.com/turnoverhq/turnover-api/pkg/database"
	"github.com/turnoverhq/turnover-api/pkg/handlers"
	"github.com/turnoverhq/turnover-api/pkg/logging"
)

func main() {
	// Load .env if it exists
	// Try root and parent directories for flexibility
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	config.Load()
	logging.Init()
	log := logging.Get()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.InitDB()
	if err := auth.EnsureAdminExists(db); err != nil {
		log.Fatal("could not seed admin user", zap.Error(err))
	}
	h := handlers.NewHandler(db)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Turnover API",
			"version": "1.0.0",
		})
	})

	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	// Coordinator Endpoints
	api := r.Group("/api")
	api.Use(h.AuthMiddleware())
	{
		api.GET("/schedule/eligible", h.EligibleStaff)
		api.GET("/schedule/pending", h.PendingObligations)
		api.POST("/schedule/auto", h.AutoAssign)
		api.POST("/schedule/assign", h.ManualAssign)
		api.POST("/schedule/unassign", h.Unassign)

		api.GET("/staff", h.ListStaff)
		api.POST("/staff", h.CreateStaff)
		api.DELETE("/staff/:id", h.DeleteStaff)
		api.GET("/staff/:id/windows", h.ListWindows)
		api.POST("/staff/:id/windows", h.CreateWindow)
		api.DELETE("/staff/:id/windows/:wid", h.DeleteWindow)
		api.GET("/staff/:id/absences", h.ListAbsences)
		api.POST("/staff/:id/absences", h.CreateAbsence)
		api.PUT("/staff/:id/absences/:aid/approve", h.ApproveAbsence)
		api.DELETE("/staff/:id/absences/:aid", h.DeleteAbsence)

		api.GET("/properties", h.ListProperties)
		api.POST("/properties", h.CreateProperty)
		api.PUT("/properties/:id/default-staff", h.SetDefaultStaff)
	}

	// Ingestion Endpoints for the calendar-sync collaborator
	sync := r.Group("/sync")
	sync.Use(h.SyncKeyMiddleware())
	{
		sync.POST("/obligations", h.SyncObligations)
	}

	port := config.AppConfig.Port
	if port == "" {
		port = "8000"
	}

	log.Info("server starting", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		log.Fatal("could not run server", zap.Error(err))
	}
}
