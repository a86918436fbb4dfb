package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"speedguard/config"
	"speedguard/handlers"
	"speedguard/middleware"
	"speedguard/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql db handle: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		log.Printf("cache unavailable, serving without it: %v", err)
	}
	defer cache.Close()

	authService := services.NewAuthService(cfg.JWT)

	authHandler := handlers.NewAuthHandler(db, authService)
	readingsHandler := handlers.NewReadingsHandler(db, cache)
	alertsHandler := handlers.NewAlertsHandler(db, cache)
	vehiclesHandler := handlers.NewVehiclesHandler(db)

	router := gin.Default()
	router.Use(middleware.SetupCORS(cfg.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "UP",
			"cache":  cache.Available(),
		})
	})

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.RequireAuth(authService))
	{
		api.GET("/readings", readingsHandler.GetReadings)
		api.GET("/alerts", alertsHandler.GetAlerts)
		api.POST("/alerts/:id/resolve", alertsHandler.ResolveAlert)
		api.POST("/alerts/:id/dismiss", alertsHandler.DismissAlert)
		api.GET("/vehicles/:id/stats", vehiclesHandler.GetStats)
	}

	router.GET("/ws/alerts", handlers.LiveAlerts(cache, authService))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("query api listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
