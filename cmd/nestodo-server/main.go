package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nestodo/nestodo/pkg/nestodo/admin"
	"github.com/nestodo/nestodo/pkg/nestodo/auth"
	"github.com/nestodo/nestodo/pkg/nestodo/config"
	"github.com/nestodo/nestodo/pkg/nestodo/database"
	"github.com/nestodo/nestodo/pkg/nestodo/groups"
	"github.com/nestodo/nestodo/pkg/nestodo/models"
	"github.com/nestodo/nestodo/pkg/nestodo/todos"
	"github.com/nestodo/nestodo/pkg/nestodo/tokens"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/nestodo/nestodo/api/swagger"
)

// @title Nestodo API
// @version 1.0
// @description A multi-user to-do service with nested todos grouped into user-owned lists.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT or personal access token. Format: "Bearer {token}"

func main() {
	// Load .env if present; real environment takes precedence
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	auth.Configure(cfg.JWT.Secret, cfg.JWT.Expiration)

	// Connect to database
	if err := database.Connect(cfg.Database.Path); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := models.AutoMigrate(database.GetDB()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Create default admin user if no admin exists
	if err := ensureAdminExists(); err != nil {
		log.Fatalf("Failed to ensure admin user exists: %v", err)
	}

	// Set up Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		authHandler := auth.NewHandler(database.GetDB())
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Combined auth middleware (accepts JWT or access token)
		combinedAuth := tokens.CombinedAuthMiddleware(database.GetDB())

		// Access token routes (JWT only - need to be logged in to manage tokens)
		tokensHandler := tokens.NewHandler(database.GetDB())
		tokensHandler.RegisterRoutes(api.Group("", auth.AuthMiddleware()))

		// Groups routes (protected - accepts JWT or access token)
		groupsHandler := groups.NewHandler(database.GetDB())
		groupsGroup := api.Group("/groups")
		groupsGroup.Use(combinedAuth)
		groupsHandler.RegisterRoutes(groupsGroup)

		// Todos routes (protected - accepts JWT or access token)
		todosHandler := todos.NewHandler(database.GetDB())
		todosHandler.RegisterRoutes(api.Group("", combinedAuth))

		// Admin routes (JWT only, admin role required)
		adminHandler := admin.NewHandler(database.GetDB())
		adminGroup := api.Group("/admin")
		adminGroup.Use(auth.AuthMiddleware(), auth.RequireAdmin())
		adminHandler.RegisterRoutes(adminGroup)
	}

	log.Printf("Starting Nestodo server on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// ensureAdminExists creates a default admin user if no admin exists in the
// database. User deletion is an admin-only operation, so the service needs
// at least one admin account from the start.
func ensureAdminExists() error {
	db := database.GetDB()

	var count int64
	if err := db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := auth.HashPassword("changeme")
	if err != nil {
		return err
	}

	adminUser := models.User{
		Email:        "admin@nestodo.local",
		Name:         "Admin",
		PasswordHash: hashedPassword,
		SystemRole:   models.SystemRoleAdmin,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Printf("Created default admin user: admin@nestodo.local (password: changeme)")
	return nil
}
