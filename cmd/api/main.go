package main

import (
	"log"
	"os"
	"strings"

	"forgeline/internal/database"
	"forgeline/internal/handler"
	"forgeline/internal/middleware"
	"forgeline/internal/repository"
	"forgeline/internal/service"
	"forgeline/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// defaultPermissions maps shop-floor roles to their permission codes until an
// external auth collaborator takes over.
var defaultPermissions = middleware.StaticPermissionSource{
	"planner": {
		"sales.read", "sales.write", "sales.approve",
		"workorder.read", "workorder.write", "workorder.shortclose",
		"material.read", "production.read", "quality.read", "external.read", "dispatch.read", "audit.read",
	},
	"operator": {
		"workorder.read", "material.read", "material.write",
		"production.read", "production.write", "external.read", "quality.read",
	},
	"inspector": {
		"workorder.read", "production.read", "quality.read", "quality.write",
	},
	"logistics": {
		"workorder.read", "production.read", "external.read", "external.write",
		"dispatch.read", "dispatch.write",
	},
}

// @title           Work Order Production API
// @version         1.0
// @description     Production lifecycle engine for metal parts manufacturing: material lots, batches, quality gates, external processing and dispatch.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	notifier := service.NewHubNotifier(wsHub)

	// Permission middleware
	middleware.InitPermissionMiddleware(defaultPermissions)

	// Set up dependencies (Repository -> Service -> Handler)
	materialRepo := repository.NewMaterialRepository(db)
	workOrderRepo := repository.NewWorkOrderRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)
	txManager := repository.NewTransactionManager(db)

	seqService := service.NewSequenceService(db)
	materialService := service.NewMaterialService(materialRepo, workOrderRepo, auditRepo, txManager, seqService)
	qualityService := service.NewQualityService(db, seqService, notifier)
	batchService := service.NewBatchService(db, qualityService, seqService, notifier)
	externalService := service.NewExternalService(db, notifier)
	workOrderService := service.NewWorkOrderService(db, qualityService, seqService, notifier)
	dispatchService := service.NewDispatchService(db, seqService, notifier)
	auditService := service.NewAuditService(auditRepo)
	authService := service.NewAuthService(userRepo)

	// Initialize Handlers
	materialHandler := handler.NewMaterialHandler(materialService)
	qualityHandler := handler.NewQualityHandler(qualityService)
	batchHandler := handler.NewBatchHandler(batchService)
	externalHandler := handler.NewExternalHandler(externalService)
	workOrderHandler := handler.NewWorkOrderHandler(workOrderService)
	dispatchHandler := handler.NewDispatchHandler(dispatchService)
	auditHandler := handler.NewAuditHandler(auditService)
	authHandler := handler.NewAuthHandler(authService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	origins := os.Getenv("CORS_ORIGINS")
	if origins == "" {
		origins = "http://localhost:5173,http://127.0.0.1:5173"
	}
	corsConfig.AllowOrigins = strings.Split(origins, ",")
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	authHandler.RegisterRoutes(router.Group(""))
	materialHandler.RegisterRoutes(router.Group(""))
	qualityHandler.RegisterRoutes(router.Group(""))
	batchHandler.RegisterRoutes(router.Group(""))
	externalHandler.RegisterRoutes(router.Group(""))
	workOrderHandler.RegisterRoutes(router.Group(""))
	dispatchHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
