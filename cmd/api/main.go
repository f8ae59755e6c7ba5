package main

import (
	"context"
	"log"
	"os"

	_ "crm/api/swagger" // swagger docs
	"crm/internal/database"
	"crm/internal/handler"
	"crm/internal/middleware"
	"crm/internal/repository"
	"crm/internal/service"
	"crm/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           CRM API
// @version         1.0
// @description     Multi-tenant CRM: contacts, purchases, vouchers and reports with company-scoped access control.
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
		dbName = "crm"
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

	middleware.InitAuthMiddleware(db)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	companyRepo := repository.NewCompanyRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	contactRepo := repository.NewContactRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	voucherRuleRepo := repository.NewVoucherRuleRepository(db)
	voucherRepo := repository.NewVoucherRepository(db)
	reportRepo := repository.NewReportRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	auditService := service.NewAuditService(auditRepo)
	authService := service.NewAuthService(companyRepo, profileRepo, txManager)
	contactService := service.NewContactService(contactRepo, profileRepo, auditService, wsHub)
	purchaseService := service.NewPurchaseService(purchaseRepo, contactRepo, auditService, wsHub)
	voucherService := service.NewVoucherService(voucherRuleRepo, voucherRepo, contactRepo, auditService, wsHub)
	reportService := service.NewReportService(reportRepo, purchaseRepo, contactRepo)
	userService := service.NewUserService(profileRepo, auditService)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService)
	contactHandler := handler.NewContactHandler(contactService, purchaseService)
	purchaseHandler := handler.NewPurchaseHandler(purchaseService)
	voucherHandler := handler.NewVoucherHandler(voucherService)
	reportHandler := handler.NewReportHandler(reportService)
	userHandler := handler.NewUserHandler(userService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
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

	// WebSocket endpoint: events are fanned out per company, so the hub
	// needs to know which tenant a connecting user belongs to.
	resolveCompany := func(userID uuid.UUID) (uuid.UUID, error) {
		profile, err := profileRepo.FindByID(context.Background(), userID)
		if err != nil {
			return uuid.Nil, err
		}
		return profile.CompanyID, nil
	}
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret(), resolveCompany)
	})

	// Register API Routes
	authHandler.RegisterRoutes(router.Group(""))
	contactHandler.RegisterRoutes(router.Group(""))
	purchaseHandler.RegisterRoutes(router.Group(""))
	voucherHandler.RegisterRoutes(router.Group(""))
	reportHandler.RegisterRoutes(router.Group(""))
	userHandler.RegisterRoutes(router.Group(""))
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
