package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"duomatch/handlers"
	"duomatch/middleware"
	"duomatch/models"
	"duomatch/services"
	"duomatch/utils"
	"duomatch/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 32 * 1024 * 1024, // reveal media uploads
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.GameSession{},
		&models.TurnRecord{},
		&models.OutcomeEmission{},
		&models.MatchPair{},
		&models.RevealConsent{},
		&models.Message{},
		&models.ReviewItem{},
		&models.ScoreContribution{},
		&models.Report{},
		&models.ProfileMirror{},
		&models.Notification{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	policy := services.LoadPolicy()
	registry := services.NewGameRegistry()

	notifyService := services.NewNotifyService(db)
	revealService := services.NewRevealService(db, policy, notifyService)
	trustService := services.NewTrustService(db, policy, revealService)
	leaderboardService := services.NewLeaderboardService(db)
	sessionService := services.NewSessionService(db, registry, policy,
		trustService, leaderboardService, notifyService)
	moderationService := services.NewModerationService(policy.FailMode)
	chatService := services.NewChatService(db, moderationService, notifyService)
	reportService := services.NewReportService(db)

	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("DUOMATCH_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("DUOMATCH_SERVICE_TOKEN environment variable not set")
	}
	authClient := services.NewAuthServiceClient(authServiceURL, serviceToken)

	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profileSync := workers.NewProfileSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", serviceToken)
	profileSync.Start(ctx)

	reviewPush := workers.NewReviewPushWorker(db)
	reviewPush.Start(ctx)

	sessionService.StartSweeps()

	limiter := middleware.NewMessageRateLimiter(ctx, policy.MessageRatePerMin, policy.MessageBurst)

	// ✅ Setup routes — enforced Gateway auth + /s/ prefix for user-scoped routes
	handlers.SetupGameRoutes(app, registry)
	handlers.SetupSessionRoutes(app, sessionService)
	handlers.SetupChatRoutes(app, chatService, limiter)
	handlers.SetupRevealRoutes(app, revealService, db)
	handlers.SetupLeaderboardRoutes(app, leaderboardService)
	handlers.SetupReportRoutes(app, reportService)
	handlers.SetupNotificationRoutes(app, notifyService, authClient)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Profile Sync Worker running")
	log.Println("✅ Review Push Worker running")
	log.Println("✅ Session sweeps running (every 5s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
