package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"tenx/artifact"
	"tenx/config"
	authControllers "tenx/controllers/auth"
	certificateControllers "tenx/controllers/certificate"
	"tenx/database"
	"tenx/ledger"
	"tenx/middleware"
	authRoutes "tenx/routers/authRoutes"
	certificateRoutes "tenx/routers/certificateRoutes"
	challengeRoutes "tenx/routers/challengeRoutes"
	"tenx/store"
	"tenx/utils"
	"tenx/workflow"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()

	ledgerClient, err := ledger.NewClient()
	if err != nil {
		log.Fatalf("Failed to connect to ledger: %v", err)
	}

	certStore := store.New(database.Database.Db)
	pipeline := artifact.NewPipeline()
	engine := workflow.NewEngine(certStore, ledgerClient, pipeline,
		time.Duration(config.AppConfig.LedgerTimeoutSeconds)*time.Second)

	authControllers.Wallet = ledgerClient
	certificateControllers.Engine = engine

	utils.StartFundingScheduler(ledgerClient)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "server working success", "")
	})

	authRoutes.SetupAuthRoutes(app)
	certificateRoutes.SetupCertificateRoutes(app)
	challengeRoutes.SetupChallengeRoutes(app)

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
