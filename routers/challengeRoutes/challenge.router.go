package challengeRoutes

import (
	challengeControllers "tenx/controllers/challenge"
	"tenx/middleware"
	"tenx/models"
	challengeValidators "tenx/validators/challenge"

	"github.com/gofiber/fiber/v2"
)

func SetupChallengeRoutes(app *fiber.App) {
	challengeGroup := app.Group("/challenges")

	challengeGroup.Get("/", challengeControllers.GetChallenges)
	challengeGroup.Get("/:id", challengeControllers.GetChallengeByID)

	challengeGroup.Post("/", middleware.JWTMiddleware, middleware.RequireRole(models.RoleIssuer), challengeValidators.Create(), challengeControllers.CreateChallenge)
	challengeGroup.Put("/:id", middleware.JWTMiddleware, middleware.RequireRole(models.RoleIssuer), challengeControllers.UpdateChallenge)
	challengeGroup.Delete("/:id", middleware.JWTMiddleware, middleware.RequireRole(models.RoleIssuer), challengeControllers.DeleteChallenge)
}
