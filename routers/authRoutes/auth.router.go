package authRoutes

import (
	authControllers "tenx/controllers/auth"
	"tenx/middleware"
	authValidators "tenx/validators/auth"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App) {
	authGroup := app.Group("/auth")

	authGroup.Post("/register", authValidators.Register(), authControllers.Register)
	authGroup.Post("/login", authValidators.Login(), authControllers.Login)
	authGroup.Post("/logout", middleware.JWTMiddleware, authControllers.Logout)
}
