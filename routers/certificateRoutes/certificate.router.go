package certificateRoutes

import (
	certificateControllers "tenx/controllers/certificate"
	"tenx/middleware"
	"tenx/models"
	certificateValidators "tenx/validators/certificate"

	"github.com/gofiber/fiber/v2"
)

func SetupCertificateRoutes(app *fiber.App) {
	certGroup := app.Group("/certificates", middleware.JWTMiddleware)

	certGroup.Post("/", certificateValidators.Create(), middleware.RequireRole(models.RoleIssuer), certificateControllers.CreateCertificate)
	certGroup.Put("/optin/approve/:id", certificateValidators.OptIn(), middleware.RequireRole(models.RoleIssuer), certificateControllers.ApproveOptIn)
	certGroup.Put("/optin/:id", certificateValidators.OptIn(), middleware.RequireRole(models.RoleTrainee), certificateControllers.RequestOptIn)
	certGroup.Get("/", certificateControllers.GetCertificates)
}
