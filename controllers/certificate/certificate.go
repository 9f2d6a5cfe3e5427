package certificateController

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"tenx/artifact"
	"tenx/database"
	"tenx/middleware"
	"tenx/models"
	"tenx/utils"
	"tenx/workflow"
)

// Service is the slice of the workflow engine the handlers need.
type Service interface {
	Create(ctx context.Context, issuerID uint, params workflow.CreateParams) (*models.Certificate, error)
	RequestOptIn(ctx context.Context, certID, actingUserID uint, credential string) (*models.Certificate, error)
	ApproveTransfer(ctx context.Context, certID, actingUserID uint, credential string) (*models.Certificate, error)
	List(ctx context.Context, userID uint) ([]models.Certificate, error)
}

// Engine is wired in main before the routes are served.
var Engine Service

// CreateCertificate mints a certificate token for a trainee.
func CreateCertificate(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, nil, "Unauthorized!")
	}

	reqData := new(struct {
		Title       string `json:"title"`
		Score       int    `json:"score"`
		ChallengeID uint   `json:"challenge_id"`
		UserID      uint   `json:"user_id"`
		Password    string `json:"password"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Invalid request body!")
	}

	cert, err := Engine.Create(c.UserContext(), userID, workflow.CreateParams{
		Title:       reqData.Title,
		Score:       reqData.Score,
		ChallengeID: reqData.ChallengeID,
		RecipientID: reqData.UserID,
		Credential:  reqData.Password,
	})
	if err != nil {
		return workflowErrorResponse(c, err)
	}

	go notifyRecipient(cert)

	return middleware.JsonResponse(c, fiber.StatusCreated, true, cert, "")
}

// RequestOptIn registers the trainee's opt-in for the certificate asset.
func RequestOptIn(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, nil, "Unauthorized!")
	}

	certID, err := c.ParamsInt("id")
	if err != nil || certID < 1 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Invalid certificate id!")
	}

	reqData := new(struct {
		Password string `json:"password"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Invalid request body!")
	}

	cert, err := Engine.RequestOptIn(c.UserContext(), uint(certID), userID, reqData.Password)
	if err != nil {
		return workflowErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, cert, "")
}

// ApproveOptIn transfers the certificate asset to the trainee.
func ApproveOptIn(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, nil, "Unauthorized!")
	}

	certID, err := c.ParamsInt("id")
	if err != nil || certID < 1 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Invalid certificate id!")
	}

	reqData := new(struct {
		Password string `json:"password"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Invalid request body!")
	}

	cert, err := Engine.ApproveTransfer(c.UserContext(), uint(certID), userID, reqData.Password)
	if err != nil {
		return workflowErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, cert, "")
}

// GetCertificates lists certificates scoped to the caller: issuers see
// what they issued, trainees what they received.
func GetCertificates(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, nil, "Unauthorized!")
	}

	certs, err := Engine.List(c.UserContext(), userID)
	if err != nil {
		return workflowErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, certs, "")
}

// workflowErrorResponse maps the engine's error taxonomy onto HTTP
// statuses. Typed errors carry user-facing messages; anything else is
// logged and hidden behind a generic one.
func workflowErrorResponse(c *fiber.Ctx, err error) error {
	var (
		validationErr *workflow.ValidationError
		notFoundErr   *workflow.NotFoundError
		authErr       *workflow.AuthorizationError
		stateErr      *workflow.InvalidStateError
		ledgerErr     *workflow.LedgerError
		mintErr       *workflow.MintError
		artifactErr   *workflow.ArtifactError
	)

	switch {
	case errors.As(err, &validationErr):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, err.Error())
	case errors.As(err, &notFoundErr):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, nil, err.Error())
	case errors.As(err, &authErr):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, nil, err.Error())
	case errors.As(err, &stateErr):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, nil, err.Error())
	case errors.As(err, &ledgerErr):
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, nil, err.Error())
	case errors.As(err, &mintErr), errors.As(err, &artifactErr):
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, nil, err.Error())
	}

	log.Printf("Unexpected workflow error: %v", err)
	return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, nil, "Failed to process your request!")
}

// notifyRecipient emails the trainee about the new certificate.
// Best effort, issuance already succeeded.
func notifyRecipient(cert *models.Certificate) {
	if database.Database.Db == nil {
		return
	}
	var recipient models.User
	if err := database.Database.Db.First(&recipient, cert.RecipientID).Error; err != nil {
		log.Printf("Error loading recipient %d for notification: %v", cert.RecipientID, err)
		return
	}
	if recipient.Email == "" {
		return
	}
	if err := utils.SendIssuanceEmail(recipient.Email, recipient.Username, cert.Title, artifact.GatewayURL(cert.ContentHash)); err != nil {
		log.Printf("Error sending issuance notification for certificate %d: %v", cert.ID, err)
	}
}
