package certificateValidator

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"tenx/middleware"
)

var validate = validator.New()

type createRequest struct {
	Title       string `json:"title" validate:"required"`
	Score       *int   `json:"score" validate:"required,gte=0,lte=100"`
	ChallengeID uint   `json:"challenge_id" validate:"required"`
	UserID      uint   `json:"user_id" validate:"required"`
	Password    string `json:"password" validate:"required"`
}

type optInRequest struct {
	Password string `json:"password" validate:"required"`
}

// fieldErrors flattens validator output into the response shape.
func fieldErrors(err error) map[string]string {
	errors := make(map[string]string)
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range validationErrors {
			errors[fieldErr.Field()] = "Invalid value for " + fieldErr.Field() + "!"
		}
	}
	return errors
}

// Create validator middleware
func Create() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(createRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Invalid request body!")
		}

		if err := validate.Struct(reqData); err != nil {
			return middleware.ValidationErrorResponse(c, fieldErrors(err))
		}

		return c.Next()
	}
}

// OptIn validator middleware, shared by the opt-in and approve routes
func OptIn() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(optInRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Invalid request body!")
		}

		if err := validate.Struct(reqData); err != nil {
			return middleware.ValidationErrorResponse(c, fieldErrors(err))
		}

		return c.Next()
	}
}
