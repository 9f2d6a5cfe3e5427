package challengeValidator

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"tenx/middleware"
)

var validate = validator.New()

type createRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	WeekNumber  *int   `json:"week_number" validate:"required,gte=0"`
	BatchNumber *int   `json:"batch_number" validate:"required,gte=0"`
}

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
