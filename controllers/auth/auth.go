package authController

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"tenx/config"
	"tenx/database"
	"tenx/middleware"
	"tenx/models"
)

// WalletService is the account-provisioning side of the ledger client.
type WalletService interface {
	CreateUserAccount(ctx context.Context, username, password string) (string, error)
	VerifyAccess(username, password string) error
	EnsureFunded(ctx context.Context, address string) error
}

// Wallet is wired in main before the routes are served.
var Wallet WalletService

func Register(c *fiber.Ctx) error {
	reqData := new(struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
		Email    string `json:"email"`
	})

	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Invalid request body!")
	}

	db := database.Database.Db

	// Check if username already exists
	if err := db.Where("username = ?", reqData.Username).First(&models.User{}).Error; err == nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Username already exists")
	}

	role := models.Role(reqData.Role)
	if !role.Valid() {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Invalid role value")
	}

	// Provision the ledger wallet and funded account before persisting
	// the user, a user without an account cannot hold certificates.
	address, err := Wallet.CreateUserAccount(c.UserContext(), reqData.Username, reqData.Password)
	if err != nil {
		log.Printf("Error creating ledger account for %s: %v", reqData.Username, err)
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, nil, "Failed to create ledger account!")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reqData.Password), config.AppConfig.SaltRound)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, nil, "Failed to process your request!")
	}

	newUser := models.User{
		Username:       reqData.Username,
		Password:       string(hashedPassword),
		Role:           role,
		AccountAddress: address,
		Email:          reqData.Email,
	}

	if err := db.Create(&newUser).Error; err != nil {
		log.Printf("Error saving user to database: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, nil, "Failed to register user!")
	}

	// Clean Response
	newUser.Password = ""

	return middleware.JsonResponse(c, fiber.StatusCreated, true, newUser, "")
}

func Login(c *fiber.Ctx) error {
	reqData := new(struct {
		Username string `json:"username"`
		Password string `json:"password"`
	})

	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Failed to parse request body!")
	}

	var user models.User
	if err := database.Database.Db.Where("username = ?", reqData.Username).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, nil, "Invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(reqData.Password)); err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, nil, "Invalid username or password")
	}

	// Confirm the credential also opens the signing wallet, so workflow
	// calls made with it later will not surprise the user.
	if err := Wallet.VerifyAccess(user.Username, reqData.Password); err != nil {
		log.Printf("Error verifying wallet access for %s: %v", user.Username, err)
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, nil, "Ledger wallet unavailable!")
	}

	// Top the account up in the background so opt-ins and transfers
	// never fail on fees.
	go func(address, username string) {
		if err := Wallet.EnsureFunded(context.Background(), address); err != nil {
			log.Printf("Error topping up account for %s: %v", username, err)
		}
	}(user.AccountAddress, user.Username)

	token, err := middleware.GenerateJWT(user.ID, user.Username, user.Role)
	if err != nil {
		log.Printf("Error generating JWT: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, nil, "Failed to login!")
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, fiber.Map{
		"accessToken":    token,
		"username":       user.Username,
		"accountAddress": user.AccountAddress,
		"role":           user.Role,
	}, "")
}

// Logout exists for API symmetry. No credential material is held server
// side, dropping the token client side ends the session.
func Logout(c *fiber.Ctx) error {
	return middleware.JsonResponse(c, fiber.StatusOK, true, nil, "")
}
