package challengeController

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"tenx/database"
	"tenx/middleware"
	"tenx/models"
)

// challengeInfo mirrors the API shape: challenge fields plus the ids of
// certificates minted against it.
type challengeInfo struct {
	models.Challenge
	CertificateIDs []uint `json:"certificates"`
}

func toChallengeInfo(challenge models.Challenge) challengeInfo {
	ids := make([]uint, 0, len(challenge.Certificates))
	for _, cert := range challenge.Certificates {
		ids = append(ids, cert.ID)
	}
	return challengeInfo{Challenge: challenge, CertificateIDs: ids}
}

func GetChallenges(c *fiber.Ctx) error {
	var challenges []models.Challenge
	if err := database.Database.Db.Preload("Certificates").Find(&challenges).Error; err != nil {
		log.Printf("Error fetching challenges: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, nil, "Failed to fetch challenges!")
	}

	result := make([]challengeInfo, 0, len(challenges))
	for _, challenge := range challenges {
		result = append(result, toChallengeInfo(challenge))
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, result, "")
}

func GetChallengeByID(c *fiber.Ctx) error {
	challengeID, err := c.ParamsInt("id")
	if err != nil || challengeID < 1 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Invalid challenge id!")
	}

	var challenge models.Challenge
	if err := database.Database.Db.Preload("Certificates").First(&challenge, challengeID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, nil, "Challenge not found")
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, toChallengeInfo(challenge), "")
}

func CreateChallenge(c *fiber.Ctx) error {
	reqData := new(struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		WeekNumber  int    `json:"week_number"`
		BatchNumber int    `json:"batch_number"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Invalid request body!")
	}

	newChallenge := models.Challenge{
		Title:       reqData.Title,
		Description: reqData.Description,
		WeekNumber:  reqData.WeekNumber,
		BatchNumber: reqData.BatchNumber,
	}

	if err := database.Database.Db.Create(&newChallenge).Error; err != nil {
		log.Printf("Error creating challenge: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, nil, "Failed to create challenge!")
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, toChallengeInfo(newChallenge), "")
}

func UpdateChallenge(c *fiber.Ctx) error {
	challengeID, err := c.ParamsInt("id")
	if err != nil || challengeID < 1 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Invalid challenge id!")
	}

	reqData := new(struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		WeekNumber  *int   `json:"week_number"`
		BatchNumber *int   `json:"batch_number"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Invalid request body!")
	}

	var challenge models.Challenge
	if err := database.Database.Db.Preload("Certificates").First(&challenge, challengeID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, nil, "Challenge not found")
	}

	if reqData.Title != "" {
		challenge.Title = reqData.Title
	}
	if reqData.Description != "" {
		challenge.Description = reqData.Description
	}
	if reqData.WeekNumber != nil {
		challenge.WeekNumber = *reqData.WeekNumber
	}
	if reqData.BatchNumber != nil {
		challenge.BatchNumber = *reqData.BatchNumber
	}

	if err := database.Database.Db.Save(&challenge).Error; err != nil {
		log.Printf("Error updating challenge %d: %v", challenge.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, nil, "Failed to update challenge!")
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, toChallengeInfo(challenge), "")
}

func DeleteChallenge(c *fiber.Ctx) error {
	challengeID, err := c.ParamsInt("id")
	if err != nil || challengeID < 1 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, nil, "Invalid challenge id!")
	}

	var challenge models.Challenge
	if err := database.Database.Db.Preload("Certificates").First(&challenge, challengeID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, nil, "Challenge not found")
	}

	if err := database.Database.Db.Delete(&challenge).Error; err != nil {
		log.Printf("Error deleting challenge %d: %v", challenge.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, nil, "Failed to delete challenge!")
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, toChallengeInfo(challenge), "")
}
