// handlers/reveal.go
package handlers

import (
	"fmt"
	"path/filepath"
	"strings"

	"duomatch/middleware"
	"duomatch/models"
	"duomatch/services"
	"duomatch/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func SetupRevealRoutes(app *fiber.App, reveals *services.RevealService, db *gorm.DB) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/matches/:id/consent", recordConsent(reveals))
	secured.Get("/matches/:id/reveal", getReveal(reveals))
	secured.Post("/profile/reveal-media", uploadRevealMedia(db))
}

type consentRequest struct {
	Level string `json:"level"`
}

func recordConsent(reveals *services.RevealService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req consentRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.Fail(c, services.NewValidationError("invalid request body", nil))
		}

		pair, err := reveals.RecordConsent(userID, c.Params("id"), req.Level)
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.OK(c, fiber.Map{
			"match_id":     pair.ID,
			"reveal_level": models.RevealLevelName(pair.RevealLevel),
		})
	}
}

func getReveal(reveals *services.RevealService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		view, err := reveals.GetReveal(userID, c.Params("id"))
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.OK(c, view)
	}
}

// uploadRevealMedia stores a voice clip or photo in R2 and records the CDN
// URL on the caller's profile mirror. The media only becomes visible to a
// counterpart once the pair's reveal ladder reaches the matching level.
func uploadRevealMedia(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		kind := c.FormValue("kind")
		if kind != "voice" && kind != "photo" {
			return utils.Fail(c, services.NewValidationError("kind must be voice or photo", map[string]string{"kind": "must be voice or photo"}))
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return utils.Fail(c, services.NewValidationError("file is required", map[string]string{"file": "required"}))
		}

		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		key := fmt.Sprintf("reveal/%s/%s%s", kind, uuid.NewString(), ext)

		url, err := utils.UploadRevealMedia(fileHeader, key)
		if err != nil {
			return utils.Fail(c, err)
		}

		if err := revealMediaUpsert(db, userID, kind, url).Error; err != nil {
			return utils.Fail(c, err)
		}

		return utils.OK(c, fiber.Map{"url": url})
	}
}

// revealMediaUpsert writes the media URL onto the caller's profile mirror,
// creating the row when the sync worker has not mirrored this user yet. A
// plain update would match zero rows for a fresh user and orphan the upload.
func revealMediaUpsert(db *gorm.DB, userID, kind, url string) *gorm.DB {
	column := "photo_url"
	mirror := models.ProfileMirror{ExternalUserID: userID, PhotoURL: url}
	if kind == "voice" {
		column = "voice_url"
		mirror = models.ProfileMirror{ExternalUserID: userID, VoiceURL: url}
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{column, "updated_at"}),
	}).Create(&mirror)
}
