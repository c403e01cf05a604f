// handlers/chat.go
package handlers

import (
	"duomatch/middleware"
	"duomatch/services"
	"duomatch/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupChatRoutes(app *fiber.App, chat *services.ChatService, limiter *middleware.MessageRateLimiter) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/matches/:id/messages", limiter.Handler(), sendMessage(chat))
	secured.Get("/matches/:id/messages", listMessages(chat))
}

type messageRequest struct {
	Body string `json:"body"`
}

func sendMessage(chat *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req messageRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.Fail(c, services.NewValidationError("invalid request body", nil))
		}

		msg, err := chat.SendMessage(c.Context(), userID, c.Params("id"), req.Body)
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.Created(c, msg)
	}
}

func listMessages(chat *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		msgs, err := chat.ListMessages(userID, c.Params("id"), c.QueryInt("limit", 50))
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.OK(c, msgs)
	}
}
