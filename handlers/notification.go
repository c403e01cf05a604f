// handlers/notification.go
package handlers

import (
	"duomatch/middleware"
	"duomatch/services"
	"duomatch/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupNotificationRoutes(app *fiber.App, notify *services.NotifyService, authClient *services.AuthServiceClient) {
	// SSE lives outside the /s prefix: EventSource can't send the gateway's
	// identity headers, so the stream authenticates with a query-param token.
	app.Get("/notifications/stream", middleware.SSEAuthMiddleware(authClient), notify.StreamSSE)

	secured := app.Group("/s", middleware.UserContextMiddleware())
	secured.Get("/notifications", listNotifications(notify))
}

func listNotifications(notify *services.NotifyService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		list, err := notify.ListRecent(userID, c.QueryInt("limit", 50))
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.OK(c, list)
	}
}
