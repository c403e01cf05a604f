// duomatch/middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"duomatch/services"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware validates `token` from the query string via the auth
// service. EventSource cannot send the gateway's identity headers, so SSE
// routes carry the access token in the URL instead.
//
// Usage:
//
//	app.Get("/notifications/stream", middleware.SSEAuthMiddleware(authClient), notifyService.StreamSSE)
func SSEAuthMiddleware(authClient *services.AuthServiceClient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		if accessToken == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error": fiber.Map{
					"code":    "VALIDATION_ERROR",
					"message": "missing token in query",
				},
			})
		}

		resp, err := authClient.ValidateToken(accessToken)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed for token (prefix: %.10s...): %v", accessToken, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error": fiber.Map{
					"code":    "UNAUTHORIZED",
					"message": "invalid token",
				},
			})
		}

		c.Locals("user_id", resp.UserID)
		return c.Next()
	}
}
