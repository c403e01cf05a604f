// handlers/session.go
package handlers

import (
	"encoding/json"

	"duomatch/middleware"
	"duomatch/services"
	"duomatch/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupSessionRoutes(app *fiber.App, sessions *services.SessionService) {
	// 🔐 All session routes require user context from the gateway
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/sessions", createInvite(sessions))
	secured.Get("/sessions", listSessions(sessions))
	secured.Get("/sessions/:id", getSession(sessions))
	secured.Post("/sessions/:id/accept", acceptInvite(sessions))
	secured.Post("/sessions/:id/ready", markReady(sessions))
	secured.Post("/sessions/:id/turns", submitTurn(sessions))
	secured.Post("/sessions/:id/leave", leaveSession(sessions))
	secured.Post("/sessions/:id/heartbeat", heartbeat(sessions))
}

type inviteRequest struct {
	OpponentID string `json:"opponent_id"`
	GameSlug   string `json:"game_slug"`
}

func createInvite(sessions *services.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req inviteRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.Fail(c, services.NewValidationError("invalid request body", nil))
		}

		session, err := sessions.Invite(userID, req.OpponentID, req.GameSlug)
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.Created(c, session)
	}
}

func listSessions(sessions *services.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		activeOnly := c.Query("active") == "true"
		limit := c.QueryInt("limit", 50)

		list, err := sessions.ListMine(userID, activeOnly, limit)
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.OK(c, list)
	}
}

func getSession(sessions *services.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		session, err := sessions.Get(userID, c.Params("id"))
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.OK(c, session)
	}
}

func acceptInvite(sessions *services.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		session, err := sessions.Accept(userID, c.Params("id"))
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.OK(c, session)
	}
}

func markReady(sessions *services.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		session, err := sessions.Ready(userID, c.Params("id"))
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.OK(c, session)
	}
}

type turnRequest struct {
	Seq  int             `json:"seq"`
	Move json.RawMessage `json:"move"`
}

func submitTurn(sessions *services.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req turnRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.Fail(c, services.NewValidationError("invalid request body", nil))
		}
		if req.Seq <= 0 {
			return utils.Fail(c, services.NewValidationError("seq must be positive", map[string]string{"seq": "must be a positive integer"}))
		}

		session, err := sessions.SubmitTurn(userID, c.Params("id"), req.Seq, string(req.Move))
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.OK(c, session)
	}
}

func leaveSession(sessions *services.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		session, err := sessions.Leave(userID, c.Params("id"))
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.OK(c, session)
	}
}

func heartbeat(sessions *services.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		if err := sessions.Heartbeat(userID, c.Params("id")); err != nil {
			return utils.Fail(c, err)
		}
		return utils.OK(c, fiber.Map{"ok": true})
	}
}
