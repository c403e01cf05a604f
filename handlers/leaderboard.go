// handlers/leaderboard.go
package handlers

import (
	"duomatch/middleware"
	"duomatch/services"
	"duomatch/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupLeaderboardRoutes(app *fiber.App, leaderboard *services.LeaderboardService) {
	// 🔓 Public — no user context, gateway auth only
	app.Get("/leaderboard", listLeaderboard(leaderboard))

	secured := app.Group("/s", middleware.UserContextMiddleware())
	secured.Get("/leaderboard/me", myStats(leaderboard))
}

func listLeaderboard(leaderboard *services.LeaderboardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := c.Query("period", "all_time")
		rows, next, hasMore, err := leaderboard.List(period, c.Query("cursor"), c.QueryInt("limit", 25))
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.OKPage(c, rows, next, hasMore)
	}
}

func myStats(leaderboard *services.LeaderboardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		row, err := leaderboard.MyStats(userID, c.Query("period", "all_time"))
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.OK(c, row)
	}
}
