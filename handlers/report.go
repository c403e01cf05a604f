// handlers/report.go
package handlers

import (
	"duomatch/middleware"
	"duomatch/services"
	"duomatch/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupReportRoutes(app *fiber.App, reports *services.ReportService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/reports", createReport(reports))
	secured.Get("/reports", listReports(reports))
}

func createReport(reports *services.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var input services.CreateReportInput
		if err := c.BodyParser(&input); err != nil {
			return utils.Fail(c, services.NewValidationError("invalid request body", nil))
		}

		report, err := reports.CreateReport(userID, input)
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.Created(c, report)
	}
}

func listReports(reports *services.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		list, err := reports.ListMine(userID, c.QueryInt("limit", 50))
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.OK(c, list)
	}
}
