// handlers/game.go
package handlers

import (
	"duomatch/services"
	"duomatch/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupGameRoutes(app *fiber.App, registry *services.GameRegistry) {
	// 🔓 Public catalog — gateway auth only
	app.Get("/games", listGames(registry))
}

type gameInfo struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func listGames(registry *services.GameRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		defs := registry.List()
		out := make([]gameInfo, 0, len(defs))
		for _, d := range defs {
			out = append(out, gameInfo{Slug: d.Slug(), Name: d.Name(), Description: d.Description()})
		}
		return utils.OK(c, out)
	}
}
