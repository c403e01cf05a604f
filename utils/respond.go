// utils/respond.go
package utils

import (
	"errors"
	"log"

	"duomatch/services"

	"github.com/gofiber/fiber/v2"
)

// OK wraps a success payload in the uniform envelope.
func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

// Created is OK with a 201.
func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": data})
}

// OKPage wraps a list payload with its continuation token.
func OKPage(c *fiber.Ctx, data interface{}, cursor string, hasMore bool) error {
	return c.JSON(fiber.Map{
		"success":  true,
		"data":     data,
		"cursor":   cursor,
		"has_more": hasMore,
	})
}

// Fail translates an error into the envelope. ServiceErrors keep their code,
// status and field details; anything else becomes an opaque 500 so internal
// faults never leak implementation detail to the client.
func Fail(c *fiber.Ctx, err error) error {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		body := fiber.Map{
			"code":    svcErr.Code,
			"message": svcErr.Message,
		}
		if len(svcErr.Fields) > 0 {
			body["fields"] = svcErr.Fields
		}
		if svcErr.Data != nil {
			body["data"] = svcErr.Data
		}
		return c.Status(svcErr.Status).JSON(fiber.Map{"success": false, "error": body})
	}

	log.Printf("💥 Internal error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    services.CodeInternal,
			"message": "something went wrong",
		},
	})
}
