package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// MethodOverrideHeader lets clients that can only POST reach DELETE routes.
const MethodOverrideHeader = "X-HTTP-Method-Override"

// MethodOverride reroutes POST requests carrying X-HTTP-Method-Override: DELETE.
// It must be registered with app.Use ahead of any route so the remaining
// handlers line up in the DELETE stack.
func MethodOverride() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost &&
			strings.EqualFold(c.Get(MethodOverrideHeader), fiber.MethodDelete) {
			c.Method(fiber.MethodDelete)
		}
		return c.Next()
	}
}
