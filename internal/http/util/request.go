package util

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClientIP returns the first hop of proxyHeader when set, otherwise the peer address.
func ClientIP(c *fiber.Ctx, proxyHeader string) string {
	if proxyHeader != "" {
		if fwd := c.Get(proxyHeader); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	return c.IP()
}

// WantsDirect reports whether the caller asked to skip the interstitial page.
func WantsDirect(c *fiber.Ctx) bool {
	if c.QueryBool("direct", false) {
		return true
	}
	return strings.EqualFold(c.Get(fiber.HeaderXRequestedWith), "XMLHttpRequest")
}

// Context returns the request's user context, never nil.
func Context(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// ShortURL joins the public base URL and a code.
func ShortURL(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/" + code
}
