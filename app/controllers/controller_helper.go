package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TrackFox/internal/pkg/apperror"
)

// errorResponse writes {error} with the status of err. Internal causes are
// not echoed to the caller.
func errorResponse(c *fiber.Ctx, err error) error {
	status := apperror.StatusOf(err)
	message := "internal_error"
	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Kind != apperror.KindInternal {
		message = appErr.Message
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// GetClientIP determines the client address behind Cloudflare or a proxy.
// The first entry of X-Forwarded-For is the original client.
func GetClientIP(c *fiber.Ctx) string {
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(c.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	ip := c.IP()
	// IPv4 mapped into IPv6 (::ffff:192.168.1.1)
	if strings.HasPrefix(ip, "::ffff:") && strings.Contains(ip, ".") {
		return strings.TrimPrefix(ip, "::ffff:")
	}
	return ip
}
