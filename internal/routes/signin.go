package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/holdergate/holdergate/internal/challenge"
)

// RegisterSignInRoutes wires the wallet sign-in endpoint.
func RegisterSignInRoutes(r fiber.Router, h *challenge.Handler, rateLimiter fiber.Handler) {
	if rateLimiter != nil {
		r.Post("/signin", rateLimiter, h.SignIn)
	} else {
		r.Post("/signin", h.SignIn)
	}
}
