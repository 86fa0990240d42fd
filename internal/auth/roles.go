package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/creative-board/internal/domain"
)

// RequireCustomer ensures a customer-company member is authenticated.
func RequireCustomer() fiber.Handler {
	return requireKind(domain.ActorKindCustomer, "customer account required")
}

// RequireCreative ensures a creative is authenticated.
func RequireCreative() fiber.Handler {
	return requireKind(domain.ActorKindCreative, "creative account required")
}

// RequireAnyActor ensures caller is authenticated.
func RequireAnyActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := ActorFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}

func requireKind(kind domain.ActorKind, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if actor.Kind != kind {
			return fiber.NewError(http.StatusForbidden, message)
		}
		return c.Next()
	}
}
