package identity

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// GuestHeader carries the anonymous device identifier on requests without a
// verified identity.
const GuestHeader = "X-Guest-Device-Id"

// FromContext resolves the caller identity from Fiber context locals (set by
// the auth middleware) and the guest device header.
func FromContext(c *fiber.Ctx) Identity {
	return Resolve(AuthFromContext(c), c.Get(GuestHeader))
}

// AuthFromContext extracts the verified identity triple from the JWT placed
// in context by the auth middleware, or nil when the caller is anonymous.
func AuthFromContext(c *fiber.Ctx) *AuthIdentity {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return nil
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil
	}
	iss, _ := claims["iss"].(string)
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)

	return &AuthIdentity{
		TokenIdentifier: iss + "|" + sub,
		Subject:         sub,
		Issuer:          iss,
		Name:            name,
		Email:           email,
	}
}
