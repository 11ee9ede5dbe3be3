package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// AuthRequired validates a bearer JWT signed with the shared HMAC secret and
// stores the subject and role in request locals. Driver endpoints read
// "actor_id" as the driver, merchant endpoints as the merchant.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization header format"})
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing subject"})
		}
		role, _ := claims["role"].(string)

		c.Locals("actor_id", sub)
		c.Locals("actor_role", role)

		return c.Next()
	}
}

// RoleRequired restricts a route to actors carrying the given role
func RoleRequired(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if r, _ := c.Locals("actor_role").(string); r != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Insufficient role"})
		}
		return c.Next()
	}
}
