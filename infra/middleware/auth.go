package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"mailtriage/pkg/apperr"
)

// JWTAuth validates HS256 bearer tokens. The subject claim is stored in
// c.Locals("subject") for handlers that want it.
func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return unauthorized("missing authorization header")
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return unauthorized("malformed authorization header")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			return unauthorized("invalid token")
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if sub, _ := claims["sub"].(string); sub != "" {
				c.Locals("subject", sub)
			}
		}
		return c.Next()
	}
}

func unauthorized(message string) *apperr.AppError {
	return apperr.New(apperr.CodeUnauthorized, message, fiber.StatusUnauthorized)
}
