package serverutils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	APIKeyHeader = "X-API-Key"
	apiKeyLocal  = "api_key"
)

// APIKeyMiddleware resolves the Gemini credential for the request: the
// X-API-Key header wins, otherwise serverKey. With neither, production
// deployments answer 401 and development ones 500.
func APIKeyMiddleware(serverKey string, isProduction bool) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		key := strings.TrimSpace(ctx.Get(APIKeyHeader))
		if key == "" {
			key = serverKey
		}
		if key == "" {
			if isProduction {
				return Unauthorized("API key required. Please provide your Gemini API key.", nil)
			}
			return Internal("GOOGLE_API_KEY not configured", nil)
		}
		ctx.Locals(apiKeyLocal, key)
		return ctx.Next()
	}
}

// APIKey returns the credential stored by APIKeyMiddleware.
func APIKey(ctx *fiber.Ctx) string {
	key, _ := ctx.Locals(apiKeyLocal).(string)
	return key
}
