package controller

import (
	"strings"

	"nana-be/internal/pkg/serverutils"
	"nana-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAPIKeyController interface {
	RegisterRoutes(r fiber.Router)
	ValidateKey(ctx *fiber.Ctx) error
}

type apiKeyController struct {
	apiKeyService service.IAPIKeyService
}

func NewAPIKeyController(apiKeyService service.IAPIKeyService) IAPIKeyController {
	return &apiKeyController{
		apiKeyService: apiKeyService,
	}
}

func (c *apiKeyController) RegisterRoutes(r fiber.Router) {
	r.Post("/validate-key", c.ValidateKey)
}

// ValidateKey only checks the caller's own key; the server key is never
// used as a fallback here.
func (c *apiKeyController) ValidateKey(ctx *fiber.Ctx) error {
	key := strings.TrimSpace(ctx.Get(serverutils.APIKeyHeader))
	if key == "" {
		return serverutils.BadRequest(serverutils.APIKeyHeader+" header is required", nil)
	}

	return ctx.JSON(c.apiKeyService.Validate(ctx.Context(), key))
}
