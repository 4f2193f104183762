package controller

import (
	"nana-be/internal/dto"
	"nana-be/internal/pkg/serverutils"
	"nana-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDebugController interface {
	RegisterRoutes(r fiber.Router)
	LogCacheHits(ctx *fiber.Ctx) error
	GetLogs(ctx *fiber.Ctx) error
}

type debugController struct {
	debugService service.IDebugService
}

func NewDebugController(debugService service.IDebugService) IDebugController {
	return &debugController{
		debugService: debugService,
	}
}

func (c *debugController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/debug")
	h.Post("/cache-hits", c.LogCacheHits)
	h.Get("/logs", c.GetLogs)
}

func (c *debugController) LogCacheHits(ctx *fiber.Ctx) error {
	var req dto.CacheHitRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}

	return ctx.JSON(c.debugService.LogCacheHits(ctx.Context(), &req))
}

func (c *debugController) GetLogs(ctx *fiber.Ctx) error {
	var query dto.LogsQuery
	if err := ctx.QueryParser(&query); err != nil {
		return serverutils.BadRequest("Invalid query parameters", err)
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	logs, err := c.debugService.GetLogs(&query)
	if err != nil {
		return serverutils.Internal("Failed to read logs", err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get logs", logs))
}
