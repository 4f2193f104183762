package controller

import (
	"nana-be/internal/dto"
	"nana-be/internal/pkg/serverutils"
	"nana-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type INotesController interface {
	RegisterRoutes(r fiber.Router, keyMiddleware fiber.Handler)
	GenerateNotes(ctx *fiber.Ctx) error
	InlineCommand(ctx *fiber.Ctx) error
	IntegrateEmphasis(ctx *fiber.Ctx) error
}

type notesController struct {
	notesService         service.INotesService
	inlineCommandService service.IInlineCommandService
	emphasisService      service.IEmphasisService
}

func NewNotesController(
	notesService service.INotesService,
	inlineCommandService service.IInlineCommandService,
	emphasisService service.IEmphasisService,
) INotesController {
	return &notesController{
		notesService:         notesService,
		inlineCommandService: inlineCommandService,
		emphasisService:      emphasisService,
	}
}

func (c *notesController) RegisterRoutes(r fiber.Router, keyMiddleware fiber.Handler) {
	r.Post("/notes", keyMiddleware, c.GenerateNotes)
	r.Post("/inline-command", keyMiddleware, c.InlineCommand)
	r.Post("/integrate-emphasis", keyMiddleware, c.IntegrateEmphasis)
}

func (c *notesController) GenerateNotes(ctx *fiber.Ctx) error {
	var req dto.NotesRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.notesService.GenerateNotes(ctx.Context(), serverutils.APIKey(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *notesController) InlineCommand(ctx *fiber.Ctx) error {
	var req dto.InlineCommandRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.inlineCommandService.Execute(ctx.Context(), serverutils.APIKey(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *notesController) IntegrateEmphasis(ctx *fiber.Ctx) error {
	var req dto.IntegrateEmphasisRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.emphasisService.Integrate(ctx.Context(), serverutils.APIKey(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}
