package controller

import (
	"ai-research-be/internal/dto"
	"ai-research-be/internal/pkg/serverutils"
	"ai-research-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IResearchController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Scope(ctx *fiber.Ctx) error
	Estimate(ctx *fiber.Ctx) error
	DailyCosts(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	ShowSession(ctx *fiber.Ctx) error
}

type researchController struct {
	researchService service.IResearchService
}

func NewResearchController(researchService service.IResearchService) IResearchController {
	return &researchController{
		researchService: researchService,
	}
}

func (c *researchController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/research")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Start)
	h.Post("/scope", c.Scope)
	h.Get("/estimate", c.Estimate)
	h.Get("/costs/daily", c.DailyCosts)
	h.Get("/sessions", c.ListSessions)
	h.Get("/sessions/:id", c.ShowSession)
}

func (c *researchController) Start(ctx *fiber.Ctx) error {
	var req dto.StartResearchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.researchService.Start(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Research started", res))
}

func (c *researchController) Scope(ctx *fiber.Ctx) error {
	var req dto.ScopeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.researchService.Scope(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success scope query", res))
}

func (c *researchController) Estimate(ctx *fiber.Ctx) error {
	mode := ctx.Query("mode", "basic")
	query := ctx.Query("query", "")

	res, err := c.researchService.Estimate(mode, query)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success estimate research cost", res))
}

func (c *researchController) DailyCosts(ctx *fiber.Ctx) error {
	res := c.researchService.DailyCosts()
	return ctx.JSON(serverutils.SuccessResponse("Success show daily costs", res))
}

func (c *researchController) ListSessions(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 20)

	res, err := c.researchService.ListSessions(ctx.Context(), limit)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list research sessions", res))
}

func (c *researchController) ShowSession(ctx *fiber.Ctx) error {
	id := ctx.Params("id")

	res, err := c.researchService.GetSession(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show research session", res))
}
