package controller

import (
	"strconv"

	"github.com/rachit-keshari-2003312/third-eye-project/internal/dto"
	"github.com/rachit-keshari-2003312/third-eye-project/internal/pkg/serverutils"
	"github.com/rachit-keshari-2003312/third-eye-project/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAgentController interface {
	RegisterRoutes(r fiber.Router)
	ProcessPrompt(ctx *fiber.Ctx) error
	AnalyzePrompt(ctx *fiber.Ctx) error
	CreateSession(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	ClearSession(ctx *fiber.Ctx) error
}

type agentController struct {
	agentService service.IAgentService
}

func NewAgentController(agentService service.IAgentService) IAgentController {
	return &agentController{
		agentService: agentService,
	}
}

func (c *agentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/agent")
	h.Post("prompt", c.ProcessPrompt)
	h.Post("analyze", c.AnalyzePrompt)
	h.Post("sessions", c.CreateSession)
	h.Get("sessions", c.ListSessions)
	h.Get("sessions/:id/history", c.GetHistory)
	h.Delete("sessions/:id", c.ClearSession)
}

func (c *agentController) ProcessPrompt(ctx *fiber.Ctx) error {
	var req dto.ProcessPromptRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res := c.agentService.ProcessPrompt(ctx.Context(), &req)
	return ctx.JSON(serverutils.SuccessResponse("Prompt processed", res))
}

func (c *agentController) AnalyzePrompt(ctx *fiber.Ctx) error {
	var req dto.AnalyzePromptRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res := c.agentService.AnalyzePrompt(&req)
	return ctx.JSON(serverutils.SuccessResponse("Prompt analyzed", res))
}

func (c *agentController) CreateSession(ctx *fiber.Ctx) error {
	res := c.agentService.CreateSession()
	return ctx.JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *agentController) ListSessions(ctx *fiber.Ctx) error {
	res := c.agentService.ListSessions()
	return ctx.JSON(serverutils.SuccessResponse("Active sessions", res))
}

func (c *agentController) GetHistory(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("id")

	lastN := 0
	if raw := ctx.Query("last_n"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			lastN = n
		}
	}

	res := c.agentService.GetHistory(sessionID, lastN)
	return ctx.JSON(serverutils.SuccessResponse("Session history", res))
}

func (c *agentController) ClearSession(ctx *fiber.Ctx) error {
	c.agentService.ClearSession(ctx.Params("id"))
	return ctx.JSON(serverutils.SuccessResponse[any]("Session cleared", nil))
}
