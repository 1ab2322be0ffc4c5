package handlers

import (
	"spruce/internal/app"
	"spruce/internal/handlers/middleware"
	"spruce/internal/logger"
	"spruce/internal/services"

	scheduleController "spruce/internal/controllers/schedules"

	"github.com/gofiber/fiber/v2"
)

type ScheduleHandler struct {
	Handler
	controller scheduleController.ScheduleControllerInterface
}

func NewScheduleHandler(app app.App, router fiber.Router) *ScheduleHandler {
	log := logger.New("handlers").File("schedule_handler")
	return &ScheduleHandler{
		controller: app.Controllers.Schedule,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *ScheduleHandler) Register() {
	schedules := h.router.Group("/recurring-schedules", h.middleware.RequireAuth())

	schedules.Post("/", h.create)
	schedules.Get("/:id", h.get)
	schedules.Patch("/:id", h.edit)
	schedules.Delete("/:id", h.deactivate)
	schedules.Post("/:id/pause", h.pause)
	schedules.Post("/:id/resume", h.resume)
}

func (h *ScheduleHandler) create(c *fiber.Ctx) error {
	log := h.log.Function("create")

	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var request services.CreateScheduleRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	schedule, generated, err := h.controller.Create(c.UserContext(), user, request)
	if err != nil {
		return respondError(c, log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"schedule":  schedule,
		"generated": generated,
	})
}

func (h *ScheduleHandler) get(c *fiber.Ctx) error {
	log := h.log.Function("get")

	user := middleware.GetUser(c)
	scheduleID, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, log, err)
	}

	schedule, err := h.controller.Get(c.UserContext(), user, scheduleID)
	if err != nil {
		return respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"schedule": schedule})
}

func (h *ScheduleHandler) edit(c *fiber.Ctx) error {
	log := h.log.Function("edit")

	user := middleware.GetUser(c)
	scheduleID, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, log, err)
	}

	var request services.UpdateScheduleRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.controller.Edit(c.UserContext(), user, scheduleID, request)
	if err != nil {
		return respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"reconciliation": result})
}

func (h *ScheduleHandler) pause(c *fiber.Ctx) error {
	log := h.log.Function("pause")

	user := middleware.GetUser(c)
	scheduleID, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, log, err)
	}

	var request scheduleController.PauseRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.controller.Pause(c.UserContext(), user, scheduleID, request)
	if err != nil {
		return respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"reconciliation": result})
}

func (h *ScheduleHandler) resume(c *fiber.Ctx) error {
	log := h.log.Function("resume")

	user := middleware.GetUser(c)
	scheduleID, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, log, err)
	}

	result, err := h.controller.Resume(c.UserContext(), user, scheduleID)
	if err != nil {
		return respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"reconciliation": result})
}

func (h *ScheduleHandler) deactivate(c *fiber.Ctx) error {
	log := h.log.Function("deactivate")

	user := middleware.GetUser(c)
	scheduleID, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, log, err)
	}

	result, err := h.controller.Deactivate(c.UserContext(), user, scheduleID)
	if err != nil {
		return respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"reconciliation": result})
}
