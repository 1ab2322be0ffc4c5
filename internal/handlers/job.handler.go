package handlers

import (
	"spruce/internal/app"
	"spruce/internal/jobs"
	"spruce/internal/logger"

	"github.com/gofiber/fiber/v2"
)

type JobHandler struct {
	Handler
	generationJob *jobs.GenerationJob
}

func NewJobHandler(app app.App, router fiber.Router) *JobHandler {
	log := logger.New("handlers").File("job_handler")
	return &JobHandler{
		generationJob: app.GenerationJob,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *JobHandler) Register() {
	adminJobs := h.router.Group(
		"/jobs",
		h.middleware.RequireAuth(),
		h.middleware.RequireAdmin(),
	)

	adminJobs.Post("/generate", h.runGeneration)
}

// runGeneration kicks off an out-of-band generation batch and waits for the
// summary. The weekly job remains the steady-state path.
func (h *JobHandler) runGeneration(c *fiber.Ctx) error {
	log := h.log.Function("runGeneration")

	summary, err := h.generationJob.Run(c.UserContext())
	if err != nil {
		return respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"summary": summary})
}
