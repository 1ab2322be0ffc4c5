package app

import (
	"context"

	"spruce/config"
	"spruce/internal/controllers"
	"spruce/internal/database"
	"spruce/internal/events"
	"spruce/internal/gateway"
	"spruce/internal/handlers/middleware"
	"spruce/internal/jobs"
	"spruce/internal/logger"
	"spruce/internal/repositories"
	"spruce/internal/services"
)

type App struct {
	Database   database.DB
	Middleware middleware.Middleware
	EventBus   *events.EventBus
	Config     config.Config

	Repository  repositories.Repository
	Service     services.Service
	Controllers controllers.Controllers

	// GenerationJob is kept for the on-demand trigger route.
	GenerationJob *jobs.GenerationJob
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.InitConfig()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	eventBus := events.New(db.Cache.Events, config)
	repos := repositories.New(db)
	gatewayClient := gateway.NewClient(config.GatewayBaseURL, config.GatewayAPIKey)

	service := services.New(db, repos, config, gatewayClient, eventBus)
	middleware := middleware.New(db, eventBus, config, repos)
	controllers := controllers.New(service)

	app := &App{
		Database:    db,
		Config:      config,
		Middleware:  middleware,
		EventBus:    eventBus,
		Repository:  repos,
		Service:     service,
		Controllers: controllers,
	}

	generationJob, err := jobs.RegisterAllJobs(
		service.Scheduler,
		config,
		service,
		&app.Database,
	)
	if err != nil {
		return &App{}, log.Err("failed to register jobs", err)
	}
	app.GenerationJob = generationJob

	if config.SchedulerEnabled {
		if err := service.Scheduler.Start(context.Background()); err != nil {
			return &App{}, log.Err("failed to start scheduler", err)
		}

		// Catch up on anything missed while the server was down.
		go func() {
			summary, err := generationJob.Run(context.Background())
			if err != nil {
				log.Warn("startup generation run failed", "error", err)
				return
			}
			log.Info("startup generation run finished",
				"schedulesProcessed", summary.SchedulesProcessed,
				"appointmentsCreated", summary.AppointmentsCreated,
			)
		}()
	}

	if err := app.validate(); err != nil {
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := []any{
		a.EventBus,
		a.Service.Transaction,
		a.Service.Scheduler,
		a.Service.Incentive,
		a.Service.Billing,
		a.Service.Payout,
		a.Service.Schedule,
		a.Service.Payment,
		a.Controllers.Schedule,
		a.Controllers.Payment,
		a.Repository.User,
		a.Repository.Home,
		a.Repository.Schedule,
		a.Repository.Appointment,
		a.Repository.Bill,
		a.Repository.Payout,
		a.Repository.Incentive,
		a.GenerationJob,
	}

	for _, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed")
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if a.Service.Scheduler != nil {
		if closeErr := a.Service.Scheduler.Stop(context.Background()); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
