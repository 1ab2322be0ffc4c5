package controllers

import (
	"spruce/internal/services"

	paymentController "spruce/internal/controllers/payments"
	scheduleController "spruce/internal/controllers/schedules"
)

type Controllers struct {
	Schedule scheduleController.ScheduleControllerInterface
	Payment  paymentController.PaymentControllerInterface
}

func New(services services.Service) Controllers {
	return Controllers{
		Schedule: scheduleController.New(services),
		Payment:  paymentController.New(services),
	}
}
