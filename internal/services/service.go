package services

import (
	"spruce/config"
	"spruce/internal/database"
	"spruce/internal/events"
	"spruce/internal/gateway"
	"spruce/internal/repositories"
)

type Service struct {
	Transaction *TransactionService
	Scheduler   *SchedulerService
	Incentive   *IncentiveService
	Billing     *BillingService
	Payout      *PayoutService
	Schedule    *ScheduleService
	Payment     *PaymentService
	EventBus    *events.EventBus
}

func New(
	db database.DB,
	repos repositories.Repository,
	config config.Config,
	gw gateway.PaymentGateway,
	eventBus *events.EventBus,
) Service {
	transaction := NewTransactionService(db)
	incentive := NewIncentiveService(repos)
	billing := NewBillingService(repos, transaction)
	payouts := NewPayoutService(repos, incentive, config)

	return Service{
		Transaction: transaction,
		Scheduler:   NewSchedulerService(),
		Incentive:   incentive,
		Billing:     billing,
		Payout:      payouts,
		Schedule: NewScheduleService(
			repos, transaction, billing, payouts, incentive, eventBus, config,
		),
		Payment: NewPaymentService(
			repos, transaction, gw, billing, payouts, eventBus, config,
		),
		EventBus: eventBus,
	}
}
