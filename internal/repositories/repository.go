package repositories

import (
	"spruce/internal/database"
)

type Repository struct {
	User        UserRepository
	Home        HomeRepository
	Schedule    ScheduleRepository
	Appointment AppointmentRepository
	Bill        BillRepository
	Payout      PayoutRepository
	Incentive   IncentiveRepository
}

func New(db database.DB) Repository {
	return Repository{
		User:        NewUserRepository(),
		Home:        NewHomeRepository(),
		Schedule:    NewScheduleRepository(),
		Appointment: NewAppointmentRepository(),
		Bill:        NewBillRepository(db.Cache.Bills), // Bill repo caches per-user balances
		Payout:      NewPayoutRepository(),
		Incentive:   NewIncentiveRepository(),
	}
}
