package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"spruce/config"
	"spruce/internal/events"
	"spruce/internal/gateway"
	. "spruce/internal/models"
	"spruce/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// passRunner runs transaction bodies directly; the in-memory fakes below
// ignore the tx handle.
type passRunner struct{}

func (passRunner) Execute(ctx context.Context, fn func(context.Context, *gorm.DB) error) error {
	return fn(ctx, nil)
}

// fakeStore is the shared in-memory backing for all fake repositories.
type fakeStore struct {
	users        map[uuid.UUID]*User
	homes        map[uuid.UUID]*Home
	schedules    map[uuid.UUID]*RecurringSchedule
	appointments map[uuid.UUID]*Appointment
	assignments  []*EmployeeAssignment
	photos       []*AppointmentPhoto
	bills        map[uuid.UUID]*UserBill
	payouts      []*Payout
	incentives   []*IncentiveConfig
	seq          int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        make(map[uuid.UUID]*User),
		homes:        make(map[uuid.UUID]*Home),
		schedules:    make(map[uuid.UUID]*RecurringSchedule),
		appointments: make(map[uuid.UUID]*Appointment),
		bills:        make(map[uuid.UUID]*UserBill),
	}
}

// stamp assigns an id and a strictly increasing creation time so ordering by
// CreatedAt is deterministic.
func (s *fakeStore) stamp(m *BaseUUIDModel) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	s.seq++
	m.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Second)
}

type fakeUserRepo struct{ store *fakeStore }

func (r *fakeUserRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*User, error) {
	if user, ok := r.store.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, _ *gorm.DB, email string) (*User, error) {
	for _, user := range r.store.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeHomeRepo struct{ store *fakeStore }

func (r *fakeHomeRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*Home, error) {
	if home, ok := r.store.homes[id]; ok {
		copied := *home
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeScheduleRepo struct{ store *fakeStore }

func (r *fakeScheduleRepo) Create(_ context.Context, _ *gorm.DB, schedule *RecurringSchedule) error {
	r.store.stamp(&schedule.BaseUUIDModel)
	copied := *schedule
	r.store.schedules[schedule.ID] = &copied
	return nil
}

func (r *fakeScheduleRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*RecurringSchedule, error) {
	if schedule, ok := r.store.schedules[id]; ok {
		copied := *schedule
		if home, ok := r.store.homes[schedule.HomeID]; ok {
			copied.Home = *home
		}
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeScheduleRepo) Update(_ context.Context, _ *gorm.DB, schedule *RecurringSchedule) error {
	copied := *schedule
	r.store.schedules[schedule.ID] = &copied
	return nil
}

func (r *fakeScheduleRepo) GetActive(_ context.Context, _ *gorm.DB) ([]*RecurringSchedule, error) {
	var active []*RecurringSchedule
	for _, schedule := range r.store.schedules {
		if schedule.IsActive {
			copied := *schedule
			active = append(active, &copied)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	return active, nil
}

func (r *fakeScheduleRepo) AdvanceCursor(_ context.Context, _ *gorm.DB, id uuid.UUID, cursor time.Time) error {
	schedule, ok := r.store.schedules[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if schedule.LastGeneratedDate == nil || schedule.LastGeneratedDate.Before(cursor) {
		schedule.LastGeneratedDate = &cursor
	}
	return nil
}

func (r *fakeScheduleRepo) SetNextScheduledDate(_ context.Context, _ *gorm.DB, id uuid.UUID, next *time.Time) error {
	schedule, ok := r.store.schedules[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	schedule.NextScheduledDate = next
	return nil
}

type fakeAppointmentRepo struct{ store *fakeStore }

func (r *fakeAppointmentRepo) Create(_ context.Context, _ *gorm.DB, appointment *Appointment) error {
	r.store.stamp(&appointment.BaseUUIDModel)
	copied := *appointment
	r.store.appointments[appointment.ID] = &copied
	return nil
}

func (r *fakeAppointmentRepo) hydrate(appointment *Appointment) *Appointment {
	copied := *appointment
	if home, ok := r.store.homes[appointment.HomeID]; ok {
		copied.Home = *home
	}
	copied.Assignments = nil
	for _, assignment := range r.store.assignments {
		if assignment.AppointmentID == appointment.ID {
			copied.Assignments = append(copied.Assignments, *assignment)
		}
	}
	sort.Slice(copied.Assignments, func(i, j int) bool {
		return copied.Assignments[i].CreatedAt.Before(copied.Assignments[j].CreatedAt)
	})
	return &copied
}

func (r *fakeAppointmentRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*Appointment, error) {
	if appointment, ok := r.store.appointments[id]; ok {
		return r.hydrate(appointment), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAppointmentRepo) GetByHoldID(_ context.Context, _ *gorm.DB, holdID string) (*Appointment, error) {
	for _, appointment := range r.store.appointments {
		if appointment.PaymentHoldID == holdID {
			return r.hydrate(appointment), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAppointmentRepo) Update(_ context.Context, _ *gorm.DB, appointment *Appointment) error {
	if _, ok := r.store.appointments[appointment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *appointment
	copied.Assignments = nil
	r.store.appointments[appointment.ID] = &copied
	return nil
}

func (r *fakeAppointmentRepo) Delete(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	delete(r.store.appointments, id)
	return nil
}

func (r *fakeAppointmentRepo) ExistsByHomeAndDate(_ context.Context, _ *gorm.DB, homeID uuid.UUID, date time.Time) (bool, error) {
	day := dateOnly(date)
	for _, appointment := range r.store.appointments {
		if appointment.HomeID == homeID && dateOnly(appointment.Date).Equal(day) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAppointmentRepo) GetFutureUnpaidBySchedule(_ context.Context, _ *gorm.DB, scheduleID uuid.UUID, from time.Time) ([]*Appointment, error) {
	var matches []*Appointment
	for _, appointment := range r.store.appointments {
		if appointment.RecurringScheduleID == nil || *appointment.RecurringScheduleID != scheduleID {
			continue
		}
		if appointment.Date.Before(from) || appointment.Paid || appointment.Completed || appointment.WasCancelled {
			continue
		}
		matches = append(matches, r.hydrate(appointment))
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Date.Before(matches[j].Date) })
	return matches, nil
}

func (r *fakeAppointmentRepo) GetFuturePaidCountBySchedule(_ context.Context, _ *gorm.DB, scheduleID uuid.UUID, from time.Time) (int64, error) {
	var count int64
	for _, appointment := range r.store.appointments {
		if appointment.RecurringScheduleID == nil || *appointment.RecurringScheduleID != scheduleID {
			continue
		}
		if !appointment.Date.Before(from) && appointment.Paid && !appointment.WasCancelled {
			count++
		}
	}
	return count, nil
}

func (r *fakeAppointmentRepo) GetSubmittedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) ([]*Appointment, error) {
	var matches []*Appointment
	for _, appointment := range r.store.appointments {
		if appointment.CompletionStatus != CompletionSubmitted || appointment.CompletionSubmittedAt == nil {
			continue
		}
		if !appointment.CompletionSubmittedAt.After(cutoff) {
			matches = append(matches, r.hydrate(appointment))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CompletionSubmittedAt.Before(*matches[j].CompletionSubmittedAt)
	})
	return matches, nil
}

func (r *fakeAppointmentRepo) CountCompletedByClient(_ context.Context, _ *gorm.DB, clientID uuid.UUID) (int64, error) {
	var count int64
	for _, appointment := range r.store.appointments {
		if appointment.ClientID == clientID && appointment.Completed {
			count++
		}
	}
	return count, nil
}

func (r *fakeAppointmentRepo) CreateAssignment(_ context.Context, _ *gorm.DB, assignment *EmployeeAssignment) error {
	r.store.stamp(&assignment.BaseUUIDModel)
	copied := *assignment
	r.store.assignments = append(r.store.assignments, &copied)
	return nil
}

func (r *fakeAppointmentRepo) GetAssignments(_ context.Context, _ *gorm.DB, appointmentID uuid.UUID) ([]*EmployeeAssignment, error) {
	var matches []*EmployeeAssignment
	for _, assignment := range r.store.assignments {
		if assignment.AppointmentID == appointmentID {
			copied := *assignment
			matches = append(matches, &copied)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) })
	return matches, nil
}

func (r *fakeAppointmentRepo) DeleteAssignments(_ context.Context, _ *gorm.DB, appointmentID uuid.UUID) error {
	kept := r.store.assignments[:0]
	for _, assignment := range r.store.assignments {
		if assignment.AppointmentID != appointmentID {
			kept = append(kept, assignment)
		}
	}
	r.store.assignments = kept
	return nil
}

func (r *fakeAppointmentRepo) CountPhotos(_ context.Context, _ *gorm.DB, appointmentID uuid.UUID, kind PhotoKind) (int64, error) {
	var count int64
	for _, photo := range r.store.photos {
		if photo.AppointmentID == appointmentID && photo.Kind == kind {
			count++
		}
	}
	return count, nil
}

type fakeBillRepo struct{ store *fakeStore }

func (r *fakeBillRepo) GetByUser(_ context.Context, _ *gorm.DB, userID uuid.UUID) (*UserBill, error) {
	if bill, ok := r.store.bills[userID]; ok {
		copied := *bill
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBillRepo) ApplyDelta(_ context.Context, _ *gorm.DB, userID uuid.UUID, appointmentDelta, feeDelta decimal.Decimal) (*UserBill, error) {
	bill, ok := r.store.bills[userID]
	if !ok {
		if appointmentDelta.Add(feeDelta).Sign() <= 0 {
			return nil, nil
		}
		bill = &UserBill{
			UserID:          userID,
			AppointmentDue:  decimal.Max(appointmentDelta, decimal.Zero),
			CancellationFee: decimal.Max(feeDelta, decimal.Zero),
		}
		bill.TotalDue = bill.AppointmentDue.Add(bill.CancellationFee)
		r.store.stamp(&bill.BaseUUIDModel)
		r.store.bills[userID] = bill
		copied := *bill
		return &copied, nil
	}

	bill.AppointmentDue = decimal.Max(bill.AppointmentDue.Add(appointmentDelta), decimal.Zero)
	bill.CancellationFee = decimal.Max(bill.CancellationFee.Add(feeDelta), decimal.Zero)
	bill.TotalDue = bill.AppointmentDue.Add(bill.CancellationFee)
	copied := *bill
	return &copied, nil
}

type fakePayoutRepo struct{ store *fakeStore }

func (r *fakePayoutRepo) CreateAll(_ context.Context, _ *gorm.DB, payouts []*Payout) error {
	for _, payout := range payouts {
		r.store.stamp(&payout.BaseUUIDModel)
		copied := *payout
		r.store.payouts = append(r.store.payouts, &copied)
	}
	return nil
}

func (r *fakePayoutRepo) GetByAppointment(_ context.Context, _ *gorm.DB, appointmentID uuid.UUID) ([]*Payout, error) {
	var matches []*Payout
	for _, payout := range r.store.payouts {
		if payout.AppointmentID == appointmentID {
			copied := *payout
			matches = append(matches, &copied)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) })
	return matches, nil
}

func (r *fakePayoutRepo) DeleteByAppointment(_ context.Context, _ *gorm.DB, appointmentID uuid.UUID) error {
	kept := r.store.payouts[:0]
	for _, payout := range r.store.payouts {
		if payout.AppointmentID != appointmentID {
			kept = append(kept, payout)
		}
	}
	r.store.payouts = kept
	return nil
}

func (r *fakePayoutRepo) UpdateStatusByAppointment(_ context.Context, _ *gorm.DB, appointmentID uuid.UUID, from []PayoutStatus, to PayoutStatus) (int64, error) {
	var affected int64
	for _, payout := range r.store.payouts {
		if payout.AppointmentID != appointmentID {
			continue
		}
		for _, status := range from {
			if payout.Status == status {
				payout.Status = to
				affected++
				break
			}
		}
	}
	return affected, nil
}

func (r *fakePayoutRepo) CountCompletedByCleaner(_ context.Context, _ *gorm.DB, cleanerID uuid.UUID) (int64, error) {
	var count int64
	for _, payout := range r.store.payouts {
		if payout.CleanerID == cleanerID && payout.Status == PayoutCompleted {
			count++
		}
	}
	return count, nil
}

type fakeIncentiveRepo struct{ store *fakeStore }

func (r *fakeIncentiveRepo) GetActive(_ context.Context, _ *gorm.DB) (*IncentiveConfig, error) {
	for _, config := range r.store.incentives {
		if config.IsActive {
			copied := *config
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeIncentiveRepo) Create(_ context.Context, _ *gorm.DB, config *IncentiveConfig) error {
	if config.IsActive {
		for _, existing := range r.store.incentives {
			existing.IsActive = false
		}
	}
	config.Version = len(r.store.incentives) + 1
	r.store.stamp(&config.BaseUUIDModel)
	copied := *config
	r.store.incentives = append(r.store.incentives, &copied)
	return nil
}

// fakeGateway is an in-memory payment provider. Error fields inject failures
// for the next matching call.
type fakeGateway struct {
	holds        map[string]*gateway.Hold
	nextID       int
	createErr    error
	captureErr   error
	refundErr    error
	cancelErr    error
	captureCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{holds: make(map[string]*gateway.Hold)}
}

func (g *fakeGateway) CreateHold(_ context.Context, amountCents int64, customerRef string) (*gateway.Hold, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.nextID++
	hold := &gateway.Hold{
		ID:          fmt.Sprintf("hold_%d", g.nextID),
		Status:      gateway.HoldRequiresCapture,
		AmountCents: amountCents,
		CustomerRef: customerRef,
	}
	g.holds[hold.ID] = hold
	copied := *hold
	return &copied, nil
}

func (g *fakeGateway) CaptureHold(_ context.Context, holdID string) (*gateway.Hold, error) {
	g.captureCalls++
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	hold, ok := g.holds[holdID]
	if !ok {
		return nil, gateway.ErrHoldNotFound
	}
	hold.Status = gateway.HoldCaptured
	copied := *hold
	return &copied, nil
}

func (g *fakeGateway) CancelHold(_ context.Context, holdID string) (*gateway.Hold, error) {
	if g.cancelErr != nil {
		return nil, g.cancelErr
	}
	hold, ok := g.holds[holdID]
	if !ok {
		return nil, gateway.ErrHoldNotFound
	}
	hold.Status = gateway.HoldCanceled
	copied := *hold
	return &copied, nil
}

func (g *fakeGateway) Refund(_ context.Context, holdID string) (*gateway.Hold, error) {
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	hold, ok := g.holds[holdID]
	if !ok {
		return nil, gateway.ErrHoldNotFound
	}
	hold.Status = gateway.HoldRefunded
	copied := *hold
	return &copied, nil
}

func (g *fakeGateway) RetrieveHold(_ context.Context, holdID string) (*gateway.Hold, error) {
	hold, ok := g.holds[holdID]
	if !ok {
		return nil, gateway.ErrHoldNotFound
	}
	copied := *hold
	return &copied, nil
}

// testEnv wires the full service stack over the fakes with a controllable
// clock.
type testEnv struct {
	store    *fakeStore
	repos    repositories.Repository
	gateway  *fakeGateway
	config   config.Config
	now      time.Time
	billing  *BillingService
	payouts  *PayoutService
	incent   *IncentiveService
	schedule *ScheduleService
	payment  *PaymentService
}

func testConfig() config.Config {
	return config.Config{
		PlatformFeePercent:   0.10,
		CancellationWindow:   7,
		CancellationFee:      25.0,
		AutoApproveHours:     48,
		HorizonWeeksWeekly:   4,
		HorizonWeeksBiweekly: 8,
		HorizonWeeksMonthly:  12,
	}
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	repos := repositories.Repository{
		User:        &fakeUserRepo{store: store},
		Home:        &fakeHomeRepo{store: store},
		Schedule:    &fakeScheduleRepo{store: store},
		Appointment: &fakeAppointmentRepo{store: store},
		Bill:        &fakeBillRepo{store: store},
		Payout:      &fakePayoutRepo{store: store},
		Incentive:   &fakeIncentiveRepo{store: store},
	}

	cfg := testConfig()
	runner := passRunner{}
	bus := events.New(nil, cfg)
	gw := newFakeGateway()

	incentive := NewIncentiveService(repos)
	billing := NewBillingService(repos, runner)
	payouts := NewPayoutService(repos, incentive, cfg)
	schedule := NewScheduleService(repos, runner, billing, payouts, incentive, bus, cfg)
	payment := NewPaymentService(repos, runner, gw, billing, payouts, bus, cfg)

	env := &testEnv{
		store:    store,
		repos:    repos,
		gateway:  gw,
		config:   cfg,
		now:      time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), // a Monday
		billing:  billing,
		payouts:  payouts,
		incent:   incentive,
		schedule: schedule,
		payment:  payment,
	}

	schedule.now = func() time.Time { return env.now }
	payment.now = func() time.Time { return env.now }

	return env
}

func (e *testEnv) addUser(role UserRole) *User {
	user := &User{Role: role, IsActive: true, Email: uuid.New().String() + "@test.local"}
	e.store.stamp(&user.BaseUUIDModel)
	e.store.users[user.ID] = user
	return user
}

func (e *testEnv) addHome(owner *User, preferredCleaner *User) *Home {
	home := &Home{OwnerID: owner.ID, AddressLine: "12 Main St", City: "Waco"}
	if preferredCleaner != nil {
		home.PreferredCleanerID = &preferredCleaner.ID
	}
	e.store.stamp(&home.BaseUUIDModel)
	e.store.homes[home.ID] = home
	return home
}

func (e *testEnv) addPhoto(appointmentID, cleanerID uuid.UUID, kind PhotoKind) {
	photo := &AppointmentPhoto{
		AppointmentID: appointmentID,
		CleanerID:     cleanerID,
		Kind:          kind,
		URL:           "https://photos.test.local/" + uuid.New().String(),
	}
	e.store.stamp(&photo.BaseUUIDModel)
	e.store.photos = append(e.store.photos, photo)
}
