package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"staytrack/internal/blob"
	"staytrack/pkg/domain"
)

// ClockFunc supplies the current time.
type ClockFunc func() time.Time

// MenuPublisher receives menu entries after they are committed.
type MenuPublisher interface {
	PublishMenu(ctx context.Context, entry MenuEntry)
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the clock used to pick the current month.
func WithClock(clock ClockFunc) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics sink. Recorders that also implement
// SetOccupancy and SetCollection receive derived gauges.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithAuditRecorder sets the audit sink for write operations.
func WithAuditRecorder(a AuditRecorder) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithBlobStore enables student document uploads.
func WithBlobStore(store blob.Store) Option {
	return func(s *Service) { s.blobs = store }
}

// WithPublisher fans committed menu changes out to live subscribers.
func WithPublisher(p MenuPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// Service exposes the owner and student operations on top of a Repository.
type Service struct {
	repo      *Repository
	clock     ClockFunc
	logger    *zap.Logger
	metrics   MetricsRecorder
	audit     AuditRecorder
	blobs     blob.Store
	publisher MenuPublisher
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		repo:    NewRepository(store),
		clock:   time.Now,
		logger:  zap.NewNop(),
		metrics: noopMetrics{},
		audit:   noopAudit{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(NewMemoryStore(), opts...)
}

// Repository returns the underlying repository.
func (s *Service) Repository() *Repository { return s.repo }

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.repo.Store() }

// CurrentMonth returns the month containing the service clock's now.
func (s *Service) CurrentMonth() domain.Month {
	return domain.MonthOf(s.clock())
}

// observe records metrics for every operation and an audit entry for writes.
// It is deferred with a pointer to the named error result.
func (s *Service) observe(ctx context.Context, sess Session, op string, write bool, started time.Time, entityID func() string, errp *error) {
	duration := s.clock().Sub(started)
	var err error
	if errp != nil {
		err = *errp
	}
	s.metrics.Observe(ctx, op, err == nil, duration)
	if err != nil {
		s.logger.Debug("operation failed", zap.String("operation", op), zap.String("owner_id", sess.OwnerID), zap.Error(err))
	}
	if !write {
		return
	}
	entry := AuditEntry{
		Operation:  op,
		OwnerID:    sess.OwnerID,
		UserID:     sess.UserID,
		Status:     AuditStatusSuccess,
		Duration:   duration,
		OccurredAt: started.UTC(),
	}
	if entityID != nil {
		entry.EntityID = entityID()
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

func (s *Service) gauges() gaugeSink {
	g, _ := s.metrics.(gaugeSink)
	return g
}

// --- Hostels ---

// ListHostels returns the owner's hostels.
func (s *Service) ListHostels(ctx context.Context, sess Session) (out []Hostel, err error) {
	defer s.observe(ctx, sess, "list_hostels", false, s.clock(), nil, &err)
	if err = sess.RequireOwner(); err != nil {
		return out, err
	}
	return s.repo.ListHostels(ctx, sess)
}

// GetHostel returns one hostel.
func (s *Service) GetHostel(ctx context.Context, sess Session, id string) (out Hostel, err error) {
	defer s.observe(ctx, sess, "get_hostel", false, s.clock(), nil, &err)
	if err = sess.RequireOwner(); err != nil {
		return out, err
	}
	return s.repo.GetHostel(ctx, sess, id)
}

// CreateHostel persists a new hostel.
func (s *Service) CreateHostel(ctx context.Context, sess Session, h Hostel) (out Hostel, res Result, err error) {
	defer s.observe(ctx, sess, "create_hostel", true, s.clock(), func() string { return out.ID }, &err)
	return s.repo.CreateHostel(ctx, sess, h)
}

// UpdateHostel mutates a hostel using the provided mutator.
func (s *Service) UpdateHostel(ctx context.Context, sess Session, id string, mutator func(*Hostel) error) (out Hostel, res Result, err error) {
	defer s.observe(ctx, sess, "update_hostel", true, s.clock(), func() string { return id }, &err)
	return s.repo.UpdateHostel(ctx, sess, id, mutator)
}

// DeleteHostel removes a hostel without rooms.
func (s *Service) DeleteHostel(ctx context.Context, sess Session, id string) (res Result, err error) {
	defer s.observe(ctx, sess, "delete_hostel", true, s.clock(), func() string { return id }, &err)
	return s.repo.DeleteHostel(ctx, sess, id)
}

// --- Rooms ---

// ListRooms returns the owner's rooms.
func (s *Service) ListRooms(ctx context.Context, sess Session, filter RoomFilter) (out []Room, err error) {
	defer s.observe(ctx, sess, "list_rooms", false, s.clock(), nil, &err)
	if err = sess.RequireOwner(); err != nil {
		return out, err
	}
	return s.repo.ListRooms(ctx, sess, filter)
}

// GetRoom returns one room.
func (s *Service) GetRoom(ctx context.Context, sess Session, id string) (out Room, err error) {
	defer s.observe(ctx, sess, "get_room", false, s.clock(), nil, &err)
	if err = sess.RequireOwner(); err != nil {
		return out, err
	}
	return s.repo.GetRoom(ctx, sess, id)
}

// CreateRoom persists a new room.
func (s *Service) CreateRoom(ctx context.Context, sess Session, room Room) (out Room, res Result, err error) {
	defer s.observe(ctx, sess, "create_room", true, s.clock(), func() string { return out.ID }, &err)
	return s.repo.CreateRoom(ctx, sess, room)
}

// UpdateRoom mutates a room using the provided mutator.
func (s *Service) UpdateRoom(ctx context.Context, sess Session, id string, mutator func(*Room) error) (out Room, res Result, err error) {
	defer s.observe(ctx, sess, "update_room", true, s.clock(), func() string { return id }, &err)
	return s.repo.UpdateRoom(ctx, sess, id, mutator)
}

// DeleteRoom removes an empty room.
func (s *Service) DeleteRoom(ctx context.Context, sess Session, id string) (res Result, err error) {
	defer s.observe(ctx, sess, "delete_room", true, s.clock(), func() string { return id }, &err)
	return s.repo.DeleteRoom(ctx, sess, id)
}

// --- Students ---

// ListStudents returns the owner's students.
func (s *Service) ListStudents(ctx context.Context, sess Session, filter StudentFilter) (out []Student, err error) {
	defer s.observe(ctx, sess, "list_students", false, s.clock(), nil, &err)
	if err = sess.RequireOwner(); err != nil {
		return out, err
	}
	return s.repo.ListStudents(ctx, sess, filter)
}

// GetStudent returns one student.
func (s *Service) GetStudent(ctx context.Context, sess Session, id string) (out Student, err error) {
	defer s.observe(ctx, sess, "get_student", false, s.clock(), nil, &err)
	if err = sess.RequireOwner(); err != nil {
		return out, err
	}
	return s.repo.GetStudent(ctx, sess, id)
}

// CreateStudent persists a new student, occupying a bed when a room is set.
func (s *Service) CreateStudent(ctx context.Context, sess Session, st Student) (out Student, res Result, err error) {
	defer s.observe(ctx, sess, "create_student", true, s.clock(), func() string { return out.ID }, &err)
	return s.repo.CreateStudent(ctx, sess, st)
}

// UpdateStudent mutates a student using the provided mutator.
func (s *Service) UpdateStudent(ctx context.Context, sess Session, id string, mutator func(*Student) error) (out Student, res Result, err error) {
	defer s.observe(ctx, sess, "update_student", true, s.clock(), func() string { return id }, &err)
	return s.repo.UpdateStudent(ctx, sess, id, mutator)
}

// AssignRoom moves a student into roomID, or out of any room when roomID is nil.
func (s *Service) AssignRoom(ctx context.Context, sess Session, studentID string, roomID *string, bed string) (out Student, res Result, err error) {
	defer s.observe(ctx, sess, "assign_room", true, s.clock(), func() string { return studentID }, &err)
	return s.repo.UpdateStudent(ctx, sess, studentID, func(st *Student) error {
		st.RoomID = roomID
		st.Bed = bed
		return nil
	})
}

// SetStudentStatus activates or blocks a student.
func (s *Service) SetStudentStatus(ctx context.Context, sess Session, studentID string, status domain.StudentStatus) (out Student, res Result, err error) {
	defer s.observe(ctx, sess, "set_student_status", true, s.clock(), func() string { return studentID }, &err)
	if status != domain.StudentActive && status != domain.StudentInactive {
		return Student{}, Result{}, domain.Invalid("status", "unknown status %q", status)
	}
	return s.repo.UpdateStudent(ctx, sess, studentID, func(st *Student) error {
		st.Status = status
		return nil
	})
}

// DeleteStudent removes a student, freeing their bed.
func (s *Service) DeleteStudent(ctx context.Context, sess Session, id string) (res Result, err error) {
	defer s.observe(ctx, sess, "delete_student", true, s.clock(), func() string { return id }, &err)
	return s.repo.DeleteStudent(ctx, sess, id)
}

// --- Payments ---

// ListPayments returns the owner's payments.
func (s *Service) ListPayments(ctx context.Context, sess Session, filter PaymentFilter) (out []Payment, err error) {
	defer s.observe(ctx, sess, "list_payments", false, s.clock(), nil, &err)
	if err = sess.RequireOwner(); err != nil {
		return out, err
	}
	return s.repo.ListPayments(ctx, sess, filter)
}

// RecordPayment stores rent for a student and month. A blank month uses the
// current month.
func (s *Service) RecordPayment(ctx context.Context, sess Session, p Payment) (out Payment, res Result, err error) {
	defer s.observe(ctx, sess, "record_payment", true, s.clock(), func() string { return out.ID }, &err)
	if p.Month, err = monthKey(p.Month, s.CurrentMonth()); err != nil {
		return Payment{}, Result{}, err
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = s.clock().UTC()
	}
	return s.repo.CreatePayment(ctx, sess, p)
}

// UpdatePayment mutates a payment using the provided mutator.
func (s *Service) UpdatePayment(ctx context.Context, sess Session, id string, mutator func(*Payment) error) (out Payment, res Result, err error) {
	defer s.observe(ctx, sess, "update_payment", true, s.clock(), func() string { return id }, &err)
	return s.repo.UpdatePayment(ctx, sess, id, mutator)
}

// DeletePayment removes a payment and returns it.
func (s *Service) DeletePayment(ctx context.Context, sess Session, id string) (out Payment, res Result, err error) {
	defer s.observe(ctx, sess, "delete_payment", true, s.clock(), func() string { return id }, &err)
	return s.repo.DeletePayment(ctx, sess, id)
}

// --- Expenses ---

// ListExpenses returns the owner's expenses.
func (s *Service) ListExpenses(ctx context.Context, sess Session, filter ExpenseFilter) (out []Expense, err error) {
	defer s.observe(ctx, sess, "list_expenses", false, s.clock(), nil, &err)
	if err = sess.RequireOwner(); err != nil {
		return out, err
	}
	return s.repo.ListExpenses(ctx, sess, filter)
}

// CreateExpense persists an expense. A zero SpentAt uses the service clock.
func (s *Service) CreateExpense(ctx context.Context, sess Session, e Expense) (out Expense, res Result, err error) {
	defer s.observe(ctx, sess, "create_expense", true, s.clock(), func() string { return out.ID }, &err)
	if e.SpentAt.IsZero() {
		e.SpentAt = s.clock().UTC()
	}
	return s.repo.CreateExpense(ctx, sess, e)
}

// UpdateExpense mutates an expense using the provided mutator.
func (s *Service) UpdateExpense(ctx context.Context, sess Session, id string, mutator func(*Expense) error) (out Expense, res Result, err error) {
	defer s.observe(ctx, sess, "update_expense", true, s.clock(), func() string { return id }, &err)
	return s.repo.UpdateExpense(ctx, sess, id, mutator)
}

// DeleteExpense removes an expense.
func (s *Service) DeleteExpense(ctx context.Context, sess Session, id string) (res Result, err error) {
	defer s.observe(ctx, sess, "delete_expense", true, s.clock(), func() string { return id }, &err)
	return s.repo.DeleteExpense(ctx, sess, id)
}

// --- Menu ---

// Menu returns the owner's weekly mess menu.
func (s *Service) Menu(ctx context.Context, sess Session) (out []MenuEntry, err error) {
	defer s.observe(ctx, sess, "menu", false, s.clock(), nil, &err)
	return s.repo.ListMenu(ctx, sess)
}

// SetMeal updates one meal slot and publishes the merged entry.
func (s *Service) SetMeal(ctx context.Context, sess Session, day time.Weekday, meal domain.Meal, text string) (out MenuEntry, res Result, err error) {
	defer s.observe(ctx, sess, "set_meal", true, s.clock(), func() string { return out.ID }, &err)
	out, res, err = s.repo.PutMeal(ctx, sess, day, meal, text)
	if err == nil && s.publisher != nil {
		s.publisher.PublishMenu(ctx, out)
	}
	return out, res, err
}
