package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"staytrack/pkg/domain"
)

var (
	ownerA = domain.OwnerSession("owner-a")
	ownerB = domain.OwnerSession("owner-b")
)

func march2025() time.Time { return time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC) }

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(march2025)}, opts...)
	return NewInMemoryService(opts...)
}

func newStudent(name, phone string) Student {
	return Student{
		Name:       name,
		Phone:      phone,
		NationalID: "123456789012",
		Rent:       decimal.NewFromInt(5000),
	}
}

func TestRahulScenario(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	room, _, err := svc.CreateRoom(ctx, ownerA, Room{Number: "A-101", Capacity: 2})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if room.Occupied != 0 {
		t.Fatalf("expected empty room, got %d", room.Occupied)
	}
	rahul, _, err := svc.CreateStudent(ctx, ownerA, newStudent("Rahul", "9876543210"))
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	rahul, _, err = svc.AssignRoom(ctx, ownerA, rahul.ID, &room.ID, "1")
	if err != nil {
		t.Fatalf("assign room: %v", err)
	}
	if rahul.RoomNumber != "A-101" {
		t.Fatalf("expected display room A-101, got %q", rahul.RoomNumber)
	}

	occ, err := svc.Occupancy(ctx, ownerA)
	if err != nil {
		t.Fatalf("occupancy: %v", err)
	}
	if len(occ.Rooms) != 1 || occ.Rooms[0].Occupied != 1 || occ.Rooms[0].Status != "1 Beds Free" {
		t.Fatalf("unexpected occupancy %+v", occ.Rooms)
	}
	stored, err := svc.GetRoom(ctx, ownerA, room.ID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if stored.Occupied != 1 {
		t.Fatalf("stored counter not maintained: %d", stored.Occupied)
	}

	payment, _, err := svc.RecordPayment(ctx, ownerA, Payment{
		StudentID: rahul.ID,
		Month:     "March 2025",
		Amount:    decimal.NewFromInt(5000),
		Method:    domain.MethodCash,
	})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if payment.StudentName != "Rahul" {
		t.Fatalf("expected student name snapshot, got %q", payment.StudentName)
	}

	march, err := svc.ReconcileMonth(ctx, ownerA, "March 2025")
	if err != nil {
		t.Fatalf("reconcile march: %v", err)
	}
	if e, ok := march.Entry(rahul.ID); !ok || e.Status != StatusPaid || e.Payment == nil || e.Payment.ID != payment.ID {
		t.Fatalf("expected Rahul paid for March, got %+v", e)
	}
	if march.PaidCount != 1 || march.Percentage != 100 {
		t.Fatalf("unexpected march aggregates %+v", march)
	}
	feb, err := svc.ReconcileMonth(ctx, ownerA, "February 2025")
	if err != nil {
		t.Fatalf("reconcile february: %v", err)
	}
	if e, _ := feb.Entry(rahul.ID); e.Status != StatusUnpaid {
		t.Fatalf("expected Rahul unpaid for February, got %s", e.Status)
	}

	if _, _, err := svc.DeletePayment(ctx, ownerA, payment.ID); err != nil {
		t.Fatalf("delete payment: %v", err)
	}
	march, err = svc.ReconcileMonth(ctx, ownerA, "march 2025")
	if err != nil {
		t.Fatalf("reconcile after delete: %v", err)
	}
	if e, _ := march.Entry(rahul.ID); e.Status != StatusUnpaid || e.Payment != nil {
		t.Fatalf("expected revert to unpaid, got %+v", e)
	}
}

func TestOccupiedCounterFollowsStudentChanges(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	a, _, _ := svc.CreateRoom(ctx, ownerA, Room{Number: "A-1", Capacity: 2})
	b, _, _ := svc.CreateRoom(ctx, ownerA, Room{Number: "B-1", Capacity: 2})

	st := newStudent("Asha", "9000000001")
	st.RoomID = &a.ID
	st, _, err := svc.CreateStudent(ctx, ownerA, st)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	assertOccupied := func(step string, wantA, wantB int) {
		t.Helper()
		ra, _ := svc.GetRoom(ctx, ownerA, a.ID)
		rb, _ := svc.GetRoom(ctx, ownerA, b.ID)
		if ra.Occupied != wantA || rb.Occupied != wantB {
			t.Fatalf("%s: expected %d/%d, got %d/%d", step, wantA, wantB, ra.Occupied, rb.Occupied)
		}
	}
	assertOccupied("create", 1, 0)

	if _, _, err := svc.AssignRoom(ctx, ownerA, st.ID, &b.ID, ""); err != nil {
		t.Fatalf("move: %v", err)
	}
	assertOccupied("move", 0, 1)

	if _, _, err := svc.SetStudentStatus(ctx, ownerA, st.ID, domain.StudentInactive); err != nil {
		t.Fatalf("block: %v", err)
	}
	assertOccupied("block", 0, 0)

	if _, _, err := svc.SetStudentStatus(ctx, ownerA, st.ID, domain.StudentActive); err != nil {
		t.Fatalf("activate: %v", err)
	}
	assertOccupied("activate", 0, 1)

	if _, err := svc.DeleteStudent(ctx, ownerA, st.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	assertOccupied("delete", 0, 0)
}

func TestRoomCapacityBlocksOverbooking(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	room, _, _ := svc.CreateRoom(ctx, ownerA, Room{Number: "S-1", Capacity: 1})
	first := newStudent("One", "9000000001")
	first.RoomID = &room.ID
	if _, _, err := svc.CreateStudent(ctx, ownerA, first); err != nil {
		t.Fatalf("first student: %v", err)
	}
	second := newStudent("Two", "9000000002")
	second.RoomID = &room.ID
	_, _, err := svc.CreateStudent(ctx, ownerA, second)
	var violation RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if got := violation.Result.Violations[0].Rule; got != "room_capacity" {
		t.Fatalf("unexpected rule %s", got)
	}
	students, _ := svc.ListStudents(ctx, ownerA, StudentFilter{})
	if len(students) != 1 {
		t.Fatalf("blocked create must not persist, have %d students", len(students))
	}

	// An inactive student does not take a bed.
	second.Status = domain.StudentInactive
	if _, _, err := svc.CreateStudent(ctx, ownerA, second); err != nil {
		t.Fatalf("inactive student: %v", err)
	}
	if _, _, err := svc.UpdateRoom(ctx, ownerA, room.ID, func(r *Room) error { r.Capacity = 0; return nil }); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for zero capacity, got %v", err)
	}
}

func TestDuplicatePaymentForMonthBlocked(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	st, _, _ := svc.CreateStudent(ctx, ownerA, newStudent("Rahul", "9876543210"))
	p := Payment{StudentID: st.ID, Month: "March 2025", Amount: decimal.NewFromInt(5000), Method: domain.MethodUPI}
	if _, _, err := svc.RecordPayment(ctx, ownerA, p); err != nil {
		t.Fatalf("first payment: %v", err)
	}
	_, _, err := svc.RecordPayment(ctx, ownerA, p)
	var violation RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected duplicate to be blocked, got %v", err)
	}
	p.Month = "April 2025"
	if _, _, err := svc.RecordPayment(ctx, ownerA, p); err != nil {
		t.Fatalf("next month payment: %v", err)
	}
}

func TestRecordPaymentDefaultsToCurrentMonth(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	st, _, _ := svc.CreateStudent(ctx, ownerA, newStudent("Rahul", "9876543210"))
	p, _, err := svc.RecordPayment(ctx, ownerA, Payment{StudentID: st.ID, Amount: decimal.NewFromInt(10), Method: domain.MethodOther})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if p.Month != "March 2025" || !p.PaidAt.Equal(march2025()) {
		t.Fatalf("unexpected defaults month=%q paid_at=%s", p.Month, p.PaidAt)
	}
	if _, _, err := svc.RecordPayment(ctx, ownerA, Payment{StudentID: st.ID, Month: "Smarch 2025", Amount: decimal.NewFromInt(10), Method: domain.MethodCash}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for bad month, got %v", err)
	}
}

func TestRoomRenameRefreshesStudents(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	room, _, _ := svc.CreateRoom(ctx, ownerA, Room{Number: "A-101", Capacity: 2})
	st := newStudent("Rahul", "9876543210")
	st.RoomID = &room.ID
	st, _, _ = svc.CreateStudent(ctx, ownerA, st)

	renamed, _, err := svc.UpdateRoom(ctx, ownerA, room.ID, func(r *Room) error {
		r.Number = "A-201"
		return nil
	})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Occupied != 1 {
		t.Fatalf("rename must keep occupancy, got %d", renamed.Occupied)
	}
	got, _ := svc.GetStudent(ctx, ownerA, st.ID)
	if got.RoomNumber != "A-201" {
		t.Fatalf("expected refreshed room number, got %q", got.RoomNumber)
	}
}

func TestRoomNumbersUniquePerHostel(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	h1, _, _ := svc.CreateHostel(ctx, ownerA, Hostel{Name: "North"})
	h2, _, _ := svc.CreateHostel(ctx, ownerA, Hostel{Name: "South"})
	if _, _, err := svc.CreateRoom(ctx, ownerA, Room{HostelID: &h1.ID, Number: "101", Capacity: 2}); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, _, err := svc.CreateRoom(ctx, ownerA, Room{HostelID: &h2.ID, Number: "101", Capacity: 2}); err != nil {
		t.Fatalf("same number in other hostel should pass: %v", err)
	}
	_, _, err := svc.CreateRoom(ctx, ownerA, Room{HostelID: &h1.ID, Number: " 101 ", Capacity: 2})
	var violation RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected duplicate room number to be blocked, got %v", err)
	}
	if _, _, err := svc.CreateRoom(ctx, ownerB, Room{Number: "101", Capacity: 2}); err != nil {
		t.Fatalf("other owner may reuse numbers: %v", err)
	}
}

func TestOwnerIsolation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	room, _, _ := svc.CreateRoom(ctx, ownerA, Room{Number: "A-1", Capacity: 2})
	st, _, _ := svc.CreateStudent(ctx, ownerA, newStudent("Rahul", "9876543210"))

	if rooms, _ := svc.ListRooms(ctx, ownerB, RoomFilter{}); len(rooms) != 0 {
		t.Fatalf("owner B sees %d rooms", len(rooms))
	}
	if _, err := svc.GetRoom(ctx, ownerB, room.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, _, err := svc.UpdateStudent(ctx, ownerB, st.ID, func(*Student) error { return nil }); !domain.IsNotFound(err) {
		t.Fatalf("expected not found on foreign update, got %v", err)
	}
	if _, err := svc.DeleteRoom(ctx, ownerB, room.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected not found on foreign delete, got %v", err)
	}
	bStudent := newStudent("Other", "9000000009")
	bStudent.RoomID = &room.ID
	if _, _, err := svc.CreateStudent(ctx, ownerB, bStudent); !domain.IsNotFound(err) {
		t.Fatalf("expected foreign room to be invisible, got %v", err)
	}
	if _, _, err := svc.RecordPayment(ctx, ownerB, Payment{StudentID: st.ID, Amount: decimal.NewFromInt(1), Method: domain.MethodCash}); !domain.IsNotFound(err) {
		t.Fatalf("expected foreign student to be invisible, got %v", err)
	}
}

func TestSessionRequired(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	if _, err := svc.ListRooms(ctx, Session{}, RoomFilter{}); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
	student := Session{OwnerID: "owner-a", UserID: "u1", Role: domain.RoleStudent, StudentID: "s1"}
	if _, _, err := svc.CreateRoom(ctx, student, Room{Number: "X", Capacity: 1}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for student write, got %v", err)
	}
}

func TestOwnerReadsRejectStudentSessions(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	room, err := mustRoom(svc)
	if err != nil {
		t.Fatalf("seed room: %v", err)
	}
	student := Session{OwnerID: ownerA.OwnerID, UserID: "u1", Role: domain.RoleStudent, StudentID: "s1"}

	reads := map[string]func() error{
		"list_hostels":    func() error { _, err := svc.ListHostels(ctx, student); return err },
		"list_rooms":      func() error { _, err := svc.ListRooms(ctx, student, RoomFilter{}); return err },
		"get_room":        func() error { _, err := svc.GetRoom(ctx, student, room.ID); return err },
		"list_students":   func() error { _, err := svc.ListStudents(ctx, student, StudentFilter{}); return err },
		"list_payments":   func() error { _, err := svc.ListPayments(ctx, student, PaymentFilter{}); return err },
		"list_expenses":   func() error { _, err := svc.ListExpenses(ctx, student, ExpenseFilter{}); return err },
		"occupancy":       func() error { _, err := svc.Occupancy(ctx, student); return err },
		"reconcile_month": func() error { _, err := svc.ReconcileMonth(ctx, student, "March 2025"); return err },
		"expense_summary": func() error { _, err := svc.ExpenseSummary(ctx, student, ""); return err },
		"dashboard":       func() error { _, err := svc.Dashboard(ctx, student, ""); return err },
	}
	for name, read := range reads {
		if err := read(); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("%s: expected forbidden for student session, got %v", name, err)
		}
	}
	if _, err := svc.Menu(ctx, student); err != nil {
		t.Fatalf("students read the menu: %v", err)
	}
	if _, err := svc.ListRooms(ctx, ownerA, RoomFilter{}); err != nil {
		t.Fatalf("owner read: %v", err)
	}
}

func mustRoom(svc *Service) (Room, error) {
	room, _, err := svc.CreateRoom(context.Background(), ownerA, Room{Number: "B-201", Capacity: 3})
	return room, err
}

func TestDeleteGuards(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	h, _, _ := svc.CreateHostel(ctx, ownerA, Hostel{Name: "North"})
	room, _, _ := svc.CreateRoom(ctx, ownerA, Room{HostelID: &h.ID, Number: "1", Capacity: 1})
	st := newStudent("Rahul", "9876543210")
	st.RoomID = &room.ID
	st, _, _ = svc.CreateStudent(ctx, ownerA, st)

	if _, err := svc.DeleteHostel(ctx, ownerA, h.ID); !domain.IsValidation(err) {
		t.Fatalf("expected hostel delete to be refused, got %v", err)
	}
	if _, err := svc.DeleteRoom(ctx, ownerA, room.ID); !domain.IsValidation(err) {
		t.Fatalf("expected room delete to be refused, got %v", err)
	}
	if _, _, err := svc.AssignRoom(ctx, ownerA, st.ID, nil, ""); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if _, err := svc.DeleteRoom(ctx, ownerA, room.ID); err != nil {
		t.Fatalf("delete empty room: %v", err)
	}
	if _, err := svc.DeleteHostel(ctx, ownerA, h.ID); err != nil {
		t.Fatalf("delete empty hostel: %v", err)
	}
}

type failingStore struct{ err error }

func (f failingStore) RunInTransaction(context.Context, func(Transaction) error) (Result, error) {
	return Result{}, f.err
}

func (f failingStore) View(context.Context, func(TransactionView) error) error { return f.err }

func TestBackendFailuresWrapAsStorageError(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("connection reset")
	svc := NewService(failingStore{err: cause})

	_, err := svc.ListStudents(ctx, ownerA, StudentFilter{})
	var storageErr *domain.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if storageErr.Op != "list" || storageErr.Entity != domain.EntityStudent || !errors.Is(err, cause) {
		t.Fatalf("unexpected storage error %+v", storageErr)
	}
	if _, err := svc.ReconcileMonth(ctx, ownerA, "March 2025"); !domain.IsStorage(err) {
		t.Fatalf("expected reconcile to surface storage error, got %v", err)
	}
}

func TestMenuMealsMergeAndPublish(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newTestService(t, WithPublisher(pub))

	if _, _, err := svc.SetMeal(ctx, ownerA, time.Monday, domain.MealBreakfast, "Poha"); err != nil {
		t.Fatalf("breakfast: %v", err)
	}
	entry, _, err := svc.SetMeal(ctx, ownerA, time.Monday, domain.MealDinner, " Dal rice ")
	if err != nil {
		t.Fatalf("dinner: %v", err)
	}
	if entry.Breakfast != "Poha" || entry.Dinner != "Dal rice" {
		t.Fatalf("meal update clobbered other slots: %+v", entry)
	}
	if _, _, err := svc.SetMeal(ctx, ownerA, time.Sunday, domain.MealLunch, "Biryani"); err != nil {
		t.Fatalf("sunday: %v", err)
	}
	menu, err := svc.Menu(ctx, ownerA)
	if err != nil {
		t.Fatalf("menu: %v", err)
	}
	if len(menu) != 2 || menu[0].Day != time.Sunday || menu[1].Breakfast != "Poha" {
		t.Fatalf("unexpected menu %+v", menu)
	}
	if len(pub.entries) != 3 {
		t.Fatalf("expected 3 publishes, got %d", len(pub.entries))
	}
	if _, _, err := svc.SetMeal(ctx, ownerA, time.Monday, "brunch", "x"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for unknown meal, got %v", err)
	}
}

type recordingPublisher struct{ entries []MenuEntry }

func (p *recordingPublisher) PublishMenu(_ context.Context, e MenuEntry) {
	p.entries = append(p.entries, e)
}
