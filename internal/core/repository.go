package core

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"staytrack/pkg/domain"
)

// RoomFilter narrows ListRooms. Empty fields match everything.
type RoomFilter struct {
	HostelID string
}

// StudentFilter narrows ListStudents.
type StudentFilter struct {
	RoomID string
	Status domain.StudentStatus
}

// PaymentFilter narrows ListPayments. Month is compared in canonical form.
type PaymentFilter struct {
	Month     string
	StudentID string
}

// ExpenseFilter narrows ListExpenses.
type ExpenseFilter struct {
	Month string
}

// Repository performs owner-scoped reads and writes against a
// PersistentStore. Records belonging to other owners are reported as
// domain.ErrNotFound; backend failures surface as *domain.StorageError.
type Repository struct {
	store PersistentStore
}

// NewRepository wraps store.
func NewRepository(store PersistentStore) *Repository {
	return &Repository{store: store}
}

// Store returns the underlying store.
func (r *Repository) Store() PersistentStore { return r.store }

// classify passes typed domain errors through and wraps everything else.
func classify(op string, entity domain.EntityType, err error) error {
	if err == nil {
		return nil
	}
	var rv RuleViolationError
	switch {
	case domain.IsValidation(err), domain.IsNotFound(err), domain.IsStorage(err),
		errors.As(err, &rv),
		errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, domain.ErrForbidden),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &domain.StorageError{Op: op, Entity: entity, Err: err}
}

func (r *Repository) view(ctx context.Context, s Session, op string, entity domain.EntityType, fn func(TransactionView) error) error {
	if err := s.Authenticated(); err != nil {
		return err
	}
	return classify(op, entity, r.store.View(ctx, fn))
}

func (r *Repository) write(ctx context.Context, s Session, op string, entity domain.EntityType, fn func(Transaction) error) (Result, error) {
	if err := s.RequireOwner(); err != nil {
		return Result{}, err
	}
	res, err := r.store.RunInTransaction(ctx, fn)
	return res, classify(op, entity, err)
}

func filterList[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// owned looks up a record and hides it when it belongs to another owner.
func owned[T any](s Session, entity domain.EntityType, id string, find func(string) (T, bool), owner func(T) string) (T, error) {
	item, ok := find(id)
	if !ok || !s.Owns(owner(item)) {
		var zero T
		return zero, domain.ErrNotFound{Entity: entity, ID: id}
	}
	return item, nil
}

func hostelOwner(h Hostel) string       { return h.OwnerID }
func roomOwner(r Room) string           { return r.OwnerID }
func studentOwner(s Student) string     { return s.OwnerID }
func paymentOwner(p Payment) string     { return p.OwnerID }
func expenseOwner(e Expense) string     { return e.OwnerID }
func menuEntryOwner(e MenuEntry) string { return e.OwnerID }

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// --- Hostels ---

// ListHostels returns the session owner's hostels.
func (r *Repository) ListHostels(ctx context.Context, s Session) ([]Hostel, error) {
	var out []Hostel
	err := r.view(ctx, s, "list", domain.EntityHostel, func(v TransactionView) error {
		out = v.ListHostels(s.OwnerID)
		return nil
	})
	return out, err
}

// GetHostel returns one hostel.
func (r *Repository) GetHostel(ctx context.Context, s Session, id string) (Hostel, error) {
	var out Hostel
	err := r.view(ctx, s, "get", domain.EntityHostel, func(v TransactionView) error {
		var err error
		out, err = owned(s, domain.EntityHostel, id, v.FindHostel, hostelOwner)
		return err
	})
	return out, err
}

// CreateHostel stores a new hostel for the session owner.
func (r *Repository) CreateHostel(ctx context.Context, s Session, h Hostel) (Hostel, Result, error) {
	if err := h.Validate(); err != nil {
		return Hostel{}, Result{}, err
	}
	h.Base = domain.Base{OwnerID: s.OwnerID}
	var created Hostel
	res, err := r.write(ctx, s, "create", domain.EntityHostel, func(tx Transaction) error {
		var err error
		created, err = tx.CreateHostel(h)
		return err
	})
	return created, res, err
}

// UpdateHostel applies mutator to an owned hostel.
func (r *Repository) UpdateHostel(ctx context.Context, s Session, id string, mutator func(*Hostel) error) (Hostel, Result, error) {
	var updated Hostel
	res, err := r.write(ctx, s, "update", domain.EntityHostel, func(tx Transaction) error {
		if _, err := owned(s, domain.EntityHostel, id, tx.Snapshot().FindHostel, hostelOwner); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateHostel(id, func(h *Hostel) error {
			if err := mutator(h); err != nil {
				return err
			}
			return h.Validate()
		})
		return err
	})
	return updated, res, err
}

// DeleteHostel removes an owned hostel that no room references.
func (r *Repository) DeleteHostel(ctx context.Context, s Session, id string) (Result, error) {
	return r.write(ctx, s, "delete", domain.EntityHostel, func(tx Transaction) error {
		view := tx.Snapshot()
		if _, err := owned(s, domain.EntityHostel, id, view.FindHostel, hostelOwner); err != nil {
			return err
		}
		rooms := filterList(view.ListRooms(s.OwnerID), func(room Room) bool {
			return room.HostelID != nil && *room.HostelID == id
		})
		if len(rooms) > 0 {
			return domain.Invalid("hostel", "still has %d rooms", len(rooms))
		}
		return tx.DeleteHostel(id)
	})
}

// --- Rooms ---

// ListRooms returns the owner's rooms matching filter.
func (r *Repository) ListRooms(ctx context.Context, s Session, filter RoomFilter) ([]Room, error) {
	var out []Room
	err := r.view(ctx, s, "list", domain.EntityRoom, func(v TransactionView) error {
		out = filterList(v.ListRooms(s.OwnerID), func(room Room) bool {
			return filter.HostelID == "" || (room.HostelID != nil && *room.HostelID == filter.HostelID)
		})
		return nil
	})
	return out, err
}

// GetRoom returns one room.
func (r *Repository) GetRoom(ctx context.Context, s Session, id string) (Room, error) {
	var out Room
	err := r.view(ctx, s, "get", domain.EntityRoom, func(v TransactionView) error {
		var err error
		out, err = owned(s, domain.EntityRoom, id, v.FindRoom, roomOwner)
		return err
	})
	return out, err
}

// CreateRoom stores a new, empty room.
func (r *Repository) CreateRoom(ctx context.Context, s Session, room Room) (Room, Result, error) {
	room.Number = strings.TrimSpace(room.Number)
	if err := room.Validate(); err != nil {
		return Room{}, Result{}, err
	}
	room.Base = domain.Base{OwnerID: s.OwnerID}
	room.Occupied = 0
	var created Room
	res, err := r.write(ctx, s, "create", domain.EntityRoom, func(tx Transaction) error {
		if room.HostelID != nil {
			if _, err := owned(s, domain.EntityHostel, *room.HostelID, tx.Snapshot().FindHostel, hostelOwner); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.CreateRoom(room)
		return err
	})
	return created, res, err
}

// UpdateRoom applies mutator to an owned room. Renumbering refreshes the
// display number on assigned students; the occupied counter is recomputed.
func (r *Repository) UpdateRoom(ctx context.Context, s Session, id string, mutator func(*Room) error) (Room, Result, error) {
	var updated Room
	res, err := r.write(ctx, s, "update", domain.EntityRoom, func(tx Transaction) error {
		view := tx.Snapshot()
		before, err := owned(s, domain.EntityRoom, id, view.FindRoom, roomOwner)
		if err != nil {
			return err
		}
		updated, err = tx.UpdateRoom(id, func(room *Room) error {
			if err := mutator(room); err != nil {
				return err
			}
			room.Number = strings.TrimSpace(room.Number)
			room.Occupied = before.Occupied
			if room.HostelID != nil && !sameRef(before.HostelID, room.HostelID) {
				if _, err := owned(s, domain.EntityHostel, *room.HostelID, view.FindHostel, hostelOwner); err != nil {
					return err
				}
			}
			return room.Validate()
		})
		if err != nil {
			return err
		}
		if updated.Number != before.Number {
			for _, student := range view.ListStudents(s.OwnerID) {
				if student.RoomID == nil || *student.RoomID != id {
					continue
				}
				if _, err := tx.UpdateStudent(student.ID, func(st *Student) error {
					st.RoomNumber = updated.Number
					return nil
				}); err != nil {
					return err
				}
			}
		}
		if err := syncOccupied(tx, s.OwnerID, &id); err != nil {
			return err
		}
		updated, _ = tx.Snapshot().FindRoom(id)
		return nil
	})
	return updated, res, err
}

// DeleteRoom removes an owned room with no students assigned.
func (r *Repository) DeleteRoom(ctx context.Context, s Session, id string) (Result, error) {
	return r.write(ctx, s, "delete", domain.EntityRoom, func(tx Transaction) error {
		view := tx.Snapshot()
		if _, err := owned(s, domain.EntityRoom, id, view.FindRoom, roomOwner); err != nil {
			return err
		}
		assigned := filterList(view.ListStudents(s.OwnerID), func(st Student) bool {
			return st.RoomID != nil && *st.RoomID == id
		})
		if len(assigned) > 0 {
			return domain.Invalid("room", "still has %d students assigned", len(assigned))
		}
		return tx.DeleteRoom(id)
	})
}

// syncOccupied recomputes the stored occupied counter for each room id from
// the active students assigned to it.
func syncOccupied(tx Transaction, ownerID string, roomIDs ...*string) error {
	view := tx.Snapshot()
	students := view.ListStudents(ownerID)
	done := make(map[string]bool, len(roomIDs))
	for _, ref := range roomIDs {
		if ref == nil || done[*ref] {
			continue
		}
		id := *ref
		done[id] = true
		room, ok := view.FindRoom(id)
		if !ok {
			continue
		}
		count := 0
		for _, st := range students {
			if st.Active() && st.RoomID != nil && *st.RoomID == id {
				count++
			}
		}
		if room.Occupied == count {
			continue
		}
		if _, err := tx.UpdateRoom(id, func(r *Room) error {
			r.Occupied = count
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// --- Students ---

// ListStudents returns the owner's students matching filter.
func (r *Repository) ListStudents(ctx context.Context, s Session, filter StudentFilter) ([]Student, error) {
	var out []Student
	err := r.view(ctx, s, "list", domain.EntityStudent, func(v TransactionView) error {
		out = filterList(v.ListStudents(s.OwnerID), func(st Student) bool {
			if filter.RoomID != "" && (st.RoomID == nil || *st.RoomID != filter.RoomID) {
				return false
			}
			return filter.Status == "" || st.Status == filter.Status
		})
		return nil
	})
	return out, err
}

// GetStudent returns one student.
func (r *Repository) GetStudent(ctx context.Context, s Session, id string) (Student, error) {
	var out Student
	err := r.view(ctx, s, "get", domain.EntityStudent, func(v TransactionView) error {
		var err error
		out, err = owned(s, domain.EntityStudent, id, v.FindStudent, studentOwner)
		return err
	})
	return out, err
}

// resolveRoom refreshes the student's display room number from RoomID.
func resolveRoom(s Session, view TransactionView, st *Student) error {
	if st.RoomID == nil || *st.RoomID == "" {
		st.RoomID = nil
		st.RoomNumber = ""
		st.Bed = ""
		return nil
	}
	room, err := owned(s, domain.EntityRoom, *st.RoomID, view.FindRoom, roomOwner)
	if err != nil {
		return err
	}
	st.RoomNumber = room.Number
	return nil
}

// CreateStudent stores a new student and adjusts the assigned room's counter
// in the same transaction.
func (r *Repository) CreateStudent(ctx context.Context, s Session, st Student) (Student, Result, error) {
	if st.Status == "" {
		st.Status = domain.StudentActive
	}
	if err := st.Validate(); err != nil {
		return Student{}, Result{}, err
	}
	st.Base = domain.Base{OwnerID: s.OwnerID}
	var created Student
	res, err := r.write(ctx, s, "create", domain.EntityStudent, func(tx Transaction) error {
		if err := resolveRoom(s, tx.Snapshot(), &st); err != nil {
			return err
		}
		var err error
		if created, err = tx.CreateStudent(st); err != nil {
			return err
		}
		return syncOccupied(tx, s.OwnerID, created.RoomID)
	})
	return created, res, err
}

// UpdateStudent applies mutator to an owned student. Room changes and status
// changes adjust both affected rooms' counters in the same transaction.
func (r *Repository) UpdateStudent(ctx context.Context, s Session, id string, mutator func(*Student) error) (Student, Result, error) {
	var updated Student
	res, err := r.write(ctx, s, "update", domain.EntityStudent, func(tx Transaction) error {
		view := tx.Snapshot()
		before, err := owned(s, domain.EntityStudent, id, view.FindStudent, studentOwner)
		if err != nil {
			return err
		}
		updated, err = tx.UpdateStudent(id, func(st *Student) error {
			if err := mutator(st); err != nil {
				return err
			}
			if err := st.Validate(); err != nil {
				return err
			}
			return resolveRoom(s, view, st)
		})
		if err != nil {
			return err
		}
		return syncOccupied(tx, s.OwnerID, before.RoomID, updated.RoomID)
	})
	return updated, res, err
}

// DeleteStudent removes an owned student and frees their bed. Payments are
// retained as history.
func (r *Repository) DeleteStudent(ctx context.Context, s Session, id string) (Result, error) {
	return r.write(ctx, s, "delete", domain.EntityStudent, func(tx Transaction) error {
		before, err := owned(s, domain.EntityStudent, id, tx.Snapshot().FindStudent, studentOwner)
		if err != nil {
			return err
		}
		if err := tx.DeleteStudent(id); err != nil {
			return err
		}
		return syncOccupied(tx, s.OwnerID, before.RoomID)
	})
}

// --- Payments ---

// ListPayments returns the owner's payments matching filter.
func (r *Repository) ListPayments(ctx context.Context, s Session, filter PaymentFilter) ([]Payment, error) {
	month := ""
	if filter.Month != "" {
		var err error
		if month, err = domain.CanonicalMonth(filter.Month); err != nil {
			return nil, domain.Invalid("month", "%v", err)
		}
	}
	var out []Payment
	err := r.view(ctx, s, "list", domain.EntityPayment, func(v TransactionView) error {
		out = filterList(v.ListPayments(s.OwnerID), func(p Payment) bool {
			if month != "" && p.Month != month {
				return false
			}
			return filter.StudentID == "" || p.StudentID == filter.StudentID
		})
		return nil
	})
	return out, err
}

// GetPayment returns one payment.
func (r *Repository) GetPayment(ctx context.Context, s Session, id string) (Payment, error) {
	var out Payment
	err := r.view(ctx, s, "get", domain.EntityPayment, func(v TransactionView) error {
		var err error
		out, err = owned(s, domain.EntityPayment, id, v.FindPayment, paymentOwner)
		return err
	})
	return out, err
}

// CreatePayment records rent for an owned student. The month key is
// canonicalised and the student's name is snapshotted onto the payment.
func (r *Repository) CreatePayment(ctx context.Context, s Session, p Payment) (Payment, Result, error) {
	if month, err := domain.CanonicalMonth(p.Month); err == nil {
		p.Month = month
	}
	if err := p.Validate(); err != nil {
		return Payment{}, Result{}, err
	}
	p.Base = domain.Base{OwnerID: s.OwnerID}
	var created Payment
	res, err := r.write(ctx, s, "create", domain.EntityPayment, func(tx Transaction) error {
		student, err := owned(s, domain.EntityStudent, p.StudentID, tx.Snapshot().FindStudent, studentOwner)
		if err != nil {
			return err
		}
		p.StudentName = student.Name
		created, err = tx.CreatePayment(p)
		return err
	})
	return created, res, err
}

// UpdatePayment applies mutator to an owned payment.
func (r *Repository) UpdatePayment(ctx context.Context, s Session, id string, mutator func(*Payment) error) (Payment, Result, error) {
	var updated Payment
	res, err := r.write(ctx, s, "update", domain.EntityPayment, func(tx Transaction) error {
		if _, err := owned(s, domain.EntityPayment, id, tx.Snapshot().FindPayment, paymentOwner); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdatePayment(id, func(p *Payment) error {
			if err := mutator(p); err != nil {
				return err
			}
			if month, err := domain.CanonicalMonth(p.Month); err == nil {
				p.Month = month
			}
			return p.Validate()
		})
		return err
	})
	return updated, res, err
}

// DeletePayment removes an owned payment, reverting the student to unpaid
// for that month.
func (r *Repository) DeletePayment(ctx context.Context, s Session, id string) (Payment, Result, error) {
	var removed Payment
	res, err := r.write(ctx, s, "delete", domain.EntityPayment, func(tx Transaction) error {
		var err error
		if removed, err = owned(s, domain.EntityPayment, id, tx.Snapshot().FindPayment, paymentOwner); err != nil {
			return err
		}
		return tx.DeletePayment(id)
	})
	return removed, res, err
}

// --- Expenses ---

// ListExpenses returns the owner's expenses matching filter.
func (r *Repository) ListExpenses(ctx context.Context, s Session, filter ExpenseFilter) ([]Expense, error) {
	month := ""
	if filter.Month != "" {
		var err error
		if month, err = domain.CanonicalMonth(filter.Month); err != nil {
			return nil, domain.Invalid("month", "%v", err)
		}
	}
	var out []Expense
	err := r.view(ctx, s, "list", domain.EntityExpense, func(v TransactionView) error {
		out = filterList(v.ListExpenses(s.OwnerID), func(e Expense) bool {
			return month == "" || e.Month == month
		})
		return nil
	})
	return out, err
}

func normalizeExpense(e *Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	e.Month = domain.FormatMonth(e.SpentAt)
	return nil
}

// CreateExpense stores an expense. Month is derived from SpentAt.
func (r *Repository) CreateExpense(ctx context.Context, s Session, e Expense) (Expense, Result, error) {
	if err := normalizeExpense(&e); err != nil {
		return Expense{}, Result{}, err
	}
	e.Base = domain.Base{OwnerID: s.OwnerID}
	var created Expense
	res, err := r.write(ctx, s, "create", domain.EntityExpense, func(tx Transaction) error {
		var err error
		created, err = tx.CreateExpense(e)
		return err
	})
	return created, res, err
}

// UpdateExpense applies mutator to an owned expense.
func (r *Repository) UpdateExpense(ctx context.Context, s Session, id string, mutator func(*Expense) error) (Expense, Result, error) {
	var updated Expense
	res, err := r.write(ctx, s, "update", domain.EntityExpense, func(tx Transaction) error {
		if _, err := owned(s, domain.EntityExpense, id, tx.Snapshot().FindExpense, expenseOwner); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateExpense(id, func(e *Expense) error {
			if err := mutator(e); err != nil {
				return err
			}
			return normalizeExpense(e)
		})
		return err
	})
	return updated, res, err
}

// DeleteExpense removes an owned expense.
func (r *Repository) DeleteExpense(ctx context.Context, s Session, id string) (Result, error) {
	return r.write(ctx, s, "delete", domain.EntityExpense, func(tx Transaction) error {
		if _, err := owned(s, domain.EntityExpense, id, tx.Snapshot().FindExpense, expenseOwner); err != nil {
			return err
		}
		return tx.DeleteExpense(id)
	})
}

// --- Menu ---

// ListMenu returns the owner's menu entries ordered by weekday.
func (r *Repository) ListMenu(ctx context.Context, s Session) ([]MenuEntry, error) {
	var out []MenuEntry
	err := r.view(ctx, s, "list", domain.EntityMenuEntry, func(v TransactionView) error {
		out = v.ListMenuEntries(s.OwnerID)
		return nil
	})
	sortMenu(out)
	return out, err
}

// PutMeal sets one meal slot for a weekday, leaving the other slots and days
// untouched.
func (r *Repository) PutMeal(ctx context.Context, s Session, day time.Weekday, meal domain.Meal, text string) (MenuEntry, Result, error) {
	if day < time.Sunday || day > time.Saturday {
		return MenuEntry{}, Result{}, domain.Invalid("day", "unknown weekday %d", day)
	}
	if !meal.Valid() {
		return MenuEntry{}, Result{}, domain.Invalid("meal", "unknown meal %q", meal)
	}
	var saved MenuEntry
	res, err := r.write(ctx, s, "put", domain.EntityMenuEntry, func(tx Transaction) error {
		id := domain.MenuEntryID(s.OwnerID, day)
		entry, err := owned(s, domain.EntityMenuEntry, id, tx.Snapshot().FindMenuEntry, menuEntryOwner)
		if err != nil {
			entry = MenuEntry{Base: domain.Base{ID: id, OwnerID: s.OwnerID}, Day: day}
		}
		entry.SetMeal(meal, strings.TrimSpace(text))
		saved, err = tx.PutMenuEntry(entry)
		return err
	})
	return saved, res, err
}

func sortMenu(entries []MenuEntry) {
	slices.SortFunc(entries, func(a, b MenuEntry) int { return int(a.Day) - int(b.Day) })
}
