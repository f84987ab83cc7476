package memory

import (
	"errors"
	"fmt"
	"time"

	"staytrack/pkg/domain"
)

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// helper to record and append change entries.
func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) stamp(base *domain.Base) error {
	if base.OwnerID == "" {
		return errors.New("record requires owner id")
	}
	if base.ID == "" {
		base.ID = tx.store.newID()
	}
	base.CreatedAt = tx.now
	base.UpdatedAt = tx.now
	return nil
}

// restamp keeps identity fields immutable across a mutator call.
func (tx *transaction) restamp(base *domain.Base, before domain.Base) {
	base.ID = before.ID
	base.OwnerID = before.OwnerID
	base.CreatedAt = before.CreatedAt
	base.UpdatedAt = tx.now
}

func (tx *transaction) checkHostelRef(ownerID string, hostelID *string) error {
	if hostelID == nil {
		return nil
	}
	h, ok := tx.state.hostels[*hostelID]
	if !ok || h.OwnerID != ownerID {
		return fmt.Errorf("hostel %q not found", *hostelID)
	}
	return nil
}

func (tx *transaction) checkRoomRef(ownerID string, roomID *string) error {
	if roomID == nil {
		return nil
	}
	r, ok := tx.state.rooms[*roomID]
	if !ok || r.OwnerID != ownerID {
		return fmt.Errorf("room %q not found", *roomID)
	}
	return nil
}

// CreateHostel stores a new hostel.
func (tx *transaction) CreateHostel(h Hostel) (Hostel, error) {
	if err := tx.stamp(&h.Base); err != nil {
		return Hostel{}, err
	}
	if _, exists := tx.state.hostels[h.ID]; exists {
		return Hostel{}, fmt.Errorf("hostel %q already exists", h.ID)
	}
	if h.Capacity < 0 {
		return Hostel{}, errors.New("hostel capacity must not be negative")
	}
	tx.state.hostels[h.ID] = h
	tx.recordChange(Change{Entity: domain.EntityHostel, Action: domain.ActionCreate, OwnerID: h.OwnerID, After: h})
	return h, nil
}

// UpdateHostel mutates an existing hostel.
func (tx *transaction) UpdateHostel(id string, mutator func(*Hostel) error) (Hostel, error) {
	current, ok := tx.state.hostels[id]
	if !ok {
		return Hostel{}, fmt.Errorf("hostel %q not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Hostel{}, err
	}
	if current.Capacity < 0 {
		return Hostel{}, errors.New("hostel capacity must not be negative")
	}
	tx.restamp(&current.Base, before.Base)
	tx.state.hostels[id] = current
	tx.recordChange(Change{Entity: domain.EntityHostel, Action: domain.ActionUpdate, OwnerID: current.OwnerID, Before: before, After: current})
	return current, nil
}

// DeleteHostel removes a hostel with no rooms attached.
func (tx *transaction) DeleteHostel(id string) error {
	current, ok := tx.state.hostels[id]
	if !ok {
		return fmt.Errorf("hostel %q not found", id)
	}
	for _, room := range tx.state.rooms {
		if room.HostelID != nil && *room.HostelID == id {
			return fmt.Errorf("hostel %q still referenced by room %q", id, room.ID)
		}
	}
	delete(tx.state.hostels, id)
	tx.recordChange(Change{Entity: domain.EntityHostel, Action: domain.ActionDelete, OwnerID: current.OwnerID, Before: current})
	return nil
}

// CreateRoom stores a new room.
func (tx *transaction) CreateRoom(r Room) (Room, error) {
	if err := tx.stamp(&r.Base); err != nil {
		return Room{}, err
	}
	if _, exists := tx.state.rooms[r.ID]; exists {
		return Room{}, fmt.Errorf("room %q already exists", r.ID)
	}
	if r.Capacity <= 0 {
		return Room{}, errors.New("room capacity must be positive")
	}
	if err := tx.checkHostelRef(r.OwnerID, r.HostelID); err != nil {
		return Room{}, err
	}
	tx.state.rooms[r.ID] = cloneRoom(r)
	tx.recordChange(Change{Entity: domain.EntityRoom, Action: domain.ActionCreate, OwnerID: r.OwnerID, After: cloneRoom(r)})
	return cloneRoom(r), nil
}

// UpdateRoom mutates an existing room.
func (tx *transaction) UpdateRoom(id string, mutator func(*Room) error) (Room, error) {
	current, ok := tx.state.rooms[id]
	if !ok {
		return Room{}, fmt.Errorf("room %q not found", id)
	}
	before := cloneRoom(current)
	current = cloneRoom(current)
	if err := mutator(&current); err != nil {
		return Room{}, err
	}
	if current.Capacity <= 0 {
		return Room{}, errors.New("room capacity must be positive")
	}
	tx.restamp(&current.Base, before.Base)
	if err := tx.checkHostelRef(current.OwnerID, current.HostelID); err != nil {
		return Room{}, err
	}
	tx.state.rooms[id] = cloneRoom(current)
	tx.recordChange(Change{Entity: domain.EntityRoom, Action: domain.ActionUpdate, OwnerID: current.OwnerID, Before: before, After: cloneRoom(current)})
	return cloneRoom(current), nil
}

// DeleteRoom removes a room that has no students assigned.
func (tx *transaction) DeleteRoom(id string) error {
	current, ok := tx.state.rooms[id]
	if !ok {
		return fmt.Errorf("room %q not found", id)
	}
	for _, student := range tx.state.students {
		if student.RoomID != nil && *student.RoomID == id {
			return fmt.Errorf("room %q still assigned to student %q", id, student.ID)
		}
	}
	delete(tx.state.rooms, id)
	tx.recordChange(Change{Entity: domain.EntityRoom, Action: domain.ActionDelete, OwnerID: current.OwnerID, Before: cloneRoom(current)})
	return nil
}

// CreateStudent stores a new student.
func (tx *transaction) CreateStudent(s Student) (Student, error) {
	if err := tx.stamp(&s.Base); err != nil {
		return Student{}, err
	}
	if _, exists := tx.state.students[s.ID]; exists {
		return Student{}, fmt.Errorf("student %q already exists", s.ID)
	}
	if s.Status == "" {
		s.Status = domain.StudentActive
	}
	if err := tx.checkRoomRef(s.OwnerID, s.RoomID); err != nil {
		return Student{}, err
	}
	tx.state.students[s.ID] = cloneStudent(s)
	tx.recordChange(Change{Entity: domain.EntityStudent, Action: domain.ActionCreate, OwnerID: s.OwnerID, After: cloneStudent(s)})
	return cloneStudent(s), nil
}

// UpdateStudent mutates an existing student.
func (tx *transaction) UpdateStudent(id string, mutator func(*Student) error) (Student, error) {
	current, ok := tx.state.students[id]
	if !ok {
		return Student{}, fmt.Errorf("student %q not found", id)
	}
	before := cloneStudent(current)
	current = cloneStudent(current)
	if err := mutator(&current); err != nil {
		return Student{}, err
	}
	tx.restamp(&current.Base, before.Base)
	if current.Status == "" {
		current.Status = domain.StudentActive
	}
	if err := tx.checkRoomRef(current.OwnerID, current.RoomID); err != nil {
		return Student{}, err
	}
	tx.state.students[id] = cloneStudent(current)
	tx.recordChange(Change{Entity: domain.EntityStudent, Action: domain.ActionUpdate, OwnerID: current.OwnerID, Before: before, After: cloneStudent(current)})
	return cloneStudent(current), nil
}

// DeleteStudent removes a student. Payment history is retained.
func (tx *transaction) DeleteStudent(id string) error {
	current, ok := tx.state.students[id]
	if !ok {
		return fmt.Errorf("student %q not found", id)
	}
	delete(tx.state.students, id)
	tx.recordChange(Change{Entity: domain.EntityStudent, Action: domain.ActionDelete, OwnerID: current.OwnerID, Before: cloneStudent(current)})
	return nil
}

// CreatePayment stores a new payment for an existing student of the same owner.
func (tx *transaction) CreatePayment(p Payment) (Payment, error) {
	if err := tx.stamp(&p.Base); err != nil {
		return Payment{}, err
	}
	if _, exists := tx.state.payments[p.ID]; exists {
		return Payment{}, fmt.Errorf("payment %q already exists", p.ID)
	}
	student, ok := tx.state.students[p.StudentID]
	if !ok || student.OwnerID != p.OwnerID {
		return Payment{}, fmt.Errorf("student %q not found", p.StudentID)
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = tx.now
	}
	tx.state.payments[p.ID] = p
	tx.recordChange(Change{Entity: domain.EntityPayment, Action: domain.ActionCreate, OwnerID: p.OwnerID, After: p})
	return p, nil
}

// UpdatePayment mutates an existing payment.
func (tx *transaction) UpdatePayment(id string, mutator func(*Payment) error) (Payment, error) {
	current, ok := tx.state.payments[id]
	if !ok {
		return Payment{}, fmt.Errorf("payment %q not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Payment{}, err
	}
	tx.restamp(&current.Base, before.Base)
	current.StudentID = before.StudentID
	tx.state.payments[id] = current
	tx.recordChange(Change{Entity: domain.EntityPayment, Action: domain.ActionUpdate, OwnerID: current.OwnerID, Before: before, After: current})
	return current, nil
}

// DeletePayment removes a payment.
func (tx *transaction) DeletePayment(id string) error {
	current, ok := tx.state.payments[id]
	if !ok {
		return fmt.Errorf("payment %q not found", id)
	}
	delete(tx.state.payments, id)
	tx.recordChange(Change{Entity: domain.EntityPayment, Action: domain.ActionDelete, OwnerID: current.OwnerID, Before: current})
	return nil
}

// CreateExpense stores a new expense.
func (tx *transaction) CreateExpense(e Expense) (Expense, error) {
	if err := tx.stamp(&e.Base); err != nil {
		return Expense{}, err
	}
	if _, exists := tx.state.expenses[e.ID]; exists {
		return Expense{}, fmt.Errorf("expense %q already exists", e.ID)
	}
	tx.state.expenses[e.ID] = e
	tx.recordChange(Change{Entity: domain.EntityExpense, Action: domain.ActionCreate, OwnerID: e.OwnerID, After: e})
	return e, nil
}

// UpdateExpense mutates an existing expense.
func (tx *transaction) UpdateExpense(id string, mutator func(*Expense) error) (Expense, error) {
	current, ok := tx.state.expenses[id]
	if !ok {
		return Expense{}, fmt.Errorf("expense %q not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Expense{}, err
	}
	tx.restamp(&current.Base, before.Base)
	tx.state.expenses[id] = current
	tx.recordChange(Change{Entity: domain.EntityExpense, Action: domain.ActionUpdate, OwnerID: current.OwnerID, Before: before, After: current})
	return current, nil
}

// DeleteExpense removes an expense.
func (tx *transaction) DeleteExpense(id string) error {
	current, ok := tx.state.expenses[id]
	if !ok {
		return fmt.Errorf("expense %q not found", id)
	}
	delete(tx.state.expenses, id)
	tx.recordChange(Change{Entity: domain.EntityExpense, Action: domain.ActionDelete, OwnerID: current.OwnerID, Before: current})
	return nil
}

// PutMenuEntry inserts or replaces a menu entry keyed by its ID.
func (tx *transaction) PutMenuEntry(e MenuEntry) (MenuEntry, error) {
	if e.OwnerID == "" {
		return MenuEntry{}, errors.New("record requires owner id")
	}
	if e.ID == "" {
		e.ID = domain.MenuEntryID(e.OwnerID, e.Day)
	}
	current, exists := tx.state.menu[e.ID]
	if exists {
		if current.OwnerID != e.OwnerID {
			return MenuEntry{}, fmt.Errorf("menu entry %q not found", e.ID)
		}
		tx.restamp(&e.Base, current.Base)
	} else {
		e.CreatedAt = tx.now
		e.UpdatedAt = tx.now
	}
	tx.state.menu[e.ID] = e
	change := Change{Entity: domain.EntityMenuEntry, Action: domain.ActionCreate, OwnerID: e.OwnerID, After: e}
	if exists {
		change.Action = domain.ActionUpdate
		change.Before = current
	}
	tx.recordChange(change)
	return e, nil
}
