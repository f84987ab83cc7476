// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"staytrack/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Hostel aliases domain.Hostel for in-memory persistence operations.
	Hostel = domain.Hostel
	// Room aliases domain.Room.
	Room = domain.Room
	// Student aliases domain.Student.
	Student = domain.Student
	// Payment aliases domain.Payment.
	Payment = domain.Payment
	// Expense aliases domain.Expense.
	Expense = domain.Expense
	// MenuEntry aliases domain.MenuEntry.
	MenuEntry = domain.MenuEntry
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	hostels  map[string]Hostel
	rooms    map[string]Room
	students map[string]Student
	payments map[string]Payment
	expenses map[string]Expense
	menu     map[string]MenuEntry
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Hostels  map[string]Hostel    `json:"hostels"`
	Rooms    map[string]Room      `json:"rooms"`
	Students map[string]Student   `json:"students"`
	Payments map[string]Payment   `json:"payments"`
	Expenses map[string]Expense   `json:"expenses"`
	Menu     map[string]MenuEntry `json:"menu"`
}

func newMemoryState() memoryState {
	return memoryState{
		hostels:  make(map[string]Hostel),
		rooms:    make(map[string]Room),
		students: make(map[string]Student),
		payments: make(map[string]Payment),
		expenses: make(map[string]Expense),
		menu:     make(map[string]MenuEntry),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Hostels:  make(map[string]Hostel, len(state.hostels)),
		Rooms:    make(map[string]Room, len(state.rooms)),
		Students: make(map[string]Student, len(state.students)),
		Payments: make(map[string]Payment, len(state.payments)),
		Expenses: make(map[string]Expense, len(state.expenses)),
		Menu:     make(map[string]MenuEntry, len(state.menu)),
	}
	for k, v := range state.hostels {
		s.Hostels[k] = v
	}
	for k, v := range state.rooms {
		s.Rooms[k] = cloneRoom(v)
	}
	for k, v := range state.students {
		s.Students[k] = cloneStudent(v)
	}
	for k, v := range state.payments {
		s.Payments[k] = v
	}
	for k, v := range state.expenses {
		s.Expenses[k] = v
	}
	for k, v := range state.menu {
		s.Menu[k] = v
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Hostels {
		state.hostels[k] = v
	}
	for k, v := range s.Rooms {
		state.rooms[k] = cloneRoom(v)
	}
	for k, v := range s.Students {
		state.students[k] = cloneStudent(v)
	}
	for k, v := range s.Payments {
		state.payments[k] = v
	}
	for k, v := range s.Expenses {
		state.expenses[k] = v
	}
	for k, v := range s.Menu {
		state.menu[k] = v
	}
	return state
}

// migrateSnapshot drops dangling references left by older snapshots: rooms
// pointing at deleted hostels lose their grouping and students pointing at
// deleted rooms are unassigned.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	for id, room := range snapshot.Rooms {
		if room.HostelID != nil {
			if _, ok := snapshot.Hostels[*room.HostelID]; !ok {
				room.HostelID = nil
			}
		}
		if room.Capacity <= 0 {
			room.Capacity = 1
		}
		snapshot.Rooms[id] = room
	}
	for id, student := range snapshot.Students {
		if student.RoomID != nil {
			if _, ok := snapshot.Rooms[*student.RoomID]; !ok {
				student.RoomID = nil
				student.RoomNumber = ""
			}
		}
		if student.Status == "" {
			student.Status = domain.StudentActive
		}
		snapshot.Students[id] = student
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	return memoryStateFromSnapshot(snapshotFromMemoryState(s))
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneRoom(r Room) Room {
	r.HostelID = cloneString(r.HostelID)
	return r
}

func cloneStudent(s Student) Student {
	s.RoomID = cloneString(s.RoomID)
	return s
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// copy first so migration never mutates the caller's maps
	cloned := snapshotFromMemoryState(memoryStateFromSnapshot(snapshot))
	s.state = memoryStateFromSnapshot(migrateSnapshot(cloned))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc replaces the time provider; intended for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	view := newTransactionView(&snapshot)
	return fn(view)
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func sortBases[T any](items []T, base func(T) domain.Base) {
	sort.Slice(items, func(i, j int) bool {
		a, b := base(items[i]), base(items[j])
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// ListHostels returns the owner's hostels ordered by creation.
func (v transactionView) ListHostels(ownerID string) []Hostel {
	out := make([]Hostel, 0)
	for _, h := range v.state.hostels {
		if h.OwnerID == ownerID {
			out = append(out, h)
		}
	}
	sortBases(out, func(h Hostel) domain.Base { return h.Base })
	return out
}

// ListRooms returns the owner's rooms ordered by creation.
func (v transactionView) ListRooms(ownerID string) []Room {
	out := make([]Room, 0)
	for _, r := range v.state.rooms {
		if r.OwnerID == ownerID {
			out = append(out, cloneRoom(r))
		}
	}
	sortBases(out, func(r Room) domain.Base { return r.Base })
	return out
}

// ListStudents returns the owner's students ordered by creation.
func (v transactionView) ListStudents(ownerID string) []Student {
	out := make([]Student, 0)
	for _, st := range v.state.students {
		if st.OwnerID == ownerID {
			out = append(out, cloneStudent(st))
		}
	}
	sortBases(out, func(s Student) domain.Base { return s.Base })
	return out
}

// ListPayments returns the owner's payments ordered by creation.
func (v transactionView) ListPayments(ownerID string) []Payment {
	out := make([]Payment, 0)
	for _, p := range v.state.payments {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sortBases(out, func(p Payment) domain.Base { return p.Base })
	return out
}

// ListExpenses returns the owner's expenses ordered by creation.
func (v transactionView) ListExpenses(ownerID string) []Expense {
	out := make([]Expense, 0)
	for _, e := range v.state.expenses {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	sortBases(out, func(e Expense) domain.Base { return e.Base })
	return out
}

// ListMenuEntries returns the owner's menu ordered by weekday.
func (v transactionView) ListMenuEntries(ownerID string) []MenuEntry {
	out := make([]MenuEntry, 0, 7)
	for _, e := range v.state.menu {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// FindHostel retrieves a hostel by ID from the snapshot.
func (v transactionView) FindHostel(id string) (Hostel, bool) {
	h, ok := v.state.hostels[id]
	return h, ok
}

// FindRoom retrieves a room by ID from the snapshot.
func (v transactionView) FindRoom(id string) (Room, bool) {
	r, ok := v.state.rooms[id]
	if !ok {
		return Room{}, false
	}
	return cloneRoom(r), true
}

// FindStudent retrieves a student by ID from the snapshot.
func (v transactionView) FindStudent(id string) (Student, bool) {
	s, ok := v.state.students[id]
	if !ok {
		return Student{}, false
	}
	return cloneStudent(s), true
}

// FindPayment retrieves a payment by ID from the snapshot.
func (v transactionView) FindPayment(id string) (Payment, bool) {
	p, ok := v.state.payments[id]
	return p, ok
}

// FindExpense retrieves an expense by ID from the snapshot.
func (v transactionView) FindExpense(id string) (Expense, bool) {
	e, ok := v.state.expenses[id]
	return e, ok
}

// FindMenuEntry retrieves a menu entry by ID from the snapshot.
func (v transactionView) FindMenuEntry(id string) (MenuEntry, bool) {
	e, ok := v.state.menu[id]
	return e, ok
}
