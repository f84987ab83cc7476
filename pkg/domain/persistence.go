package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateHostel(Hostel) (Hostel, error)
	UpdateHostel(id string, mutator func(*Hostel) error) (Hostel, error)
	DeleteHostel(id string) error
	CreateRoom(Room) (Room, error)
	UpdateRoom(id string, mutator func(*Room) error) (Room, error)
	DeleteRoom(id string) error
	CreateStudent(Student) (Student, error)
	UpdateStudent(id string, mutator func(*Student) error) (Student, error)
	DeleteStudent(id string) error
	CreatePayment(Payment) (Payment, error)
	UpdatePayment(id string, mutator func(*Payment) error) (Payment, error)
	DeletePayment(id string) error
	CreateExpense(Expense) (Expense, error)
	UpdateExpense(id string, mutator func(*Expense) error) (Expense, error)
	DeleteExpense(id string) error
	// PutMenuEntry inserts or replaces the entry addressed by entry.ID.
	PutMenuEntry(MenuEntry) (MenuEntry, error)
}

// TransactionView provides read-only access to snapshot data. List methods
// only return records owned by ownerID.
type TransactionView interface {
	ListHostels(ownerID string) []Hostel
	ListRooms(ownerID string) []Room
	ListStudents(ownerID string) []Student
	ListPayments(ownerID string) []Payment
	ListExpenses(ownerID string) []Expense
	ListMenuEntries(ownerID string) []MenuEntry
	FindHostel(id string) (Hostel, bool)
	FindRoom(id string) (Room, bool)
	FindStudent(id string) (Student, bool)
	FindPayment(id string) (Payment, bool)
	FindExpense(id string) (Expense, bool)
	FindMenuEntry(id string) (MenuEntry, bool)
}

// PersistentStore is a minimal abstraction over durable backends.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
}
