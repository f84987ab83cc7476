// Package core implements the occupancy and payment reconciliation model on
// top of a domain.PersistentStore: owner-scoped repository access, derived
// occupancy and collection views, and the service API used by transports.
package core

import "staytrack/pkg/domain"

type (
	Hostel             = domain.Hostel
	Room               = domain.Room
	Student            = domain.Student
	Payment            = domain.Payment
	Expense            = domain.Expense
	MenuEntry          = domain.MenuEntry
	Session            = domain.Session
	Change             = domain.Change
	Result             = domain.Result
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

// RoomStatus labels a room's derived occupancy state.
type RoomStatus string

// Fixed room statuses. Partially occupied rooms use a "{n} Beds Free" label.
const (
	RoomFull   RoomStatus = "Full"
	RoomVacant RoomStatus = "Vacant"
)

// PaymentStatus is a student's derived status for a month.
type PaymentStatus string

// Payment statuses.
const (
	StatusPaid   PaymentStatus = "Paid"
	StatusUnpaid PaymentStatus = "Unpaid"
)

// Tab selects a projection of a reconciliation.
type Tab string

// Reconciliation tabs.
const (
	TabAll    Tab = "All"
	TabPaid   Tab = "Paid"
	TabUnpaid Tab = "Unpaid"
)

// ParseTab maps case-insensitive tab names, defaulting to TabAll.
func ParseTab(s string) Tab {
	switch Tab(s) {
	case TabPaid, "paid", "PAID":
		return TabPaid
	case TabUnpaid, "unpaid", "UNPAID":
		return TabUnpaid
	}
	return TabAll
}
