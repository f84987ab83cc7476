// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by staytrack.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityHostel identifies a hostel record.
	EntityHostel EntityType = "hostel"
	// EntityRoom identifies a room record.
	EntityRoom EntityType = "room"
	// EntityStudent identifies a resident student record.
	EntityStudent EntityType = "student"
	// EntityPayment identifies a rent payment record.
	EntityPayment EntityType = "payment"
	// EntityExpense identifies an owner expense record.
	EntityExpense EntityType = "expense"
	// EntityMenuEntry identifies a mess menu day record.
	EntityMenuEntry EntityType = "menu_entry"
)

// StudentStatus captures whether a student currently occupies a bed.
type StudentStatus string

// Student statuses. Only active students count towards occupancy and collection.
const (
	StudentActive   StudentStatus = "Active"
	StudentInactive StudentStatus = "Inactive"
)

// PaymentMethod enumerates the ways rent can be collected.
type PaymentMethod string

// Supported payment methods.
const (
	MethodCash  PaymentMethod = "Cash"
	MethodUPI   PaymentMethod = "UPI"
	MethodOther PaymentMethod = "Other"
)

// Valid reports whether m is one of the supported methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodUPI, MethodOther:
		return true
	}
	return false
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records. OwnerID scopes every
// record to the operator account that created it.
type Base struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Hostel is a property operated by an owner.
type Hostel struct {
	Base
	Name     string `json:"name"`
	Address  string `json:"address"`
	Contact  string `json:"contact"`
	Capacity int    `json:"capacity"`
}

// Room is a bookable unit. Occupied is a counter maintained alongside student
// mutations; readers that need an authoritative figure recompute it from the
// active students assigned to the room.
type Room struct {
	Base
	HostelID *string `json:"hostel_id,omitempty"`
	Number   string  `json:"number"`
	Floor    string  `json:"floor"`
	Capacity int     `json:"capacity"`
	Occupied int     `json:"occupied"`
}

// Student is a resident assigned to at most one room.
type Student struct {
	Base
	Name         string          `json:"name"`
	Phone        string          `json:"phone"`
	ParentPhone  string          `json:"parent_phone,omitempty"`
	NationalID   string          `json:"national_id"`
	RoomID       *string         `json:"room_id,omitempty"`
	RoomNumber   string          `json:"room_number,omitempty"`
	Bed          string          `json:"bed,omitempty"`
	Rent         decimal.Decimal `json:"rent"`
	Status       StudentStatus   `json:"status"`
	ProfileImage string          `json:"profile_image,omitempty"`
	IDImage      string          `json:"id_image,omitempty"`
}

// Active reports whether the student counts towards occupancy and collection.
func (s Student) Active() bool { return s.Status != StudentInactive }

// Payment records rent collected from a student for a month key.
type Payment struct {
	Base
	StudentID   string          `json:"student_id"`
	StudentName string          `json:"student_name"`
	Month       string          `json:"month"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method"`
	Notes       string          `json:"notes,omitempty"`
	PaidAt      time.Time       `json:"paid_at"`
}

// Expense records money spent by the owner.
type Expense struct {
	Base
	Amount   decimal.Decimal `json:"amount"`
	Category ExpenseCategory `json:"category"`
	Note     string          `json:"note,omitempty"`
	SpentAt  time.Time       `json:"spent_at"`
	Month    string          `json:"month"`
}

// Meal names a mess menu slot.
type Meal string

// Meal slots served each day.
const (
	MealBreakfast Meal = "breakfast"
	MealLunch     Meal = "lunch"
	MealSnacks    Meal = "snacks"
	MealDinner    Meal = "dinner"
)

// Meals lists the slots in serving order.
var Meals = []Meal{MealBreakfast, MealLunch, MealSnacks, MealDinner}

// Valid reports whether m is a known meal slot.
func (m Meal) Valid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealSnacks, MealDinner:
		return true
	}
	return false
}

// MenuEntry holds the mess menu for one owner and weekday. Its ID is derived
// from the owner and day so that upserts address the same record.
type MenuEntry struct {
	Base
	Day       time.Weekday `json:"day"`
	Breakfast string       `json:"breakfast"`
	Lunch     string       `json:"lunch"`
	Snacks    string       `json:"snacks"`
	Dinner    string       `json:"dinner"`
}

// Meal returns the text stored for slot m.
func (e MenuEntry) Meal(m Meal) string {
	switch m {
	case MealBreakfast:
		return e.Breakfast
	case MealLunch:
		return e.Lunch
	case MealSnacks:
		return e.Snacks
	case MealDinner:
		return e.Dinner
	}
	return ""
}

// SetMeal replaces the text for slot m, leaving the other slots untouched.
func (e *MenuEntry) SetMeal(m Meal, text string) {
	switch m {
	case MealBreakfast:
		e.Breakfast = text
	case MealLunch:
		e.Lunch = text
	case MealSnacks:
		e.Snacks = text
	case MealDinner:
		e.Dinner = text
	}
}

// MenuEntryID returns the stable identifier for an owner's weekday menu.
func MenuEntryID(ownerID string, day time.Weekday) string {
	return ownerID + ":" + day.String()
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity  EntityType
	Action  Action
	OwnerID string
	Before  any
	After   any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return "transaction blocked by rules: " + v.Message
		}
	}
	return "transaction blocked by rules"
}
