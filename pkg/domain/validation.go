package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidPhone reports whether s is a 10 digit phone number.
func ValidPhone(s string) bool { return len(s) == 10 && digitsOnly(s) }

// ValidNationalID reports whether s is a 12 digit identity number.
func ValidNationalID(s string) bool { return len(s) == 12 && digitsOnly(s) }

// Validate checks required hostel fields.
func (h Hostel) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return Invalid("name", "required")
	}
	if h.Capacity < 0 {
		return Invalid("capacity", "must not be negative")
	}
	return nil
}

// Validate checks required room fields.
func (r Room) Validate() error {
	if strings.TrimSpace(r.Number) == "" {
		return Invalid("number", "required")
	}
	if r.Capacity < 1 {
		return Invalid("capacity", "must be at least 1")
	}
	return nil
}

// Validate checks required student fields.
func (s Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return Invalid("name", "required")
	}
	if !ValidPhone(s.Phone) {
		return Invalid("phone", "must be 10 digits")
	}
	if s.ParentPhone != "" && !ValidPhone(s.ParentPhone) {
		return Invalid("parent_phone", "must be 10 digits")
	}
	if !ValidNationalID(s.NationalID) {
		return Invalid("national_id", "must be 12 digits")
	}
	if s.Rent.IsNegative() {
		return Invalid("rent", "must not be negative")
	}
	switch s.Status {
	case "", StudentActive, StudentInactive:
	default:
		return Invalid("status", "unknown status %q", s.Status)
	}
	return nil
}

// Validate checks required payment fields.
func (p Payment) Validate() error {
	if p.StudentID == "" {
		return Invalid("student_id", "required")
	}
	if _, err := ParseMonth(p.Month); err != nil {
		return Invalid("month", "%v", err)
	}
	if !p.Amount.GreaterThan(decimal.Zero) {
		return Invalid("amount", "must be entered")
	}
	if !p.Method.Valid() {
		return Invalid("method", "unknown method %q", p.Method)
	}
	return nil
}

// Validate checks required expense fields.
func (e Expense) Validate() error {
	if !e.Amount.GreaterThan(decimal.Zero) {
		return Invalid("amount", "must be entered")
	}
	if !e.Category.Valid() {
		return Invalid("category", "unknown category %q", e.Category)
	}
	if e.SpentAt.IsZero() {
		return Invalid("date", "required")
	}
	return nil
}
