package core

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"staytrack/pkg/domain"
)

// ReconciledStudent is an active student joined with their payment for a month.
type ReconciledStudent struct {
	Student Student       `json:"student"`
	Status  PaymentStatus `json:"payment_status"`
	Payment *Payment      `json:"payment,omitempty"`
}

// Reconciliation is the collection state of one month.
type Reconciliation struct {
	Month       string              `json:"month"`
	Entries     []ReconciledStudent `json:"entries"`
	PaidCount   int                 `json:"paid_count"`
	TotalActive int                 `json:"total_active"`
	Collected   decimal.Decimal     `json:"collected_amount"`
	Expected    decimal.Decimal     `json:"expected_amount"`
	Percentage  float64             `json:"collection_percentage"`
}

// Reconcile joins students and payments on (student id, month key). Only
// payments for month are considered. When a student has several payments for
// the month the lowest id wins and the rest are logged. Inactive students are
// left out of the result.
func Reconcile(month string, students []Student, payments []Payment, logger *zap.Logger) Reconciliation {
	if logger == nil {
		logger = zap.NewNop()
	}
	lookup := make(map[string]Payment, len(payments))
	for _, p := range payments {
		if p.Month != month {
			continue
		}
		kept, dup := lookup[p.StudentID]
		if !dup {
			lookup[p.StudentID] = p
			continue
		}
		ignored := p
		if p.ID < kept.ID {
			kept, ignored = p, kept
			lookup[p.StudentID] = kept
		}
		logger.Warn("duplicate payment for month",
			zap.String("month", month),
			zap.String("student_id", p.StudentID),
			zap.String("kept_payment_id", kept.ID),
			zap.String("ignored_payment_id", ignored.ID))
	}

	rec := Reconciliation{
		Month:     month,
		Entries:   make([]ReconciledStudent, 0, len(students)),
		Collected: decimal.Zero,
		Expected:  decimal.Zero,
	}
	for _, st := range students {
		if !st.Active() {
			continue
		}
		rec.TotalActive++
		rec.Expected = rec.Expected.Add(st.Rent)
		entry := ReconciledStudent{Student: st, Status: StatusUnpaid}
		if p, ok := lookup[st.ID]; ok {
			entry.Status = StatusPaid
			entry.Payment = &p
			rec.PaidCount++
			rec.Collected = rec.Collected.Add(p.Amount)
		}
		rec.Entries = append(rec.Entries, entry)
	}
	rec.Percentage = Percentage(rec.PaidCount, rec.TotalActive)
	return rec
}

// Filter projects the reconciliation onto a tab and a case-insensitive search
// over student name and room number. The receiver is not modified.
func (r Reconciliation) Filter(tab Tab, query string) []ReconciledStudent {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]ReconciledStudent, 0, len(r.Entries))
	for _, e := range r.Entries {
		switch tab {
		case TabPaid:
			if e.Status != StatusPaid {
				continue
			}
		case TabUnpaid:
			if e.Status != StatusUnpaid {
				continue
			}
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(e.Student.Name), query) &&
			!strings.Contains(strings.ToLower(e.Student.RoomNumber), query) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Entry returns the reconciled row for a student.
func (r Reconciliation) Entry(studentID string) (ReconciledStudent, bool) {
	for _, e := range r.Entries {
		if e.Student.ID == studentID {
			return e, true
		}
	}
	return ReconciledStudent{}, false
}

// monthKey canonicalises key, using fallback when key is blank.
func monthKey(key string, fallback domain.Month) (string, error) {
	if strings.TrimSpace(key) == "" {
		return fallback.String(), nil
	}
	m, err := domain.CanonicalMonth(key)
	if err != nil {
		return "", domain.Invalid("month", "%v", err)
	}
	return m, nil
}
