package views

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"staytrack/internal/core"
	"staytrack/internal/toggle"
	"staytrack/pkg/domain"
)

// Payments is the monthly collection screen: a reconciliation of the
// selected month filtered by tab and search text.
type Payments struct {
	base
	month domain.Month
	rec   core.Reconciliation
	tab   core.Tab
	query string
	coord *toggle.Coordinator[core.ReconciledStudent]
}

// NewPayments opens a payments view on month. Call Refresh to load it.
func NewPayments(ctx context.Context, svc *core.Service, sess core.Session, month domain.Month, logger *zap.Logger) *Payments {
	v := &Payments{month: month, tab: core.TabAll}
	v.init(ctx, svc, sess, logger)
	v.coord = toggle.New[core.ReconciledStudent](paymentsCache{v})
	return v
}

// Month returns the selected month.
func (v *Payments) Month() domain.Month {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.month
}

// Refresh re-fetches the reconciliation for the selected month.
func (v *Payments) Refresh() error {
	ctx, gen, err := v.startFetch()
	if err != nil {
		return err
	}
	month := v.Month()
	rec, err := v.svc.ReconcileMonth(ctx, v.sess, month.String())
	if err != nil {
		if v.Closed() {
			return ErrClosed
		}
		return err
	}
	if !v.apply(gen, func() { v.rec = rec }) && v.Closed() {
		return ErrClosed
	}
	return nil
}

// Next moves to the following month and re-fetches.
func (v *Payments) Next() error { return v.shift(1) }

// Prev moves to the preceding month and re-fetches.
func (v *Payments) Prev() error { return v.shift(-1) }

func (v *Payments) shift(n int) error {
	if err := v.live(); err != nil {
		return err
	}
	v.mu.Lock()
	v.month = v.month.Add(n)
	v.mu.Unlock()
	return v.Refresh()
}

// SetFilter selects a tab and search text. It does not re-fetch.
func (v *Payments) SetFilter(tab core.Tab, query string) {
	v.mu.Lock()
	v.tab, v.query = tab, query
	v.mu.Unlock()
}

// Rows returns the filtered reconciliation rows.
func (v *Payments) Rows() []core.ReconciledStudent {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.rec.Filter(v.tab, v.query)
}

// Summary returns the current reconciliation with its aggregates.
func (v *Payments) Summary() core.Reconciliation {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := v.rec
	out.Entries = append([]core.ReconciledStudent(nil), v.rec.Entries...)
	return out
}

// InFlight reports whether a payment mutation for studentID is running in
// the selected month.
func (v *Payments) InFlight(studentID string) bool {
	return v.coord.State(rowKey(v.Month().String(), studentID)) == toggle.InFlight
}

// rowKey scopes coordinator ids to a month so a mutation started before
// Next/Prev never patches the rows of the month navigated to.
func rowKey(month, studentID string) string { return month + "\x00" + studentID }

func splitRowKey(key string) (month, studentID string) {
	month, studentID, _ = strings.Cut(key, "\x00")
	return month, studentID
}

// RecordPayment records rent for studentID in the selected month. A second
// call while the first is running is Skipped.
func (v *Payments) RecordPayment(studentID string, amount decimal.Decimal, method domain.PaymentMethod, notes string) toggle.Outcome[core.ReconciledStudent] {
	if err := v.live(); err != nil {
		return toggle.Outcome[core.ReconciledStudent]{Kind: toggle.Err, Err: err}
	}
	month := v.Month().String()
	return v.coord.Run(v.ctx, rowKey(month, studentID), func(ctx context.Context, prior core.ReconciledStudent) (core.ReconciledStudent, error) {
		if prior.Student.ID == "" {
			return prior, domain.ErrNotFound{Entity: domain.EntityStudent, ID: studentID}
		}
		if prior.Status == core.StatusPaid {
			return prior, domain.Invalid("student", "already paid for %s", month)
		}
		p, _, err := v.svc.RecordPayment(ctx, v.sess, core.Payment{
			StudentID: studentID,
			Month:     month,
			Amount:    amount,
			Method:    method,
			Notes:     notes,
		})
		if err != nil {
			return prior, err
		}
		prior.Status = core.StatusPaid
		prior.Payment = &p
		return prior, nil
	})
}

// DeletePayment removes the selected month's payment of studentID, reverting
// the row to Unpaid.
func (v *Payments) DeletePayment(studentID string) toggle.Outcome[core.ReconciledStudent] {
	if err := v.live(); err != nil {
		return toggle.Outcome[core.ReconciledStudent]{Kind: toggle.Err, Err: err}
	}
	return v.coord.Run(v.ctx, rowKey(v.Month().String(), studentID), func(ctx context.Context, prior core.ReconciledStudent) (core.ReconciledStudent, error) {
		if prior.Payment == nil {
			return prior, domain.ErrNotFound{Entity: domain.EntityPayment, ID: studentID}
		}
		if _, _, err := v.svc.DeletePayment(ctx, v.sess, prior.Payment.ID); err != nil {
			return prior, err
		}
		prior.Status = core.StatusUnpaid
		prior.Payment = nil
		return prior, nil
	})
}

// paymentsCache exposes reconciliation rows to the coordinator by month and
// student id. Rows of a month that is no longer loaded are neither read nor
// patched.
type paymentsCache struct{ v *Payments }

func (c paymentsCache) Get(key string) (core.ReconciledStudent, bool) {
	month, id := splitRowKey(key)
	c.v.mu.RLock()
	defer c.v.mu.RUnlock()
	if c.v.rec.Month != month {
		return core.ReconciledStudent{}, false
	}
	return c.v.rec.Entry(id)
}

func (c paymentsCache) Put(key string, entry core.ReconciledStudent) {
	month, id := splitRowKey(key)
	c.v.mu.Lock()
	defer c.v.mu.Unlock()
	if c.v.rec.Month != month {
		c.v.logger.Debug("discarding payment patch for unloaded month",
			zap.String("month", month), zap.String("loaded", c.v.rec.Month), zap.String("student_id", id))
		return
	}
	for i := range c.v.rec.Entries {
		if c.v.rec.Entries[i].Student.ID == id {
			c.v.rec.Entries[i] = entry
			break
		}
	}
	recount(&c.v.rec)
}

// recount refreshes aggregates after a local patch.
func recount(rec *core.Reconciliation) {
	rec.PaidCount = 0
	rec.Collected = decimal.Zero
	for _, e := range rec.Entries {
		if e.Status == core.StatusPaid && e.Payment != nil {
			rec.PaidCount++
			rec.Collected = rec.Collected.Add(e.Payment.Amount)
		}
	}
	rec.Percentage = core.Percentage(rec.PaidCount, rec.TotalActive)
}
