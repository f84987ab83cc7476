package core

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"staytrack/pkg/domain"
)

// Occupancy fetches rooms and students and derives current occupancy.
func (s *Service) Occupancy(ctx context.Context, sess Session) (out Occupancy, err error) {
	defer s.observe(ctx, sess, "occupancy", false, s.clock(), nil, &err)
	if err = sess.RequireOwner(); err != nil {
		return out, err
	}
	var (
		rooms    []Room
		students []Student
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rooms, err = s.repo.ListRooms(gctx, sess, RoomFilter{})
		return err
	})
	g.Go(func() (err error) {
		students, err = s.repo.ListStudents(gctx, sess, StudentFilter{})
		return err
	})
	if err = g.Wait(); err != nil {
		return Occupancy{}, err
	}
	out = CalculateOccupancy(rooms, students)
	if gs := s.gauges(); gs != nil {
		gs.SetOccupancy(sess.OwnerID, out.Percentage)
	}
	return out, nil
}

// ReconcileMonth fetches the owner's students and the month's payments
// concurrently and joins them. Each call re-fetches; nothing is cached
// across months. A blank month uses the current month.
func (s *Service) ReconcileMonth(ctx context.Context, sess Session, month string) (out Reconciliation, err error) {
	defer s.observe(ctx, sess, "reconcile_month", false, s.clock(), nil, &err)
	if err = sess.RequireOwner(); err != nil {
		return out, err
	}
	if month, err = monthKey(month, s.CurrentMonth()); err != nil {
		return Reconciliation{}, err
	}
	var (
		students []Student
		payments []Payment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		students, err = s.repo.ListStudents(gctx, sess, StudentFilter{})
		return err
	})
	g.Go(func() (err error) {
		payments, err = s.repo.ListPayments(gctx, sess, PaymentFilter{Month: month})
		return err
	})
	if err = g.Wait(); err != nil {
		return Reconciliation{}, err
	}
	out = Reconcile(month, students, payments, s.logger.With(zap.String("owner_id", sess.OwnerID)))
	if gs := s.gauges(); gs != nil {
		gs.SetCollection(sess.OwnerID, month, out.Percentage)
	}
	return out, nil
}

// CategoryTotal sums one expense category.
type CategoryTotal struct {
	domain.CategoryInfo
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// ExpenseSummary totals a month's expenses per category in display order.
// Categories without expenses are omitted.
type ExpenseSummary struct {
	Month      string          `json:"month"`
	Total      decimal.Decimal `json:"total"`
	Categories []CategoryTotal `json:"categories"`
}

// SummarizeExpenses groups expenses by category.
func SummarizeExpenses(month string, expenses []Expense) ExpenseSummary {
	totals := make(map[domain.ExpenseCategory]*CategoryTotal)
	sum := ExpenseSummary{Month: month, Total: decimal.Zero}
	for _, e := range expenses {
		t, ok := totals[e.Category]
		if !ok {
			t = &CategoryTotal{CategoryInfo: e.Category.Info(), Total: decimal.Zero}
			totals[e.Category] = t
		}
		t.Count++
		t.Total = t.Total.Add(e.Amount)
		sum.Total = sum.Total.Add(e.Amount)
	}
	rank := make(map[domain.ExpenseCategory]int, len(domain.ExpenseCategories))
	for i, c := range domain.ExpenseCategories {
		rank[c] = i
	}
	for _, t := range totals {
		sum.Categories = append(sum.Categories, *t)
	}
	sort.Slice(sum.Categories, func(i, j int) bool {
		return rank[sum.Categories[i].Category] < rank[sum.Categories[j].Category]
	})
	return sum
}

// ExpenseSummary returns per-category totals for month.
func (s *Service) ExpenseSummary(ctx context.Context, sess Session, month string) (out ExpenseSummary, err error) {
	defer s.observe(ctx, sess, "expense_summary", false, s.clock(), nil, &err)
	if err = sess.RequireOwner(); err != nil {
		return out, err
	}
	if month, err = monthKey(month, s.CurrentMonth()); err != nil {
		return ExpenseSummary{}, err
	}
	expenses, err := s.repo.ListExpenses(ctx, sess, ExpenseFilter{Month: month})
	if err != nil {
		return ExpenseSummary{}, err
	}
	return SummarizeExpenses(month, expenses), nil
}

// Dashboard is the owner's overview for one month.
type Dashboard struct {
	Month            string          `json:"month"`
	Hostels          int             `json:"hostels"`
	Rooms            int             `json:"rooms"`
	ActiveStudents   int             `json:"active_students"`
	InactiveStudents int             `json:"inactive_students"`
	TotalCapacity    int             `json:"total_capacity"`
	Vacancy          int             `json:"vacancy"`
	OccupancyPct     float64         `json:"occupancy_percentage"`
	PaidCount        int             `json:"paid_count"`
	UnpaidCount      int             `json:"unpaid_count"`
	Collected        decimal.Decimal `json:"collected_amount"`
	Expected         decimal.Decimal `json:"expected_amount"`
	CollectionPct    float64         `json:"collection_percentage"`
	Expenses         decimal.Decimal `json:"expenses"`
	Net              decimal.Decimal `json:"net_balance"`
}

// Dashboard aggregates hostels, occupancy, collection and expenses for month.
func (s *Service) Dashboard(ctx context.Context, sess Session, month string) (out Dashboard, err error) {
	defer s.observe(ctx, sess, "dashboard", false, s.clock(), nil, &err)
	if err = sess.RequireOwner(); err != nil {
		return out, err
	}
	if month, err = monthKey(month, s.CurrentMonth()); err != nil {
		return Dashboard{}, err
	}
	var (
		hostels  []Hostel
		rooms    []Room
		students []Student
		payments []Payment
		expenses []Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		hostels, err = s.repo.ListHostels(gctx, sess)
		return err
	})
	g.Go(func() (err error) {
		rooms, err = s.repo.ListRooms(gctx, sess, RoomFilter{})
		return err
	})
	g.Go(func() (err error) {
		students, err = s.repo.ListStudents(gctx, sess, StudentFilter{})
		return err
	})
	g.Go(func() (err error) {
		payments, err = s.repo.ListPayments(gctx, sess, PaymentFilter{Month: month})
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.repo.ListExpenses(gctx, sess, ExpenseFilter{Month: month})
		return err
	})
	if err = g.Wait(); err != nil {
		return Dashboard{}, err
	}

	occ := CalculateOccupancy(rooms, students)
	rec := Reconcile(month, students, payments, s.logger)
	spent := SummarizeExpenses(month, expenses).Total
	out = Dashboard{
		Month:            month,
		Hostels:          len(hostels),
		Rooms:            len(rooms),
		ActiveStudents:   occ.ActiveStudents,
		InactiveStudents: len(students) - occ.ActiveStudents,
		TotalCapacity:    occ.TotalCapacity,
		Vacancy:          occ.Vacancy,
		OccupancyPct:     occ.Percentage,
		PaidCount:        rec.PaidCount,
		UnpaidCount:      rec.TotalActive - rec.PaidCount,
		Collected:        rec.Collected,
		Expected:         rec.Expected,
		CollectionPct:    rec.Percentage,
		Expenses:         spent,
		Net:              rec.Collected.Sub(spent),
	}
	if gs := s.gauges(); gs != nil {
		gs.SetOccupancy(sess.OwnerID, occ.Percentage)
		gs.SetCollection(sess.OwnerID, month, rec.Percentage)
	}
	return out, nil
}

// StudentDashboard is what a resident sees about themselves.
type StudentDashboard struct {
	Student Student       `json:"student"`
	Room    *Room         `json:"room,omitempty"`
	Month   string        `json:"month"`
	Status  PaymentStatus `json:"payment_status"`
	Payment *Payment      `json:"payment,omitempty"`
	History []Payment     `json:"history"`
	Today   *MenuEntry    `json:"today_menu,omitempty"`
}

// StudentDashboard returns room, rent status, payment history and today's
// menu for studentID. Student accounts may only read their own record.
func (s *Service) StudentDashboard(ctx context.Context, sess Session, studentID string) (out StudentDashboard, err error) {
	defer s.observe(ctx, sess, "student_dashboard", false, s.clock(), nil, &err)
	if sess.Role == domain.RoleStudent {
		if studentID == "" {
			studentID = sess.StudentID
		}
		if studentID != sess.StudentID {
			return StudentDashboard{}, domain.ErrNotFound{Entity: domain.EntityStudent, ID: studentID}
		}
	}
	student, err := s.repo.GetStudent(ctx, sess, studentID)
	if err != nil {
		return StudentDashboard{}, err
	}
	now := s.clock()
	month := domain.FormatMonth(now)
	out = StudentDashboard{Student: student, Month: month, Status: StatusUnpaid}

	var (
		payments []Payment
		menu     []MenuEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	if student.RoomID != nil {
		g.Go(func() error {
			room, err := s.repo.GetRoom(gctx, sess, *student.RoomID)
			if err != nil {
				return err
			}
			out.Room = &room
			return nil
		})
	}
	g.Go(func() (err error) {
		payments, err = s.repo.ListPayments(gctx, sess, PaymentFilter{StudentID: studentID})
		return err
	})
	g.Go(func() (err error) {
		menu, err = s.repo.ListMenu(gctx, sess)
		return err
	})
	if err = g.Wait(); err != nil {
		return StudentDashboard{}, err
	}

	sort.SliceStable(payments, func(i, j int) bool { return payments[i].PaidAt.After(payments[j].PaidAt) })
	out.History = payments
	if entry, ok := Reconcile(month, []Student{student}, payments, s.logger).Entry(studentID); ok {
		out.Status = entry.Status
		out.Payment = entry.Payment
	}
	for i := range menu {
		if menu[i].Day == now.Weekday() {
			out.Today = &menu[i]
			break
		}
	}
	return out, nil
}
