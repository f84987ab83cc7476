package core

import (
	"context"
	"fmt"
	"strings"

	"staytrack/pkg/domain"
)

// NewRoomNumberUniqueRule blocks two rooms of one owner sharing a number
// within the same hostel. Rooms without a hostel share one namespace.
func NewRoomNumberUniqueRule() domain.Rule { return roomNumberUniqueRule{} }

type roomNumberUniqueRule struct{}

func (roomNumberUniqueRule) Name() string { return "room_number_unique" }

func (roomNumberUniqueRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, owner := range domain.ChangedOwners(changes, domain.EntityRoom) {
		seen := make(map[string]string)
		for _, room := range view.ListRooms(owner) {
			hostel := ""
			if room.HostelID != nil {
				hostel = *room.HostelID
			}
			key := hostel + "\x00" + strings.ToLower(strings.TrimSpace(room.Number))
			if first, dup := seen[key]; dup {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "room_number_unique",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("room number %s already used by room %s", room.Number, first),
					Entity:   domain.EntityRoom,
					EntityID: room.ID,
				})
				continue
			}
			seen[key] = room.ID
		}
	}
	return res, nil
}

// NewPaymentMonthUniqueRule blocks a second payment for the same student and
// month key. Only payments touched by the transaction are checked so legacy
// duplicates already in storage do not lock the owner out.
func NewPaymentMonthUniqueRule() domain.Rule { return paymentMonthUniqueRule{} }

type paymentMonthUniqueRule struct{}

func (paymentMonthUniqueRule) Name() string { return "payment_month_unique" }

func (paymentMonthUniqueRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, c := range changes {
		if c.Entity != domain.EntityPayment || c.Action == domain.ActionDelete {
			continue
		}
		p, ok := c.After.(domain.Payment)
		if !ok {
			continue
		}
		for _, other := range view.ListPayments(p.OwnerID) {
			if other.ID != p.ID && other.StudentID == p.StudentID && other.Month == p.Month {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "payment_month_unique",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("%s already paid for %s", p.StudentName, p.Month),
					Entity:   domain.EntityPayment,
					EntityID: p.ID,
				})
				break
			}
		}
	}
	return res, nil
}
