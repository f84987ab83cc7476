package core

import (
	"context"
	"fmt"

	"staytrack/pkg/domain"
)

// NewRoomCapacityRule returns the in-transaction rule keeping the number of
// active students assigned to a room within its capacity.
func NewRoomCapacityRule() domain.Rule {
	return roomCapacityRule{}
}

type roomCapacityRule struct{}

func (roomCapacityRule) Name() string { return "room_capacity" }

func (roomCapacityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, owner := range domain.ChangedOwners(changes, domain.EntityStudent, domain.EntityRoom) {
		occupancy := make(map[string]int)
		for _, student := range view.ListStudents(owner) {
			if student.RoomID == nil || !student.Active() {
				continue
			}
			occupancy[*student.RoomID]++
		}
		for _, room := range view.ListRooms(owner) {
			count := occupancy[room.ID]
			if count > room.Capacity {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "room_capacity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("room %s over capacity: %d/%d beds", room.Number, count, room.Capacity),
					Entity:   domain.EntityRoom,
					EntityID: room.ID,
				})
			}
		}
	}
	return res, nil
}
