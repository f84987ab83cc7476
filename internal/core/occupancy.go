package core

import "fmt"

// RoomOccupancy is a room with its occupancy recomputed from active students.
type RoomOccupancy struct {
	Room     Room       `json:"room"`
	Occupied int        `json:"occupied"`
	Free     int        `json:"free"`
	Status   RoomStatus `json:"status"`
}

// Occupancy aggregates occupancy across an owner's rooms.
type Occupancy struct {
	Rooms          []RoomOccupancy `json:"rooms"`
	TotalCapacity  int             `json:"total_capacity"`
	TotalOccupied  int             `json:"total_occupied"`
	Vacancy        int             `json:"vacancy"`
	ActiveStudents int             `json:"active_students"`
	Percentage     float64         `json:"occupancy_percentage"`
}

// StatusFor derives the display status of a room holding occupied students.
func StatusFor(capacity, occupied int) RoomStatus {
	switch {
	case occupied >= capacity:
		return RoomFull
	case occupied == 0:
		return RoomVacant
	default:
		return RoomStatus(fmt.Sprintf("%d Beds Free", capacity-occupied))
	}
}

// CalculateOccupancy derives per-room occupancy and totals. Stored Occupied
// counters are ignored; inactive students never count.
func CalculateOccupancy(rooms []Room, students []Student) Occupancy {
	perRoom := make(map[string]int, len(rooms))
	active := 0
	for _, st := range students {
		if !st.Active() {
			continue
		}
		active++
		if st.RoomID != nil {
			perRoom[*st.RoomID]++
		}
	}
	out := Occupancy{Rooms: make([]RoomOccupancy, 0, len(rooms)), ActiveStudents: active}
	for _, room := range rooms {
		occupied := perRoom[room.ID]
		free := room.Capacity - occupied
		if free < 0 {
			free = 0
		}
		room.Occupied = occupied
		out.Rooms = append(out.Rooms, RoomOccupancy{
			Room:     room,
			Occupied: occupied,
			Free:     free,
			Status:   StatusFor(room.Capacity, occupied),
		})
		out.TotalCapacity += room.Capacity
		out.TotalOccupied += occupied
	}
	out.Vacancy = out.TotalCapacity - out.TotalOccupied
	out.Percentage = Percentage(active, out.TotalCapacity)
	return out
}

// Percentage returns part/whole*100, or 0 when whole is not positive. Both
// occupancy and collection rates use it.
func Percentage(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
