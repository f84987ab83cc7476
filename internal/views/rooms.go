package views

import (
	"context"

	"go.uber.org/zap"

	"staytrack/internal/core"
)

// Rooms is the room grid screen showing derived occupancy.
type Rooms struct {
	base
	occupancy core.Occupancy
}

// NewRooms opens a rooms view. Call Refresh to load it.
func NewRooms(ctx context.Context, svc *core.Service, sess core.Session, logger *zap.Logger) *Rooms {
	v := &Rooms{}
	v.init(ctx, svc, sess, logger)
	return v
}

// Refresh re-fetches rooms and students and recomputes occupancy.
func (v *Rooms) Refresh() error {
	ctx, gen, err := v.startFetch()
	if err != nil {
		return err
	}
	occ, err := v.svc.Occupancy(ctx, v.sess)
	if err != nil {
		if v.Closed() {
			return ErrClosed
		}
		return err
	}
	if !v.apply(gen, func() { v.occupancy = occ }) && v.Closed() {
		return ErrClosed
	}
	return nil
}

// Occupancy returns the last loaded occupancy.
func (v *Rooms) Occupancy() core.Occupancy {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := v.occupancy
	out.Rooms = append([]core.RoomOccupancy(nil), v.occupancy.Rooms...)
	return out
}

// Vacant returns rooms with at least one free bed.
func (v *Rooms) Vacant() []core.RoomOccupancy {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []core.RoomOccupancy
	for _, r := range v.occupancy.Rooms {
		if r.Free > 0 {
			out = append(out, r)
		}
	}
	return out
}
