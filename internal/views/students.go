package views

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"staytrack/internal/core"
	"staytrack/internal/toggle"
	"staytrack/pkg/domain"
)

// Students is the resident list screen.
type Students struct {
	base
	filter   core.StudentFilter
	students []core.Student
	coord    *toggle.Coordinator[core.Student]
}

// NewStudents opens a students view. Call Refresh to load it.
func NewStudents(ctx context.Context, svc *core.Service, sess core.Session, filter core.StudentFilter, logger *zap.Logger) *Students {
	v := &Students{filter: filter}
	v.init(ctx, svc, sess, logger)
	v.coord = toggle.New[core.Student](studentsCache{v})
	return v
}

// Refresh re-fetches the list.
func (v *Students) Refresh() error {
	ctx, gen, err := v.startFetch()
	if err != nil {
		return err
	}
	list, err := v.svc.ListStudents(ctx, v.sess, v.filter)
	if err != nil {
		if v.Closed() {
			return ErrClosed
		}
		return err
	}
	if !v.apply(gen, func() { v.students = list }) && v.Closed() {
		return ErrClosed
	}
	return nil
}

// List returns students whose name, phone or room matches query.
func (v *Students) List(query string) []core.Student {
	query = strings.ToLower(strings.TrimSpace(query))
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]core.Student, 0, len(v.students))
	for _, st := range v.students {
		if query == "" ||
			strings.Contains(strings.ToLower(st.Name), query) ||
			strings.Contains(st.Phone, query) ||
			strings.Contains(strings.ToLower(st.RoomNumber), query) {
			out = append(out, st)
		}
	}
	return out
}

// ToggleStatus flips a student between Active and Inactive (Block/Activate).
func (v *Students) ToggleStatus(id string) toggle.Outcome[core.Student] {
	if err := v.live(); err != nil {
		return toggle.Outcome[core.Student]{Kind: toggle.Err, Err: err}
	}
	return v.coord.Run(v.ctx, id, func(ctx context.Context, prior core.Student) (core.Student, error) {
		if prior.ID == "" {
			return prior, domain.ErrNotFound{Entity: domain.EntityStudent, ID: id}
		}
		next := domain.StudentInactive
		if !prior.Active() {
			next = domain.StudentActive
		}
		updated, _, err := v.svc.SetStudentStatus(ctx, v.sess, id, next)
		if err != nil {
			return prior, err
		}
		return updated, nil
	})
}

type studentsCache struct{ v *Students }

func (c studentsCache) Get(id string) (core.Student, bool) {
	c.v.mu.RLock()
	defer c.v.mu.RUnlock()
	for _, st := range c.v.students {
		if st.ID == id {
			return st, true
		}
	}
	return core.Student{}, false
}

func (c studentsCache) Put(id string, st core.Student) {
	c.v.mu.Lock()
	defer c.v.mu.Unlock()
	for i := range c.v.students {
		if c.v.students[i].ID == id {
			c.v.students[i] = st
			return
		}
	}
}
