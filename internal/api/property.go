package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"staytrack/internal/core"
)

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

type hostelRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Contact  string `json:"contact"`
	Capacity int    `json:"capacity"`
}

func (r hostelRequest) apply(h *core.Hostel) {
	h.Name = r.Name
	h.Address = r.Address
	h.Contact = r.Contact
	h.Capacity = r.Capacity
}

func (s *Server) listHostels(c *gin.Context) {
	out, err := s.svc.ListHostels(c.Request.Context(), session(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hostels": out})
}

func (s *Server) getHostel(c *gin.Context) {
	out, err := s.svc.GetHostel(c.Request.Context(), session(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createHostel(c *gin.Context) {
	var req hostelRequest
	if !bind(c, &req) {
		return
	}
	var h core.Hostel
	req.apply(&h)
	out, _, err := s.svc.CreateHostel(c.Request.Context(), session(c), h)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) updateHostel(c *gin.Context) {
	var req hostelRequest
	if !bind(c, &req) {
		return
	}
	out, _, err := s.svc.UpdateHostel(c.Request.Context(), session(c), c.Param("id"), func(h *core.Hostel) error {
		req.apply(h)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) deleteHostel(c *gin.Context) {
	if _, err := s.svc.DeleteHostel(c.Request.Context(), session(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type roomRequest struct {
	HostelID *string `json:"hostel_id"`
	Number   string  `json:"number"`
	Floor    string  `json:"floor"`
	Capacity int     `json:"capacity"`
}

func (r roomRequest) apply(room *core.Room) {
	room.HostelID = r.HostelID
	room.Number = r.Number
	room.Floor = r.Floor
	room.Capacity = r.Capacity
}

func (s *Server) listRooms(c *gin.Context) {
	out, err := s.svc.ListRooms(c.Request.Context(), session(c), core.RoomFilter{HostelID: c.Query("hostel_id")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": out})
}

func (s *Server) getRoom(c *gin.Context) {
	out, err := s.svc.GetRoom(c.Request.Context(), session(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createRoom(c *gin.Context) {
	var req roomRequest
	if !bind(c, &req) {
		return
	}
	var room core.Room
	req.apply(&room)
	out, _, err := s.svc.CreateRoom(c.Request.Context(), session(c), room)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) updateRoom(c *gin.Context) {
	var req roomRequest
	if !bind(c, &req) {
		return
	}
	out, _, err := s.svc.UpdateRoom(c.Request.Context(), session(c), c.Param("id"), func(r *core.Room) error {
		req.apply(r)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) deleteRoom(c *gin.Context) {
	if _, err := s.svc.DeleteRoom(c.Request.Context(), session(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) occupancy(c *gin.Context) {
	out, err := s.svc.Occupancy(c.Request.Context(), session(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) dashboard(c *gin.Context) {
	out, err := s.svc.Dashboard(c.Request.Context(), session(c), c.Query("month"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
