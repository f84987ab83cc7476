package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"staytrack/internal/core"
	"staytrack/pkg/domain"
)

const maxDocumentBytes = 10 << 20

type studentRequest struct {
	Name        string               `json:"name"`
	Phone       string               `json:"phone"`
	ParentPhone string               `json:"parent_phone"`
	NationalID  string               `json:"national_id"`
	RoomID      *string              `json:"room_id"`
	Bed         string               `json:"bed"`
	Rent        decimal.Decimal      `json:"rent"`
	Status      domain.StudentStatus `json:"status"`
}

func (r studentRequest) apply(st *core.Student) {
	st.Name = r.Name
	st.Phone = r.Phone
	st.ParentPhone = r.ParentPhone
	st.NationalID = r.NationalID
	st.Rent = r.Rent
}

func (s *Server) listStudents(c *gin.Context) {
	filter := core.StudentFilter{
		RoomID: c.Query("room_id"),
		Status: domain.StudentStatus(c.Query("status")),
	}
	out, err := s.svc.ListStudents(c.Request.Context(), session(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": out})
}

func (s *Server) getStudent(c *gin.Context) {
	out, err := s.svc.GetStudent(c.Request.Context(), session(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createStudent(c *gin.Context) {
	var req studentRequest
	if !bind(c, &req) {
		return
	}
	st := core.Student{RoomID: req.RoomID, Bed: req.Bed, Status: req.Status}
	req.apply(&st)
	out, _, err := s.svc.CreateStudent(c.Request.Context(), session(c), st)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// updateStudent edits profile fields. Room and status have their own routes.
func (s *Server) updateStudent(c *gin.Context) {
	var req studentRequest
	if !bind(c, &req) {
		return
	}
	out, _, err := s.svc.UpdateStudent(c.Request.Context(), session(c), c.Param("id"), func(st *core.Student) error {
		req.apply(st)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) deleteStudent(c *gin.Context) {
	if _, err := s.svc.DeleteStudent(c.Request.Context(), session(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) setStudentStatus(c *gin.Context) {
	var req struct {
		Status domain.StudentStatus `json:"status"`
	}
	if !bind(c, &req) {
		return
	}
	out, _, err := s.svc.SetStudentStatus(c.Request.Context(), session(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) assignRoom(c *gin.Context) {
	var req struct {
		RoomID *string `json:"room_id"`
		Bed    string  `json:"bed"`
	}
	if !bind(c, &req) {
		return
	}
	out, _, err := s.svc.AssignRoom(c.Request.Context(), session(c), c.Param("id"), req.RoomID, req.Bed)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) studentDashboard(c *gin.Context) {
	out, err := s.svc.StudentDashboard(c.Request.Context(), session(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) myDashboard(c *gin.Context) {
	out, err := s.svc.StudentDashboard(c.Request.Context(), session(c), "")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) uploadDocument(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentBytes)
	url, err := s.svc.UploadStudentDocument(c.Request.Context(), session(c), c.Param("id"),
		core.DocumentKind(c.Param("kind")), c.ContentType(), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) documentURL(c *gin.Context) {
	url, err := s.svc.StudentDocumentURL(c.Request.Context(), session(c), c.Param("id"), core.DocumentKind(c.Param("kind")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
