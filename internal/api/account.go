package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"staytrack/internal/auth"
	"staytrack/internal/prefs"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type authResponse struct {
	User  auth.User `json:"user"`
	Token string    `json:"token"`
}

func (s *Server) signUp(c *gin.Context) {
	var req credentials
	if !bind(c, &req) {
		return
	}
	u, token, err := s.auth.SignUp(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{User: u, Token: token})
}

func (s *Server) signIn(c *gin.Context) {
	var req credentials
	if !bind(c, &req) {
		return
	}
	u, token, err := s.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{User: u, Token: token})
}

func (s *Server) signOut(c *gin.Context) {
	if err := s.auth.SignOut(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	u, err := s.auth.CurrentUser(c.Request.Context(), c.GetString(tokenKey))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// registerStudent gives one of the owner's students a login.
func (s *Server) registerStudent(c *gin.Context) {
	var req struct {
		credentials
		StudentID string `json:"student_id"`
	}
	if !bind(c, &req) {
		return
	}
	sess := session(c)
	st, err := s.svc.GetStudent(c.Request.Context(), sess, req.StudentID)
	if err != nil {
		writeError(c, err)
		return
	}
	name := req.Name
	if name == "" {
		name = st.Name
	}
	u, err := s.auth.RegisterStudent(c.Request.Context(), sess, st.ID, req.Email, req.Password, name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (s *Server) getPreferences(c *gin.Context) {
	p, err := s.prefs.Get(c.Request.Context(), session(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) putPreferences(c *gin.Context) {
	var req prefs.Preferences
	if !bind(c, &req) {
		return
	}
	p, err := s.prefs.Set(c.Request.Context(), session(c).UserID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
