// Package api exposes the owner and student HTTP API over gin.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"staytrack/internal/auth"
	"staytrack/internal/blob"
	"staytrack/internal/core"
	"staytrack/internal/live"
	"staytrack/internal/prefs"
	"staytrack/internal/report"
)

// Deps are the collaborators the API serves. Service and Auth are required;
// the rest disable their routes when nil.
type Deps struct {
	Service  *core.Service
	Auth     *auth.Provider
	Hub      *live.Hub
	Prefs    prefs.Store
	Exports  *report.Worker
	Blobs    blob.Store
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Server holds the API handlers.
type Server struct {
	svc      *core.Service
	auth     *auth.Provider
	hub      *live.Hub
	prefs    prefs.Store
	exports  *report.Worker
	blobs    blob.Store
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// New builds a server from deps.
func New(deps Deps) *Server {
	s := &Server{
		svc:      deps.Service,
		auth:     deps.Auth,
		hub:      deps.Hub,
		prefs:    deps.Prefs,
		exports:  deps.Exports,
		blobs:    deps.Blobs,
		gatherer: deps.Gatherer,
		logger:   deps.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.prefs == nil {
		s.prefs = prefs.NewMemory()
	}
	return s
}

// Handler returns the routed engine.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	authn := v1.Group("/auth")
	authn.POST("/signup", s.signUp)
	authn.POST("/signin", s.signIn)

	secured := v1.Group("")
	secured.Use(s.authenticate())
	secured.POST("/auth/signout", s.signOut)
	secured.GET("/auth/me", s.me)
	secured.GET("/me/dashboard", s.myDashboard)
	secured.GET("/menu", s.menu)
	secured.GET("/menu/stream", s.menuStream)
	secured.GET("/preferences", s.getPreferences)
	secured.PUT("/preferences", s.putPreferences)

	owner := secured.Group("")
	owner.Use(requireOwner())
	owner.POST("/auth/students", s.registerStudent)

	owner.GET("/hostels", s.listHostels)
	owner.POST("/hostels", s.createHostel)
	owner.GET("/hostels/:id", s.getHostel)
	owner.PUT("/hostels/:id", s.updateHostel)
	owner.DELETE("/hostels/:id", s.deleteHostel)

	owner.GET("/rooms", s.listRooms)
	owner.POST("/rooms", s.createRoom)
	owner.GET("/rooms/occupancy", s.occupancy)
	owner.GET("/rooms/:id", s.getRoom)
	owner.PUT("/rooms/:id", s.updateRoom)
	owner.DELETE("/rooms/:id", s.deleteRoom)

	owner.GET("/students", s.listStudents)
	owner.POST("/students", s.createStudent)
	owner.GET("/students/:id", s.getStudent)
	owner.PUT("/students/:id", s.updateStudent)
	owner.DELETE("/students/:id", s.deleteStudent)
	owner.PUT("/students/:id/status", s.setStudentStatus)
	owner.PUT("/students/:id/room", s.assignRoom)
	owner.GET("/students/:id/dashboard", s.studentDashboard)
	owner.PUT("/students/:id/documents/:kind", s.uploadDocument)
	owner.GET("/students/:id/documents/:kind", s.documentURL)

	owner.GET("/payments", s.listPayments)
	owner.POST("/payments", s.recordPayment)
	owner.GET("/payments/reconcile", s.reconcile)
	owner.PUT("/payments/:id", s.updatePayment)
	owner.DELETE("/payments/:id", s.deletePayment)

	owner.GET("/expenses", s.listExpenses)
	owner.POST("/expenses", s.createExpense)
	owner.GET("/expenses/summary", s.expenseSummary)
	owner.PUT("/expenses/:id", s.updateExpense)
	owner.DELETE("/expenses/:id", s.deleteExpense)

	owner.PUT("/menu/:day/:meal", s.setMeal)

	owner.GET("/dashboard", s.dashboard)

	owner.GET("/reports/:file", s.downloadReport)
	owner.POST("/reports/exports", s.enqueueExport)
	owner.GET("/reports/exports/:id", s.getExport)

	files := r.Group("/files")
	files.Use(s.authenticate())
	files.GET("/*key", s.serveFile)

	return r
}
