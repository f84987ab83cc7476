package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"staytrack/internal/core"
	"staytrack/pkg/domain"
)

type paymentRequest struct {
	StudentID string               `json:"student_id"`
	Month     string               `json:"month"`
	Amount    decimal.Decimal      `json:"amount"`
	Method    domain.PaymentMethod `json:"method"`
	Notes     string               `json:"notes"`
	PaidAt    time.Time            `json:"paid_at"`
}

func (s *Server) listPayments(c *gin.Context) {
	filter := core.PaymentFilter{Month: c.Query("month"), StudentID: c.Query("student_id")}
	out, err := s.svc.ListPayments(c.Request.Context(), session(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": out})
}

func (s *Server) recordPayment(c *gin.Context) {
	var req paymentRequest
	if !bind(c, &req) {
		return
	}
	out, _, err := s.svc.RecordPayment(c.Request.Context(), session(c), core.Payment{
		StudentID: req.StudentID,
		Month:     req.Month,
		Amount:    req.Amount,
		Method:    req.Method,
		Notes:     req.Notes,
		PaidAt:    req.PaidAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// updatePayment edits amount, method, notes and paid-at. The student and
// month a payment settles are fixed once recorded.
func (s *Server) updatePayment(c *gin.Context) {
	var req paymentRequest
	if !bind(c, &req) {
		return
	}
	out, _, err := s.svc.UpdatePayment(c.Request.Context(), session(c), c.Param("id"), func(p *core.Payment) error {
		p.Amount = req.Amount
		p.Method = req.Method
		p.Notes = req.Notes
		if !req.PaidAt.IsZero() {
			p.PaidAt = req.PaidAt
		}
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) deletePayment(c *gin.Context) {
	out, _, err := s.svc.DeletePayment(c.Request.Context(), session(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) reconcile(c *gin.Context) {
	rec, err := s.svc.ReconcileMonth(c.Request.Context(), session(c), c.Query("month"))
	if err != nil {
		writeError(c, err)
		return
	}
	rec.Entries = rec.Filter(core.ParseTab(c.Query("tab")), c.Query("q"))
	c.JSON(http.StatusOK, rec)
}

type expenseRequest struct {
	Amount   decimal.Decimal        `json:"amount"`
	Category domain.ExpenseCategory `json:"category"`
	Note     string                 `json:"note"`
	SpentAt  time.Time              `json:"spent_at"`
}

func (s *Server) listExpenses(c *gin.Context) {
	out, err := s.svc.ListExpenses(c.Request.Context(), session(c), core.ExpenseFilter{Month: c.Query("month")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expenses": out})
}

func (s *Server) createExpense(c *gin.Context) {
	var req expenseRequest
	if !bind(c, &req) {
		return
	}
	out, _, err := s.svc.CreateExpense(c.Request.Context(), session(c), core.Expense{
		Amount:   req.Amount,
		Category: req.Category,
		Note:     req.Note,
		SpentAt:  req.SpentAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) updateExpense(c *gin.Context) {
	var req expenseRequest
	if !bind(c, &req) {
		return
	}
	out, _, err := s.svc.UpdateExpense(c.Request.Context(), session(c), c.Param("id"), func(e *core.Expense) error {
		e.Amount = req.Amount
		e.Category = req.Category
		e.Note = req.Note
		if !req.SpentAt.IsZero() {
			e.SpentAt = req.SpentAt
		}
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) deleteExpense(c *gin.Context) {
	if _, err := s.svc.DeleteExpense(c.Request.Context(), session(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) expenseSummary(c *gin.Context) {
	out, err := s.svc.ExpenseSummary(c.Request.Context(), session(c), c.Query("month"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
