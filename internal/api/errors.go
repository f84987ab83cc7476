package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"staytrack/internal/auth"
	"staytrack/internal/core"
	"staytrack/internal/report"
	"staytrack/pkg/domain"
)

var errLiveDisabled = errors.New("live updates are not enabled")

type violationBody struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Entity   string `json:"entity,omitempty"`
	EntityID string `json:"entity_id,omitempty"`
}

type errorBody struct {
	Error      string          `json:"error"`
	Field      string          `json:"field,omitempty"`
	Violations []violationBody `json:"violations,omitempty"`
}

// statusFor maps domain and infrastructure errors to HTTP status codes.
func statusFor(err error) int {
	var (
		validation *domain.ValidationError
		rule       domain.RuleViolationError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &rule), errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, core.ErrBlobStoreDisabled), errors.Is(err, errLiveDisabled):
		return http.StatusNotImplemented
	case domain.IsStorage(err), errors.Is(err, report.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var (
		validation *domain.ValidationError
		rule       domain.RuleViolationError
	)
	if errors.As(err, &validation) {
		body.Field = validation.Field
	}
	if errors.As(err, &rule) {
		for _, v := range rule.Result.Violations {
			body.Violations = append(body.Violations, violationBody{
				Rule:     v.Rule,
				Severity: string(v.Severity),
				Message:  v.Message,
				Entity:   string(v.Entity),
				EntityID: v.EntityID,
			})
		}
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		switch {
		case status == http.StatusInternalServerError:
			body.Error = "internal error"
		case domain.IsStorage(err):
			body.Error = "storage unavailable"
		}
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: err.Error()})
}
