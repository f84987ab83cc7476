package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"staytrack/internal/core"
	"staytrack/internal/report"
	"staytrack/pkg/domain"
)

// parseWeekday accepts an English day name or its number (0 = Sunday).
func parseWeekday(raw string) (time.Weekday, error) {
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), raw) {
			return d, nil
		}
	}
	return 0, domain.Invalid("day", "unknown day %q", raw)
}

func (s *Server) menu(c *gin.Context) {
	out, err := s.svc.Menu(c.Request.Context(), session(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"menu": out})
}

func (s *Server) setMeal(c *gin.Context) {
	day, err := parseWeekday(c.Param("day"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if !bind(c, &req) {
		return
	}
	out, _, err := s.svc.SetMeal(c.Request.Context(), session(c), day, domain.Meal(strings.ToLower(c.Param("meal"))), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// menuStream pushes menu entries as server-sent events until the client
// disconnects. The current menu is sent first.
func (s *Server) menuStream(c *gin.Context) {
	if s.hub == nil {
		writeError(c, errLiveDisabled)
		return
	}
	sess := session(c)
	sub := s.hub.Subscribe(sess.OwnerID)
	defer sub.Dispose()

	current, err := s.svc.Menu(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.SSEvent("snapshot", gin.H{"menu": current})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case entry, ok := <-sub.Updates():
			if !ok {
				return false
			}
			c.SSEvent("menu", entry)
			return true
		}
	})
}

// reportMonth turns "2025-03.xlsx" or "March 2025.xlsx" into a month key.
func reportMonth(file string) (string, error) {
	name := strings.TrimSuffix(file, ".xlsx")
	if t, err := time.Parse("2006-01", name); err == nil {
		return domain.FormatMonth(t), nil
	}
	month, err := domain.CanonicalMonth(name)
	if err != nil {
		return "", domain.Invalid("month", "%v", err)
	}
	return month, nil
}

func (s *Server) downloadReport(c *gin.Context) {
	month, err := reportMonth(c.Param("file"))
	if err != nil {
		writeError(c, err)
		return
	}
	data, filename, err := report.Export(c.Request.Context(), s.svc, session(c), month)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, report.ContentType, data)
}

func (s *Server) enqueueExport(c *gin.Context) {
	if s.exports == nil {
		writeError(c, core.ErrBlobStoreDisabled)
		return
	}
	var req struct {
		Month string `json:"month"`
	}
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	rec, err := s.exports.EnqueueExport(c.Request.Context(), session(c), req.Month)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, rec)
}

func (s *Server) getExport(c *gin.Context) {
	if s.exports == nil {
		writeError(c, core.ErrBlobStoreDisabled)
		return
	}
	rec, err := s.exports.GetExport(c.Request.Context(), session(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
