// Package report renders a month's collection and expenses as an .xlsx
// workbook.
package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"staytrack/internal/core"
	"staytrack/pkg/domain"
)

// Sheet names.
const (
	CollectionSheet = "Collection"
	ExpensesSheet   = "Expenses"
)

// ContentType is the MIME type of the rendered workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	collectionHeader = []string{"Student", "Room", "Bed", "Phone", "Rent", "Status", "Amount Paid", "Method", "Paid At"}
	collectionWidths = []float64{24, 10, 8, 14, 12, 10, 14, 10, 20}
	expenseHeader    = []string{"Date", "Category", "Amount", "Note"}
	expenseWidths    = []float64{14, 16, 12, 40}
)

// Input is everything one workbook shows.
type Input struct {
	Reconciliation core.Reconciliation
	Expenses       []core.Expense
}

// Filename returns the download name for month, e.g. staytrack-2025-03.xlsx.
func Filename(month string) string {
	m, err := domain.ParseMonth(month)
	if err != nil {
		return "staytrack.xlsx"
	}
	return fmt.Sprintf("staytrack-%04d-%02d.xlsx", m.Year, int(m.Month))
}

// Export loads month's reconciliation and expenses and renders them.
func Export(ctx context.Context, svc *core.Service, sess core.Session, month string) ([]byte, string, error) {
	if month == "" {
		month = svc.CurrentMonth().String()
	}
	var in Input
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Reconciliation, err = svc.ReconcileMonth(gctx, sess, month)
		return err
	})
	g.Go(func() (err error) {
		in.Expenses, err = svc.ListExpenses(gctx, sess, core.ExpenseFilter{Month: month})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, "", err
	}
	data, err := Workbook(in)
	if err != nil {
		return nil, "", err
	}
	return data, Filename(in.Reconciliation.Month), nil
}

type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) set(col, row int, v any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellValue(w.sheet, cell, v); err != nil {
		w.err = fmt.Errorf("set %s!%s: %w", w.sheet, cell, err)
	}
}

func (w *sheetWriter) header(titles []string, widths []float64, style int) {
	for i, title := range titles {
		w.set(i+1, 1, title)
		if w.err != nil {
			return
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		if err := w.f.SetCellStyle(w.sheet, cell, cell, style); err != nil {
			w.err = err
			return
		}
		if err := w.f.SetColWidth(w.sheet, col, col, widths[i]); err != nil {
			w.err = err
			return
		}
	}
	if w.err == nil {
		w.err = w.f.SetPanes(w.sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
}

func amount(d decimal.Decimal) float64 { return d.InexactFloat64() }

// Workbook renders in. The collection sheet lists every active student with
// this month's status; the expenses sheet lists the month's expenses followed
// by per-category totals.
func Workbook(in Input) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for _, name := range []string{CollectionSheet, ExpensesSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(CollectionSheet)
	if err != nil {
		return nil, fmt.Errorf("locate sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeCollection(f, in.Reconciliation, headerStyle); err != nil {
		return nil, err
	}
	if err := writeExpenses(f, in.Reconciliation.Month, in.Expenses, headerStyle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeCollection(f *excelize.File, rec core.Reconciliation, style int) error {
	w := &sheetWriter{f: f, sheet: CollectionSheet}
	w.header(collectionHeader, collectionWidths, style)
	row := 2
	for _, e := range rec.Entries {
		w.set(1, row, e.Student.Name)
		w.set(2, row, e.Student.RoomNumber)
		w.set(3, row, e.Student.Bed)
		w.set(4, row, e.Student.Phone)
		w.set(5, row, amount(e.Student.Rent))
		w.set(6, row, string(e.Status))
		if e.Payment != nil {
			w.set(7, row, amount(e.Payment.Amount))
			w.set(8, row, string(e.Payment.Method))
			w.set(9, row, e.Payment.PaidAt.UTC().Format(time.DateTime))
		}
		row++
	}
	row++
	w.set(1, row, "Month")
	w.set(2, row, rec.Month)
	w.set(1, row+1, "Paid")
	w.set(2, row+1, fmt.Sprintf("%d / %d", rec.PaidCount, rec.TotalActive))
	w.set(1, row+2, "Expected")
	w.set(2, row+2, amount(rec.Expected))
	w.set(1, row+3, "Collected")
	w.set(2, row+3, amount(rec.Collected))
	w.set(1, row+4, "Collection %")
	w.set(2, row+4, rec.Percentage)
	return w.err
}

func writeExpenses(f *excelize.File, month string, expenses []core.Expense, style int) error {
	w := &sheetWriter{f: f, sheet: ExpensesSheet}
	w.header(expenseHeader, expenseWidths, style)
	row := 2
	for _, e := range expenses {
		w.set(1, row, e.SpentAt.UTC().Format(time.DateOnly))
		w.set(2, row, string(e.Category))
		w.set(3, row, amount(e.Amount))
		w.set(4, row, e.Note)
		row++
	}
	sum := core.SummarizeExpenses(month, expenses)
	row++
	for _, c := range sum.Categories {
		w.set(2, row, string(c.Category))
		w.set(3, row, amount(c.Total))
		w.set(4, row, fmt.Sprintf("%d entries", c.Count))
		row++
	}
	w.set(2, row, "Total")
	w.set(3, row, amount(sum.Total))
	return w.err
}
