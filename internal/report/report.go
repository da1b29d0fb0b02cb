// Package report renders the end-of-shift workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"dinepos/m/domain"
)

const (
	SheetSummary  = "Summary"
	SheetOrders   = "Orders"
	SheetExpenses = "Expenses"
)

// Shift is everything the workbook shows for one session.
type Shift struct {
	Session  domain.Session
	Totals   domain.SessionTotals
	Orders   []domain.Order
	Expenses []domain.Expense
}

func money(d decimal.Decimal) float64 { return d.Round(2).InexactFloat64() }

func stamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

// Write builds the workbook and streams it to w.
func Write(w io.Writer, s Shift) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	if err := summary(f, s); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	if err := orders(f, s.Orders); err != nil {
		return fmt.Errorf("orders sheet: %w", err)
	}
	if err := expenses(f, s.Expenses); err != nil {
		return fmt.Errorf("expenses sheet: %w", err)
	}
	f.SetActiveSheet(0)
	_, err := f.WriteTo(w)
	return err
}

func summary(f *excelize.File, s Shift) error {
	opened := s.Session.OpenedAt
	rows := [][]any{
		{"Session", s.Session.ID},
		{"Status", string(s.Session.Status)},
		{"Opened", stamp(&opened)},
		{"Closed", stamp(s.Session.ClosedAt)},
		{"Orders", s.Totals.OrderCount},
		{"Opening cash", money(s.Totals.OpeningCash)},
		{"Cash sales", money(s.Totals.CashSales)},
		{"COD collected", money(s.Totals.CODCollected)},
		{"COD pending", money(s.Totals.CODPending)},
		{"Online payments", money(s.Totals.OnlinePayments)},
		{"Expenses", money(s.Totals.Expenses)},
		{"Expected cash", money(s.Totals.ExpectedCash)},
	}
	if s.Session.ClosingCash.Valid {
		d := domain.ClassifyDiscrepancy(s.Session.ClosingCash.Decimal, s.Totals.ExpectedCash)
		rows = append(rows,
			[]any{"Closing cash", money(s.Session.ClosingCash.Decimal)},
			[]any{"Discrepancy", d.Label},
		)
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetSummary, cell, &r); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetSummary, "A", "A", 18)
}

func header(f *excelize.File, sheet string, cols []string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	row := make([]any, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func orders(f *excelize.File, list []domain.Order) error {
	cols := []string{"Order", "Created", "Type", "Status", "Payment", "Payment status", "Subtotal", "Discount", "Delivery", "Total", "Customer"}
	if err := header(f, SheetOrders, cols); err != nil {
		return err
	}
	for i, o := range list {
		created := o.CreatedAt
		row := []any{
			o.OrderNumber, stamp(&created), string(o.OrderType), string(o.Status),
			string(o.PaymentType), string(o.PaymentStatus),
			money(o.Subtotal), money(o.Discount), money(o.DeliveryCharge), money(o.GrandTotal),
			o.CustomerName,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetOrders, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func expenses(f *excelize.File, list []domain.Expense) error {
	if err := header(f, SheetExpenses, []string{"Time", "Category", "Amount", "Rider", "Description"}); err != nil {
		return err
	}
	for i, e := range list {
		created := e.CreatedAt
		var rider any
		if e.RiderID != nil {
			rider = *e.RiderID
		}
		row := []any{stamp(&created), string(e.Category), money(e.Amount), rider, e.Description}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetExpenses, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
