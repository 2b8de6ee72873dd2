// Package report renders sales listings as downloadable documents.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"ledgerdesk/backend/internal/domain"
)

const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type SalesReport struct {
	Title    string
	From     *time.Time
	To       *time.Time
	Rows     []domain.SaleListEntry
	Metadata domain.BusinessSettings
}

type Totals struct {
	Items      int
	TotalValue float64
	NetProfit  float64
}

func (r SalesReport) Totals() Totals {
	var t Totals
	for _, row := range r.Rows {
		t.Items += row.Quantity
		t.TotalValue += row.TotalValue
		t.NetProfit += row.NetProfit
	}
	return t
}

func (r SalesReport) rangeLabel() string {
	from, to := "beginning", "now"
	if r.From != nil {
		from = r.From.Format("2006-01-02")
	}
	if r.To != nil {
		to = r.To.Format("2006-01-02")
	}
	return fmt.Sprintf("Date Range: %s to %s", from, to)
}

func WriteCSV(w io.Writer, r SalesReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "date_sold", "item", "type", "quantity", "total_value", "net_profit"}); err != nil {
		return err
	}
	for _, row := range r.Rows {
		if err := cw.Write([]string{
			strconv.FormatInt(row.ID, 10),
			row.DateSold.UTC().Format(time.RFC3339),
			row.ItemName,
			row.Type,
			strconv.Itoa(row.Quantity),
			strconv.FormatFloat(row.TotalValue, 'f', 2, 64),
			strconv.FormatFloat(row.NetProfit, 'f', 2, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func RenderPDF(r SalesReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)

	title := r.Title
	if r.Metadata.Name != "" {
		title = r.Metadata.Name + " - " + title
	}
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(5)

	totals := r.Totals()
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, r.rangeLabel(), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Total Items Sold: %d", totals.Items), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Total Sales: %.2f", totals.TotalValue), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Net Profit: %.2f", totals.NetProfit), "", 1, "L", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(35, 9, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 9, "Item", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 9, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 9, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(27, 9, "Total", "1", 0, "C", false, 0, "")
	pdf.CellFormat(27, 9, "Profit", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, row := range r.Rows {
		pdf.CellFormat(35, 8, row.DateSold.Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 8, row.ItemName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, row.Type, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 8, strconv.Itoa(row.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(27, 8, fmt.Sprintf("%.2f", row.TotalValue), "1", 0, "R", false, 0, "")
		pdf.CellFormat(27, 8, fmt.Sprintf("%.2f", row.NetProfit), "1", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
