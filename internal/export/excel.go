package export

import (
	"fmt"
	"io"
	"time"

	"barbershop/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	summarySheet  = "Summary"
)

var bookingColumns = []struct {
	title string
	width float64
}{
	{"ID", 38},
	{"Name", 22},
	{"Phone", 16},
	{"Email", 28},
	{"Service", 32},
	{"Date", 12},
	{"Time", 8},
	{"Status", 12},
	{"Payment", 10},
	{"Amount", 10},
	{"Notes", 40},
	{"Created At", 20},
}

var statusFill = map[string]string{
	models.StatusPending:   "#FFEB9C",
	models.StatusConfirmed: "#C6EFCE",
	models.StatusCompleted: "#DDEBF7",
	models.StatusCancelled: "#FFC7CE",
}

// FileName is the download name for an export taken at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("bookings_%s.xlsx", now.Format("2006-01-02_15-04-05"))
}

// WriteBookings renders bookings as an XLSX workbook with a per-status summary.
func WriteBookings(w io.Writer, bookings []*models.Booking) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", bookingsSheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	for i, col := range bookingColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, col.title)
		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(bookingsSheet, name, name, col.width)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(bookingColumns))
	_ = f.SetCellStyle(bookingsSheet, "A1", lastCol+"1", headerStyle)
	_ = f.SetPanes(bookingsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	styles := make(map[string]int, len(statusFill))
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		styles[status] = id
	}

	counts := make(map[string]int)
	var paidTotal int64
	for i, b := range bookings {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(bookingsSheet, cell, &[]interface{}{
			b.ID,
			b.Name,
			b.Phone,
			b.Email,
			b.Service,
			b.PreferredDate,
			b.PreferredTime,
			b.Status,
			deref(b.PaymentStatus),
			amount(b.PaymentAmount),
			b.NotesOrEmpty(),
			b.CreatedAt.UTC().Format("2006-01-02 15:04"),
		}); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
		if style, ok := styles[b.Status]; ok {
			statusCell := fmt.Sprintf("H%d", row)
			_ = f.SetCellStyle(bookingsSheet, statusCell, statusCell, style)
		}

		counts[b.Status]++
		if deref(b.PaymentStatus) == models.PaymentStatusPaid && b.PaymentAmount != nil {
			paidTotal += *b.PaymentAmount
		}
	}

	if err := writeSummary(f, headerStyle, counts, len(bookings), paidTotal); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

func writeSummary(f *excelize.File, headerStyle int, counts map[string]int, total int, paid int64) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	_ = f.SetSheetRow(summarySheet, "A1", &[]interface{}{"Status", "Bookings"})
	_ = f.SetCellStyle(summarySheet, "A1", "B1", headerStyle)

	row := 2
	for _, status := range models.BookingStatuses() {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetSheetRow(summarySheet, cell, &[]interface{}{status, counts[status]})
		row++
	}
	_ = f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", row), &[]interface{}{"total", total})
	_ = f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", row+1), &[]interface{}{"paid revenue (R)", paid})
	_ = f.SetColWidth(summarySheet, "A", "A", 20)
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func amount(a *int64) interface{} {
	if a == nil {
		return ""
	}
	return *a
}
