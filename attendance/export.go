/*
export.go - Monthly time-log export

FORMATS:
  CSV   Fixed layout read by the payroll spreadsheet. Fields are written
        as-is, never quoted, so the bytes match what that sheet imports.
  XLSX  Same rows through excelize, one sheet per month.

ROW LAYOUT:
  Date,Username,Start,Message,Pause,Message,Resume,Message,End,Message,Off,Message

  One row per member per recorded day, days in ascending order. Each
  status column holds the first state of that status ("03:04 PM"). The Off
  columns list the member's late-arrival and early-leave requests starting
  on that day of the month, concatenated without separator.
*/
package attendance

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/warp/timee/generic"
	"github.com/warp/timee/timeoff"
	"github.com/xuri/excelize/v2"
)

const csvHeader = "Date,Username,Start,Message,Pause,Message,Resume,Message,End,Message,Off,Message\n"

var exportColumns = strings.Split(strings.TrimSuffix(csvHeader, "\n"), ",")

var offLabels = map[timeoff.RequestType]string{
	timeoff.TypeLate:    "Đi muộn",
	timeoff.TypeEndSoon: "Nghỉ sớm",
}

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", generic.ErrInvalidInput, s)
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// ExportFile is a rendered export ready for upload or download.
type ExportFile struct {
	Filename string
	Format   Format
	Content  []byte
}

// Filename returns "time_log_MM_YYYY.<ext>".
func Filename(month time.Time, f Format) string {
	return fmt.Sprintf("time_log_%02d_%d.%s", int(month.Month()), month.Year(), f)
}

// =============================================================================
// ROWS
// =============================================================================

// BuildRows flattens the month's records into export rows.
func BuildRows(days []AttendanceDay, offs []timeoff.OffLogEntry) [][]string {
	byDay := make(map[int][]timeoff.OffLogEntry)
	for _, e := range offs {
		d := e.StartDate.UTC().Day()
		byDay[d] = append(byDay[d], e)
	}

	var rows [][]string
	for _, day := range days {
		date := day.Date.UTC()
		dateStr := fmt.Sprintf("%02d/%d/%d", date.Day(), int(date.Month()), date.Year())

		for _, m := range day.Members {
			row := []string{dateStr, m.Username}
			for _, s := range []Status{StatusStart, StatusPause, StatusResume, StatusEnd} {
				st, ok := m.First(s)
				if !ok {
					row = append(row, "", "")
					continue
				}
				row = append(row, st.Timestamp.UTC().Format("03:04 PM"), st.Note)
			}

			var off, reason strings.Builder
			for _, e := range byDay[date.Day()] {
				label, ok := offLabels[e.Type]
				if !ok || e.UserID != m.UserID {
					continue
				}
				fmt.Fprintf(&off, "%s - %s phút", label, e.Duration.String())
				reason.WriteString(e.Reason)
			}
			rows = append(rows, append(row, off.String(), reason.String()))
		}
	}
	return rows
}

// =============================================================================
// WRITERS
// =============================================================================

// WriteCSV renders rows in the fixed CSV layout.
func WriteCSV(rows [][]string) []byte {
	var b bytes.Buffer
	b.WriteString(csvHeader)
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// WriteXLSX renders rows into a workbook with one sheet named "MM-YYYY".
func WriteXLSX(month time.Time, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := fmt.Sprintf("%02d-%d", int(month.Month()), month.Year())
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	header := make([]any, len(exportColumns))
	for i, c := range exportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	last, _ := excelize.ColumnNumberToName(len(exportColumns))
	if err := f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", last, 14); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render writes rows in format f.
func Render(month time.Time, rows [][]string, f Format) (ExportFile, error) {
	out := ExportFile{Filename: Filename(month, f), Format: f}
	if f == FormatXLSX {
		content, err := WriteXLSX(month, rows)
		if err != nil {
			return out, fmt.Errorf("render xlsx: %w", err)
		}
		out.Content = content
		return out, nil
	}
	out.Content = WriteCSV(rows)
	return out, nil
}
