package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const recapSheet = "Rekap Absensi"

var workbookHeaders = []string{
	"No", "NIS", "Nama Siswa", "Hadir", "Sakit", "Izin", "Alpha", "Total Absen",
	"% Hadir", "% Sakit", "% Izin", "% Alpha",
}

// WriteWorkbook renders the recap into a single sheet XLSX file.
func WriteWorkbook(recap Recap) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recapSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"D9E2F3"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return nil, err
	}
	cellStyle, err := f.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return nil, err
	}

	lastCol, _ := excelize.ColumnNumberToName(len(workbookHeaders))

	_ = f.SetCellValue(recapSheet, "A1", "REKAP ABSENSI SISWA")
	_ = f.MergeCell(recapSheet, "A1", lastCol+"1")
	_ = f.SetCellStyle(recapSheet, "A1", lastCol+"1", titleStyle)

	meta := [][2]string{
		{"Kelas", recap.ClassName},
		{"Bulan", recap.Period()},
		{"Tahun Pelajaran", recap.SchoolYear},
		{"Hari Efektif", fmt.Sprintf("%d", recap.EffectiveDays)},
	}
	for i, m := range meta {
		row := i + 3
		_ = f.SetCellValue(recapSheet, fmt.Sprintf("A%d", row), m[0])
		_ = f.SetCellValue(recapSheet, fmt.Sprintf("C%d", row), m[1])
	}

	headerRow := len(meta) + 4
	for i, h := range workbookHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		_ = f.SetCellValue(recapSheet, cell, h)
	}
	_ = f.SetCellStyle(recapSheet, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("%s%d", lastCol, headerRow), headerStyle)

	for i, r := range recap.Rows {
		rowNum := headerRow + 1 + i
		values := []interface{}{
			r.No, r.NIS, r.Name, r.Present, r.Sick, r.Permitted, r.Unexcused, r.TotalAbsence,
			r.PresentPct, r.SickPct, r.PermittedPct, r.UnexcusedPct,
		}
		start := fmt.Sprintf("A%d", rowNum)
		if err := f.SetSheetRow(recapSheet, start, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r.No, err)
		}
	}
	if len(recap.Rows) > 0 {
		lastRow := headerRow + len(recap.Rows)
		_ = f.SetCellStyle(recapSheet, fmt.Sprintf("A%d", headerRow+1), fmt.Sprintf("%s%d", lastCol, lastRow), cellStyle)
	}

	signRow := headerRow + len(recap.Rows) + 3
	signatures := []struct {
		col, title, name string
	}{
		{"B", "Kepala Sekolah", recap.Principal},
		{"E", "Guru BK", recap.Counselor},
		{"I", "Wali Kelas", recap.HomeroomTeacher},
	}
	for _, s := range signatures {
		_ = f.SetCellValue(recapSheet, fmt.Sprintf("%s%d", s.col, signRow), s.title)
		_ = f.SetCellValue(recapSheet, fmt.Sprintf("%s%d", s.col, signRow+4), s.name)
	}

	_ = f.SetColWidth(recapSheet, "A", "A", 6)
	_ = f.SetColWidth(recapSheet, "B", "B", 14)
	_ = f.SetColWidth(recapSheet, "C", "C", 32)
	_ = f.SetColWidth(recapSheet, "D", lastCol, 11)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
