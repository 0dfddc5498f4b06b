package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func intPtr(v int) *int { return &v }

func sampleRequest() export.AttendanceExportRequest {
	return export.AttendanceExportRequest{
		Data: []export.AttendanceRow{
			{
				StudentName:           "Budi Santoso",
				StudentNIS:            "1001",
				PresentCount:          intPtr(18),
				SickCount:             intPtr(1),
				PermittedAbsenceCount: intPtr(1),
				UnexcusedAbsenceCount: intPtr(0),
				TotalEffectiveDays:    intPtr(20),
			},
			{
				StudentName:        "Ani Lestari",
				StudentNIS:         "1002",
				PresentCount:       intPtr(20),
				TotalEffectiveDays: intPtr(25),
			},
		},
		Month:     "januari 2025",
		ClassName: "X IPA 1",
		WaliKelas: "Siti Aminah",
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "90,00", Percent(18, 20))
	assert.Equal(t, "33,33", Percent(1, 3))
	assert.Equal(t, "0,00", Percent(0, 25))
	assert.Equal(t, "100,00", Percent(25, 25))
	assert.Equal(t, NotApplicable, Percent(5, 0))
	// 0.125 rounds away from zero
	assert.Equal(t, "6,25", Percent(1, 16))
	assert.Equal(t, "0,13", Percent(1, 800))
}

func TestParseMonthLabel(t *testing.T) {
	name, year, err := ParseMonthLabel("  MARET 2024 ")
	require.NoError(t, err)
	assert.Equal(t, "Maret", name)
	assert.Equal(t, 2024, year)

	for _, label := range []string{"", "Maret", "Maret dua-ribu", " 2024"} {
		_, _, err := ParseMonthLabel(label)
		assert.ErrorIs(t, err, ErrInvalidMonthLabel, label)
	}
}

func TestBuildRecap_UsesLargestEffectiveDays(t *testing.T) {
	recap, err := BuildRecap(sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, 25, recap.EffectiveDays)
	require.Len(t, recap.Rows, 2)

	first := recap.Rows[0]
	assert.Equal(t, 1, first.No)
	assert.Equal(t, "Budi Santoso", first.Name)
	assert.Equal(t, "72,00", first.PresentPct)
	assert.Equal(t, "4,00", first.SickPct)
	assert.Equal(t, "4,00", first.PermittedPct)
	assert.Equal(t, "0,00", first.UnexcusedPct)
	assert.Equal(t, 2, first.TotalAbsence)

	second := recap.Rows[1]
	assert.Equal(t, 2, second.No)
	assert.Equal(t, "Ani Lestari", second.Name)
	assert.Equal(t, "80,00", second.PresentPct)
	assert.Equal(t, 0, second.Sick)
	assert.Equal(t, 0, second.TotalAbsence)
}

func TestBuildRecap_HeaderFields(t *testing.T) {
	recap, err := BuildRecap(sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, "Januari", recap.MonthName)
	assert.Equal(t, 2025, recap.Year)
	assert.Equal(t, "Januari 2025", recap.Period())
	assert.Equal(t, "2025/2026", recap.SchoolYear)
	assert.Equal(t, "Siti Aminah", recap.HomeroomTeacher)
	assert.Equal(t, SignaturePlaceholder, recap.Principal)
	assert.Equal(t, SignaturePlaceholder, recap.Counselor)
}

func TestBuildRecap_ZeroEffectiveDays(t *testing.T) {
	req := sampleRequest()
	for i := range req.Data {
		req.Data[i].TotalEffectiveDays = nil
	}

	recap, err := BuildRecap(req)
	require.NoError(t, err)

	for _, row := range recap.Rows {
		assert.Equal(t, NotApplicable, row.PresentPct)
		assert.Equal(t, NotApplicable, row.SickPct)
		assert.Equal(t, NotApplicable, row.PermittedPct)
		assert.Equal(t, NotApplicable, row.UnexcusedPct)
	}
}

func TestBuildRecap_Errors(t *testing.T) {
	req := sampleRequest()
	req.Data = nil
	_, err := BuildRecap(req)
	assert.ErrorIs(t, err, ErrNoRows)

	req = sampleRequest()
	req.Month = "2025"
	_, err = BuildRecap(req)
	assert.ErrorIs(t, err, ErrInvalidMonthLabel)
}

func TestAssembler_Assemble(t *testing.T) {
	a, err := NewAssembler(Assets{
		HeaderImageURL: "https://cdn.example.sch.id/kop.png",
		SchoolName:     "SMA Negeri 1 Contoh",
	})
	require.NoError(t, err)

	req := sampleRequest()
	req.GuruBK = "Dewi Kartika"
	html, err := a.Assemble(req)
	require.NoError(t, err)

	assert.Contains(t, html, `<img src="https://cdn.example.sch.id/kop.png"`)
	assert.Contains(t, html, "SMA Negeri 1 Contoh")
	assert.Contains(t, html, "Januari 2025")
	assert.Contains(t, html, "2025/2026")
	assert.Contains(t, html, "Dewi Kartika")
	assert.Contains(t, html, SignaturePlaceholder)
	assert.Contains(t, html, "72,00")
	assert.NotContains(t, html, `alt="Footer"`)

	budi := strings.Index(html, "Budi Santoso")
	ani := strings.Index(html, "Ani Lestari")
	require.True(t, budi > 0 && ani > 0)
	assert.Less(t, budi, ani)
}

func TestAssembler_EscapesUserInput(t *testing.T) {
	a, err := NewAssembler(Assets{})
	require.NoError(t, err)

	req := sampleRequest()
	req.ClassName = `<script>alert("x")</script>`
	req.Data[0].StudentName = `Budi & <b>Co</b>`

	html, err := a.Assemble(req)
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "<b>Co</b>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "Budi &amp; &lt;b&gt;Co&lt;/b&gt;")
	assert.NotContains(t, html, "<img")
}

func TestWriteWorkbook(t *testing.T) {
	recap, err := BuildRecap(sampleRequest())
	require.NoError(t, err)

	content, err := WriteWorkbook(recap)
	require.NoError(t, err)
	require.NotEmpty(t, content)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(recapSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "REKAP ABSENSI SISWA", title)

	period, err := f.GetCellValue(recapSheet, "C4")
	require.NoError(t, err)
	assert.Equal(t, "Januari 2025", period)

	// meta rows 3..6, blank, headers on row 8, data from row 9
	header, err := f.GetCellValue(recapSheet, "C8")
	require.NoError(t, err)
	assert.Equal(t, "Nama Siswa", header)

	name, err := f.GetCellValue(recapSheet, "C9")
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", name)

	pct, err := f.GetCellValue(recapSheet, "I10")
	require.NoError(t, err)
	assert.Equal(t, "80,00", pct)
}
