package report

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/export"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// SignaturePlaceholder is printed on a signature line whose name was not supplied.
	SignaturePlaceholder = "(..............................)"

	// NotApplicable replaces every percentage when no row reports an effective day.
	NotApplicable = "-"
)

// Recap is the computed view of one monthly attendance export. Both the PDF
// template and the XLSX workbook are rendered from it.
type Recap struct {
	MonthName       string
	Year            int
	SchoolYear      string
	ClassName       string
	HomeroomTeacher string
	Principal       string
	Counselor       string
	EffectiveDays   int
	Rows            []RecapRow
}

type RecapRow struct {
	No           int
	Name         string
	NIS          string
	Present      int
	Sick         int
	Permitted    int
	Unexcused    int
	TotalAbsence int
	PresentPct   string
	SickPct      string
	PermittedPct string
	UnexcusedPct string
}

// Period is the display label, e.g. "Januari 2025".
func (r Recap) Period() string {
	return fmt.Sprintf("%s %d", r.MonthName, r.Year)
}

// BuildRecap computes the recap rows. Percentages use the largest
// totalEffectiveDays in the batch as the denominator for every row.
func BuildRecap(req export.AttendanceExportRequest) (Recap, error) {
	if len(req.Data) == 0 {
		return Recap{}, ErrNoRows
	}

	monthName, year, err := ParseMonthLabel(req.Month)
	if err != nil {
		return Recap{}, err
	}

	maxDays := 0
	for _, row := range req.Data {
		if d := row.EffectiveDays(); d > maxDays {
			maxDays = d
		}
	}
	if maxDays == 0 {
		slog.Warn("Attendance recap has no effective days, percentages rendered as placeholder",
			"class", req.ClassName, "month", req.Month, "rows", len(req.Data))
	}

	rows := make([]RecapRow, 0, len(req.Data))
	for i, row := range req.Data {
		present := row.Present()
		sick := row.Sick()
		permitted := row.PermittedAbsence()
		unexcused := row.UnexcusedAbsence()

		rows = append(rows, RecapRow{
			No:           i + 1,
			Name:         row.StudentName,
			NIS:          row.StudentNIS,
			Present:      present,
			Sick:         sick,
			Permitted:    permitted,
			Unexcused:    unexcused,
			TotalAbsence: sick + permitted + unexcused,
			PresentPct:   Percent(present, maxDays),
			SickPct:      Percent(sick, maxDays),
			PermittedPct: Percent(permitted, maxDays),
			UnexcusedPct: Percent(unexcused, maxDays),
		})
	}

	return Recap{
		MonthName:       monthName,
		Year:            year,
		SchoolYear:      fmt.Sprintf("%d/%d", year, year+1),
		ClassName:       req.ClassName,
		HomeroomTeacher: orPlaceholder(req.WaliKelas),
		Principal:       orPlaceholder(req.Pimpinan),
		Counselor:       orPlaceholder(req.GuruBK),
		EffectiveDays:   maxDays,
		Rows:            rows,
	}, nil
}

// ParseMonthLabel splits "januari 2025" into "Januari" and 2025.
func ParseMonthLabel(label string) (string, int, error) {
	label = strings.TrimSpace(label)
	word, rest, found := strings.Cut(label, " ")
	if !found || word == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidMonthLabel, label)
	}

	year, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidMonthLabel, label)
	}

	return cases.Title(language.Indonesian).String(word), year, nil
}

// Percent formats count/denominator*100 with two decimals, rounded half away
// from zero, and a comma separator.
func Percent(count, denominator int) string {
	if denominator == 0 {
		return NotApplicable
	}
	value := decimal.NewFromInt(int64(count)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(denominator)))
	return strings.Replace(value.StringFixed(2), ".", ",", 1)
}

func orPlaceholder(name string) string {
	if strings.TrimSpace(name) == "" {
		return SignaturePlaceholder
	}
	return name
}
