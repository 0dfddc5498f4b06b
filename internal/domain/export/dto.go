package export

import (
	"strings"
	"unicode"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/validator"
)

// ========================================
// MONTHLY ATTENDANCE EXPORT
// ========================================

// AttendanceExportRequest is the body of POST /api/attendance/export-pdf.
type AttendanceExportRequest struct {
	Data      []AttendanceRow `json:"data" validate:"required,min=1,dive"`
	Month     string          `json:"month" validate:"notblank,month_label"`
	ClassName string          `json:"className" validate:"notblank"`
	WaliKelas string          `json:"waliKelas" validate:"notblank"`
	Pimpinan  string          `json:"pimpinan,omitempty"`
	GuruBK    string          `json:"guruBk,omitempty"`
}

// AttendanceRow is one student's tally for the month. Counts left out of the
// payload are treated as zero and none may exceed the days in a year.
type AttendanceRow struct {
	StudentName           string `json:"studentName"`
	StudentNIS            string `json:"studentNis"`
	PresentCount          *int   `json:"presentCount" validate:"omitempty,min=0,max=366"`
	SickCount             *int   `json:"sickCount" validate:"omitempty,min=0,max=366"`
	PermittedAbsenceCount *int   `json:"permittedAbsenceCount" validate:"omitempty,min=0,max=366"`
	UnexcusedAbsenceCount *int   `json:"unexcusedAbsenceCount" validate:"omitempty,min=0,max=366"`
	TotalEffectiveDays    *int   `json:"totalEffectiveDays" validate:"omitempty,min=0,max=366"`
}

func (r *AttendanceExportRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}
	return nil
}

// Trimmed returns a copy with surrounding whitespace removed from the header fields.
func (r AttendanceExportRequest) Trimmed() AttendanceExportRequest {
	r.Month = strings.TrimSpace(r.Month)
	r.ClassName = strings.TrimSpace(r.ClassName)
	r.WaliKelas = strings.TrimSpace(r.WaliKelas)
	r.Pimpinan = strings.TrimSpace(r.Pimpinan)
	r.GuruBK = strings.TrimSpace(r.GuruBK)
	return r
}

func (row AttendanceRow) Present() int          { return valueOrZero(row.PresentCount) }
func (row AttendanceRow) Sick() int             { return valueOrZero(row.SickCount) }
func (row AttendanceRow) PermittedAbsence() int { return valueOrZero(row.PermittedAbsenceCount) }
func (row AttendanceRow) UnexcusedAbsence() int { return valueOrZero(row.UnexcusedAbsenceCount) }
func (row AttendanceRow) EffectiveDays() int    { return valueOrZero(row.TotalEffectiveDays) }

func valueOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// Requester identifies the authenticated caller of an export.
type Requester struct {
	UserID string
	Name   string
	Role   string
}

// File is a generated document ready to be streamed back to the caller.
type File struct {
	Filename    string
	ContentType string
	Content     []byte
	Attempts    int
}

// ReportFilename builds "rekap-absensi-<month>-<class>.<ext>". Spaces become
// hyphens and anything outside letters, digits, "-", "_" and "." is dropped.
func ReportFilename(month, className, ext string) string {
	return "rekap-absensi-" + filenamePart(month) + "-" + filenamePart(className) + "." + ext
}

func filenamePart(s string) string {
	var b strings.Builder
	for _, r := range strings.Join(strings.Fields(s), "-") {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ========================================
// EXPORT HISTORY
// ========================================

type ExportRunResponse struct {
	ID          string `json:"id"`
	Format      string `json:"format"`
	Status      string `json:"status"`
	RequestedBy string `json:"requested_by"`
	Role        string `json:"role"`
	ClassName   string `json:"class_name"`
	Month       string `json:"month"`
	Rows        int    `json:"rows"`
	Attempts    int    `json:"attempts"`
	Bytes       int64  `json:"bytes"`
	Checksum    string `json:"checksum,omitempty"`
	Error       string `json:"error,omitempty"`
	HasArtifact bool   `json:"has_artifact"`
	CreatedAt   string `json:"created_at"`
}
