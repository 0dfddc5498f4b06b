package export

import "context"

// ExportService defines the attendance recap export operations
type ExportService interface {
	// Render the monthly attendance recap as a PDF
	ExportAttendancePDF(ctx context.Context, req AttendanceExportRequest, requester Requester) (File, error)

	// Render the monthly attendance recap as an XLSX workbook
	ExportAttendanceXLSX(ctx context.Context, req AttendanceExportRequest, requester Requester) (File, error)

	// Archived export history
	ListRuns(ctx context.Context, limit int) ([]ExportRunResponse, error)
	OpenRunArtifact(ctx context.Context, id string) (File, error)
}
