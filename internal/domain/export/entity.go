package export

import "time"

type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// ExportRun records one export invocation for the history page.
type ExportRun struct {
	ID           string
	Format       string
	Status       RunStatus
	RequestedBy  string
	Role         string
	ClassName    string
	Month        string
	Rows         int
	Attempts     int
	Bytes        int64
	Checksum     *string
	ArtifactPath *string
	ErrorText    *string
	CreatedAt    time.Time
}

func (r *ExportRun) ToResponse() ExportRunResponse {
	resp := ExportRunResponse{
		ID:          r.ID,
		Format:      r.Format,
		Status:      string(r.Status),
		RequestedBy: r.RequestedBy,
		Role:        r.Role,
		ClassName:   r.ClassName,
		Month:       r.Month,
		Rows:        r.Rows,
		Attempts:    r.Attempts,
		Bytes:       r.Bytes,
		HasArtifact: r.ArtifactPath != nil,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
	if r.Checksum != nil {
		resp.Checksum = *r.Checksum
	}
	if r.ErrorText != nil {
		resp.Error = *r.ErrorText
	}
	return resp
}
