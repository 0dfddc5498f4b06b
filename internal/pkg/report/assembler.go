package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/export"
)

//go:embed templates/*.html
var templateFS embed.FS

// Assets are the school specific decorations placed around the recap table.
type Assets struct {
	HeaderImageURL string
	FooterImageURL string
	SchoolName     string
}

// Assembler turns an export request into a self-contained HTML document.
type Assembler struct {
	tmpl   *template.Template
	assets Assets
}

type recapView struct {
	Recap          Recap
	HeaderImageURL string
	FooterImageURL string
	SchoolName     string
}

func NewAssembler(assets Assets) (*Assembler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/attendance_recap.html")
	if err != nil {
		return nil, fmt.Errorf("parse recap template: %w", err)
	}
	return &Assembler{tmpl: tmpl, assets: assets}, nil
}

// Assemble builds the recap and renders it. All request values are HTML escaped.
func (a *Assembler) Assemble(req export.AttendanceExportRequest) (string, error) {
	recap, err := BuildRecap(req)
	if err != nil {
		return "", err
	}
	return a.Render(recap)
}

func (a *Assembler) Render(recap Recap) (string, error) {
	var buf bytes.Buffer
	view := recapView{
		Recap:          recap,
		HeaderImageURL: a.assets.HeaderImageURL,
		FooterImageURL: a.assets.FooterImageURL,
		SchoolName:     a.assets.SchoolName,
	}
	if err := a.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("execute recap template: %w", err)
	}
	return buf.String(), nil
}
