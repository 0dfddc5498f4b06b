package export

import "errors"

var (
	ErrArchiveDisabled   = errors.New("export archive is disabled")
	ErrExportRunNotFound = errors.New("export run not found")
	ErrArtifactMissing   = errors.New("export artifact is not available")
)
