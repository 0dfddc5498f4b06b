package report

import "errors"

var (
	ErrNoRows            = errors.New("attendance recap requires at least one row")
	ErrInvalidMonthLabel = errors.New("month must be a month name followed by a year")
)
