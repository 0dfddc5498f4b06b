package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	playground "github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string
	Message string
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var msgs []string
	for _, err := range v {
		msgs = append(msgs, err.Field+": "+err.Message)
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) ToMap() map[string]string {
	result := make(map[string]string)
	for _, err := range v {
		result[err.Field] = err.Message
	}
	return result
}

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// monthLabelRegex matches "<month word> <four digit year>", e.g. "Januari 2025".
var monthLabelRegex = regexp.MustCompile(`^\p{L}+ \d{4}$`)

// IsValidMonthLabel reports whether s is a month word followed by a single space and a year.
func IsValidMonthLabel(s string) bool {
	return monthLabelRegex.MatchString(strings.TrimSpace(s))
}

var (
	validate     *playground.Validate
	validateOnce sync.Once
)

func engine() *playground.Validate {
	validateOnce.Do(func() {
		validate = playground.New(playground.WithRequiredStructEnabled())

		// Report JSON field names instead of Go struct names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = validate.RegisterValidation("month_label", func(fl playground.FieldLevel) bool {
			return IsValidMonthLabel(fl.Field().String())
		})
		_ = validate.RegisterValidation("notblank", func(fl playground.FieldLevel) bool {
			return !IsEmpty(fl.Field().String())
		})
	})
	return validate
}

// Struct validates v against its `validate` struct tags and converts failures
// into ValidationErrors keyed by JSON field path.
func Struct(v interface{}) error {
	err := engine().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, ValidationError{
			Field:   fieldPath(fe),
			Message: messageFor(fe),
		})
	}
	return errs
}

// fieldPath strips the root struct name: "AttendanceExportRequest.data[0].sickCount" -> "data[0].sickCount".
func fieldPath(fe playground.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func messageFor(fe playground.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "this field is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "month_label":
		return "must be a month name followed by a year, e.g. \"Januari 2025\""
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
