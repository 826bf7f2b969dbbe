package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/stemsi/gradebook-backend/internal/model"
)

// Default grade bounds, inclusive.
const (
	DefaultMinGrade = 0
	DefaultMaxGrade = 100
)

// MaxSubjectLength is the longest subject, in characters, the grades table holds.
const MaxSubjectLength = 100

var requiredGradeFields = []string{"student_id", "subject", "grade"}

// GradeValidator checks grade values against an inclusive [Min, Max] range.
type GradeValidator struct {
	lo int
	hi int
}

// NewGradeValidator returns a validator for [lo, hi], or ErrInvalidRange when lo > hi.
func NewGradeValidator(lo, hi int) (*GradeValidator, error) {
	if lo > hi {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidRange, lo, hi)
	}
	return &GradeValidator{lo: lo, hi: hi}, nil
}

// DefaultGradeValidator validates against [0, 100].
func DefaultGradeValidator() *GradeValidator {
	return &GradeValidator{lo: DefaultMinGrade, hi: DefaultMaxGrade}
}

// Min returns the lower bound.
func (v *GradeValidator) Min() int { return v.lo }

// Max returns the upper bound.
func (v *GradeValidator) Max() int { return v.hi }

// ValidateGrade interprets value as an integer and checks it against the range.
func (v *GradeValidator) ValidateGrade(value any) (int, error) {
	n, ok := toInt(value)
	if !ok {
		return 0, &ValidationError{
			Kind:    InvalidType,
			Field:   "grade",
			Message: fmt.Sprintf("Grade must be a valid integer, got: %s", display(value)),
		}
	}
	if n < v.lo || n > v.hi {
		return 0, &ValidationError{
			Kind:    OutOfRange,
			Field:   "grade",
			Message: fmt.Sprintf("Grade must be between %d and %d, got: %d", v.lo, v.hi, n),
		}
	}
	return n, nil
}

// ValidateGradeData checks a raw record and returns the normalized grade.
// Checks run in order: presence, student_id, subject (non-blank, length), grade.
func (v *GradeValidator) ValidateGradeData(rec model.GradeRecord) (model.Grade, error) {
	var missing []string
	for _, f := range requiredGradeFields {
		if _, ok := rec[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return model.Grade{}, &ValidationError{
			Kind:    MissingField,
			Field:   missing[0],
			Message: "Missing required fields: " + strings.Join(missing, ", "),
		}
	}

	studentID, ok := toInt(rec["student_id"])
	if !ok {
		return model.Grade{}, &ValidationError{
			Kind:    InvalidType,
			Field:   "student_id",
			Message: fmt.Sprintf("Student ID must be a valid integer, got: %s", display(rec["student_id"])),
		}
	}
	if studentID <= 0 {
		return model.Grade{}, &ValidationError{
			Kind:    InvalidType,
			Field:   "student_id",
			Message: fmt.Sprintf("Student ID must be a positive integer, got: %d", studentID),
		}
	}

	subject := ""
	if raw := rec["subject"]; raw != nil {
		subject = strings.TrimSpace(fmt.Sprint(raw))
	}
	if subject == "" {
		return model.Grade{}, &ValidationError{
			Kind:    EmptyField,
			Field:   "subject",
			Message: "Subject cannot be empty",
		}
	}
	if n := utf8.RuneCountInString(subject); n > MaxSubjectLength {
		return model.Grade{}, &ValidationError{
			Kind:    InvalidType,
			Field:   "subject",
			Message: fmt.Sprintf("Subject must be at most %d characters, got: %d", MaxSubjectLength, n),
		}
	}

	grade, err := v.ValidateGrade(rec["grade"])
	if err != nil {
		return model.Grade{}, err
	}

	return model.Grade{StudentID: studentID, Subject: subject, Grade: grade}, nil
}

// toInt accepts Go integers, integral floats, json.Number and base-10
// numeric strings (surrounding whitespace ignored). Values must fit a
// Postgres INTEGER column.
func toInt(value any) (int, bool) {
	n, ok := toInt64(value)
	if !ok || n > math.MaxInt32 || n < math.MinInt32 {
		return 0, false
	}
	return int(n), true
}

func toInt64(value any) (int64, bool) {
	switch x := value.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case json.Number:
		return parseIntString(string(x))
	case string:
		return parseIntString(x)
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int64(f), true
}

func parseIntString(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func display(value any) string {
	if value == nil {
		return "null"
	}
	return fmt.Sprint(value)
}
