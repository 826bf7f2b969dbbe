package service

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stemsi/gradebook-backend/internal/model"
)

func TestNewGradeValidatorRejectsInvertedRange(t *testing.T) {
	if _, err := NewGradeValidator(90, 60); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
	if _, err := NewGradeValidator(50, 50); err != nil {
		t.Fatalf("equal bounds rejected: %v", err)
	}
}

func TestValidateGrade(t *testing.T) {
	v, err := NewGradeValidator(60, 100)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		value    any
		want     int
		wantKind ValidationKind
		wantMsg  string
	}{
		{name: "lower bound", value: 60, want: 60},
		{name: "upper bound", value: 100, want: 100},
		{name: "below range", value: 59, wantKind: OutOfRange, wantMsg: "Grade must be between 60 and 100, got: 59"},
		{name: "above range", value: "101", wantKind: OutOfRange, wantMsg: "Grade must be between 60 and 100, got: 101"},
		{name: "padded string", value: " 85 ", want: 85},
		{name: "integral float", value: 85.0, want: 85},
		{name: "json number", value: json.Number("75"), want: 75},
		{name: "fractional float", value: 85.5, wantKind: InvalidType, wantMsg: "Grade must be a valid integer, got: 85.5"},
		{name: "word", value: "abc", wantKind: InvalidType, wantMsg: "Grade must be a valid integer, got: abc"},
		{name: "decimal string", value: "85.0", wantKind: InvalidType},
		{name: "nil", value: nil, wantKind: InvalidType, wantMsg: "Grade must be a valid integer, got: null"},
		{name: "bool", value: true, wantKind: InvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateGrade(tt.value)
			if tt.wantKind == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Errorf("got %d, want %d", got, tt.want)
				}
				return
			}
			ve, ok := AsValidation(err)
			if !ok {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("ValidationError does not match ErrValidation")
			}
			if ve.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", ve.Kind, tt.wantKind)
			}
			if tt.wantMsg != "" && ve.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", ve.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidateGradeDataSubjectLength(t *testing.T) {
	v := DefaultGradeValidator()

	g, err := v.ValidateGradeData(model.GradeRecord{"student_id": 1, "subject": strings.Repeat("é", MaxSubjectLength), "grade": 80})
	if err != nil {
		t.Fatalf("subject at the limit rejected: %v", err)
	}
	if len([]rune(g.Subject)) != MaxSubjectLength {
		t.Errorf("subject length = %d", len([]rune(g.Subject)))
	}

	padded := "  " + strings.Repeat("b", MaxSubjectLength) + "  "
	if _, err := v.ValidateGradeData(model.GradeRecord{"student_id": 1, "subject": padded, "grade": 80}); err != nil {
		t.Errorf("padding counted toward length: %v", err)
	}
}

func TestValidateGradeData(t *testing.T) {
	v := DefaultGradeValidator()

	tests := []struct {
		name     string
		rec      model.GradeRecord
		wantKind ValidationKind
		wantMsg  string
	}{
		{
			name:     "missing fields listed in order",
			rec:      model.GradeRecord{"student_id": 1},
			wantKind: MissingField,
			wantMsg:  "Missing required fields: subject, grade",
		},
		{
			name:     "non-integer student",
			rec:      model.GradeRecord{"student_id": "x", "subject": "Math", "grade": 90},
			wantKind: InvalidType,
			wantMsg:  "Student ID must be a valid integer, got: x",
		},
		{
			name:     "non-positive student",
			rec:      model.GradeRecord{"student_id": "-3", "subject": "Math", "grade": 90},
			wantKind: InvalidType,
			wantMsg:  "Student ID must be a positive integer, got: -3",
		},
		{
			name:     "blank subject",
			rec:      model.GradeRecord{"student_id": 1, "subject": "   ", "grade": 90},
			wantKind: EmptyField,
			wantMsg:  "Subject cannot be empty",
		},
		{
			name:     "subject too long",
			rec:      model.GradeRecord{"student_id": 1, "subject": strings.Repeat("a", 150), "grade": 80},
			wantKind: InvalidType,
			wantMsg:  "Subject must be at most 100 characters, got: 150",
		},
		{
			name:     "grade out of range",
			rec:      model.GradeRecord{"student_id": 1, "subject": "Math", "grade": "150"},
			wantKind: OutOfRange,
			wantMsg:  "Grade must be between 0 and 100, got: 150",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateGradeData(tt.rec)
			ve, ok := AsValidation(err)
			if !ok {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Kind != tt.wantKind || ve.Message != tt.wantMsg {
				t.Errorf("got (%v, %q), want (%v, %q)", ve.Kind, ve.Message, tt.wantKind, tt.wantMsg)
			}
		})
	}

	g, err := v.ValidateGradeData(model.GradeRecord{"student_id": " 7 ", "subject": "  Math ", "grade": "88"})
	if err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}
	if g.StudentID != 7 || g.Subject != "Math" || g.Grade != 88 {
		t.Errorf("normalized grade = %+v", g)
	}
}
