package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/metrics"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/repository"
)

// GradeStore is the persistence contract of the grade service.
type GradeStore interface {
	InTx(ctx context.Context, fn func(tx repository.GradeTx) error) error
	GetByID(ctx context.Context, id int) (*model.Grade, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.Grade, error)
}

// GradeService creates, updates and deletes grades. Every mutation and its
// history entry commit together or not at all.
type GradeService struct {
	store     GradeStore
	recorder  *HistoryRecorder
	publisher HistoryPublisher
	validator *GradeValidator
	log       zerolog.Logger
}

// NewGradeService creates a new GradeService.
func NewGradeService(store GradeStore, recorder *HistoryRecorder, publisher HistoryPublisher,
	validator *GradeValidator, log zerolog.Logger) *GradeService {
	if publisher == nil {
		publisher = NopHistoryPublisher{}
	}
	if validator == nil {
		validator = DefaultGradeValidator()
	}
	return &GradeService{
		store:     store,
		recorder:  recorder,
		publisher: publisher,
		validator: validator,
		log:       log.With().Str("component", "grade_service").Logger(),
	}
}

// WithValidator returns a copy of the service that validates with v.
func (s *GradeService) WithValidator(v *GradeValidator) *GradeService {
	cp := *s
	cp.validator = v
	return &cp
}

// Validator returns the validator in use.
func (s *GradeService) Validator() *GradeValidator { return s.validator }

// Create validates and stores a new grade.
func (s *GradeService) Create(ctx context.Context, studentID int, subject string, value any, changedBy *string) (*model.Grade, error) {
	return s.CreateFromRecord(ctx, model.GradeRecord{
		"student_id": studentID,
		"subject":    subject,
		"grade":      value,
	}, changedBy)
}

// CreateFromRecord validates a raw record (e.g. a decoded JSON body) and stores it.
func (s *GradeService) CreateFromRecord(ctx context.Context, rec model.GradeRecord, changedBy *string) (*model.Grade, error) {
	grade, err := s.validator.ValidateGradeData(rec)
	if err != nil {
		return nil, err
	}

	var entry *model.GradeHistory
	err = s.store.InTx(ctx, func(tx repository.GradeTx) error {
		if err := tx.InsertGrade(ctx, &grade); err != nil {
			return err
		}
		v := grade.Grade
		entry, err = s.recorder.Record(ctx, tx, grade, nil, &v, model.HistoryCreate, changedBy)
		return err
	})
	if err != nil {
		return nil, storageErr("create grade", err)
	}

	s.committed(ctx, entry)
	s.log.Info().Int("grade_id", grade.ID).Int("student_id", grade.StudentID).
		Str("subject", grade.Subject).Msg("Grade created")
	return &grade, nil
}

// Update changes a grade's value. An unchanged value returns the current
// grade without writing history.
func (s *GradeService) Update(ctx context.Context, gradeID int, value any, changedBy *string) (*model.Grade, error) {
	newValue, err := s.validator.ValidateGrade(value)
	if err != nil {
		return nil, err
	}

	var (
		result *model.Grade
		entry  *model.GradeHistory
	)
	err = s.store.InTx(ctx, func(tx repository.GradeTx) error {
		current, err := tx.LockGrade(ctx, gradeID)
		if err != nil {
			return err
		}
		if current.Grade == newValue {
			result = current
			return nil
		}

		oldValue := current.Grade
		updated, err := tx.UpdateGradeValue(ctx, gradeID, newValue)
		if err != nil {
			return err
		}
		entry, err = s.recorder.Record(ctx, tx, *updated, &oldValue, &newValue, model.HistoryUpdate, changedBy)
		result = updated
		return err
	})
	if err != nil {
		return nil, storageErr("update grade", err)
	}

	if entry != nil {
		s.committed(ctx, entry)
		s.log.Info().Int("grade_id", gradeID).Int("old", *entry.OldValue).Int("new", newValue).Msg("Grade updated")
	}
	return result, nil
}

// Delete removes a grade and returns its values as they were before deletion.
func (s *GradeService) Delete(ctx context.Context, gradeID int, changedBy *string) (*model.Grade, error) {
	var (
		snapshot *model.Grade
		entry    *model.GradeHistory
	)
	err := s.store.InTx(ctx, func(tx repository.GradeTx) error {
		current, err := tx.LockGrade(ctx, gradeID)
		if err != nil {
			return err
		}
		if err := tx.DeleteGrade(ctx, gradeID); err != nil {
			return err
		}
		oldValue := current.Grade
		entry, err = s.recorder.Record(ctx, tx, *current, &oldValue, nil, model.HistoryDelete, changedBy)
		snapshot = current
		return err
	})
	if err != nil {
		return nil, storageErr("delete grade", err)
	}

	s.committed(ctx, entry)
	s.log.Info().Int("grade_id", gradeID).Msg("Grade deleted")
	return snapshot, nil
}

// GetByID returns one grade.
func (s *GradeService) GetByID(ctx context.Context, id int) (*model.Grade, error) {
	g, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get grade", err)
	}
	return g, nil
}

// ListByStudent returns every grade of a student.
func (s *GradeService) ListByStudent(ctx context.Context, studentID int) ([]model.Grade, error) {
	grades, err := s.store.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, storageErr("list grades", err)
	}
	return grades, nil
}

func (s *GradeService) committed(ctx context.Context, entry *model.GradeHistory) {
	metrics.RecordGradeMutation(string(entry.Action))
	s.publisher.Publish(ctx, *entry)
}

// storageErr maps repository errors onto the service taxonomy. Validation
// errors and service sentinels pass through untouched.
func storageErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrAlreadyEnrolled), errors.Is(err, ErrConflict):
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
}
