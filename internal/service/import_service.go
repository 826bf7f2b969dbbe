package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/metrics"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/repository"
)

// ImportResult is the outcome of a bulk import. Errors holds one message per
// rejected row ("Row N: ...", 1-based) and, on a storage failure, a final
// "Database error: ..." entry.
type ImportResult struct {
	Created []model.Grade
	Errors  []string
	Total   int
}

// Failed is the number of rows that did not produce a grade.
func (r *ImportResult) Failed() int { return r.Total - len(r.Created) }

// ImportService creates grades in bulk from untyped rows.
type ImportService struct {
	store     GradeStore
	recorder  *HistoryRecorder
	publisher HistoryPublisher
	log       zerolog.Logger
}

// NewImportService creates a new ImportService.
func NewImportService(store GradeStore, recorder *HistoryRecorder, publisher HistoryPublisher, log zerolog.Logger) *ImportService {
	if publisher == nil {
		publisher = NopHistoryPublisher{}
	}
	return &ImportService{
		store:     store,
		recorder:  recorder,
		publisher: publisher,
		log:       log.With().Str("component", "import_service").Logger(),
	}
}

// BulkCreate validates every row independently and persists all valid rows,
// each with a create history entry, in one transaction. Invalid rows never
// block the others. A storage failure rolls the whole batch back and the
// returned error wraps ErrStorage.
func (s *ImportService) BulkCreate(ctx context.Context, rows []model.GradeRecord, v *GradeValidator, changedBy *string) (*ImportResult, error) {
	if v == nil {
		v = DefaultGradeValidator()
	}
	result := &ImportResult{Created: []model.Grade{}, Errors: []string{}, Total: len(rows)}

	valid := make([]model.Grade, 0, len(rows))
	for i, row := range rows {
		g, err := v.ValidateGradeData(row)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", i+1, err.Error()))
			continue
		}
		valid = append(valid, g)
	}

	if len(valid) == 0 {
		metrics.RecordImport(0, len(result.Errors), 0)
		return result, nil
	}

	entries := make([]model.GradeHistory, 0, len(valid))
	err := s.store.InTx(ctx, func(tx repository.GradeTx) error {
		entries = entries[:0]
		for i := range valid {
			if err := tx.InsertGrade(ctx, &valid[i]); err != nil {
				return err
			}
			val := valid[i].Grade
			entry, err := s.recorder.Record(ctx, tx, valid[i], nil, &val, model.HistoryCreate, changedBy)
			if err != nil {
				return err
			}
			entries = append(entries, *entry)
		}
		return nil
	})
	if err != nil {
		result.Errors = append(result.Errors, "Database error: "+err.Error())
		metrics.RecordImport(0, result.Total-len(valid), len(valid))
		s.log.Error().Err(err).Int("rows", len(valid)).Msg("Bulk import rolled back")
		return result, fmt.Errorf("bulk create: %w: %v", ErrStorage, err)
	}

	result.Created = valid
	metrics.RecordImport(len(valid), result.Total-len(valid), 0)
	for range entries {
		metrics.RecordGradeMutation(string(model.HistoryCreate))
	}
	s.publisher.Publish(ctx, entries...)

	s.log.Info().
		Int("total", result.Total).
		Int("created", len(result.Created)).
		Int("failed", result.Failed()).
		Msg("Bulk import committed")
	return result, nil
}
