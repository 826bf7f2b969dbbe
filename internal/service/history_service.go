package service

import (
	"context"

	"github.com/stemsi/gradebook-backend/internal/model"
)

// HistoryStore reads the grade audit trail.
type HistoryStore interface {
	ListByGrade(ctx context.Context, gradeID int) ([]model.GradeHistory, error)
	ListByStudent(ctx context.Context, studentID int, q model.StudentHistoryQuery) ([]model.GradeHistory, error)
	List(ctx context.Context, q model.HistoryListQuery) ([]model.GradeHistory, int, error)
}

// HistoryService answers grade history queries.
type HistoryService struct {
	store HistoryStore
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(store HistoryStore) *HistoryService {
	return &HistoryService{store: store}
}

// ForGrade returns a grade's history, newest first.
func (s *HistoryService) ForGrade(ctx context.Context, gradeID int) ([]model.GradeHistory, error) {
	h, err := s.store.ListByGrade(ctx, gradeID)
	if err != nil {
		return nil, storageErr("grade history", err)
	}
	return h, nil
}

// ForStudent returns a student's history, newest first, filtered by q.
func (s *HistoryService) ForStudent(ctx context.Context, studentID int, q model.StudentHistoryQuery) ([]model.GradeHistory, error) {
	h, err := s.store.ListByStudent(ctx, studentID, q)
	if err != nil {
		return nil, storageErr("student history", err)
	}
	return h, nil
}

// Page returns one page of the global history.
func (s *HistoryService) Page(ctx context.Context, q model.HistoryListQuery) (*model.HistoryPage, error) {
	items, total, err := s.store.List(ctx, q)
	if err != nil {
		return nil, storageErr("list history", err)
	}
	pages := 1
	if total > 0 {
		pages = (total + q.Limit - 1) / q.Limit
	}
	return &model.HistoryPage{Items: items, Total: total, Page: q.Page, Pages: pages, Limit: q.Limit}, nil
}
