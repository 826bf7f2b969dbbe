package service

import (
	"context"
	"strings"

	"github.com/stemsi/gradebook-backend/internal/model"
	"golang.org/x/sync/errgroup"
)

// StudentGradeReader lists a student's grades.
type StudentGradeReader interface {
	ListByStudent(ctx context.Context, studentID int) ([]model.Grade, error)
}

// CourseReader looks up a course.
type CourseReader interface {
	GetByID(ctx context.Context, id int) (*model.Course, error)
}

// EnrollmentReader lists the students of a course.
type EnrollmentReader interface {
	StudentIDs(ctx context.Context, courseID int) ([]int, error)
}

// statsFanOut bounds concurrent per-student reads in CourseAverages.
const statsFanOut = 8

// StatisticsService computes grade averages. Results are unrounded.
type StatisticsService struct {
	grades      StudentGradeReader
	courses     CourseReader
	enrollments EnrollmentReader
}

// NewStatisticsService creates a new StatisticsService.
func NewStatisticsService(grades StudentGradeReader, courses CourseReader, enrollments EnrollmentReader) *StatisticsService {
	return &StatisticsService{grades: grades, courses: courses, enrollments: enrollments}
}

// StudentAverages returns per-subject and overall means for a student.
// With courseID set, grades are narrowed to subjects matching a keyword of
// the course name; when nothing matches, all grades are used.
func (s *StatisticsService) StudentAverages(ctx context.Context, studentID int, courseID *int) (*model.StudentAverages, error) {
	grades, err := s.grades.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, storageErr("list grades", err)
	}

	if courseID != nil {
		course, err := s.courses.GetByID(ctx, *courseID)
		if err != nil {
			return nil, storageErr("get course", err)
		}
		if related := filterByCourse(grades, course.Name); len(related) > 0 {
			grades = related
		}
	}

	avg := averages(grades)
	avg.StudentID = studentID
	return avg, nil
}

// CourseAverages aggregates StudentAverages (unfiltered) over every
// enrolled student. Students without grades are listed with a nil average
// and left out of the overall mean.
func (s *StatisticsService) CourseAverages(ctx context.Context, courseID int) (*model.CourseAverages, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, storageErr("get course", err)
	}
	studentIDs, err := s.enrollments.StudentIDs(ctx, courseID)
	if err != nil {
		return nil, storageErr("list enrollments", err)
	}

	perStudent := make([]*model.StudentAverages, len(studentIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statsFanOut)
	for i, id := range studentIDs {
		g.Go(func() error {
			avg, err := s.StudentAverages(gctx, id, nil)
			if err != nil {
				return err
			}
			perStudent[i] = avg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &model.CourseAverages{
		CourseID:        course.ID,
		CourseName:      course.Name,
		StudentAverages: make([]model.StudentAverage, 0, len(perStudent)),
		SubjectAverages: map[string]float64{},
		TotalStudents:   len(studentIDs),
	}

	subjectSums := map[string]float64{}
	subjectCounts := map[string]int{}
	var overallSum float64
	var overallCount int
	for _, avg := range perStudent {
		result.StudentAverages = append(result.StudentAverages, model.StudentAverage{
			StudentID: avg.StudentID,
			Average:   avg.OverallAverage,
		})
		for subject, mean := range avg.SubjectAverages {
			subjectSums[subject] += mean
			subjectCounts[subject]++
		}
		if avg.OverallAverage != nil {
			overallSum += *avg.OverallAverage
			overallCount++
		}
	}
	for subject, sum := range subjectSums {
		result.SubjectAverages[subject] = sum / float64(subjectCounts[subject])
	}
	if overallCount > 0 {
		mean := overallSum / float64(overallCount)
		result.OverallAverage = &mean
	}
	return result, nil
}

// averages computes subject means and the mean over all grades (not the
// mean of subject means).
func averages(grades []model.Grade) *model.StudentAverages {
	out := &model.StudentAverages{
		SubjectAverages: map[string]float64{},
		TotalGrades:     len(grades),
	}
	if len(grades) == 0 {
		return out
	}

	sums := map[string]int{}
	counts := map[string]int{}
	total := 0
	for _, g := range grades {
		sums[g.Subject] += g.Grade
		counts[g.Subject]++
		total += g.Grade
	}
	for subject, sum := range sums {
		out.SubjectAverages[subject] = float64(sum) / float64(counts[subject])
	}
	overall := float64(total) / float64(len(grades))
	out.OverallAverage = &overall
	return out
}

// filterByCourse keeps grades whose subject contains any whitespace
// separated keyword of courseName, case-insensitively.
// TODO: replace with a course_subjects mapping table once courses own subjects.
func filterByCourse(grades []model.Grade, courseName string) []model.Grade {
	keywords := strings.Fields(strings.ToLower(courseName))
	if len(keywords) == 0 {
		return nil
	}
	var related []model.Grade
	for _, g := range grades {
		subject := strings.ToLower(g.Subject)
		for _, kw := range keywords {
			if strings.Contains(subject, kw) {
				related = append(related, g)
				break
			}
		}
	}
	return related
}
