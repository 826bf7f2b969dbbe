package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/model"
)

func seedGrades(t *testing.T, store *memGradeStore, grades ...model.Grade) {
	t.Helper()
	svc := NewGradeService(store, NewHistoryRecorder(), nil, nil, zerolog.Nop())
	for _, g := range grades {
		if _, err := svc.Create(context.Background(), g.StudentID, g.Subject, g.Grade, nil); err != nil {
			t.Fatalf("seed %+v: %v", g, err)
		}
	}
}

func TestStudentAverages(t *testing.T) {
	store := newMemGradeStore()
	seedGrades(t, store,
		model.Grade{StudentID: 1, Subject: "Math", Grade: 80},
		model.Grade{StudentID: 1, Subject: "Math", Grade: 90},
		model.Grade{StudentID: 1, Subject: "Science", Grade: 70},
	)
	svc := NewStatisticsService(store, newMemCourses(), memEnrollments{newMemCourses()})

	avg, err := svc.StudentAverages(context.Background(), 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if avg.SubjectAverages["Math"] != 85.0 || avg.SubjectAverages["Science"] != 70.0 {
		t.Errorf("subject averages = %v", avg.SubjectAverages)
	}
	if avg.OverallAverage == nil || *avg.OverallAverage != 80.0 {
		t.Errorf("overall = %v, want 80", avg.OverallAverage)
	}
	if avg.TotalGrades != 3 {
		t.Errorf("total = %d", avg.TotalGrades)
	}
}

func TestStudentAveragesNoGrades(t *testing.T) {
	svc := NewStatisticsService(newMemGradeStore(), newMemCourses(), memEnrollments{newMemCourses()})
	avg, err := svc.StudentAverages(context.Background(), 42, nil)
	if err != nil {
		t.Fatal(err)
	}
	if avg.OverallAverage != nil || len(avg.SubjectAverages) != 0 || avg.TotalGrades != 0 {
		t.Errorf("empty averages = %+v", avg)
	}
}

func TestStudentAveragesCourseFilter(t *testing.T) {
	store := newMemGradeStore()
	seedGrades(t, store,
		model.Grade{StudentID: 1, Subject: "Advanced Math", Grade: 90},
		model.Grade{StudentID: 1, Subject: "Biology", Grade: 60},
	)
	courses := newMemCourses(
		model.Course{ID: 1, Name: "MATH 101"},
		model.Course{ID: 2, Name: "Pottery"},
	)
	svc := NewStatisticsService(store, courses, memEnrollments{courses})
	ctx := context.Background()

	avg, err := svc.StudentAverages(ctx, 1, ptr(1))
	if err != nil {
		t.Fatal(err)
	}
	if avg.TotalGrades != 1 || *avg.OverallAverage != 90 {
		t.Errorf("filtered averages = %+v", avg)
	}

	fallback, err := svc.StudentAverages(ctx, 1, ptr(2))
	if err != nil {
		t.Fatal(err)
	}
	if fallback.TotalGrades != 2 || *fallback.OverallAverage != 75 {
		t.Errorf("fallback averages = %+v", fallback)
	}

	if _, err := svc.StudentAverages(ctx, 1, ptr(99)); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown course: err = %v", err)
	}
}

func TestCourseAverages(t *testing.T) {
	store := newMemGradeStore()
	seedGrades(t, store,
		model.Grade{StudentID: 1, Subject: "Math", Grade: 70},
		model.Grade{StudentID: 1, Subject: "Math", Grade: 90},
		model.Grade{StudentID: 3, Subject: "Math", Grade: 60},
		model.Grade{StudentID: 3, Subject: "Art", Grade: 100},
	)
	courses := newMemCourses(model.Course{ID: 1, Name: "Homeroom"})
	enroll := memEnrollments{courses}
	ctx := context.Background()
	for _, id := range []int{1, 2, 3} {
		if err := enroll.Create(ctx, &model.Enrollment{StudentID: id, CourseID: 1}); err != nil {
			t.Fatal(err)
		}
	}
	svc := NewStatisticsService(store, courses, enroll)

	avg, err := svc.CourseAverages(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if avg.TotalStudents != 3 || len(avg.StudentAverages) != 3 {
		t.Fatalf("students = %d / %d", avg.TotalStudents, len(avg.StudentAverages))
	}
	if avg.StudentAverages[0].StudentID != 1 || *avg.StudentAverages[0].Average != 80 {
		t.Errorf("student 1 = %+v", avg.StudentAverages[0])
	}
	if avg.StudentAverages[1].StudentID != 2 || avg.StudentAverages[1].Average != nil {
		t.Errorf("student 2 should have a nil average: %+v", avg.StudentAverages[1])
	}
	// Math: mean of per-student means (80, 60).
	if avg.SubjectAverages["Math"] != 70 || avg.SubjectAverages["Art"] != 100 {
		t.Errorf("subject averages = %v", avg.SubjectAverages)
	}
	// Overall: mean of student overalls (80, 80); student 2 excluded.
	if avg.OverallAverage == nil || *avg.OverallAverage != 80 {
		t.Errorf("overall = %v", avg.OverallAverage)
	}
}

func TestCourseAveragesTwoStudentsOneEmpty(t *testing.T) {
	store := newMemGradeStore()
	seedGrades(t, store, model.Grade{StudentID: 1, Subject: "Math", Grade: 80})
	courses := newMemCourses(model.Course{ID: 5, Name: "Math"})
	enroll := memEnrollments{courses}
	ctx := context.Background()
	_ = enroll.Create(ctx, &model.Enrollment{StudentID: 1, CourseID: 5})
	_ = enroll.Create(ctx, &model.Enrollment{StudentID: 2, CourseID: 5})

	avg, err := NewStatisticsService(store, courses, enroll).CourseAverages(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if avg.TotalStudents != 2 || avg.OverallAverage == nil || *avg.OverallAverage != 80 {
		t.Errorf("averages = %+v", avg)
	}

	if _, err := NewStatisticsService(store, courses, enroll).CourseAverages(ctx, 6); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown course: err = %v", err)
	}
}
