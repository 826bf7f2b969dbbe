package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/stemsi/gradebook-backend/internal/config"
	"github.com/stemsi/gradebook-backend/internal/database"
	"github.com/stemsi/gradebook-backend/internal/logger"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/repository"
	"github.com/stemsi/gradebook-backend/internal/service"
)

var names = []string{
	"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
	"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
	"Hendra Gunawan", "Ika Sari", "Lukman Hakim", "Maya Septiana", "Nanda Pratama",
	"Oki Setiana", "Putri Dian", "Rafi Ahmad", "Toni Setiawan", "Wahyu Hidayat",
}

var courses = []struct{ name, subjects string }{
	{"Mathematics 101", "Mathematics,Math Quiz"},
	{"Science Basics", "Physics,Chemistry,Biology"},
	{"English Literature", "English Essay,Reading"},
}

func main() {
	var count int
	var seed uint64
	flag.IntVar(&count, "students", 20, "Number of students to create")
	flag.Uint64Var(&seed, "seed", 1, "Random seed for generated grades")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	gradeRepo := repository.NewGradeRepository(pool)
	studentService := service.NewStudentService(repository.NewStudentRepository(pool))
	courseService := service.NewCourseService(repository.NewCourseRepository(pool), repository.NewEnrollmentRepository(pool), log)
	// No publisher: seeding should not flood live history subscribers.
	gradeService := service.NewGradeService(gradeRepo, service.NewHistoryRecorder(), nil, nil, log)

	rng := rand.New(rand.NewPCG(seed, seed))
	actor := "seed"

	fmt.Printf("=== Seeding %d Students ===\n", count)

	studentIDs := make([]int, 0, count)
	for i := range count {
		name := names[i%len(names)]
		req := model.CreateStudentRequest{
			Name:  name,
			Email: fmt.Sprintf("%s.%d@students.example.com", strings.ToLower(strings.Fields(name)[0]), i+1),
		}
		st, err := studentService.Create(ctx, req)
		if err != nil {
			fmt.Printf("Error creating student %s: %v\n", req.Name, err)
			continue
		}
		studentIDs = append(studentIDs, st.ID)
		if (i+1)%10 == 0 {
			fmt.Printf("Created %d students...\n", i+1)
		}
	}

	gradeCount := 0
	for _, c := range courses {
		course, err := courseService.CreateCourse(ctx, model.CreateCourseRequest{Name: c.name})
		if err != nil {
			log.Fatal().Err(err).Str("course", c.name).Msg("Failed to create course")
		}
		res, err := courseService.EnrollMany(ctx, course.ID, studentIDs, &actor)
		if err != nil {
			log.Fatal().Err(err).Str("course", c.name).Msg("Failed to enroll students")
		}
		fmt.Println(res.Message)

		for _, id := range studentIDs {
			for _, subject := range strings.Split(c.subjects, ",") {
				value := 50 + rng.IntN(51)
				if _, err := gradeService.Create(ctx, id, subject, value, &actor); err != nil {
					if errors.Is(err, service.ErrValidation) {
						log.Fatal().Err(err).Msg("Seed produced an invalid grade")
					}
					fmt.Printf("Error grading student %d in %s: %v\n", id, subject, err)
					continue
				}
				gradeCount++
			}
		}
	}

	fmt.Printf("\nSeed completed! %d students, %d courses, %d grades.\n", len(studentIDs), len(courses), gradeCount)
}
