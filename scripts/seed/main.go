// Command seed loads a demo dataset into an empty database: an admin account,
// two teachers with linked logins, the weekly slot grid, and a handful of
// conflict-free schedule assignments for the active term.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-timetable-api/pkg/config"
	"github.com/noah-isme/school-timetable-api/pkg/database"
)

func main() {
	var adminPassword string
	flag.StringVar(&adminPassword, "admin-password", "admin123", "Password for the seeded admin account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := seed(db, adminPassword); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	log.Println("seed complete")
}

func seed(db *sqlx.DB, adminPassword string) error {
	now := time.Now().UTC()

	termID := uuid.NewString()
	if _, err := db.Exec(
		`INSERT INTO terms (id, name, academic_year, start_date, end_date, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)`,
		termID, "Fall Term", "2026/2027",
		time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.December, 20, 0, 0, 0, 0, time.UTC),
		now,
	); err != nil {
		return fmt.Errorf("insert term: %w", err)
	}

	teacherIDs := make([]string, 0, 2)
	for _, t := range []struct{ email, name, subjects string }{
		{"a.noether@example.edu", "Amalie Noether", "Mathematics"},
		{"r.feynman@example.edu", "Richard Feynman", "Physics"},
	} {
		id := uuid.NewString()
		teacherIDs = append(teacherIDs, id)
		if _, err := db.Exec(
			`INSERT INTO teachers (id, email, full_name, phone, subjects, active, created_at, updated_at)
			 VALUES ($1, $2, $3, NULL, $4, TRUE, $5, $5)`,
			id, t.email, t.name, t.subjects, now,
		); err != nil {
			return fmt.Errorf("insert teacher %s: %w", t.email, err)
		}
	}

	groupID := uuid.NewString()
	if _, err := db.Exec(
		`INSERT INTO class_groups (id, name, section, year, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		groupID, "10-A", "A", 10, now,
	); err != nil {
		return fmt.Errorf("insert class group: %w", err)
	}

	roomID := uuid.NewString()
	if _, err := db.Exec(
		`INSERT INTO rooms (id, name, building, capacity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		roomID, "201", "Main", 30, now,
	); err != nil {
		return fmt.Errorf("insert room: %w", err)
	}

	subjectIDs := make([]string, 0, 2)
	for _, s := range []struct{ code, name string }{
		{"MATH10", "Mathematics"},
		{"PHYS10", "Physics"},
	} {
		id := uuid.NewString()
		subjectIDs = append(subjectIDs, id)
		if _, err := db.Exec(
			`INSERT INTO subjects (id, code, name, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
			id, s.code, s.name, now,
		); err != nil {
			return fmt.Errorf("insert subject %s: %w", s.code, err)
		}
	}

	// Two lesson periods per weekday.
	days := []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY"}
	periods := [][2]string{{"08:00", "08:45"}, {"09:00", "09:45"}}
	slotIDs := make([]string, 0, len(days)*len(periods))
	for _, day := range days {
		for _, p := range periods {
			id := uuid.NewString()
			slotIDs = append(slotIDs, id)
			if _, err := db.Exec(
				`INSERT INTO time_slots (id, day_of_week, start_time, end_time, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $5)`,
				id, day, p[0], p[1], now,
			); err != nil {
				return fmt.Errorf("insert time slot %s %s: %w", day, p[0], err)
			}
		}
	}

	// Teachers default to available in every slot. Absence of a row means
	// unavailable, so a usable demo needs the full grid filled in.
	for _, teacherID := range teacherIDs {
		for _, slotID := range slotIDs {
			if _, err := db.Exec(
				`INSERT INTO teacher_availabilities (id, teacher_id, time_slot_id, is_available, reason, created_at, updated_at)
				 VALUES ($1, $2, $3, TRUE, '', $4, $4)`,
				uuid.NewString(), teacherID, slotID, now,
			); err != nil {
				return fmt.Errorf("insert availability: %w", err)
			}
		}
	}

	// One lesson per teacher in different slots so nothing collides.
	for i, teacherID := range teacherIDs {
		if _, err := db.Exec(
			`INSERT INTO class_schedules (id, term_id, class_group_id, subject_id, teacher_id, time_slot_id, room_id, is_recurring, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $8)`,
			uuid.NewString(), termID, groupID, subjectIDs[i], teacherID, slotIDs[i], roomID, now,
		); err != nil {
			return fmt.Errorf("insert schedule: %w", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := db.Exec(
		`INSERT INTO users (id, email, password_hash, full_name, role, teacher_id, class_group_id, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 'ADMIN', NULL, NULL, TRUE, $5, $5)`,
		uuid.NewString(), "admin@example.edu", string(hash), "Site Admin", now,
	); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}

	teacherHash, err := bcrypt.GenerateFromPassword([]byte("teacher123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash teacher password: %w", err)
	}
	for i, teacherID := range teacherIDs {
		if _, err := db.Exec(
			`INSERT INTO users (id, email, password_hash, full_name, role, teacher_id, class_group_id, active, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, 'TEACHER', $5, NULL, TRUE, $6, $6)`,
			uuid.NewString(), fmt.Sprintf("teacher%d@example.edu", i+1), string(teacherHash), "Teacher Login", teacherID, now,
		); err != nil {
			return fmt.Errorf("insert teacher user: %w", err)
		}
	}

	return nil
}
