package models

import "time"

// Enrollment registers a student to a course for one semester. The
// (student, course, semester) triple is unique.
type Enrollment struct {
	StudentID  string    `db:"student_id" json:"studentId"`
	Course     string    `db:"course" json:"course"`
	SemesterID string    `db:"semester_id" json:"semesterId"`
	Admin      string    `db:"admin" json:"admin"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// EnrollmentFilter narrows enrollment listings. Empty fields match all.
type EnrollmentFilter struct {
	StudentID string
	Admin     string
	Course    string
}

// StudentEnrollmentRow is a joined student/enrollment row used for grouping.
type StudentEnrollmentRow struct {
	StudentID  string `db:"student_id"`
	Email      string `db:"email"`
	Course     string `db:"course"`
	SemesterID string `db:"semester_id"`
}
