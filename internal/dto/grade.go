package dto

import "time"

// SubmitGradeRequest records the grade of one assignment submission.
type SubmitGradeRequest struct {
	StudentID      string            `json:"studentId" validate:"required"`
	Course         string            `json:"course" validate:"required"`
	Assignment     string            `json:"assignment" validate:"required"`
	SemesterID     string            `json:"semesterId" validate:"required"`
	Grade          string            `json:"grade"`
	ConsoleOutput  string            `json:"consoleOutput"`
	SubmittedFiles map[string]string `json:"submittedFiles"`
	Admin          string            `json:"admin"`
	Timestamp      *time.Time        `json:"timestamp"`
}

// GradeListQuery filters the public grade listing.
type GradeListQuery struct {
	StudentID  string `form:"studentId"`
	Course     string `form:"course"`
	Assignment string `form:"assignment"`
	Admin      string `form:"admin"`
	SemesterID string `form:"semesterId"`
}

// GradeExportQuery selects the export format and, for superadmins, the admin scope.
type GradeExportQuery struct {
	Format     string `form:"format"`
	Admin      string `form:"admin"`
	Course     string `form:"course"`
	SemesterID string `form:"semesterId"`
}
