package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Grade is the latest submission result for one assignment. Keyed by
// (student, course, assignment, semester); resubmission overwrites.
type Grade struct {
	StudentID      string         `db:"student_id" json:"studentId"`
	Course         string         `db:"course" json:"course"`
	Assignment     string         `db:"assignment" json:"assignment"`
	SemesterID     string         `db:"semester_id" json:"semesterId"`
	Grade          string         `db:"grade" json:"grade"`
	ConsoleOutput  string         `db:"console_output" json:"consoleOutput"`
	SubmittedFiles SubmittedFiles `db:"submitted_files" json:"submittedFiles"`
	Admin          string         `db:"admin" json:"admin"`
	Timestamp      time.Time      `db:"timestamp" json:"timestamp"`
}

// GradeFilter narrows grade listings. Empty fields match all.
type GradeFilter struct {
	StudentID  string
	Course     string
	Assignment string
	Admin      string
	SemesterID string
}

// SubmittedFiles maps file names to their submitted contents, stored as JSONB.
type SubmittedFiles map[string]string

// Value marshals the files to JSON for persistence.
func (f SubmittedFiles) Value() (driver.Value, error) {
	if f == nil {
		f = SubmittedFiles{}
	}
	data, err := json.Marshal(map[string]string(f))
	if err != nil {
		return nil, fmt.Errorf("marshal submitted files: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the map.
func (f *SubmittedFiles) Scan(value interface{}) error {
	if value == nil {
		*f = SubmittedFiles{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported submitted files type %T", value)
	}
	out := SubmittedFiles{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("unmarshal submitted files: %w", err)
		}
	}
	*f = out
	return nil
}
