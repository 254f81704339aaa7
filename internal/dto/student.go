package dto

import "time"

// CreateStudentRequest creates (or enrolls an existing) student. Password is
// generated when omitted.
type CreateStudentRequest struct {
	ID         string `json:"id" validate:"required,max=64,excludesall=/?#&"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"omitempty,min=6,max=72"`
	Course     string `json:"course" validate:"required"`
	SemesterID string `json:"semesterId" validate:"required"`
}

// CreateStudentResponse reports the outcome of an add call.
type CreateStudentResponse struct {
	ID                string         `json:"id"`
	Email             string         `json:"email"`
	Created           bool           `json:"created"`
	Enrollment        EnrollmentItem `json:"enrollment"`
	ReplacedSemesters int64          `json:"replacedSemesters,omitempty"`
	PaymentLink       string         `json:"paymentLink,omitempty"`
	GeneratedPassword string         `json:"generatedPassword,omitempty"`
}

// RemoveEnrollmentRequest removes a single enrollment.
type RemoveEnrollmentRequest struct {
	ID         string `json:"id" validate:"required"`
	Course     string `json:"course" validate:"required"`
	SemesterID string `json:"semesterId" validate:"required"`
}

// ValidateStudentRequest authenticates a student. Admin optionally narrows
// the returned enrollments to those created by that admin.
type ValidateStudentRequest struct {
	ID       string `json:"id" validate:"required"`
	Password string `json:"password" validate:"required"`
	Admin    string `json:"admin"`
}

// EnrollmentItem is the client view of an enrollment.
type EnrollmentItem struct {
	Course     string `json:"course"`
	SemesterID string `json:"semesterId"`
	Admin      string `json:"admin,omitempty"`
}

// StudentLoginResponse is returned to paid, active students.
type StudentLoginResponse struct {
	Token       string           `json:"token"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	StudentID   string           `json:"studentId"`
	Enrollments []EnrollmentItem `json:"enrollments"`
}

// StudentIDRequest identifies a student for lifecycle transitions.
type StudentIDRequest struct {
	ID string `json:"id" validate:"required"`
}

// StudentStatusResponse reflects the flags after a lifecycle transition.
type StudentStatusResponse struct {
	ID          string     `json:"id"`
	Paid        bool       `json:"paid"`
	Active      bool       `json:"active"`
	PaymentDate *time.Time `json:"paymentDate,omitempty"`
}

// StudentSummary groups a student's enrollments as course -> semester.
type StudentSummary struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Enrollments map[string]string `json:"enrollments"`
}

// WhoAmIResponse echoes the caller identity.
type WhoAmIResponse struct {
	User string `json:"user"`
	Role string `json:"role"`
}
