package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionAdminCreate     = "ADMIN_CREATE"
	AuditActionAdminDelete     = "ADMIN_DELETE"
	AuditActionPasswordChange  = "PASSWORD_CHANGE"
	AuditActionStudentCreate   = "STUDENT_CREATE"
	AuditActionEnroll          = "ENROLL"
	AuditActionUnenroll        = "UNENROLL"
	AuditActionStudentActivate = "STUDENT_ACTIVATE"
	AuditActionStudentApprove  = "STUDENT_APPROVE"
	AuditActionPaymentConfirm  = "PAYMENT_CONFIRM"
	AuditActionGradeSubmit     = "GRADE_SUBMIT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	Actor      string    `db:"actor" json:"actor"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID string    `db:"resource_id" json:"resourceId"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
