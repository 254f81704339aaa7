package dto

import "time"

// AdminCredentialsRequest authenticates an admin.
type AdminCredentialsRequest struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateAdminRequest registers a new admin account. Role defaults to ADMIN.
type CreateAdminRequest struct {
	Name     string `json:"name" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN SUPERADMIN"`
}

// AdminNameRequest identifies an admin by name.
type AdminNameRequest struct {
	Name string `json:"name" validate:"required"`
}

// Password target types.
const (
	PasswordTargetAdmin   = "admin"
	PasswordTargetStudent = "student"
)

// UpdatePasswordRequest changes the password of an admin or a student.
type UpdatePasswordRequest struct {
	TargetID    string `json:"targetId" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
	Type        string `json:"type" validate:"required,oneof=admin student"`
}

// UpdateStudentPasswordRequest resets the password of a student the admin manages.
type UpdateStudentPasswordRequest struct {
	StudentID   string `json:"studentId" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

// AdminLoginResponse is returned after successful admin authentication.
type AdminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
}

// AdminSummary is the public listing view of an admin.
type AdminSummary struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// ContainsResponse answers an existence check.
type ContainsResponse struct {
	Exists bool `json:"exists"`
}
