package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/coursepass-api/internal/dto"
	"github.com/noah-isme/coursepass-api/internal/models"
	"github.com/noah-isme/coursepass-api/internal/repository"
	appErrors "github.com/noah-isme/coursepass-api/pkg/errors"
)

type adminRepository interface {
	FindByName(ctx context.Context, name string) (*models.Admin, error)
	List(ctx context.Context) ([]models.Admin, error)
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, admin *models.Admin) error
	CreateIfAbsent(ctx context.Context, admin *models.Admin) (bool, error)
	UpdatePassword(ctx context.Context, name, passwordHash string) error
	Delete(ctx context.Context, name string) error
}

type studentPasswordResetter interface {
	ResetPassword(ctx context.Context, principal models.Principal, studentID, newPassword string) error
}

// AdminService manages operator accounts and their credentials.
type AdminService struct {
	admins    adminRepository
	students  studentPasswordResetter
	tokens    tokenIssuer
	audit     auditLogger
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(admins adminRepository, students studentPasswordResetter, tokens tokenIssuer, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AdminService{
		admins:    admins,
		students:  students,
		tokens:    tokens,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Validate checks admin credentials and issues a token carrying the stored role.
func (s *AdminService) Validate(ctx context.Context, req dto.AdminCredentialsRequest) (*dto.AdminLoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	admin, err := s.admins.FindByName(ctx, req.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordLogin(string(models.RoleAdmin), OutcomeFailure)
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid admin name or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admin")
	}
	if !passwordMatches(admin.PasswordHash, req.Password) {
		s.metrics.RecordLogin(string(admin.Role), OutcomeFailure)
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid admin name or password")
	}

	token, expiresAt, err := s.tokens.Issue(admin.Name, admin.Role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue token")
	}
	s.metrics.RecordLogin(string(admin.Role), OutcomeSuccess)
	return &dto.AdminLoginResponse{Token: token, ExpiresAt: expiresAt, Name: admin.Name, Role: string(admin.Role)}, nil
}

// Add registers a new admin. Only SUPERADMIN callers may add accounts.
func (s *AdminService) Add(ctx context.Context, principal models.Principal, req dto.CreateAdminRequest) (*dto.AdminSummary, error) {
	if !principal.IsSuperAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "superadmin role required")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin payload")
	}
	role := models.RoleAdmin
	if req.Role != "" {
		parsed, err := models.ParseRole(req.Role)
		if err != nil || !parsed.IsAdministrative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "role must be ADMIN or SUPERADMIN")
		}
		role = parsed
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, hashFailure(err)
	}
	admin := &models.Admin{Name: req.Name, PasswordHash: hash, Role: role, CreatedAt: time.Now().UTC()}
	if err := s.admins.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "admin already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admin")
	}
	recordAudit(ctx, s.audit, s.logger, principal.Subject, models.AuditActionAdminCreate, "admins", admin.Name,
		map[string]interface{}{"role": admin.Role})
	return &dto.AdminSummary{Name: admin.Name, Role: string(admin.Role)}, nil
}

// Remove deletes an admin account. Callers cannot remove themselves.
func (s *AdminService) Remove(ctx context.Context, principal models.Principal, req dto.AdminNameRequest) error {
	if !principal.IsSuperAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "superadmin role required")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin payload")
	}
	if req.Name == principal.Subject {
		return appErrors.Clone(appErrors.ErrValidation, "admins cannot remove their own account")
	}
	if err := s.admins.Delete(ctx, req.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "admin not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove admin")
	}
	recordAudit(ctx, s.audit, s.logger, principal.Subject, models.AuditActionAdminDelete, "admins", req.Name, nil)
	return nil
}

// List returns every admin without credentials.
func (s *AdminService) List(ctx context.Context) ([]dto.AdminSummary, error) {
	admins, err := s.admins.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list admins")
	}
	out := make([]dto.AdminSummary, 0, len(admins))
	for _, a := range admins {
		out = append(out, dto.AdminSummary{Name: a.Name, Role: string(a.Role)})
	}
	return out, nil
}

// Contains reports whether an admin with the given name exists.
func (s *AdminService) Contains(ctx context.Context, req dto.AdminNameRequest) (*dto.ContainsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin payload")
	}
	exists, err := s.admins.Exists(ctx, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check admin")
	}
	return &dto.ContainsResponse{Exists: exists}, nil
}

// UpdatePassword changes an admin or student password. ADMIN callers may only
// change their own admin password.
func (s *AdminService) UpdatePassword(ctx context.Context, principal models.Principal, req dto.UpdatePasswordRequest) error {
	if !principal.HasRole(models.RoleAdmin, models.RoleSuperAdmin) {
		return appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}
	if req.Type == dto.PasswordTargetStudent {
		return s.students.ResetPassword(ctx, principal, req.TargetID, req.NewPassword)
	}
	if !principal.IsSuperAdmin() && req.TargetID != principal.Subject {
		return appErrors.Clone(appErrors.ErrForbidden, "admins may only change their own password")
	}
	if err := s.setPassword(ctx, req.TargetID, req.NewPassword); err != nil {
		return err
	}
	recordAudit(ctx, s.audit, s.logger, principal.Subject, models.AuditActionPasswordChange, "admins", req.TargetID, nil)
	return nil
}

// UpdateStudentPassword resets the password of a student managed by the caller.
func (s *AdminService) UpdateStudentPassword(ctx context.Context, principal models.Principal, req dto.UpdateStudentPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}
	return s.students.ResetPassword(ctx, principal, req.StudentID, req.NewPassword)
}

// EnsureSuperAdmin creates the bootstrap superadmin unless an admin with that
// name already exists. It reports whether an account was created.
func (s *AdminService) EnsureSuperAdmin(ctx context.Context, name, password string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return false, nil
	}
	hash, err := hashPassword(password)
	if err != nil {
		return false, err
	}
	created, err := s.admins.CreateIfAbsent(ctx, &models.Admin{
		Name:         name,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return false, err
	}
	if created {
		s.logger.Info("superadmin bootstrapped", zap.String("name", name))
	}
	return created, nil
}

// ResetPassword sets an admin password without a principal. Used by the
// operator CLI.
func (s *AdminService) ResetPassword(ctx context.Context, name, password string) error {
	if len(password) < 6 {
		return appErrors.Clone(appErrors.ErrValidation, "password must be at least 6 characters")
	}
	return s.setPassword(ctx, name, password)
}

func (s *AdminService) setPassword(ctx context.Context, name, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return hashFailure(err)
	}
	if err := s.admins.UpdatePassword(ctx, name, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "admin not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update admin password")
	}
	return nil
}
