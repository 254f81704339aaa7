package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursepass-api/internal/dto"
	"github.com/noah-isme/coursepass-api/internal/models"
)

func TestAdminValidateIssuesRoleToken(t *testing.T) {
	f := newFixture(t)
	f.seedAdmin(t, "root", "rootpass", models.RoleSuperAdmin)
	ctx := context.Background()

	res, err := f.admins.Validate(ctx, dto.AdminCredentialsRequest{Name: "root", Password: "rootpass"})
	require.NoError(t, err)
	assert.Equal(t, "SUPERADMIN", res.Role)

	role, err := f.tokens.ExtractRole(res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, role)

	_, err = f.admins.Validate(ctx, dto.AdminCredentialsRequest{Name: "root", Password: "nope"})
	requireAppError(t, err, http.StatusUnauthorized)
	_, err = f.admins.Validate(ctx, dto.AdminCredentialsRequest{Name: "ghost", Password: "nope"})
	requireAppError(t, err, http.StatusUnauthorized)
}

func TestAdminAddRequiresSuperAdminAndUniqueName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.admins.Add(ctx, alice, dto.CreateAdminRequest{Name: "carol", Password: "secret1"})
	requireAppError(t, err, http.StatusForbidden)

	summary, err := f.admins.Add(ctx, superadmin, dto.CreateAdminRequest{Name: "carol", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", summary.Role)

	_, err = f.admins.Add(ctx, superadmin, dto.CreateAdminRequest{Name: "carol", Password: "secret1"})
	requireAppError(t, err, http.StatusConflict)

	_, err = f.admins.Add(ctx, superadmin, dto.CreateAdminRequest{Name: "dave", Password: "123"})
	requireAppError(t, err, http.StatusBadRequest)

	stored, ok := f.store.Admin("carol")
	require.True(t, ok)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.True(t, passwordMatches(stored.PasswordHash, "secret1"))
}

func TestAdminCannotRemoveSelf(t *testing.T) {
	f := newFixture(t)
	f.seedAdmin(t, "root", "rootpass", models.RoleSuperAdmin)
	f.seedAdmin(t, "alice", "alicepass", models.RoleAdmin)
	ctx := context.Background()

	err := f.admins.Remove(ctx, superadmin, dto.AdminNameRequest{Name: "root"})
	requireAppError(t, err, http.StatusBadRequest)
	_, ok := f.store.Admin("root")
	assert.True(t, ok)

	require.NoError(t, f.admins.Remove(ctx, superadmin, dto.AdminNameRequest{Name: "alice"}))
	err = f.admins.Remove(ctx, superadmin, dto.AdminNameRequest{Name: "alice"})
	requireAppError(t, err, http.StatusNotFound)
}

func TestAdminListAndContains(t *testing.T) {
	f := newFixture(t)
	f.seedAdmin(t, "root", "rootpass", models.RoleSuperAdmin)
	f.seedAdmin(t, "alice", "alicepass", models.RoleAdmin)
	ctx := context.Background()

	list, err := f.admins.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []dto.AdminSummary{{Name: "alice", Role: "ADMIN"}, {Name: "root", Role: "SUPERADMIN"}}, list)

	res, err := f.admins.Contains(ctx, dto.AdminNameRequest{Name: "alice"})
	require.NoError(t, err)
	assert.True(t, res.Exists)
	res, err = f.admins.Contains(ctx, dto.AdminNameRequest{Name: "zed"})
	require.NoError(t, err)
	assert.False(t, res.Exists)
}

func TestAdminUpdatePasswordRules(t *testing.T) {
	f := newFixture(t)
	f.seedAdmin(t, "alice", "alicepass", models.RoleAdmin)
	f.seedAdmin(t, "bob", "bobpass", models.RoleAdmin)
	ctx := context.Background()

	err := f.admins.UpdatePassword(ctx, alice, dto.UpdatePasswordRequest{TargetID: "bob", NewPassword: "changed1", Type: dto.PasswordTargetAdmin})
	requireAppError(t, err, http.StatusForbidden)

	require.NoError(t, f.admins.UpdatePassword(ctx, alice, dto.UpdatePasswordRequest{TargetID: "alice", NewPassword: "changed1", Type: dto.PasswordTargetAdmin}))
	require.NoError(t, f.admins.UpdatePassword(ctx, superadmin, dto.UpdatePasswordRequest{TargetID: "bob", NewPassword: "changed2", Type: dto.PasswordTargetAdmin}))

	stored, _ := f.store.Admin("bob")
	assert.True(t, passwordMatches(stored.PasswordHash, "changed2"))

	err = f.admins.UpdatePassword(ctx, superadmin, dto.UpdatePasswordRequest{TargetID: "ghost", NewPassword: "changed2", Type: dto.PasswordTargetAdmin})
	requireAppError(t, err, http.StatusNotFound)
}

func TestAdminUpdateStudentPasswordDelegatesOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.students.Create(ctx, alice, createReq("s1", "cs101", "2026S"))
	require.NoError(t, err)

	err = f.admins.UpdateStudentPassword(ctx, bob, dto.UpdateStudentPasswordRequest{StudentID: "s1", NewPassword: "changed1"})
	requireAppError(t, err, http.StatusForbidden)

	require.NoError(t, f.admins.UpdateStudentPassword(ctx, alice, dto.UpdateStudentPasswordRequest{StudentID: "s1", NewPassword: "changed1"}))
	require.NoError(t, f.admins.UpdatePassword(ctx, alice, dto.UpdatePasswordRequest{TargetID: "s1", NewPassword: "changed2", Type: dto.PasswordTargetStudent}))

	stored, _ := f.store.Student("s1")
	assert.True(t, passwordMatches(stored.PasswordHash, "changed2"))
}

func TestEnsureSuperAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.admins.EnsureSuperAdmin(ctx, "root", "rootpass")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.admins.EnsureSuperAdmin(ctx, "root", "otherpass")
	require.NoError(t, err)
	assert.False(t, created)

	stored, _ := f.store.Admin("root")
	assert.Equal(t, models.RoleSuperAdmin, stored.Role)
	assert.True(t, passwordMatches(stored.PasswordHash, "rootpass"))

	created, err = f.admins.EnsureSuperAdmin(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAdminResetPassword(t *testing.T) {
	f := newFixture(t)
	f.seedAdmin(t, "root", "rootpass", models.RoleSuperAdmin)
	ctx := context.Background()

	requireAppError(t, f.admins.ResetPassword(ctx, "root", "123"), http.StatusBadRequest)
	requireAppError(t, f.admins.ResetPassword(ctx, "root", strings.Repeat("p", 80)), http.StatusBadRequest)
	require.NoError(t, f.admins.ResetPassword(ctx, "root", "brandnew"))
	requireAppError(t, f.admins.ResetPassword(ctx, "ghost", "brandnew"), http.StatusNotFound)
}
