package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursepass-api/internal/dto"
	"github.com/noah-isme/coursepass-api/internal/models"
	appErrors "github.com/noah-isme/coursepass-api/pkg/errors"
)

func createReq(id, course, semester string) dto.CreateStudentRequest {
	return dto.CreateStudentRequest{ID: id, Email: id + "@example.com", Password: "secret1", Course: course, SemesterID: semester}
}

func TestCreateStudentIssuesPaymentLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.students.Create(ctx, alice, dto.CreateStudentRequest{ID: "s1", Email: "s1@example.com", Course: "cs101", SemesterID: "2026S"})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.NotEmpty(t, res.PaymentLink)
	assert.Len(t, res.GeneratedPassword, 16)

	stored, ok := f.store.Student("s1")
	require.True(t, ok)
	assert.False(t, stored.Paid)
	assert.False(t, stored.Active)
	assert.Equal(t, res.PaymentLink, stored.PaymentLink)
	assert.True(t, passwordMatches(stored.PasswordHash, res.GeneratedPassword))
	assert.Equal(t, []string{"s1"}, f.notifier.Links)

	rows := f.store.EnrollmentRows()
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0].Admin)
	assert.Contains(t, f.store.AuditActions(), models.AuditActionStudentCreate)
}

func TestCreateStudentRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.students.Create(ctx, alice, createReq("s1", "cs101", "2026S"))
	require.NoError(t, err)

	req := createReq("s2", "cs101", "2026S")
	req.Email = "S1@example.com"
	_, err = f.students.Create(ctx, alice, req)
	requireAppError(t, err, http.StatusConflict)
}

func TestCreateStudentFailsWhenGatewayFails(t *testing.T) {
	f := newFixture(t)
	f.gateway.Fail = errors.New("stripe down")

	_, err := f.students.Create(context.Background(), alice, createReq("s1", "cs101", "2026S"))
	appErr := requireAppError(t, err, http.StatusInternalServerError)
	assert.Equal(t, appErrors.ErrPaymentProvider.Code, appErr.Code)

	_, ok := f.store.Student("s1")
	assert.False(t, ok)
}

func TestCreateStudentRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	student := models.NewPrincipal("s9", models.RoleStudent)
	_, err := f.students.Create(context.Background(), student, createReq("s1", "cs101", "2026S"))
	requireAppError(t, err, http.StatusForbidden)
}

func TestEnrollmentUniquenessAndSemesterReplacement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.students.Create(ctx, alice, createReq("s1", "cs101", "2026S"))
	require.NoError(t, err)

	_, err = f.students.Create(ctx, alice, createReq("s1", "cs101", "2026S"))
	requireAppError(t, err, http.StatusConflict)

	res, err := f.students.Create(ctx, bob, createReq("s1", "cs101", "2026F"))
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, int64(1), res.ReplacedSemesters)

	_, err = f.students.Create(ctx, bob, createReq("s1", "math200", "2026F"))
	require.NoError(t, err)

	rows := f.store.EnrollmentRows()
	require.Len(t, rows, 2)
	seen := map[string]string{}
	for _, r := range rows {
		seen[r.Course] = r.SemesterID
	}
	assert.Equal(t, map[string]string{"cs101": "2026F", "math200": "2026F"}, seen)
}

func TestRemoveEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.students.Create(ctx, alice, createReq("s1", "cs101", "2026S"))
	require.NoError(t, err)

	req := dto.RemoveEnrollmentRequest{ID: "s1", Course: "cs101", SemesterID: "2026S"}
	require.NoError(t, f.students.RemoveEnrollment(ctx, alice, req))
	assert.Empty(t, f.store.EnrollmentRows())

	err = f.students.RemoveEnrollment(ctx, alice, req)
	requireAppError(t, err, http.StatusNotFound)
}

func TestValidateRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	f.seedStudent(t, "s1", "secret1", true, true, nil)
	ctx := context.Background()

	_, err := f.students.Validate(ctx, dto.ValidateStudentRequest{ID: "s1", Password: "wrong"})
	requireAppError(t, err, http.StatusUnauthorized)

	_, err = f.students.Validate(ctx, dto.ValidateStudentRequest{ID: "ghost", Password: "secret1"})
	requireAppError(t, err, http.StatusUnauthorized)
}

func TestValidatePendingPaymentReturnsLink(t *testing.T) {
	f := newFixture(t)
	f.seedStudent(t, "s1", "secret1", false, false, nil)

	_, err := f.students.Validate(context.Background(), dto.ValidateStudentRequest{ID: "s1", Password: "secret1"})
	appErr := requireAppError(t, err, http.StatusForbidden)
	assert.Equal(t, appErrors.ErrPaymentRequired.Code, appErr.Code)
	assert.Equal(t, "Payment required", appErr.Message)

	stored, _ := f.store.Student("s1")
	assert.NotEmpty(t, stored.PaymentLink)
	assert.Equal(t, stored.PaymentLink, appErr.Details["paymentLink"])

	_, err = f.students.Validate(context.Background(), dto.ValidateStudentRequest{ID: "s1", Password: "secret1"})
	requireAppError(t, err, http.StatusForbidden)
	assert.Equal(t, 1, f.gateway.Sessions(), "stored link is reused")
}

func TestValidateExpiredAccessRegeneratesLink(t *testing.T) {
	f := newFixture(t)
	paidAt := f.clock.AddDate(-1, 0, -1)
	f.seedStudent(t, "s1", "secret1", true, true, &paidAt)

	_, err := f.students.Validate(context.Background(), dto.ValidateStudentRequest{ID: "s1", Password: "secret1"})
	appErr := requireAppError(t, err, http.StatusForbidden)
	assert.Equal(t, "Access expired", appErr.Message)
	assert.NotEmpty(t, appErr.Details["paymentLink"])

	stored, _ := f.store.Student("s1")
	assert.False(t, stored.Paid)
	assert.False(t, stored.Active)
	assert.Equal(t, appErr.Details["paymentLink"], stored.PaymentLink)
	assert.Equal(t, []string{"s1"}, f.notifier.Links)

	sessions := f.gateway.Sessions()
	link := stored.PaymentLink

	_, err = f.students.Validate(context.Background(), dto.ValidateStudentRequest{ID: "s1", Password: "secret1"})
	appErr = requireAppError(t, err, http.StatusForbidden)
	assert.Equal(t, "Access expired", appErr.Message)
	assert.Equal(t, link, appErr.Details["paymentLink"])
	assert.Equal(t, sessions, f.gateway.Sessions())
	assert.Equal(t, []string{"s1"}, f.notifier.Links)
}

func TestValidateInactiveAccount(t *testing.T) {
	f := newFixture(t)
	paidAt := f.clock.Add(-time.Hour)
	f.seedStudent(t, "s1", "secret1", true, false, &paidAt)

	_, err := f.students.Validate(context.Background(), dto.ValidateStudentRequest{ID: "s1", Password: "secret1"})
	appErr := requireAppError(t, err, http.StatusForbidden)
	assert.Equal(t, "Account inactive", appErr.Message)
}

func TestValidateActiveReturnsTokenAndFilteredEnrollments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.students.Create(ctx, alice, createReq("s1", "cs101", "2026S"))
	require.NoError(t, err)
	_, err = f.students.Create(ctx, bob, createReq("s1", "math200", "2026S"))
	require.NoError(t, err)
	_, err = f.students.Approve(ctx, superadmin, dto.StudentIDRequest{ID: "s1"})
	require.NoError(t, err)

	res, err := f.students.Validate(ctx, dto.ValidateStudentRequest{ID: "s1", Password: "secret1"})
	require.NoError(t, err)
	assert.Len(t, res.Enrollments, 2)

	subject, err := f.tokens.ExtractSubject(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "s1", subject)
	role, err := f.tokens.ExtractRole(res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, role)

	res, err = f.students.Validate(ctx, dto.ValidateStudentRequest{ID: "s1", Password: "secret1", Admin: "bob"})
	require.NoError(t, err)
	require.Len(t, res.Enrollments, 1)
	assert.Equal(t, "math200", res.Enrollments[0].Course)
}

func TestActivateAndApproveRequireSuperAdmin(t *testing.T) {
	f := newFixture(t)
	f.seedStudent(t, "s1", "secret1", false, false, nil)
	ctx := context.Background()

	_, err := f.students.Activate(ctx, alice, dto.StudentIDRequest{ID: "s1"})
	requireAppError(t, err, http.StatusForbidden)

	status, err := f.students.Activate(ctx, superadmin, dto.StudentIDRequest{ID: "s1"})
	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.False(t, status.Paid)

	status, err = f.students.Approve(ctx, superadmin, dto.StudentIDRequest{ID: "s1"})
	require.NoError(t, err)
	assert.True(t, status.Paid)
	require.NotNil(t, status.PaymentDate)
	assert.Equal(t, f.clock, *status.PaymentDate)

	_, err = f.students.Approve(ctx, superadmin, dto.StudentIDRequest{ID: "ghost"})
	requireAppError(t, err, http.StatusNotFound)
}

func TestApproveUnlocksLogin(t *testing.T) {
	cases := map[string]func(f *fixture) *time.Time{
		"pending": func(f *fixture) *time.Time { return nil },
		"expired": func(f *fixture) *time.Time {
			lapsed := f.clock.AddDate(0, 0, -400)
			return &lapsed
		},
	}
	for name, paymentDate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.seedStudent(t, "s1", "secret1", false, false, paymentDate(f))

			status, err := f.students.Approve(ctx, superadmin, dto.StudentIDRequest{ID: "s1"})
			require.NoError(t, err)
			require.NotNil(t, status.PaymentDate)
			assert.Equal(t, f.clock, *status.PaymentDate)

			res, err := f.students.Validate(ctx, dto.ValidateStudentRequest{ID: "s1", Password: "secret1"})
			require.NoError(t, err)
			assert.NotEmpty(t, res.Token)

			stored, _ := f.store.Student("s1")
			assert.True(t, stored.Paid)
			assert.True(t, stored.Active)
		})
	}
}

func TestApproveKeepsCurrentPaymentDate(t *testing.T) {
	f := newFixture(t)
	paidAt := f.clock.AddDate(0, -2, 0)
	f.seedStudent(t, "s1", "secret1", true, false, &paidAt)

	status, err := f.students.Approve(context.Background(), superadmin, dto.StudentIDRequest{ID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, paidAt, *status.PaymentDate)
}

func TestActivateAloneKeepsPaymentGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedStudent(t, "s1", "secret1", false, false, nil)

	_, err := f.students.Activate(ctx, superadmin, dto.StudentIDRequest{ID: "s1"})
	require.NoError(t, err)

	_, err = f.students.Validate(ctx, dto.ValidateStudentRequest{ID: "s1", Password: "secret1"})
	appErr := requireAppError(t, err, http.StatusForbidden)
	assert.Equal(t, "Payment required", appErr.Message)
	assert.NotEmpty(t, appErr.Details["paymentLink"])
}

func TestListStudentsScopesAdmins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.students.Create(ctx, alice, createReq("s1", "cs101", "2026S"))
	require.NoError(t, err)
	_, err = f.students.Create(ctx, alice, createReq("s1", "math200", "2026F"))
	require.NoError(t, err)
	_, err = f.students.Create(ctx, bob, createReq("s2", "cs101", "2026S"))
	require.NoError(t, err)

	list, err := f.students.List(ctx, alice, "bob")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "s1", list[0].ID)
	assert.Equal(t, map[string]string{"cs101": "2026S", "math200": "2026F"}, list[0].Enrollments)

	list, err = f.students.List(ctx, superadmin, "bob")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "s2", list[0].ID)

	list, err = f.students.List(ctx, superadmin, "")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestResetPasswordRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.students.Create(ctx, alice, createReq("s1", "cs101", "2026S"))
	require.NoError(t, err)

	err = f.students.ResetPassword(ctx, bob, "s1", "newpass1")
	requireAppError(t, err, http.StatusForbidden)

	require.NoError(t, f.students.ResetPassword(ctx, alice, "s1", "newpass1"))
	require.NoError(t, f.students.ResetPassword(ctx, superadmin, "s1", "newpass2"))

	stored, _ := f.store.Student("s1")
	assert.True(t, passwordMatches(stored.PasswordHash, "newpass2"))

	err = f.students.ResetPassword(ctx, superadmin, "ghost", "newpass2")
	requireAppError(t, err, http.StatusNotFound)
}
