package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("TEACHER")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestPrincipalHasRole(t *testing.T) {
	assert.False(t, Unauthenticated.HasRole(RoleStudent))
	assert.False(t, Principal{Subject: "x", Role: RoleAdmin}.HasRole(RoleAdmin))
	p := NewPrincipal("root", RoleSuperAdmin)
	assert.True(t, p.HasRole(RoleAdmin, RoleSuperAdmin))
	assert.True(t, p.IsSuperAdmin())
}

func TestStudentAccessState(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	year := 365 * 24 * time.Hour
	recent := now.AddDate(0, -1, 0)
	stale := now.AddDate(-2, 0, 0)

	cases := []struct {
		name    string
		student Student
		want    AccessState
	}{
		{"never paid", Student{}, AccessPendingPayment},
		{"paid active", Student{Paid: true, Active: true, PaymentDate: &recent}, AccessActive},
		{"paid inactive", Student{Paid: true, PaymentDate: &recent}, AccessInactive},
		{"approved without date", Student{Paid: true, Active: true}, AccessActive},
		{"stale payment", Student{Paid: true, Active: true, PaymentDate: &stale}, AccessExpired},
		{"unpaid after previous payment", Student{PaymentDate: &recent}, AccessExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.student.AccessState(now, year))
		})
	}
}

func TestSubmittedFilesRoundTrip(t *testing.T) {
	files := SubmittedFiles{"main.go": "package main"}
	raw, err := files.Value()
	require.NoError(t, err)

	var scanned SubmittedFiles
	require.NoError(t, scanned.Scan(raw))
	assert.Equal(t, files, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
	assert.Error(t, scanned.Scan(42))
}

func TestAPIModelsUseCamelCaseKeys(t *testing.T) {
	paid := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	for name, v := range map[string]interface{}{
		"enrollment": Enrollment{StudentID: "s1", SemesterID: "2026S"},
		"student":    Student{ID: "s1", PaymentLink: "https://pay", PaymentDate: &paid},
		"admin":      Admin{Name: "root"},
		"audit":      AuditLog{ResourceID: "s1", IPAddress: "10.0.0.1", UserAgent: "curl"},
		"pagination": Pagination{PageSize: 10, TotalCount: 3},
	} {
		raw, err := json.Marshal(v)
		require.NoError(t, err, name)
		var keys map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &keys), name)
		for key := range keys {
			assert.NotContains(t, key, "_", "%s key %q", name, key)
		}
	}
}
