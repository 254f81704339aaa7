package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursepass-api/internal/models"
)

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepository(db)

	paidAt := time.Now().Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "password_hash", "email", "paid", "active", "payment_link", "payment_date", "created_at"}).
		AddRow("alice", "hash", "alice@example.com", true, true, "", paidAt, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE id = $1")).
		WithArgs("alice").
		WillReturnRows(rows)

	student, err := repo.FindByID(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, student.Paid)
	require.NotNil(t, student.PaymentDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateWithEnrollment(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WithArgs("alice", "hash", "alice@example.com", false, false, "https://pay", nil, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WithArgs("alice", "cs101", "2026-1", "bob", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CreateWithEnrollment(context.Background(),
		&models.Student{ID: "alice", PasswordHash: "hash", Email: "alice@example.com", PaymentLink: "https://pay", CreatedAt: now},
		&models.Enrollment{StudentID: "alice", Course: "cs101", SemesterID: "2026-1", Admin: "bob", CreatedAt: now},
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateRollsBackOnDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CreateWithEnrollment(context.Background(), &models.Student{ID: "alice"}, &models.Enrollment{StudentID: "alice"})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateRollsBackOnEnrollmentFailure(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.CreateWithEnrollment(context.Background(), &models.Student{ID: "alice"}, &models.Enrollment{StudentID: "alice"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdatePaymentState(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepository(db)

	paidAt := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET paid = $1, active = $2, payment_link = $3, payment_date = $4 WHERE id = $5")).
		WithArgs(true, true, "", paidAt, "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePaymentState(context.Background(), &models.Student{ID: "alice", Paid: true, Active: true, PaymentDate: &paidAt})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySetActiveMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET active = $2 WHERE id = $1")).
		WithArgs("ghost", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.SetActive(context.Background(), "ghost", true), sql.ErrNoRows)
}
