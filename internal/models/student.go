package models

import "time"

// Student is a learner account. ID doubles as the login username.
type Student struct {
	ID           string     `db:"id" json:"id"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Email        string     `db:"email" json:"email"`
	Paid         bool       `db:"paid" json:"paid"`
	Active       bool       `db:"active" json:"active"`
	PaymentLink  string     `db:"payment_link" json:"paymentLink,omitempty"`
	PaymentDate  *time.Time `db:"payment_date" json:"paymentDate,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// AccessState summarises where a student sits in the payment lifecycle.
type AccessState string

const (
	AccessPendingPayment AccessState = "PENDING_PAYMENT"
	AccessExpired        AccessState = "EXPIRED"
	AccessActive         AccessState = "PAID_ACTIVE"
	AccessInactive       AccessState = "PAID_INACTIVE"
)

// AccessState evaluates the student's access at now. Access granted by a
// payment lasts validity; a student that is unpaid but carries a payment
// date lost access after a previous payment.
func (s *Student) AccessState(now time.Time, validity time.Duration) AccessState {
	if s.PaymentDate != nil {
		if !s.Paid || s.PaymentDate.Add(validity).Before(now) {
			return AccessExpired
		}
	}
	if !s.Paid {
		return AccessPendingPayment
	}
	if !s.Active {
		return AccessInactive
	}
	return AccessActive
}

// ExpireAccess resets payment flags so the student must pay again.
func (s *Student) ExpireAccess() {
	s.Paid = false
	s.Active = false
}

// ConfirmPayment marks the student as paid and active from at.
func (s *Student) ConfirmPayment(at time.Time) {
	s.Paid = true
	s.Active = true
	s.PaymentDate = &at
}
