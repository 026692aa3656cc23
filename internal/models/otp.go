package models

import (
	"time"

	"github.com/google/uuid"
)

// Контексты, в которых запрашивается одноразовый код.
const (
	OTPContextUserRegistration  = "user_registration"
	OTPContextUserLogin         = "user_login"
	OTPContextStaffRegistration = "staff_registration"
	OTPContextGeneric           = "verification"
)

// OTPRecord: одноразовый числовой код, выданный на email.
// Меняется ровно один раз: used false -> true при успешной проверке.
type OTPRecord struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Code      string    `db:"code" json:"-"`
	Context   string    `db:"context" json:"context"`
	Used      bool      `db:"used" json:"used"`
	Attempts  int       `db:"attempts" json:"attempts"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// ExpiredAt сообщает, истёк ли код к моменту now. В сам момент expires_at код ещё действителен.
func (r *OTPRecord) ExpiredAt(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}
