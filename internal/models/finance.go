package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DueStatusUnpaid = "unpaid"
	DueStatusPaid   = "paid"

	HonorariumStatusPending = "pending"
	HonorariumStatusPaid    = "paid"
)

// Due: ежемесячный взнос жителя. Сумма в рупиях.
type Due struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	Period     string     `db:"period" json:"period"`
	Amount     int64      `db:"amount" json:"amount"`
	Status     string     `db:"status" json:"status"`
	PaidAt     *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	RecordedBy uuid.UUID  `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Honorarium: выплата сотруднику патруля за период.
type Honorarium struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	StaffID    uuid.UUID  `db:"staff_id" json:"staff_id"`
	Period     string     `db:"period" json:"period"`
	Amount     int64      `db:"amount" json:"amount"`
	Status     string     `db:"status" json:"status"`
	PaidAt     *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	RecordedBy uuid.UUID  `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// PeriodSummary агрегирует суммы за период.
type PeriodSummary struct {
	Period      string `db:"period" json:"period"`
	TotalCount  int    `db:"total_count" json:"total_count"`
	PaidCount   int    `db:"paid_count" json:"paid_count"`
	TotalAmount int64  `db:"total_amount" json:"total_amount"`
	PaidAmount  int64  `db:"paid_amount" json:"paid_amount"`
}
