package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	StaffStatusPending   = "pending"
	StaffStatusActive    = "active"
	StaffStatusSuspended = "suspended"

	StaffRoleStaff = "staff"
	StaffRoleAdmin = "admin"
)

// Staff описывает сотрудника патруля или администратора.
type Staff struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	Name              string     `db:"name" json:"name"`
	Email             string     `db:"email" json:"email"`
	Phone             string     `db:"phone" json:"phone"`
	Role              string     `db:"role" json:"role"`
	Status            string     `db:"status" json:"status"`
	AccessCodeHash    *string    `db:"access_code_hash" json:"-"`
	LastCodeChangeAt  *time.Time `db:"last_code_change_at" json:"last_code_change_at,omitempty"`
	SuspensionEndDate *time.Time `db:"suspension_end_date" json:"suspension_end_date,omitempty"`
	SuspensionReason  *string    `db:"suspension_reason" json:"suspension_reason,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// IsAdmin сообщает, является ли сотрудник администратором.
func (s *Staff) IsAdmin() bool {
	return s.Role == StaffRoleAdmin
}

// SuspendedAt сообщает, блокирует ли приостановка вход в момент now.
// Приостановка без даты окончания действует до ручной реактивации.
func (s *Staff) SuspendedAt(now time.Time) bool {
	if s.Status != StaffStatusSuspended {
		return false
	}
	return s.SuspensionEndDate == nil || now.Before(*s.SuspensionEndDate)
}

// StaffStatusDeleted: условное состояние: отклонённая заявка удаляется.
const StaffStatusDeleted = "deleted"

var staffTransitions = map[string][]string{
	StaffStatusPending:   {StaffStatusActive, StaffStatusDeleted},
	StaffStatusActive:    {StaffStatusSuspended},
	StaffStatusSuspended: {StaffStatusActive},
}

// CanTransitionStaff проверяет, допустим ли переход статуса сотрудника.
func CanTransitionStaff(from, to string) bool {
	for _, next := range staffTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
