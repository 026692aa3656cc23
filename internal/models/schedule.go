package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ScheduleStatusScheduled = "scheduled"
	ScheduleStatusAttended  = "attended"
	ScheduleStatusMissed    = "missed"
)

// Schedule: смена патрулирования, назначенная сотруднику.
type Schedule struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	StaffID     uuid.UUID  `db:"staff_id" json:"staff_id"`
	PatrolDate  time.Time  `db:"patrol_date" json:"patrol_date"`
	ShiftStart  string     `db:"shift_start" json:"shift_start"`
	ShiftEnd    string     `db:"shift_end" json:"shift_end"`
	Area        string     `db:"area" json:"area"`
	Status      string     `db:"status" json:"status"`
	CheckedInAt *time.Time `db:"checked_in_at" json:"checked_in_at,omitempty"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
