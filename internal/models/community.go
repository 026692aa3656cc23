package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	RecipientKindUser  = "user"
	RecipientKindStaff = "staff"
)

// Notification описывает событие, отправленное жителю или сотруднику.
type Notification struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	RecipientID   uuid.UUID       `db:"recipient_id" json:"recipient_id"`
	RecipientKind string          `db:"recipient_kind" json:"recipient_kind"`
	Payload       json.RawMessage `db:"payload" json:"payload"`
	IsRead        bool            `db:"is_read" json:"is_read"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Announcement: объявление для всех жителей.
type Announcement struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`
	Pinned    bool      `db:"pinned" json:"pinned"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EmergencyContact: телефон экстренной службы.
type EmergencyContact struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	Category  string    `db:"category" json:"category"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
}

// AdminLog: запись журнала действий администратора.
type AdminLog struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	ActorID    uuid.UUID       `db:"actor_id" json:"actor_id"`
	Action     string          `db:"action" json:"action"`
	TargetType string          `db:"target_type" json:"target_type"`
	TargetID   *uuid.UUID      `db:"target_id" json:"target_id,omitempty"`
	Details    json.RawMessage `db:"details" json:"details"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// AppSetting: пара ключ/значение настроек приложения.
type AppSetting struct {
	Key       string     `db:"key" json:"key"`
	Value     string     `db:"value" json:"value"`
	UpdatedBy *uuid.UUID `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// PublicSettingKeys: настройки, которые можно читать без входа.
var PublicSettingKeys = map[string]struct{}{
	"app_name":         {},
	"neighborhood":     {},
	"patrol_post":      {},
	"dues_amount":      {},
	"report_hotline":   {},
	"maintenance_mode": {},
}

// Действия, которые попадают в журнал администратора.
const (
	AdminActionStaffBootstrap    = "staff.bootstrap"
	AdminActionStaffApprove      = "staff.approve"
	AdminActionStaffReject       = "staff.reject"
	AdminActionStaffSuspend      = "staff.suspend"
	AdminActionStaffReactivate   = "staff.reactivate"
	AdminActionAccessCodeReset   = "staff.access_code_reset"
	AdminActionScheduleCreate    = "schedule.create"
	AdminActionScheduleUpdate    = "schedule.update"
	AdminActionScheduleDelete    = "schedule.delete"
	AdminActionDueRecord         = "due.record"
	AdminActionDuePaid           = "due.paid"
	AdminActionHonorariumRecord  = "honorarium.record"
	AdminActionHonorariumPaid    = "honorarium.paid"
	AdminActionAnnouncementSave  = "announcement.save"
	AdminActionAnnouncementDrop  = "announcement.delete"
	AdminActionContactSave       = "contact.save"
	AdminActionContactDrop       = "contact.delete"
	AdminActionSettingUpdate     = "setting.update"
	AdminActionMailSend          = "mail.send"
)
