package dto

import "time"

// SendOTPRequest: запрос одноразового кода на email.
type SendOTPRequest struct {
	Email   string `json:"email" binding:"required,email,max=254"`
	Context string `json:"context" binding:"omitempty,oneof=user_registration user_login staff_registration verification"`
}

// VerifyOTPRequest: проверка одноразового кода.
type VerifyOTPRequest struct {
	Email   string `json:"email" binding:"required,email,max=254"`
	Code    string `json:"code" binding:"required,len=6,numeric"`
	Context string `json:"context" binding:"omitempty,oneof=user_registration user_login staff_registration verification"`
}

// RegisterUserRequest: регистрация жителя по коду из письма.
type RegisterUserRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"required,email,max=254"`
	Phone   string `json:"phone" binding:"max=20"`
	Address string `json:"address" binding:"max=300"`
	RT      string `json:"rt" binding:"max=3"`
	RW      string `json:"rw" binding:"max=3"`
	OTPCode string `json:"otp_code" binding:"required,len=6,numeric"`
}

// UserLoginRequest: вход жителя по коду из письма.
type UserLoginRequest struct {
	Email   string `json:"email" binding:"required,email,max=254"`
	OTPCode string `json:"otp_code" binding:"required,len=6,numeric"`
}

// SetActiveRequest включает или отключает учётную запись жителя.
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// StaffApplyRequest: заявка на роль сотрудника патруля.
type StaffApplyRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"required,email,max=254"`
	Phone   string `json:"phone" binding:"max=20"`
	OTPCode string `json:"otp_code" binding:"required,len=6,numeric"`
}

// StaffLoginRequest: вход сотрудника по коду доступа.
type StaffLoginRequest struct {
	Email      string `json:"email" binding:"required,email,max=254"`
	AccessCode string `json:"access_code" binding:"required,max=128"`
}

// ChangeAccessCodeRequest: смена кода доступа сотрудником.
type ChangeAccessCodeRequest struct {
	CurrentCode string `json:"current_code" binding:"required,max=128"`
	NewCode     string `json:"new_code" binding:"required,max=128"`
}

// RejectStaffRequest: отказ по заявке.
type RejectStaffRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// SuspendStaffRequest: приостановка сотрудника. Пустой until означает бессрочно.
type SuspendStaffRequest struct {
	Until  *time.Time `json:"until"`
	Reason string     `json:"reason" binding:"required,max=1000"`
}

// UpdateReportStatusRequest: смена статуса сообщения сотрудником.
type UpdateReportStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=in_progress resolved rejected"`
	Note   string `json:"note" binding:"max=1000"`
}

// ScheduleRequest: смена патрулирования.
type ScheduleRequest struct {
	StaffID    string `json:"staff_id" binding:"required,uuid"`
	PatrolDate string `json:"patrol_date" binding:"required"`
	ShiftStart string `json:"shift_start" binding:"required"`
	ShiftEnd   string `json:"shift_end" binding:"required"`
	Area       string `json:"area" binding:"required,max=200"`
	Notes      string `json:"notes" binding:"max=1000"`
}

// DueRequest: взнос конкретного жителя.
type DueRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Period string `json:"period" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
}

// DuesForPeriodRequest: взнос всем активным жителям за период.
type DuesForPeriodRequest struct {
	Period string `json:"period" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
}

// HonorariumRequest: выплата сотруднику.
type HonorariumRequest struct {
	StaffID string `json:"staff_id" binding:"required,uuid"`
	Period  string `json:"period" binding:"required"`
	Amount  int64  `json:"amount" binding:"required,gt=0"`
}

// AnnouncementRequest: объявление.
type AnnouncementRequest struct {
	Title  string `json:"title" binding:"required,max=150"`
	Body   string `json:"body" binding:"required,max=10000"`
	Pinned bool   `json:"pinned"`
}

// ContactRequest: экстренный контакт.
type ContactRequest struct {
	Name      string `json:"name" binding:"required,max=100"`
	Phone     string `json:"phone" binding:"required,max=20"`
	Category  string `json:"category" binding:"max=50"`
	SortOrder int    `json:"sort_order"`
}

// SettingRequest: значение настройки.
type SettingRequest struct {
	Value string `json:"value" binding:"max=2000"`
}

// SendEmailRequest: произвольное письмо от администратора.
type SendEmailRequest struct {
	From    string `json:"from" binding:"omitempty,email"`
	To      string `json:"to" binding:"required,email"`
	Subject string `json:"subject" binding:"required,max=200"`
	HTML    string `json:"html" binding:"required,max=100000"`
}

// CreateReportForm: сообщение жителя. Фото приходит отдельным полем photo в multipart.
type CreateReportForm struct {
	Title       string `form:"title" binding:"required,max=150"`
	Description string `form:"description" binding:"required,max=5000"`
	Location    string `form:"location" binding:"max=300"`
	Category    string `form:"category" binding:"omitempty,oneof=theft fire violence suspicious nuisance other"`
}
