package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest        ErrorCode = "BAD_REQUEST"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeTooManyRequests   ErrorCode = "TOO_MANY_REQUESTS"
	ErrCodeUnavailable       ErrorCode = "UNAVAILABLE"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
)

// AppError: ошибка бизнес-логики с сообщением, которое можно показать пользователю.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidTransition:
		return http.StatusConflict
	case ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// As достаёт AppError из цепочки ошибок.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsNotFound(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeValidation
}

// Сообщения адресованы жителям и сотрудникам патруля, поэтому на индонезийском.
var (
	ErrStaffNotFound        = New(ErrCodeNotFound, "Data petugas tidak ditemukan.")
	ErrUserNotFound         = New(ErrCodeNotFound, "Data warga tidak ditemukan.")
	ErrReportNotFound       = New(ErrCodeNotFound, "Laporan tidak ditemukan.")
	ErrScheduleNotFound     = New(ErrCodeNotFound, "Jadwal ronda tidak ditemukan.")
	ErrDueNotFound          = New(ErrCodeNotFound, "Data iuran tidak ditemukan.")
	ErrHonorariumNotFound   = New(ErrCodeNotFound, "Data honor tidak ditemukan.")
	ErrAnnouncementNotFound = New(ErrCodeNotFound, "Pengumuman tidak ditemukan.")
	ErrContactNotFound      = New(ErrCodeNotFound, "Kontak darurat tidak ditemukan.")
	ErrNotificationNotFound = New(ErrCodeNotFound, "Notifikasi tidak ditemukan.")
	ErrSettingNotFound      = New(ErrCodeNotFound, "Pengaturan tidak ditemukan.")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "Silakan masuk terlebih dahulu.")
	ErrForbidden            = New(ErrCodeForbidden, "Anda tidak memiliki akses untuk tindakan ini.")
	ErrInvalidCredentials   = New(ErrCodeUnauthorized, "Email atau kode akses salah.")
	ErrEmailTaken           = New(ErrCodeConflict, "Email sudah terdaftar.")
	ErrMailUnavailable      = New(ErrCodeUnavailable, "Gagal mengirim email. Silakan coba lagi nanti.")
	ErrInternal             = New(ErrCodeInternal, "Terjadi kesalahan pada server. Silakan coba lagi nanti.")
)
