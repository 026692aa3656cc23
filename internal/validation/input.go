package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Константы валидации
const (
	MinNameLength        = 2
	MaxNameLength        = 100
	MaxPhoneLength       = 20
	MaxAddressLength     = 300
	MinReportTitleLength = 3
	MaxReportTitleLength = 150
	MinReportBodyLength  = 10
	MaxReportBodyLength  = 5000
	MaxLocationLength    = 200
	MaxNoteLength        = 1000
	MaxAnnouncementBody  = 10000
	MaxSettingValue      = 2000
	MaxMailSubjectLength = 200
	MaxMailBodyLength    = 100000
)

var (
	phoneRegex  = regexp.MustCompile(`^\+?[0-9][0-9\- ]{6,19}$`)
	periodRegex = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	shiftRegex  = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	rtRwRegex   = regexp.MustCompile(`^\d{1,3}$`)
	keyRegex    = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s minimal %d karakter", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s maksimal %d karakter", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s wajib diisi", fieldName)
	}
	return nil
}

// ValidateName проверяет имя жителя или сотрудника.
func ValidateName(name string) error {
	return ValidateLength("nama", strings.TrimSpace(name), MinNameLength, MaxNameLength)
}

// ValidatePhone проверяет номер телефона. Пустой номер допустим.
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil
	}
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("nomor telepon tidak valid")
	}
	return nil
}

// ValidateRTRW проверяет номер RT или RW (1-3 цифры). Пустое значение допустимо.
func ValidateRTRW(fieldName, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if !rtRwRegex.MatchString(value) {
		return fmt.Errorf("%s harus berupa angka", fieldName)
	}
	return nil
}

// ValidateReport проверяет заголовок и описание сообщения о происшествии.
func ValidateReport(title, description, location string) error {
	if err := ValidateLength("judul laporan", strings.TrimSpace(title), MinReportTitleLength, MaxReportTitleLength); err != nil {
		return err
	}
	if err := ValidateLength("deskripsi laporan", strings.TrimSpace(description), MinReportBodyLength, MaxReportBodyLength); err != nil {
		return err
	}
	return ValidateLength("lokasi", strings.TrimSpace(location), 0, MaxLocationLength)
}

// ValidatePeriod проверяет период в формате YYYY-MM.
func ValidatePeriod(period string) error {
	if !periodRegex.MatchString(period) {
		return fmt.Errorf("periode harus berformat YYYY-MM")
	}
	return nil
}

// ValidateShift проверяет время начала и конца смены (HH:MM).
// Ночная смена может переходить через полночь, поэтому порядок не проверяется.
func ValidateShift(start, end string) error {
	if !shiftRegex.MatchString(start) || !shiftRegex.MatchString(end) {
		return fmt.Errorf("jam ronda harus berformat HH:MM")
	}
	if start == end {
		return fmt.Errorf("jam mulai dan selesai tidak boleh sama")
	}
	return nil
}

// ParseDate разбирает дату в формате YYYY-MM-DD.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("tanggal harus berformat YYYY-MM-DD")
	}
	return d, nil
}

// ValidateSettingKey проверяет ключ настройки.
func ValidateSettingKey(key string) error {
	if !keyRegex.MatchString(key) {
		return fmt.Errorf("kunci pengaturan tidak valid")
	}
	return nil
}
