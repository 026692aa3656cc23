package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinAccessCodeLength = 6
	MaxAccessCodeLength = 64
)

// ValidateAccessCode проверяет новый код доступа сотрудника.
// Требования:
// - от 6 до 64 символов
// - без пробелов по краям и управляющих символов
func ValidateAccessCode(code string) error {
	if code != strings.TrimSpace(code) {
		return fmt.Errorf("kode akses tidak boleh diawali atau diakhiri spasi")
	}

	if err := ValidateLength("kode akses", code, MinAccessCodeLength, MaxAccessCodeLength); err != nil {
		return err
	}

	// bcrypt учитывает только первые 72 байта
	if len(code) > 72 {
		return fmt.Errorf("kode akses terlalu panjang")
	}

	for _, r := range code {
		if r == utf8.RuneError || unicode.IsControl(r) {
			return fmt.Errorf("kode akses mengandung karakter yang tidak diizinkan")
		}
	}

	return nil
}
