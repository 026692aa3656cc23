package mail

import (
	"errors"
	netmail "net/mail"
	"strings"
)

// ErrInvalidAddress возвращается для строки, не похожей на email.
var ErrInvalidAddress = errors.New("invalid email address")

// Address: нормализованный email адрес без имени и комментариев.
type Address string

// ParseAddress проверяет формат адреса и приводит его к нижнему регистру.
// Существование ящика не проверяется.
func ParseAddress(raw string) (Address, error) {
	trimmed := strings.TrimSpace(raw)

	addr, err := netmail.ParseAddress(trimmed)
	if err != nil {
		return "", ErrInvalidAddress
	}

	// "Budi <budi@example.com>" разбирается успешно, но нам нужна только адресная часть.
	if addr.Address != trimmed {
		return "", ErrInvalidAddress
	}

	return Address(strings.ToLower(addr.Address)), nil
}

func (a Address) String() string {
	return string(a)
}
