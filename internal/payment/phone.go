package payment

import (
	"errors"
	"strings"
	"unicode"
)

var ErrInvalidPhone = errors.New("invalid phone number")

const ghanaCode = "233"

// NormalizePhone converts a Ghanaian mobile number given as 0XXXXXXXXX,
// 233XXXXXXXXX, +233XXXXXXXXX or the bare 9-digit subscriber number into
// +233XXXXXXXXX. Spaces and dashes are ignored.
func NormalizePhone(raw string) (string, error) {
	p := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return r
	}, raw)

	switch {
	case strings.HasPrefix(p, "+"+ghanaCode):
		p = p[len(ghanaCode)+1:]
	case strings.HasPrefix(p, ghanaCode) && len(p) == len(ghanaCode)+9:
		p = p[len(ghanaCode):]
	case strings.HasPrefix(p, "0"):
		p = p[1:]
	}

	if len(p) != 9 {
		return "", ErrInvalidPhone
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	return "+" + ghanaCode + p, nil
}

// payer is the number in the form the gateway expects: country code, no plus.
func payer(normalized string) string {
	return strings.TrimPrefix(normalized, "+")
}
