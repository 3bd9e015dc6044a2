package guest

import (
	"errors"
	"strings"
)

var ErrInvalidPhone = errors.New("invalid phone number")

// FormatPhoneNumber normalises a domestic mobile or landline number to its
// dashed form. Every non-digit is ignored.
func FormatPhoneNumber(s string) (string, error) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()

	switch {
	case len(d) == 11 && strings.HasPrefix(d, "01"):
		return d[:3] + "-" + d[3:7] + "-" + d[7:], nil
	case strings.HasPrefix(d, "02") && len(d) == 9:
		return d[:2] + "-" + d[2:5] + "-" + d[5:], nil
	case strings.HasPrefix(d, "02") && len(d) == 10:
		return d[:2] + "-" + d[2:6] + "-" + d[6:], nil
	case strings.HasPrefix(d, "0") && !strings.HasPrefix(d, "01") && !strings.HasPrefix(d, "02") && len(d) == 10:
		return d[:3] + "-" + d[3:6] + "-" + d[6:], nil
	case strings.HasPrefix(d, "0") && !strings.HasPrefix(d, "01") && !strings.HasPrefix(d, "02") && len(d) == 11:
		return d[:3] + "-" + d[3:7] + "-" + d[7:], nil
	}
	return "", ErrInvalidPhone
}
