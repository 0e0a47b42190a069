package utils

import (
	"regexp"
	"strings"
)

// MobilePattern is the accepted shape of a mobile number before
// normalisation: optional plus, no leading zero, 10 to 15 digits.
var MobilePattern = regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone returns the number in E.164 form. International numbers
// keep their country code; bare 10 digit numbers are treated as Indian.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "+") {
		return "+" + digits(phone)
	}
	d := digits(phone)
	if !strings.HasPrefix(d, "91") || len(d) == 10 {
		d = "91" + d
	}
	return "+" + d
}

// FormatPhone renders an Indian number as "+91 98765 43210" for display.
// Other numbers are returned normalised but otherwise untouched.
func FormatPhone(phone string) string {
	n := NormalizePhone(phone)
	if strings.HasPrefix(n, "+91") && len(n) == 13 {
		return "+91 " + n[3:8] + " " + n[8:]
	}
	return n
}

// MaskPhone hides all but the last four digits, for logs.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
