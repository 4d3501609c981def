package util

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D+`)

// NormalizePhone canonicalizes Indonesian numbers to the digits-only
// international form WhatsApp expects ("62812..."), so "+62 812-...",
// "62812..." and "0812..." all map to the same key.
func NormalizePhone(raw string) string {
	s := nonDigits.ReplaceAllString(strings.TrimSpace(raw), "")

	switch {
	case strings.HasPrefix(s, "00"):
		s = s[2:]
	case strings.HasPrefix(s, "0"):
		s = "62" + s[1:]
	case strings.HasPrefix(s, "8") && len(s) >= 9 && len(s) <= 12:
		s = "62" + s
	}

	return s
}
