// Package template turns a transaction status and its data into message text.
package template

import (
	"strings"

	"github.com/jmehdipour/washcorner-notify/internal/model"
)

// Variable keys, applied in this order.
const (
	VarCustomerName = "customerName"
	VarLicensePlate = "licensePlate"
	VarServicesList = "servicesList"
	VarTrackingCode = "trackingCode"
	VarTrackingURL  = "trackingUrl"
)

var variableKeys = []string{VarCustomerName, VarLicensePlate, VarServicesList, VarTrackingCode, VarTrackingURL}

// Resolve picks the template for status. Unknown statuses get the pending
// template; fellBack reports when that happened.
func Resolve(t model.Templates, status string) (text string, fellBack bool) {
	if st, ok := model.ParseStatusKind(status); ok {
		text, _ = t.Lookup(st)
		return text, false
	}
	return t.Pending, true
}

// ApplyVariables replaces every literal {key} for the known keys present in
// vars. Keys missing from vars are left in the text as-is.
func ApplyVariables(text string, vars map[string]string) string {
	for _, k := range variableKeys {
		v, ok := vars[k]
		if !ok {
			continue
		}
		text = strings.ReplaceAll(text, "{"+k+"}", v)
	}
	return text
}

// FormatServicesList renders names as a "- name" list, one per line.
func FormatServicesList(names []string) string {
	if len(names) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, n := range names {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(n)
	}
	return sb.String()
}

func TrackingURL(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/tracking/" + code
}
