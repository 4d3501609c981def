package model

// Templates holds exactly one message template per StatusKind.
type Templates struct {
	Pending    string `json:"pending"`
	InProgress string `json:"in_progress"`
	Completed  string `json:"completed"`
	Cancelled  string `json:"cancelled"`
}

// Lookup returns the template for a known status.
func (t Templates) Lookup(s StatusKind) (string, bool) {
	switch s {
	case StatusPending:
		return t.Pending, true
	case StatusInProgress:
		return t.InProgress, true
	case StatusCompleted:
		return t.Completed, true
	case StatusCancelled:
		return t.Cancelled, true
	}
	return "", false
}

// NotificationSettings is the persisted, admin-editable notification config.
type NotificationSettings struct {
	DefaultPhone   string    `json:"defaultPhone"`
	EnableWhatsapp bool      `json:"enableWhatsapp"`
	Templates      Templates `json:"templates"`
}
