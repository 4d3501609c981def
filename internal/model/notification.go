package model

import "time"

// Reason is a machine-readable outcome code attached to a Result.
type Reason string

const (
	ReasonSent             Reason = "sent"
	ReasonDisabled         Reason = "disabled"
	ReasonCustomerNotFound Reason = "customer_not_found"
	ReasonNoPhone          Reason = "no_phone"
	ReasonDuplicate        Reason = "duplicate"
	ReasonSettingsError    Reason = "settings_error"
	ReasonChannelError     Reason = "channel_error"
	ReasonInternalError    Reason = "internal_error"
)

// Result is the uniform outcome of a notification dispatch.
type Result struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Reason       Reason `json:"reason"`
	Channel      string `json:"channel,omitempty"`
	TrackingCode string `json:"tracking_code,omitempty"`
}

// LastNotification is the most recent notification sent to a phone number.
type LastNotification struct {
	Status       StatusKind `json:"status"`
	Timestamp    time.Time  `json:"timestamp"`
	TrackingCode string     `json:"tracking_code"`
}

// NotificationLog is the audit row persisted for every dispatch attempt.
type NotificationLog struct {
	ID            string     `db:"id"             json:"id"`
	TransactionID int64      `db:"transaction_id" json:"transaction_id"`
	Phone         string     `db:"phone"          json:"phone"`
	Status        StatusKind `db:"status"         json:"status"`
	Channel       string     `db:"channel"        json:"channel"`
	TrackingCode  string     `db:"tracking_code"  json:"tracking_code"`
	Success       bool       `db:"success"        json:"success"`
	Reason        Reason     `db:"reason"         json:"reason"`
	Message       string     `db:"message"        json:"message"`
	CreatedAt     time.Time  `db:"created_at"     json:"created_at"`
}
