package model

import "time"

// Transaction is the point-of-sale record a status notification refers to.
type Transaction struct {
	ID           int64      `db:"id"            json:"id"`
	CustomerID   int64      `db:"customer_id"   json:"customer_id"`
	Status       StatusKind `db:"status"        json:"status"`
	TrackingCode string     `db:"tracking_code" json:"tracking_code,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}

// Service is one item of the wash service catalog attached to a transaction.
type Service struct {
	ID    int64  `db:"id"    json:"id"`
	Name  string `db:"name"  json:"name"`
	Price int64  `db:"price" json:"price"`
}
