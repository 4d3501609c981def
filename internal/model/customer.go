package model

import "time"

// Customer is a car-wash customer. Phone and LicensePlate are optional.
type Customer struct {
	ID           int64     `db:"id"           json:"id"`
	Name         string    `db:"name"         json:"name"`
	Phone        string    `db:"phone"        json:"phone,omitempty"`
	LicensePlate string    `db:"license_plate" json:"license_plate,omitempty"`
	CreatedAt    time.Time `db:"created_at"   json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"   json:"updated_at"`
}
