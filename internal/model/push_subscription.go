package model

import "time"

// PushSubscription holds a staff browser push subscription. Subscribers
// receive oops and lockout alerts for the machines they follow; an empty
// machine list means all machines.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	Machines  string    `gorm:"size:1024"` // comma-separated machine names
	CreatedAt time.Time `gorm:"not null"`
}
