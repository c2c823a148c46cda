package models

import (
	"time"
)

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

type WithdrawalRequest struct {
	ID         uint             `gorm:"primaryKey"`
	RequestID  string           `gorm:"size:36;uniqueIndex;not null"`
	UserID     int64            `gorm:"not null;index"`
	Amount     float64          `gorm:"not null"`
	Handle     string           `gorm:"size:255;not null"`
	Status     WithdrawalStatus `gorm:"size:16;default:'pending';index"`
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
