package models

import (
	"time"
)

type User struct {
	ID            uint    `gorm:"primaryKey"`
	TelegramID    int64   `gorm:"uniqueIndex;not null"`
	Username      string  `gorm:"size:255"`
	FirstName     string  `gorm:"size:255"`
	Balance       float64 `gorm:"default:0"`
	LastBonusDate string  `gorm:"size:10"` // YYYY-MM-DD, UTC
	ReferrerID    int64   `gorm:"index;default:0"`
	Referrals     int     `gorm:"default:0"`
	RefBonusPaid  bool    `gorm:"default:false"`
	Banned        bool    `gorm:"default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
