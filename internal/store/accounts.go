package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"rewards-bot/internal/models"
)

// Accounts persists per-user account records. It only gets and puts whole
// records; callers do read-modify-write and are responsible for serializing
// concurrent mutations of the same account.
type Accounts struct {
	db *gorm.DB
}

func NewAccounts(db *gorm.DB) *Accounts {
	return &Accounts{db: db}
}

// GetOrCreate returns the account for telegramID, creating a zero-balance one
// on first contact. The unique index on telegram_id makes creation at-most-once:
// when two first contacts race, one insert wins and the loser re-reads.
func (s *Accounts) GetOrCreate(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where(models.User{TelegramID: telegramID}).FirstOrCreate(&user).Error
	if err == nil {
		return &user, nil
	}
	if err2 := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err2 == nil {
		return &user, nil
	}
	return nil, fmt.Errorf("get or create account %d: %w", telegramID, err)
}

// Put overwrites the whole record, last writer wins.
func (s *Accounts) Put(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("save account %d: %w", user.TelegramID, err)
	}
	return nil
}

// ListIDs returns the telegram ids of every known account, for broadcast.
func (s *Accounts) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Order("id").Pluck("telegram_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list account ids: %w", err)
	}
	return ids, nil
}
