package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rewards-bot/internal/models"
)

// ErrNotFound is returned by Resolve when the request does not exist or was
// already resolved by a concurrent call.
var ErrNotFound = errors.New("withdrawal request not found or already handled")

// Ledger is the durable queue of withdrawal requests. It never touches
// balances: the caller holds the funds before Enqueue and refunds after a
// rejected Resolve. Resolved records are kept for audit.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Enqueue(ctx context.Context, userID int64, amount float64, handle string) (*models.WithdrawalRequest, error) {
	req := &models.WithdrawalRequest{
		RequestID: uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Handle:    handle,
		Status:    models.WithdrawalPending,
	}
	if err := l.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, fmt.Errorf("enqueue withdrawal for %d: %w", userID, err)
	}
	return req, nil
}

// ListPending returns pending requests, most recently enqueued first.
func (l *Ledger) ListPending(ctx context.Context, limit int) ([]models.WithdrawalRequest, error) {
	var reqs []models.WithdrawalRequest
	err := l.db.WithContext(ctx).
		Where("status = ?", models.WithdrawalPending).
		Order("created_at DESC").
		Limit(limit).
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("list pending withdrawals: %w", err)
	}
	return reqs, nil
}

// ListStalePending returns pending requests enqueued before the cutoff, used
// by the background worker to re-notify admins.
func (l *Ledger) ListStalePending(ctx context.Context, cutoff time.Time) ([]models.WithdrawalRequest, error) {
	var reqs []models.WithdrawalRequest
	err := l.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.WithdrawalPending, cutoff).
		Order("created_at").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("list stale withdrawals: %w", err)
	}
	return reqs, nil
}

// Resolve transitions a pending request to its terminal status exactly once.
// The conditional UPDATE on status is the guarantee: of two concurrent calls
// for the same request only one changes a row, the other gets ErrNotFound.
func (l *Ledger) Resolve(ctx context.Context, requestID string, outcome models.WithdrawalStatus) (*models.WithdrawalRequest, error) {
	if outcome != models.WithdrawalApproved && outcome != models.WithdrawalRejected {
		return nil, fmt.Errorf("invalid withdrawal outcome %q", outcome)
	}

	now := time.Now()
	res := l.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("request_id = ? AND status = ?", requestID, models.WithdrawalPending).
		Updates(map[string]interface{}{"status": outcome, "resolved_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("resolve withdrawal %s: %w", requestID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var req models.WithdrawalRequest
	if err := l.db.WithContext(ctx).Where("request_id = ?", requestID).First(&req).Error; err != nil {
		return nil, fmt.Errorf("load resolved withdrawal %s: %w", requestID, err)
	}
	return &req, nil
}
