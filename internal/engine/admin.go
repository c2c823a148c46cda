package engine

import (
	"context"
	"log"

	"rewards-bot/internal/models"
	"rewards-bot/internal/money"
)

// PendingWithdrawals lists requests awaiting disposition, newest first.
func (e *Engine) PendingWithdrawals(ctx context.Context, adminID int64, limit int) ([]models.WithdrawalRequest, error) {
	if !e.cfg.IsAdmin(adminID) {
		return nil, ErrNotAdmin
	}
	return e.ledger.ListPending(ctx, limit)
}

// AdjustBalance credits or debits a user directly. Debits clamp at zero so
// the non-negative balance invariant holds here too.
func (e *Engine) AdjustBalance(ctx context.Context, adminID, userID int64, delta float64) (float64, error) {
	if !e.cfg.IsAdmin(adminID) {
		return 0, ErrNotAdmin
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	user, err := e.accounts.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	user.Balance = money.Round(user.Balance + delta)
	if user.Balance < 0 {
		user.Balance = 0
	}
	if err := e.accounts.Put(ctx, user); err != nil {
		return 0, err
	}
	return user.Balance, nil
}

// SetBanned soft-disables (or re-enables) an account. Banning also drops any
// dialog the user had in flight.
func (e *Engine) SetBanned(ctx context.Context, adminID, userID int64, banned bool) error {
	if !e.cfg.IsAdmin(adminID) {
		return ErrNotAdmin
	}

	unlock := e.locks.lock(userID)
	user, err := e.accounts.GetOrCreate(ctx, userID)
	if err != nil {
		unlock()
		return err
	}
	user.Banned = banned
	err = e.accounts.Put(ctx, user)
	unlock()
	if err != nil {
		return err
	}

	// cancel only after releasing the keyed lock: an in-flight dialog step can
	// hold the session lock while waiting for this user's keyed lock
	if banned {
		e.sessions.Cancel(userID)
	}
	return nil
}

// Broadcast sends text to every known user. Send failures are logged and
// skipped; returns how many messages went out.
func (e *Engine) Broadcast(ctx context.Context, adminID int64, text string) (int, error) {
	if !e.cfg.IsAdmin(adminID) {
		return 0, ErrNotAdmin
	}

	ids, err := e.accounts.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, id := range ids {
		if err := e.notify.Send(ctx, id, text); err != nil {
			log.Printf("Broadcast to %d failed: %v", id, err)
			continue
		}
		sent++
	}
	return sent, nil
}

// SetTaskList replaces the public task list.
func (e *Engine) SetTaskList(ctx context.Context, adminID int64, tasks []string) error {
	if !e.cfg.IsAdmin(adminID) {
		return ErrNotAdmin
	}
	return e.tasks.Set(ctx, tasks)
}
