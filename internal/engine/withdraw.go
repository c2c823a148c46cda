package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"rewards-bot/internal/models"
	"rewards-bot/internal/money"
	"rewards-bot/internal/session"
	"rewards-bot/internal/store"
)

// handleRe matches UPI-style payment handles like name@upi.
var handleRe = regexp.MustCompile(`^[A-Za-z0-9._-]{2,}@[A-Za-z][A-Za-z0-9]*$`)

// BeginWithdraw gates the user, checks the configured minimum and starts the
// two-step dialog (amount, then destination handle). Nothing is deducted until
// the dialog completes. The returned balance lets the transport phrase the
// below-minimum message.
func (e *Engine) BeginWithdraw(ctx context.Context, userID int64) (float64, error) {
	if err := e.Gate(ctx, userID); err != nil {
		return 0, err
	}
	user, err := e.accounts.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	balance := money.Round(user.Balance)
	if balance < e.cfg.WithdrawMin {
		return balance, ErrBelowMinimum
	}

	var amount float64
	e.sessions.Start(userID,
		func(ctx context.Context, text string) session.Action {
			return e.withdrawAmountStep(ctx, userID, text, &amount)
		},
		func(ctx context.Context, text string) session.Action {
			return e.withdrawHandleStep(ctx, userID, text, &amount)
		},
	)
	return balance, nil
}

func (e *Engine) withdrawAmountStep(ctx context.Context, userID int64, text string, amount *float64) session.Action {
	amt, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || amt <= 0 {
		e.reply(ctx, userID, "❗ Send a positive number, or "+session.CancelCommand+" to stop.")
		return session.Retry
	}
	amt = money.Round(amt)
	if amt <= 0 {
		e.reply(ctx, userID, "❗ Amount is too small. Send a larger number, or "+session.CancelCommand+".")
		return session.Retry
	}

	user, err := e.accounts.GetOrCreate(ctx, userID)
	if err != nil {
		e.reply(ctx, userID, "⚠️ Something went wrong, please try again.")
		return session.Retry
	}
	if amt > money.Round(user.Balance) {
		e.reply(ctx, userID, fmt.Sprintf("❗ You only have %.2f. Send a smaller amount, or %s.", money.Round(user.Balance), session.CancelCommand))
		return session.Retry
	}

	*amount = amt
	e.reply(ctx, userID, fmt.Sprintf("✅ Amount: %.2f\nNow send your payment handle (like name@upi), or %s.", amt, session.CancelCommand))
	return session.Next
}

func (e *Engine) withdrawHandleStep(ctx context.Context, userID int64, text string, amount *float64) session.Action {
	handle := strings.TrimSpace(text)
	if !handleRe.MatchString(handle) {
		e.reply(ctx, userID, "❗ That does not look like a payment handle (expected name@provider). Try again, or "+session.CancelCommand+".")
		return session.Retry
	}

	req, err := e.placeWithdrawal(ctx, userID, *amount, handle)
	if errors.Is(err, ErrInsufficient) {
		e.reply(ctx, userID, "❗ Your balance changed and no longer covers that amount. Withdrawal cancelled.")
		return session.Done
	}
	if err != nil {
		log.Printf("Withdrawal for %d failed: %v", userID, err)
		e.reply(ctx, userID, "⚠️ Could not place the withdrawal. Please try again later.")
		return session.Done
	}

	e.reply(ctx, userID, fmt.Sprintf("✅ Withdrawal request received: %.2f to %s\n🆔 %s\n⏳ Payout after admin review.", req.Amount, req.Handle, req.RequestID))
	for _, adminID := range e.cfg.AdminIDs {
		if err := e.notify.SendWithdrawalReview(ctx, adminID, req); err != nil {
			log.Printf("Failed to notify admin %d about %s: %v", adminID, req.RequestID, err)
		}
	}
	return session.Done
}

// placeWithdrawal holds the funds and enqueues the request as one logical
// step under the user's lock. The ledger record is written first; if the
// deduct then fails the record is voided right away, so a hold can never be
// silently dropped and a request can never outlive a failed hold.
func (e *Engine) placeWithdrawal(ctx context.Context, userID int64, amount float64, handle string) (*models.WithdrawalRequest, error) {
	unlock := e.locks.lock(userID)
	defer unlock()

	user, err := e.accounts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	amount = money.Round(amount)
	if !money.GTE(user.Balance, amount) {
		return nil, ErrInsufficient
	}

	req, err := e.ledger.Enqueue(ctx, userID, amount, handle)
	if err != nil {
		return nil, err
	}

	user.Balance = money.Round(user.Balance - amount)
	if err := e.accounts.Put(ctx, user); err != nil {
		if _, rerr := e.ledger.Resolve(ctx, req.RequestID, models.WithdrawalRejected); rerr != nil {
			log.Printf("Orphaned withdrawal %s after failed deduct: %v", req.RequestID, rerr)
		}
		return nil, fmt.Errorf("hold funds for %d: %w", userID, err)
	}
	return req, nil
}

// ResolveWithdraw applies an admin decision. The ledger's exactly-once Resolve
// is what keeps a double-tapped button from approving twice or refunding
// twice: the second call gets store.ErrNotFound and changes nothing.
func (e *Engine) ResolveWithdraw(ctx context.Context, adminID int64, requestID string, approve bool) (*models.WithdrawalRequest, error) {
	if !e.cfg.IsAdmin(adminID) {
		return nil, ErrNotAdmin
	}

	outcome := models.WithdrawalRejected
	if approve {
		outcome = models.WithdrawalApproved
	}
	req, err := e.ledger.Resolve(ctx, requestID, outcome)
	if err != nil {
		return nil, err
	}

	if approve {
		e.reply(ctx, req.UserID, fmt.Sprintf("✅ Your withdrawal of %.2f to %s was approved. Payout is on the way!", req.Amount, req.Handle))
		return req, nil
	}

	unlock := e.locks.lock(req.UserID)
	user, uerr := e.accounts.GetOrCreate(ctx, req.UserID)
	if uerr == nil {
		user.Balance = money.Round(user.Balance + req.Amount)
		uerr = e.accounts.Put(ctx, user)
	}
	unlock()
	if uerr != nil {
		// the request is already terminal, so this refund will not be retried
		// automatically; it needs an operator
		log.Printf("CRITICAL: refund of %.2f for request %s (user %d) failed: %v", req.Amount, req.RequestID, req.UserID, uerr)
		return req, fmt.Errorf("refund for %s: %w", requestID, uerr)
	}

	e.reply(ctx, req.UserID, fmt.Sprintf("❌ Your withdrawal of %.2f was rejected. The amount is back on your balance.", req.Amount))
	return req, nil
}

// IsAlreadyResolved reports whether err means the request was handled before.
func IsAlreadyResolved(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// reply is best-effort: a failed message never affects committed state.
func (e *Engine) reply(ctx context.Context, userID int64, text string) {
	if err := e.notify.Send(ctx, userID, text); err != nil {
		log.Printf("Failed to message %d: %v", userID, err)
	}
}
