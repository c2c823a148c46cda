// Package engine implements the rewards business rules: daily bonuses,
// referral crediting, the withdrawal workflow and admin actions. Stores and
// the chat transport stay behind small interfaces so the rules are testable
// on their own.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"rewards-bot/internal/config"
	"rewards-bot/internal/models"
	"rewards-bot/internal/money"
	"rewards-bot/internal/session"
)

const dateLayout = "2006-01-02"

// AccountStore gets and puts whole account records. The engine serializes
// concurrent mutations per user itself; the store only has to make first
// contact creation at-most-once.
type AccountStore interface {
	GetOrCreate(ctx context.Context, telegramID int64) (*models.User, error)
	Put(ctx context.Context, user *models.User) error
	ListIDs(ctx context.Context) ([]int64, error)
}

// Ledger queues withdrawal requests and resolves each exactly once.
type Ledger interface {
	Enqueue(ctx context.Context, userID int64, amount float64, handle string) (*models.WithdrawalRequest, error)
	ListPending(ctx context.Context, limit int) ([]models.WithdrawalRequest, error)
	Resolve(ctx context.Context, requestID string, outcome models.WithdrawalStatus) (*models.WithdrawalRequest, error)
}

// MemberCache caches membership oracle answers for a fixed TTL.
type MemberCache interface {
	Get(ctx context.Context, chat string, userID int64) (member bool, found bool, err error)
	Set(ctx context.Context, chat string, userID int64, member bool) error
}

// TaskStore holds the public task list.
type TaskStore interface {
	Get(ctx context.Context) ([]string, error)
	Set(ctx context.Context, tasks []string) error
}

// MembershipOracle is the live external check behind the cache.
type MembershipOracle interface {
	IsMember(ctx context.Context, chat string, userID int64) (bool, error)
}

// Notifier sends outbound messages. Failures are best-effort: the engine logs
// them and never rolls back committed state because a message did not go out.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
	SendWithdrawalReview(ctx context.Context, adminID int64, req *models.WithdrawalRequest) error
}

type Engine struct {
	cfg      *config.Config
	botName  string
	accounts AccountStore
	ledger   Ledger
	members  MemberCache
	tasks    TaskStore
	oracle   MembershipOracle
	notify   Notifier
	sessions *session.Manager
	locks    *keyedLocks
}

func New(cfg *config.Config, botName string, accounts AccountStore, ledger Ledger, members MemberCache,
	tasks TaskStore, oracle MembershipOracle, notify Notifier, sessions *session.Manager) *Engine {
	return &Engine{
		cfg:      cfg,
		botName:  botName,
		accounts: accounts,
		ledger:   ledger,
		members:  members,
		tasks:    tasks,
		oracle:   oracle,
		notify:   notify,
		sessions: sessions,
		locks:    newKeyedLocks(),
	}
}

// Sessions exposes the dialog manager so the transport can route free text.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Touch registers first contact: it creates the account if needed, refreshes
// the advisory name fields and applies referral attribution. The referrer is
// set at most once and never to the user themselves.
func (e *Engine) Touch(ctx context.Context, userID int64, username, firstName string, referrerID int64) (*models.User, error) {
	unlock := e.locks.lock(userID)
	defer unlock()

	user, err := e.accounts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	changed := false
	if username != "" && user.Username != username {
		user.Username = username
		changed = true
	}
	if firstName != "" && user.FirstName != firstName {
		user.FirstName = firstName
		changed = true
	}
	if referrerID != 0 && referrerID != userID && user.ReferrerID == 0 {
		user.ReferrerID = referrerID
		changed = true
	}
	if changed {
		if err := e.accounts.Put(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// Gate checks the ban flag and the force-join requirement. Membership answers
// come from the cache when fresh, otherwise from the live oracle; oracle
// failures count as not-member.
func (e *Engine) Gate(ctx context.Context, userID int64) error {
	user, err := e.accounts.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	if user.Banned {
		return ErrBanned
	}
	if !e.isMemberAll(ctx, userID) {
		return ErrNotMember
	}
	return nil
}

func (e *Engine) isMemberAll(ctx context.Context, userID int64) bool {
	for _, chat := range e.cfg.ForceChannels {
		member, found, err := e.members.Get(ctx, chat, userID)
		if err != nil {
			log.Printf("Membership cache get failed for %s/%d: %v", chat, userID, err)
			found = false
		}
		if !found {
			member, err = e.oracle.IsMember(ctx, chat, userID)
			if err != nil {
				// fail closed, and do not cache an answer we never got
				log.Printf("Membership check failed for %s/%d: %v", chat, userID, err)
				return false
			}
			if err := e.members.Set(ctx, chat, userID, member); err != nil {
				log.Printf("Membership cache set failed for %s/%d: %v", chat, userID, err)
			}
		}
		if !member {
			return false
		}
	}
	return true
}

// VerifyJoin re-checks the gate on the user's request. The first time a
// referred user passes it, their referrer is credited the referral bonus,
// exactly once over the account's lifetime.
func (e *Engine) VerifyJoin(ctx context.Context, userID int64) (bool, error) {
	user, err := e.accounts.GetOrCreate(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.Banned {
		return false, ErrBanned
	}
	if !e.isMemberAll(ctx, userID) {
		return false, nil
	}
	e.payReferralBonus(ctx, userID)
	return true, nil
}

// payReferralBonus commits the paid flag before crediting, so a crash between
// the two can only lose a bonus, never pay it twice.
func (e *Engine) payReferralBonus(ctx context.Context, userID int64) {
	unlock := e.locks.lock(userID)
	user, err := e.accounts.GetOrCreate(ctx, userID)
	if err != nil {
		unlock()
		log.Printf("Referral check failed for %d: %v", userID, err)
		return
	}
	if user.ReferrerID == 0 || user.RefBonusPaid {
		unlock()
		return
	}
	user.RefBonusPaid = true
	if err := e.accounts.Put(ctx, user); err != nil {
		unlock()
		log.Printf("Failed to mark referral bonus for %d: %v", userID, err)
		return
	}
	referrerID := user.ReferrerID
	referred := user.FirstName
	if referred == "" {
		referred = "Your referral"
	}
	unlock()

	unlockRef := e.locks.lock(referrerID)
	referrer, err := e.accounts.GetOrCreate(ctx, referrerID)
	if err == nil {
		referrer.Balance = money.Round(referrer.Balance + e.cfg.ReferralBonus)
		referrer.Referrals++
		err = e.accounts.Put(ctx, referrer)
	}
	unlockRef()
	if err != nil {
		log.Printf("Referral bonus for %d (referred %d) not credited: %v", referrerID, userID, err)
		return
	}

	if err := e.notify.Send(ctx, referrerID,
		fmt.Sprintf("🎉 %s verified through your link. +%.2f credited!", referred, e.cfg.ReferralBonus)); err != nil {
		log.Printf("Failed to notify referrer %d: %v", referrerID, err)
	}
}

// DailyBonus credits the fixed bonus once per UTC calendar day.
func (e *Engine) DailyBonus(ctx context.Context, userID int64) (float64, error) {
	if err := e.Gate(ctx, userID); err != nil {
		return 0, err
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	user, err := e.accounts.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	today := time.Now().UTC().Format(dateLayout)
	if user.LastBonusDate == today {
		return money.Round(user.Balance), ErrAlreadyClaimed
	}
	user.LastBonusDate = today
	user.Balance = money.Round(user.Balance + e.cfg.BonusAmount)
	if err := e.accounts.Put(ctx, user); err != nil {
		return 0, err
	}
	return user.Balance, nil
}

// Balance is a gated read of the current spendable balance.
func (e *Engine) Balance(ctx context.Context, userID int64) (float64, error) {
	if err := e.Gate(ctx, userID); err != nil {
		return 0, err
	}
	user, err := e.accounts.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	return money.Round(user.Balance), nil
}

// TaskList is a gated read of the public task list.
func (e *Engine) TaskList(ctx context.Context, userID int64) ([]string, error) {
	if err := e.Gate(ctx, userID); err != nil {
		return nil, err
	}
	return e.tasks.Get(ctx)
}

// ReferralLink derives the user's share link. No state change.
func (e *Engine) ReferralLink(userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", e.botName, userID)
}
