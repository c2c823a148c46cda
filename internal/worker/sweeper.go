package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/redis/go-redis/v9"

	"rewards-bot/internal/session"
	"rewards-bot/internal/store"
)

// staleAfter is how long a request may sit pending before admins get nagged.
const staleAfter = 6 * time.Hour

// Sweeper reclaims abandoned dialog sessions and reminds admins about
// withdrawal requests that sat in the queue too long. Reminders are deduped
// through short-lived redis keys so each request nags at most once a day.
type Sweeper struct {
	Sessions *session.Manager
	Ledger   *store.Ledger
	Redis    *redis.Client
	Bot      *telego.Bot
	AdminIDs []int64
	Interval time.Duration
}

func NewSweeper(sessions *session.Manager, ledger *store.Ledger, rdb *redis.Client, bot *telego.Bot, adminIDs []int64) *Sweeper {
	return &Sweeper{
		Sessions: sessions,
		Ledger:   ledger,
		Redis:    rdb,
		Bot:      bot,
		AdminIDs: adminIDs,
		Interval: 5 * time.Minute,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	log.Println("Background sweeper started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	if dropped := s.Sessions.Sweep(); dropped > 0 {
		log.Printf("Reclaimed %d expired dialog sessions", dropped)
	}
	s.nagStaleWithdrawals(ctx)
}

func (s *Sweeper) nagStaleWithdrawals(ctx context.Context) {
	stale, err := s.Ledger.ListStalePending(ctx, time.Now().Add(-staleAfter))
	if err != nil {
		log.Printf("Error querying stale withdrawals: %v", err)
		return
	}

	for _, req := range stale {
		key := fmt.Sprintf("nagged_withdraw_%s", req.RequestID)
		exists, _ := s.Redis.Exists(ctx, key).Result()
		if exists != 0 {
			continue
		}
		msg := fmt.Sprintf("⏰ Withdrawal %s (%.2f for user %d) has been pending since %s. Use /pending to review.",
			req.RequestID, req.Amount, req.UserID, req.CreatedAt.Format("02.01.2006 15:04"))
		notified := false
		for _, adminID := range s.AdminIDs {
			if _, err := s.Bot.SendMessage(ctx, tu.Message(tu.ID(adminID), msg)); err != nil {
				log.Printf("Failed to nag admin %d about %s: %v", adminID, req.RequestID, err)
				continue
			}
			notified = true
		}
		if notified {
			s.Redis.Set(ctx, key, "true", 24*time.Hour)
		}
	}
}
