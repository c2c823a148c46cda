package bot

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"rewards-bot/internal/engine"
)

const pendingListLimit = 20

func (b *Bot) registerAdminCommands(handler *th.BotHandler) {
	// /pending — review queue with approve/reject buttons
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		adminID := update.Message.From.ID

		reqs, err := b.Engine.PendingWithdrawals(ctx.Context(), adminID, pendingListLimit)
		if b.replyAdminError(ctx, adminID, err) {
			return nil
		}
		if len(reqs) == 0 {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(adminID), "Nothing pending. 🎉"))
			return nil
		}
		for i := range reqs {
			req := reqs[i]
			keyboard := tu.InlineKeyboard(
				tu.InlineKeyboardRow(
					tu.InlineKeyboardButton("✅ Approve").WithCallbackData(approvePrefix+req.RequestID),
					tu.InlineKeyboardButton("❌ Reject").WithCallbackData(rejectPrefix+req.RequestID),
				),
			)
			msg := fmt.Sprintf("⏳ %.2f to %s\n👤 User: %d\n🆔 %s\n📅 %s",
				req.Amount, req.Handle, req.UserID, req.RequestID, req.CreatedAt.Format("02.01.2006 15:04"))
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(adminID), msg).WithReplyMarkup(keyboard))
		}
		return nil
	}, th.CommandEqual("pending"))

	// /addbal <user id> <delta>
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		adminID := update.Message.From.ID

		fields := strings.Fields(update.Message.Text)
		if len(fields) != 3 {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(adminID), "Usage: /addbal <user id> <amount, negative to subtract>"))
			return nil
		}
		userID, err1 := strconv.ParseInt(fields[1], 10, 64)
		delta, err2 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(adminID), "Usage: /addbal <user id> <amount, negative to subtract>"))
			return nil
		}

		balance, err := b.Engine.AdjustBalance(ctx.Context(), adminID, userID, delta)
		if b.replyAdminError(ctx, adminID, err) {
			return nil
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(adminID), fmt.Sprintf("💰 User %d balance is now %.2f", userID, balance)))
		return nil
	}, th.CommandEqual("addbal"))

	// /ban <user id>, /unban <user id>
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		b.handleBanCommand(ctx, update, true)
		return nil
	}, th.CommandEqual("ban"))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		b.handleBanCommand(ctx, update, false)
		return nil
	}, th.CommandEqual("unban"))

	// /broadcast <text>
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		adminID := update.Message.From.ID

		text := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/broadcast"))
		if text == "" {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(adminID), "Usage: /broadcast <message>"))
			return nil
		}

		sent, err := b.Engine.Broadcast(ctx.Context(), adminID, text)
		if b.replyAdminError(ctx, adminID, err) {
			return nil
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(adminID), fmt.Sprintf("📣 Delivered to %d users.", sent)))
		return nil
	}, th.CommandEqual("broadcast"))

	// /settasks task one | task two | ...
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		adminID := update.Message.From.ID

		raw := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/settasks"))
		var tasks []string
		for _, part := range strings.Split(raw, "|") {
			if p := strings.TrimSpace(part); p != "" {
				tasks = append(tasks, p)
			}
		}

		err := b.Engine.SetTaskList(ctx.Context(), adminID, tasks)
		if b.replyAdminError(ctx, adminID, err) {
			return nil
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(adminID), fmt.Sprintf("📝 Task list updated (%d tasks).", len(tasks))))
		return nil
	}, th.CommandEqual("settasks"))
}

func (b *Bot) handleBanCommand(ctx *th.Context, update telego.Update, banned bool) {
	adminID := update.Message.From.ID

	fields := strings.Fields(update.Message.Text)
	if len(fields) != 2 {
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(adminID), fmt.Sprintf("Usage: %s <user id>", fields[0])))
		return
	}
	userID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(adminID), fmt.Sprintf("Usage: %s <user id>", fields[0])))
		return
	}

	if err := b.Engine.SetBanned(ctx.Context(), adminID, userID, banned); b.replyAdminError(ctx, adminID, err) {
		return
	}
	verdict := "unbanned"
	if banned {
		verdict = "banned"
	}
	_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(adminID), fmt.Sprintf("User %d %s.", userID, verdict)))
}

// replyAdminError reports err to the admin and returns true when there was one.
func (b *Bot) replyAdminError(ctx *th.Context, adminID int64, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, engine.ErrNotAdmin) {
		// silently ignore non-admins poking at admin commands
		return true
	}
	log.Printf("Admin command by %d failed: %v", adminID, err)
	_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(adminID), "⚠️ Something went wrong, check the logs."))
	return true
}
