package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"rewards-bot/internal/config"
	"rewards-bot/internal/engine"
	"rewards-bot/internal/session"
)

type Bot struct {
	Instance *telego.Bot
	Engine   *engine.Engine
	Sessions *session.Manager
	Config   *config.Config
}

func NewBot(instance *telego.Bot, eng *engine.Engine, sessions *session.Manager, cfg *config.Config) *Bot {
	return &Bot{
		Instance: instance,
		Engine:   eng,
		Sessions: sessions,
		Config:   cfg,
	}
}

func (b *Bot) Start() {
	updates, _ := b.Instance.UpdatesViaLongPolling(context.Background(), nil)

	handler, _ := th.NewBotHandler(b.Instance, updates)

	// /start command
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		userID := message.From.ID

		// referral payload: /start <referrer telegram id>
		var referrerID int64
		if parts := strings.Split(message.Text, " "); len(parts) > 1 {
			referrerID, _ = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		}

		user, err := b.Engine.Touch(ctx.Context(), userID, message.From.Username, message.From.FirstName, referrerID)
		if err != nil {
			log.Printf("Failed to register user %d: %v", userID, err)
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), "⚠️ Something went wrong, please try again."))
			return nil
		}

		name := user.FirstName
		if name == "" {
			name = "Friend"
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(message.Chat.ID),
			fmt.Sprintf("Hi %s! 👋\n\n👉 Join all the channels below first, then hit verify to start earning.", name),
		).WithReplyMarkup(forceJoinKeyboard(b.Config)))
		return nil
	}, th.CommandEqual("start"))

	// Verification after joining the force channels
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		userID := callback.From.ID

		ok, err := b.Engine.VerifyJoin(ctx.Context(), userID)
		if errors.Is(err, engine.ErrBanned) {
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID).WithText("🚫 Your account is banned.").WithShowAlert())
			return nil
		}
		if err != nil {
			log.Printf("Verify failed for %d: %v", userID, err)
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID).WithText("⚠️ Something went wrong, try again.").WithShowAlert())
			return nil
		}
		if !ok {
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID).WithText("❗ You have not joined all channels yet. Join and tap again.").WithShowAlert())
			return nil
		}

		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID).WithText("✅ Verified!"))
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(userID),
			"✅ Verification complete! Use the buttons below to start earning:",
		).WithReplyMarkup(mainKeyboard()))
		return nil
	}, th.CallbackDataEqual("check_join"))

	// Disabled join buttons for private channels without an invite link
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(update.CallbackQuery.ID).
			WithText("This private channel has no invite link configured. Ask an admin for one.").
			WithShowAlert())
		return nil
	}, th.CallbackDataPrefix(noopPrefix))

	// Daily bonus
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		userID := callback.From.ID

		balance, err := b.Engine.DailyBonus(ctx.Context(), userID)
		switch {
		case errors.Is(err, engine.ErrAlreadyClaimed):
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID).WithText("You already claimed today's bonus. Come back tomorrow! 😊").WithShowAlert())
		case err != nil:
			b.answerGateError(ctx, callback, userID, err)
		default:
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID).WithText(fmt.Sprintf("🎁 +%.2f credited!", b.Config.BonusAmount)))
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
				tu.ID(userID),
				fmt.Sprintf("🎁 Daily bonus credited: +%.2f\n💰 Current balance: %.2f", b.Config.BonusAmount, balance),
			))
		}
		return nil
	}, th.CallbackDataEqual("daily_bonus"))

	// Balance
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		userID := callback.From.ID

		balance, err := b.Engine.Balance(ctx.Context(), userID)
		if err != nil {
			b.answerGateError(ctx, callback, userID, err)
			return nil
		}
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(userID), fmt.Sprintf("💰 Your balance: *%.2f*", balance)).WithParseMode(telego.ModeMarkdown))
		return nil
	}, th.CallbackDataEqual("balance"))

	// Referral link
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		userID := callback.From.ID

		link := b.Engine.ReferralLink(userID)
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(userID),
			fmt.Sprintf("👥 *Refer & Earn*\n\nShare your link:\n%s\n\nYou get +%.2f when your friend verifies.", link, b.Config.ReferralBonus),
		).WithParseMode(telego.ModeMarkdown))
		return nil
	}, th.CallbackDataEqual("refer"))

	// Task list
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		userID := callback.From.ID

		tasks, err := b.Engine.TaskList(ctx.Context(), userID)
		if err != nil {
			b.answerGateError(ctx, callback, userID, err)
			return nil
		}
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		if len(tasks) == 0 {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(userID), "📝 No tasks available right now. Check back later."))
			return nil
		}
		var sb strings.Builder
		sb.WriteString("📝 *Available tasks:*\n")
		for i, t := range tasks {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, t))
		}
		sb.WriteString("\n(Send proof after completion – an admin will verify.)")
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(userID), sb.String()).WithParseMode(telego.ModeMarkdown))
		return nil
	}, th.CallbackDataEqual("tasks"))

	// Withdraw dialog entry
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		userID := callback.From.ID

		balance, err := b.Engine.BeginWithdraw(ctx.Context(), userID)
		switch {
		case errors.Is(err, engine.ErrBelowMinimum):
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
				tu.ID(userID),
				fmt.Sprintf("❗ Minimum withdrawal is %.2f. Your balance: %.2f", b.Config.WithdrawMin, balance),
			))
		case err != nil:
			b.answerGateError(ctx, callback, userID, err)
		default:
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
				tu.ID(userID),
				fmt.Sprintf("🏧 Reply with the amount to withdraw (up to %.2f), or %s.", balance, session.CancelCommand),
			))
		}
		return nil
	}, th.CallbackDataEqual("withdraw"))

	// Admin approve / reject buttons
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		b.handleResolve(ctx, update.CallbackQuery, strings.TrimPrefix(update.CallbackQuery.Data, approvePrefix), true)
		return nil
	}, th.CallbackDataPrefix(approvePrefix))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		b.handleResolve(ctx, update.CallbackQuery, strings.TrimPrefix(update.CallbackQuery.Data, rejectPrefix), false)
		return nil
	}, th.CallbackDataPrefix(rejectPrefix))

	b.registerAdminCommands(handler)

	// Free text goes to the active dialog, if any
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		userID := update.Message.From.ID

		switch b.Sessions.Feed(ctx.Context(), userID, update.Message.Text) {
		case session.Cancelled:
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(userID), "❌ Cancelled. Nothing was changed."))
		case session.Expired:
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(userID), "⌛ That dialog timed out. Start again from the menu."))
		}
		return nil
	}, th.AnyMessageWithText())

	handler.Start()
}

func (b *Bot) handleResolve(ctx *th.Context, callback *telego.CallbackQuery, requestID string, approve bool) {
	adminID := callback.From.ID

	req, err := b.Engine.ResolveWithdraw(ctx.Context(), adminID, requestID, approve)
	switch {
	case errors.Is(err, engine.ErrNotAdmin):
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID).WithText("🚫 Admins only.").WithShowAlert())
	case engine.IsAlreadyResolved(err):
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID).WithText("Already handled by someone.").WithShowAlert())
	case err != nil:
		log.Printf("Resolve %s by %d failed: %v", requestID, adminID, err)
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID).WithText("⚠️ Something went wrong, check the logs.").WithShowAlert())
	default:
		verdict := "rejected and refunded"
		if approve {
			verdict = "approved"
		}
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID).WithText("Done."))
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(adminID),
			fmt.Sprintf("🆔 %s: %.2f for user %d %s.", req.RequestID, req.Amount, req.UserID, verdict),
		))
	}
}

// answerGateError maps guard failures to actionable answers and everything
// else to a generic retry message.
func (b *Bot) answerGateError(ctx *th.Context, callback *telego.CallbackQuery, userID int64, err error) {
	switch {
	case errors.Is(err, engine.ErrBanned):
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID).WithText("🚫 Your account is banned.").WithShowAlert())
	case errors.Is(err, engine.ErrNotMember):
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(userID),
			"⚠️ Join all the required channels first, then try again.",
		).WithReplyMarkup(forceJoinKeyboard(b.Config)))
	default:
		log.Printf("Operation failed for %d: %v", userID, err)
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID).WithText("⚠️ Something went wrong, try again.").WithShowAlert())
	}
}
