package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"rewards-bot/internal/models"
)

// Telegram adapts a telego bot to the engine's Notifier and MembershipOracle.
type Telegram struct {
	bot *telego.Bot
}

func NewTelegram(b *telego.Bot) *Telegram {
	return &Telegram{bot: b}
}

func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	_, err := t.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	return err
}

func (t *Telegram) SendWithdrawalReview(ctx context.Context, adminID int64, req *models.WithdrawalRequest) error {
	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅ Approve").WithCallbackData(approvePrefix+req.RequestID),
			tu.InlineKeyboardButton("❌ Reject").WithCallbackData(rejectPrefix+req.RequestID),
		),
	)
	msg := fmt.Sprintf("🏧 Withdrawal request\n👤 User: %d\n💸 Amount: %.2f\n🏦 Handle: %s\n🆔 %s",
		req.UserID, req.Amount, req.Handle, req.RequestID)
	_, err := t.bot.SendMessage(ctx, tu.Message(tu.ID(adminID), msg).WithReplyMarkup(keyboard))
	return err
}

// IsMember asks Telegram whether the user currently belongs to the chat.
// Creator and administrator count as members.
func (t *Telegram) IsMember(ctx context.Context, chat string, userID int64) (bool, error) {
	member, err := t.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: chatRef(chat),
		UserID: userID,
	})
	if err != nil {
		return false, fmt.Errorf("get chat member %s/%d: %w", chat, userID, err)
	}
	switch member.MemberStatus() {
	case telego.MemberStatusCreator, telego.MemberStatusAdministrator, telego.MemberStatusMember:
		return true, nil
	}
	return false, nil
}

// chatRef accepts both "-100..." numeric ids and public usernames.
func chatRef(chat string) telego.ChatID {
	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		return tu.ID(id)
	}
	return tu.Username("@" + strings.TrimPrefix(chat, "@"))
}
