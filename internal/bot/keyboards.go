package bot

import (
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"rewards-bot/internal/config"
)

const (
	approvePrefix = "wd_approve:"
	rejectPrefix  = "wd_reject:"
	noopPrefix    = "noop_"
)

// forceJoinKeyboard lists one join button per required channel plus the
// verification button. Private channels without an invite link get a disabled
// button that explains itself when tapped.
func forceJoinKeyboard(cfg *config.Config) *telego.InlineKeyboardMarkup {
	var rows [][]telego.InlineKeyboardButton
	for i := range cfg.ForceChannels {
		label := fmt.Sprintf("Join Channel %d", i+1)
		if url := cfg.JoinLink(i); url != "" {
			rows = append(rows, tu.InlineKeyboardRow(tu.InlineKeyboardButton(label).WithURL(url)))
		} else {
			rows = append(rows, tu.InlineKeyboardRow(tu.InlineKeyboardButton(label).WithCallbackData(fmt.Sprintf("%s%d", noopPrefix, i))))
		}
	}
	rows = append(rows, tu.InlineKeyboardRow(tu.InlineKeyboardButton("✅ I joined everything").WithCallbackData("check_join")))
	return tu.InlineKeyboard(rows...)
}

func mainKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🎁 Daily Bonus").WithCallbackData("daily_bonus"),
			tu.InlineKeyboardButton("💰 Balance").WithCallbackData("balance"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("👥 Refer & Earn").WithCallbackData("refer"),
			tu.InlineKeyboardButton("📝 Tasks").WithCallbackData("tasks"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🏧 Withdraw").WithCallbackData("withdraw"),
		),
	)
}
