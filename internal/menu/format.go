package menu

import (
	"fmt"
	"time"

	"telegram-referral-bot/internal/model"
)

const separator = "━━━━━━━━━━━━━━━\n"

// FormatWelcome creates the first-contact greeting.
func FormatWelcome(user *model.User, refLink string) string {
	msg := fmt.Sprintf("🎉 Welcome, %s!\n", displayName(user))
	msg += separator
	msg += "Earn points, invite friends and track your balance right here.\n\n"
	msg += fmt.Sprintf("🔗 Your referral link:\n%s", refLink)
	return msg
}

// FormatMenu creates the main menu header.
func FormatMenu(user *model.User) string {
	msg := fmt.Sprintf("👋 Hi, %s!\n", displayName(user))
	msg += separator
	msg += fmt.Sprintf("💰 Balance: %d pts\n", user.Balance)
	msg += fmt.Sprintf("👥 Referrals: %d\n", user.Referrals)
	msg += separator
	msg += "Pick an action below:"
	return msg
}

// FormatSubscribePrompt creates the gate message.
func FormatSubscribePrompt(channel string) string {
	msg := "🔒 Almost there!\n"
	msg += separator
	msg += fmt.Sprintf("Subscribe to %s to unlock the bot, then tap the button below.", channel)
	return msg
}

// FormatEarnSuccess reports a successful earn action.
func FormatEarnSuccess(reward, balance int64) string {
	return fmt.Sprintf("✅ +%d pts! Your balance: %d pts", reward, balance)
}

// FormatEarnCooldown reports the remaining cooldown, rounded up to whole
// seconds so a non-zero wait never reads as "0 seconds".
func FormatEarnCooldown(remaining time.Duration) string {
	secs := int64((remaining + time.Second - 1) / time.Second)
	return fmt.Sprintf("⏰ Too soon! Try again in %d seconds", secs)
}

// FormatReferralInfo creates the referral projection of the user's row.
func FormatReferralInfo(user *model.User, refLink string) string {
	msg := "👥 Your referrals\n"
	msg += separator
	msg += fmt.Sprintf("Invited: %d\n", user.Referrals)
	msg += separator
	msg += fmt.Sprintf("🔗 Share your link:\n%s", refLink)
	return msg
}

// FormatProfile creates the profile projection of the user's row.
func FormatProfile(user *model.User) string {
	msg := "📊 Your profile\n"
	msg += separator
	msg += fmt.Sprintf("🆔 ID: %d\n", user.UserID)
	msg += fmt.Sprintf("💰 Balance: %d pts\n", user.Balance)
	msg += fmt.Sprintf("👥 Referrals: %d\n", user.Referrals)
	msg += fmt.Sprintf("📅 Joined: %s", user.JoinedAt.Format("02 Jan 2006"))
	return msg
}

// FormatStats creates the aggregate statistics message.
func FormatStats(stats *model.Stats) string {
	msg := "📈 Bot statistics\n"
	msg += separator
	msg += fmt.Sprintf("👥 Users: %d (active: %d, blocked: %d)\n", stats.TotalUsers, stats.ActiveUsers, stats.BlockedUsers)
	msg += fmt.Sprintf("💰 Total balance: %d pts\n", stats.TotalBalance)
	msg += fmt.Sprintf("🔗 Total referrals: %d", stats.TotalReferrals)
	return msg
}

// FormatStatsWithTop appends the top-N listing to the statistics message.
func FormatStatsWithTop(stats *model.Stats, top []*model.User) string {
	msg := FormatStats(stats) + "\n" + separator
	msg += "🏆 Top by balance:\n"
	if len(top) == 0 {
		msg += "- nobody yet"
		return msg
	}
	for i, u := range top {
		msg += fmt.Sprintf("%d. %s - %d pts (%d ref)\n", i+1, displayName(u), u.Balance, u.Referrals)
	}
	return msg
}

// FormatUsersList creates the header above the user list keyboard.
func FormatUsersList(count int) string {
	return fmt.Sprintf("👤 Latest users (%d shown), newest first:", count)
}

// FormatUserDetail creates the admin drill-down profile. The subscribed
// flag is only meaningful when the gate is enabled.
func FormatUserDetail(user *model.User, investments int64, gateEnabled, subscribed bool) string {
	msg := fmt.Sprintf("👤 User %s\n", displayName(user))
	msg += separator
	msg += fmt.Sprintf("🆔 ID: %d\n", user.UserID)
	msg += fmt.Sprintf("💰 Balance: %d pts\n", user.Balance)
	msg += fmt.Sprintf("👥 Referrals: %d\n", user.Referrals)
	msg += fmt.Sprintf("🔗 Ref code: %s\n", user.RefCode)
	if user.ReferredBy != nil {
		msg += fmt.Sprintf("🤝 Invited by: %d\n", *user.ReferredBy)
	}
	msg += fmt.Sprintf("📦 Investments: %d\n", investments)
	msg += fmt.Sprintf("📅 Joined: %s\n", user.JoinedAt.Format("02 Jan 2006 15:04"))
	if user.Blocked {
		msg += "🚫 Blocked\n"
	}
	if gateEnabled {
		if subscribed {
			msg += "📣 Subscribed to channel\n"
		} else {
			msg += "📣 Not subscribed\n"
		}
	}
	return msg
}

// FormatBlockedNotice is sent to a user whose blocked state changed.
func FormatBlockedNotice(blocked bool) string {
	if blocked {
		return "🚫 Your account has been blocked by the administrator."
	}
	return "✅ Your account has been unblocked. Welcome back!"
}

// FormatPayoutNotice is sent to a user after a withdrawal decision.
func FormatPayoutNotice(approved bool, amount int64) string {
	if approved {
		return fmt.Sprintf("💸 Your withdrawal of %d pts has been paid out!", amount)
	}
	return "↩️ Your withdrawal was declined; the funds remain on your balance."
}
