package menu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"telegram-referral-bot/internal/model"
)

func TestFormatEarnCooldown_RoundsUp(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		want      string
	}{
		{time.Millisecond, "⏰ Too soon! Try again in 1 seconds"},
		{time.Second, "⏰ Too soon! Try again in 1 seconds"},
		{1500 * time.Millisecond, "⏰ Too soon! Try again in 2 seconds"},
		{59*time.Second + 1, "⏰ Too soon! Try again in 60 seconds"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatEarnCooldown(tt.remaining))
	}
}

func TestFormatMenu(t *testing.T) {
	user := &model.User{UserID: 100, Username: "alice", Balance: 42, Referrals: 3}

	msg := FormatMenu(user)
	assert.Contains(t, msg, "@alice")
	assert.Contains(t, msg, "Balance: 42 pts")
	assert.Contains(t, msg, "Referrals: 3")
}

func TestFormatProfile_NoUsernameFallsBackToID(t *testing.T) {
	user := &model.User{UserID: 100, JoinedAt: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}

	msg := FormatProfile(user)
	assert.Contains(t, msg, "ID: 100")
	assert.Contains(t, msg, "15 Mar 2026")
}

func TestFormatUserDetail(t *testing.T) {
	inviterID := int64(500)
	user := &model.User{
		UserID:     100,
		Username:   "alice",
		Balance:    42,
		Referrals:  3,
		RefCode:    "a1b2c3d4",
		ReferredBy: &inviterID,
		Blocked:    true,
		JoinedAt:   time.Now(),
	}

	msg := FormatUserDetail(user, 2, true, false)
	assert.Contains(t, msg, "Invited by: 500")
	assert.Contains(t, msg, "Investments: 2")
	assert.Contains(t, msg, "🚫 Blocked")
	assert.Contains(t, msg, "Not subscribed")

	// Gate disabled: no subscription line at all.
	msg = FormatUserDetail(user, 0, false, false)
	assert.NotContains(t, msg, "subscribed")
}

func TestFormatStatsWithTop(t *testing.T) {
	stats := &model.Stats{TotalUsers: 5, ActiveUsers: 4, BlockedUsers: 1, TotalBalance: 300, TotalReferrals: 7}

	t.Run("empty top", func(t *testing.T) {
		msg := FormatStatsWithTop(stats, nil)
		assert.Contains(t, msg, "Users: 5 (active: 4, blocked: 1)")
		assert.Contains(t, msg, "nobody yet")
	})

	t.Run("ranked listing", func(t *testing.T) {
		top := []*model.User{
			{UserID: 1, Username: "alice", Balance: 200, Referrals: 4},
			{UserID: 2, Balance: 100, Referrals: 3},
		}
		msg := FormatStatsWithTop(stats, top)
		assert.Contains(t, msg, "1. @alice - 200 pts (4 ref)")
		assert.Contains(t, msg, "2. 2 - 100 pts (3 ref)")
	})
}

func TestChannelURL(t *testing.T) {
	assert.Equal(t, "https://t.me/mychannel", ChannelURL("@mychannel"))
	assert.Empty(t, ChannelURL("-1001234567890"))
	assert.Empty(t, ChannelURL(""))
}

func TestBuildMainMenu(t *testing.T) {
	plain := BuildMainMenu(false)
	admin := BuildMainMenu(true)

	// The admin variant carries exactly one extra row.
	assert.Len(t, admin.InlineKeyboard, len(plain.InlineKeyboard)+1)

	last := admin.InlineKeyboard[len(admin.InlineKeyboard)-1]
	assert.Equal(t, CallbackAdminPanel, last[0].Unique)
}

func TestBuildSubscribePrompt(t *testing.T) {
	t.Run("public channel gets a link row", func(t *testing.T) {
		markup := BuildSubscribePrompt("@mychannel")
		assert.Len(t, markup.InlineKeyboard, 2)
		assert.Equal(t, "https://t.me/mychannel", markup.InlineKeyboard[0][0].URL)
		assert.Equal(t, CallbackCheckSubscription, markup.InlineKeyboard[1][0].Unique)
	})

	t.Run("private channel only gets the check button", func(t *testing.T) {
		markup := BuildSubscribePrompt("-1001234567890")
		assert.Len(t, markup.InlineKeyboard, 1)
		assert.Equal(t, CallbackCheckSubscription, markup.InlineKeyboard[0][0].Unique)
	})
}

func TestBuildUserDetail_BlockToggle(t *testing.T) {
	active := BuildUserDetail(&model.User{UserID: 100})
	assert.Equal(t, PrefixAdminBlock+"100", active.InlineKeyboard[0][0].Unique)

	blocked := BuildUserDetail(&model.User{UserID: 100, Blocked: true})
	assert.Equal(t, PrefixAdminUnblock+"100", blocked.InlineKeyboard[0][0].Unique)
}

func TestBuildUsersList(t *testing.T) {
	users := []*model.User{
		{UserID: 100, Username: "alice", Balance: 42},
		{UserID: 101, Balance: 7},
	}

	markup := BuildUsersList(users)
	// One row per user plus the back row.
	assert.Len(t, markup.InlineKeyboard, 3)
	assert.Equal(t, PrefixAdminUserDetails+"100", markup.InlineKeyboard[0][0].Unique)
	assert.Equal(t, PrefixAdminUserDetails+"101", markup.InlineKeyboard[1][0].Unique)
	assert.Equal(t, CallbackAdminPanel, markup.InlineKeyboard[2][0].Unique)
}
