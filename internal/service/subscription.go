package service

import (
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// membershipAPI is the gateway call the gate depends on.
type membershipAPI interface {
	ChatMemberStatus(channel string, userID int64) (tele.MemberStatus, error)
}

// SubscriptionGate is the channel-membership predicate. It holds no cache;
// membership is looked up fresh on every check.
type SubscriptionGate struct {
	gw      membershipAPI
	channel string
}

// NewSubscriptionGate creates a gate for the given channel reference.
// An empty channel disables the gate entirely.
func NewSubscriptionGate(gw membershipAPI, channel string) *SubscriptionGate {
	return &SubscriptionGate{gw: gw, channel: channel}
}

// Enabled reports whether a gate channel is configured.
func (g *SubscriptionGate) Enabled() bool {
	return g.channel != ""
}

// Channel returns the configured channel reference.
func (g *SubscriptionGate) Channel() string {
	return g.channel
}

// IsSubscribed reports whether the user may pass the gate. With no channel
// configured the gate always passes. Lookup failures fail closed.
func (g *SubscriptionGate) IsSubscribed(userID int64) bool {
	if !g.Enabled() {
		return true
	}
	status, err := g.gw.ChatMemberStatus(g.channel, userID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Membership lookup failed, treating as not subscribed")
		return false
	}
	return subscribedStatus(status)
}

// subscribedStatus maps a membership status onto the gate predicate.
func subscribedStatus(status tele.MemberStatus) bool {
	switch status {
	case tele.Member, tele.Administrator, tele.Creator:
		return true
	default:
		return false
	}
}
