package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v3"
)

// fakeMembership returns a canned status or error for every lookup.
type fakeMembership struct {
	status tele.MemberStatus
	err    error
	calls  int
}

func (f *fakeMembership) ChatMemberStatus(channel string, userID int64) (tele.MemberStatus, error) {
	f.calls++
	return f.status, f.err
}

func TestSubscriptionGate_Disabled(t *testing.T) {
	api := &fakeMembership{status: tele.Kicked}
	gate := NewSubscriptionGate(api, "")

	assert.False(t, gate.Enabled())
	// No channel configured: everyone passes, no lookup happens.
	assert.True(t, gate.IsSubscribed(100))
	assert.Zero(t, api.calls)
}

func TestSubscriptionGate_MemberStatuses(t *testing.T) {
	tests := []struct {
		status     tele.MemberStatus
		subscribed bool
	}{
		{tele.Member, true},
		{tele.Administrator, true},
		{tele.Creator, true},
		{tele.Left, false},
		{tele.Kicked, false},
		{tele.Restricted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			gate := NewSubscriptionGate(&fakeMembership{status: tt.status}, "@mychannel")

			assert.True(t, gate.Enabled())
			assert.Equal(t, tt.subscribed, gate.IsSubscribed(100))
		})
	}
}

func TestSubscriptionGate_LookupErrorFailsClosed(t *testing.T) {
	api := &fakeMembership{err: errors.New("telegram unavailable")}
	gate := NewSubscriptionGate(api, "@mychannel")

	assert.False(t, gate.IsSubscribed(100))
	assert.Equal(t, 1, api.calls)
}

func TestSubscriptionGate_Channel(t *testing.T) {
	gate := NewSubscriptionGate(&fakeMembership{}, "@mychannel")
	assert.Equal(t, "@mychannel", gate.Channel())
}
