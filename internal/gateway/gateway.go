// Package gateway wraps the Telegram API client behind a bounded retry
// policy. Outbound failures are soft: after the retries are exhausted the
// caller gets Result{OK: false} and the inbound webhook response is never
// affected.
package gateway

import (
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// RetryPolicy is the named outbound retry configuration.
type RetryPolicy struct {
	MaxAttempts    int
	Delay          time.Duration
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy matches the platform contract: up to 3 attempts,
// fixed backoff, 10 seconds per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		Delay:          time.Second,
		AttemptTimeout: 10 * time.Second,
	}
}

// Result reports the outcome of one outbound call.
type Result struct {
	OK        bool
	MessageID int
}

// api is the subset of *tele.Bot the gateway uses. Tests substitute a fake.
type api interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
	Raw(method string, payload interface{}) ([]byte, error)
}

// Client is the retrying messaging gateway.
type Client struct {
	api    api
	policy RetryPolicy
	// sleep is replaceable in tests.
	sleep func(time.Duration)
}

// New creates a gateway over a telebot instance.
func New(bot *tele.Bot, policy RetryPolicy) *Client {
	return newClient(bot, policy)
}

func newClient(a api, policy RetryPolicy) *Client {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Client{api: a, policy: policy, sleep: time.Sleep}
}

// chatRef is a Recipient for either numeric chat IDs or @usernames.
type chatRef string

func (c chatRef) Recipient() string { return string(c) }

// Chat builds a recipient from a channel reference string.
func Chat(ref string) tele.Recipient { return chatRef(ref) }

// retry runs fn up to MaxAttempts times with a fixed delay in between.
// Returns false when every attempt failed.
func (c *Client) retry(op string, fn func() error) bool {
	var err error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return true
		}
		log.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Int("max_attempts", c.policy.MaxAttempts).
			Msg("Outbound API call failed")
		if attempt < c.policy.MaxAttempts {
			c.sleep(c.policy.Delay)
		}
	}
	log.Error().Err(err).Str("op", op).Msg("Outbound API call exhausted retries")
	return false
}

// Send delivers a text message, optionally with an inline keyboard and
// into a forum thread (threadID 0 means no thread).
func (c *Client) Send(chatID int64, threadID int, text string, markup *tele.ReplyMarkup) Result {
	var msg *tele.Message
	ok := c.retry("sendMessage", func() error {
		opts := []interface{}{&tele.SendOptions{ThreadID: threadID}}
		if markup != nil {
			opts = append(opts, markup)
		}
		var err error
		msg, err = c.api.Send(tele.ChatID(chatID), text, opts...)
		return err
	})
	if !ok {
		return Result{}
	}
	return Result{OK: true, MessageID: msg.ID}
}

// Edit replaces the text (and keyboard) of a previously sent message.
func (c *Client) Edit(chatID int64, messageID int, text string, markup *tele.ReplyMarkup) Result {
	ref := &tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	}
	ok := c.retry("editMessageText", func() error {
		var opts []interface{}
		if markup != nil {
			opts = append(opts, markup)
		}
		_, err := c.api.Edit(ref, text, opts...)
		return err
	})
	return Result{OK: ok, MessageID: messageID}
}

// AnswerCallback acknowledges a callback query, with an optional alert.
func (c *Client) AnswerCallback(callbackID, text string, showAlert bool) Result {
	cb := &tele.Callback{ID: callbackID}
	ok := c.retry("answerCallbackQuery", func() error {
		return c.api.Respond(cb, &tele.CallbackResponse{Text: text, ShowAlert: showAlert})
	})
	return Result{OK: ok}
}

// ChatMemberStatus looks up a user's membership status in a channel.
// Unlike the messaging calls this propagates the terminal error, so the
// subscription gate can fail closed.
func (c *Client) ChatMemberStatus(channel string, userID int64) (tele.MemberStatus, error) {
	var member *tele.ChatMember
	var lastErr error
	ok := c.retry("getChatMember", func() error {
		var err error
		member, err = c.api.ChatMemberOf(Chat(channel), &tele.User{ID: userID})
		lastErr = err
		return err
	})
	if !ok {
		return "", lastErr
	}
	return member.Role, nil
}

// SetWebhook registers url as the update delivery target, dropping any
// pending updates first.
func (c *Client) SetWebhook(url string) error {
	var lastErr error
	ok := c.retry("setWebhook", func() error {
		_, err := c.api.Raw("setWebhook", map[string]string{
			"url":                  url,
			"drop_pending_updates": "true",
		})
		lastErr = err
		return err
	})
	if !ok {
		return lastErr
	}
	return nil
}

// DeleteWebhook unregisters the webhook.
func (c *Client) DeleteWebhook() error {
	var lastErr error
	ok := c.retry("deleteWebhook", func() error {
		_, err := c.api.Raw("deleteWebhook", map[string]string{})
		lastErr = err
		return err
	})
	if !ok {
		return lastErr
	}
	return nil
}

// WebhookInfo returns the platform's raw webhook diagnostic payload.
func (c *Client) WebhookInfo() ([]byte, error) {
	var info []byte
	var lastErr error
	ok := c.retry("getWebhookInfo", func() error {
		var err error
		info, err = c.api.Raw("getWebhookInfo", nil)
		lastErr = err
		return err
	})
	if !ok {
		return nil, lastErr
	}
	return info, nil
}
