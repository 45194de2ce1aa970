package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/config"
)

// fakeSink records the updates the webhook endpoint forwards.
type fakeSink struct {
	updates []tele.Update
}

func (f *fakeSink) ProcessUpdate(u tele.Update) {
	f.updates = append(f.updates, u)
}

// fakeManager records management calls and returns canned results.
type fakeManager struct {
	setURL     string
	deleted    bool
	infoCalled bool
	err        error
}

func (f *fakeManager) SetWebhook(url string) error {
	f.setURL = url
	return f.err
}

func (f *fakeManager) DeleteWebhook() error {
	f.deleted = true
	return f.err
}

func (f *fakeManager) WebhookInfo() ([]byte, error) {
	f.infoCalled = true
	if f.err != nil {
		return nil, f.err
	}
	return []byte(`{"ok":true,"result":{}}`), nil
}

func newTestServer(t *testing.T, secret string) (*Server, *fakeSink, *fakeManager) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Webhook.BaseURL = "https://bot.example.com"
	cfg.Webhook.Listen = ":0"
	cfg.Webhook.Secret = secret
	cfg.Log.File = filepath.Join(t.TempDir(), "bot.log")

	sink := &fakeSink{}
	gw := &fakeManager{}
	return New(cfg, sink, gw, "test"), sink, gw
}

func TestHandleWebhook(t *testing.T) {
	t.Run("valid update is forwarded", func(t *testing.T) {
		srv, sink, _ := newTestServer(t, "")

		body := `{"update_id":7,"message":{"message_id":1,"text":"/start","chat":{"id":100,"type":"private"},"from":{"id":100,"username":"alice"}}}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
		require.Len(t, sink.updates, 1)
		assert.Equal(t, 7, sink.updates[0].ID)
		require.NotNil(t, sink.updates[0].Message)
		assert.Equal(t, "/start", sink.updates[0].Message.Text)
	})

	t.Run("empty body still answers 200", func(t *testing.T) {
		srv, sink, _ := newTestServer(t, "")

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "empty body", rec.Body.String())
		assert.Empty(t, sink.updates)
	})

	t.Run("malformed JSON still answers 200", func(t *testing.T) {
		srv, sink, _ := newTestServer(t, "")

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, sink.updates)
	})
}

func TestHandleRoot_Static(t *testing.T) {
	srv, _, _ := newTestServer(t, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "telegram referral bot", rec.Body.String())
}

func TestHandleRoot_Management(t *testing.T) {
	t.Run("setwebhook with bearer token", func(t *testing.T) {
		srv, _, gw := newTestServer(t, "s3cret")

		req := httptest.NewRequest(http.MethodGet, "/?setwebhook=1", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://bot.example.com/", gw.setURL)
	})

	t.Run("setwebhook with query secret", func(t *testing.T) {
		srv, _, gw := newTestServer(t, "s3cret")

		req := httptest.NewRequest(http.MethodGet, "/?setwebhook=1&secret=s3cret", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, gw.setURL)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		srv, _, gw := newTestServer(t, "s3cret")

		req := httptest.NewRequest(http.MethodGet, "/?setwebhook=1&secret=wrong", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, gw.setURL)
	})

	t.Run("empty configured secret disables management", func(t *testing.T) {
		srv, _, gw := newTestServer(t, "")

		req := httptest.NewRequest(http.MethodGet, "/?setwebhook=1&secret=", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, gw.setURL)
	})

	t.Run("deletewebhook", func(t *testing.T) {
		srv, _, gw := newTestServer(t, "s3cret")

		req := httptest.NewRequest(http.MethodGet, "/?deletewebhook=1", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, gw.deleted)
	})

	t.Run("webhook_info", func(t *testing.T) {
		srv, _, gw := newTestServer(t, "s3cret")

		req := httptest.NewRequest(http.MethodGet, "/?webhook_info=1", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, gw.infoCalled)
		assert.JSONEq(t, `{"ok":true,"result":{}}`, rec.Body.String())
	})

	t.Run("gateway failure maps to 502", func(t *testing.T) {
		srv, _, gw := newTestServer(t, "s3cret")
		gw.err = errors.New("telegram unavailable")

		req := httptest.NewRequest(http.MethodGet, "/?setwebhook=1", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestHandleRoot_Logs(t *testing.T) {
	srv, _, _ := newTestServer(t, "s3cret")
	require.NoError(t, os.WriteFile(srv.cfg.Log.File, []byte("line one\nline two\n"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/?logs=1", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "line one\nline two\n", rec.Body.String())
}

func TestHandleHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status  string `json:"status"`
		Time    string `json:"time"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.NotEmpty(t, resp.Time)
}
