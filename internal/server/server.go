// Package server hosts the inbound HTTP surface: the webhook endpoint,
// the authenticated management actions and the health probe.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/config"
)

// updateSink receives decoded updates from the webhook endpoint.
type updateSink interface {
	ProcessUpdate(u tele.Update)
}

// webhookManager is the gateway subset behind the management actions.
type webhookManager interface {
	SetWebhook(url string) error
	DeleteWebhook() error
	WebhookInfo() ([]byte, error)
}

// Server owns the HTTP listener.
type Server struct {
	cfg     *config.Config
	sink    updateSink
	gw      webhookManager
	srv     *http.Server
	version string
}

// New creates the HTTP server.
func New(cfg *config.Config, sink updateSink, gw webhookManager, version string) *Server {
	s := &Server{cfg: cfg, sink: sink, gw: gw, version: version}

	router := chi.NewRouter()
	router.Post("/", s.handleWebhook)
	router.Get("/", s.handleRoot)
	router.Get("/health", s.handleHealth)

	s.srv = &http.Server{
		Addr:              cfg.Webhook.Listen,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start runs the listener until Shutdown.
func (s *Server) Start() error {
	log.Info().Str("listen", s.cfg.Webhook.Listen).Msg("HTTP server starting")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// handleWebhook decodes one platform update and feeds it through the
// dispatcher. The platform always gets 200 back: a non-2xx would make it
// retry delivery indefinitely.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read webhook body")
		writeText(w, http.StatusOK, "ok")
		return
	}
	if len(body) == 0 {
		writeText(w, http.StatusOK, "empty body")
		return
	}

	var update tele.Update
	if err := json.Unmarshal(body, &update); err != nil {
		log.Warn().Err(err).Msg("Malformed update payload")
		writeText(w, http.StatusOK, "ok")
		return
	}

	s.sink.ProcessUpdate(update)
	writeText(w, http.StatusOK, "ok")
}

// handleRoot serves the static info body and the query-triggered
// management actions. Management requires the admin secret as a bearer
// token.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch {
	case q.Get("setwebhook") == "1":
		if !s.authorized(r) {
			writeText(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		url := strings.TrimSuffix(s.cfg.Webhook.BaseURL, "/") + "/"
		if err := s.gw.SetWebhook(url); err != nil {
			log.Error().Err(err).Msg("setWebhook failed")
			writeText(w, http.StatusBadGateway, "setwebhook failed")
			return
		}
		writeText(w, http.StatusOK, "webhook set: "+url)

	case q.Get("deletewebhook") == "1":
		if !s.authorized(r) {
			writeText(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err := s.gw.DeleteWebhook(); err != nil {
			log.Error().Err(err).Msg("deleteWebhook failed")
			writeText(w, http.StatusBadGateway, "deletewebhook failed")
			return
		}
		writeText(w, http.StatusOK, "webhook deleted")

	case q.Get("webhook_info") == "1":
		if !s.authorized(r) {
			writeText(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		info, err := s.gw.WebhookInfo()
		if err != nil {
			log.Error().Err(err).Msg("getWebhookInfo failed")
			writeText(w, http.StatusBadGateway, "webhook_info failed")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(info)

	case q.Get("logs") == "1":
		if !s.authorized(r) {
			writeText(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		data, err := os.ReadFile(s.cfg.Log.File)
		if err != nil {
			log.Error().Err(err).Str("file", s.cfg.Log.File).Msg("Log dump failed")
			writeText(w, http.StatusInternalServerError, "log file unavailable")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)

	default:
		writeText(w, http.StatusOK, "telegram referral bot")
	}
}

// authorized checks the bearer token against the admin secret. With no
// secret configured the management actions are disabled entirely.
func (s *Server) authorized(r *http.Request) bool {
	secret := s.cfg.Webhook.Secret
	if secret == "" {
		return false
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("secret")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

type healthResponse struct {
	Status  string `json:"status"`
	Time    string `json:"time"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:  "ok",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Version: s.version,
	})
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
