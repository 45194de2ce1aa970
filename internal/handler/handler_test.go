package handler

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"telegram-referral-bot/internal/config"
	"telegram-referral-bot/internal/gateway"
	"telegram-referral-bot/internal/repository"
	"telegram-referral-bot/internal/service"
)

// handlerFixture wires real services over a mocked database and points the
// outbound gateway at a stub Bot API that accepts every method.
type handlerFixture struct {
	bot      *tele.Bot
	gw       *gateway.Client
	mock     pgxmock.PgxPoolIface
	cfg      *config.Config
	accounts *service.AccountService
	admins   *service.AdminService
	gate     *service.SubscriptionGate
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":1,"type":"private"}}}`))
	}))
	t.Cleanup(srv.Close)

	b, err := tele.NewBot(tele.Settings{URL: srv.URL, Token: "test", Offline: true, Synchronous: true})
	require.NoError(t, err)

	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)

	gw := gateway.New(b, gateway.DefaultRetryPolicy())

	users := repository.NewUserRepository(mockDB)
	txs := repository.NewTransactionRepository(mockDB)
	investments := repository.NewInvestmentRepository(mockDB)

	cfg := &config.Config{}
	cfg.Admin.ID = 500
	cfg.Earn.Reward = 1

	return &handlerFixture{
		bot:      b,
		gw:       gw,
		mock:     mockDB,
		cfg:      cfg,
		accounts: service.NewAccountService(users, txs, "my_referral_bot", 1, 60*time.Second, 50),
		admins:   service.NewAdminService(users, txs, investments, 10, 5),
		gate:     service.NewSubscriptionGate(gw, ""),
	}
}

// inlineCallback builds a callback update without an attached message, the
// shape Telegram sends for callbacks on inline-mode results.
func (f *handlerFixture) inlineCallback(senderID int64, data string) tele.Context {
	return f.bot.NewContext(tele.Update{Callback: &tele.Callback{
		ID:     "cb1",
		Sender: &tele.User{ID: senderID, Username: "someone"},
		Data:   data,
	}})
}

// messageCallback builds a regular callback attached to a chat message.
func (f *handlerFixture) messageCallback(senderID int64, data string) tele.Context {
	return f.bot.NewContext(tele.Update{Callback: &tele.Callback{
		ID:     "cb1",
		Sender: &tele.User{ID: senderID, Username: "someone"},
		Data:   data,
		Message: &tele.Message{
			ID:   77,
			Chat: &tele.Chat{ID: senderID, Type: tele.ChatPrivate},
		},
	}})
}

func detailUserRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"user_id", "username", "balance", "referrals", "ref_code",
		"referred_by", "blocked", "last_earn", "joined_at",
	})
}

func TestAccountHandler_EarnCallbackWithoutMessage(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAccountHandler(f.cfg, f.gw, f.accounts, f.gate)

	// No database expectations: the handler must answer and bail out
	// before touching the ledger.
	require.NotPanics(t, func() {
		assert.NoError(t, h.HandleEarn(f.inlineCallback(100, "earn")))
	})
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAccountHandler_MenuCallbackWithoutMessage(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAccountHandler(f.cfg, f.gw, f.accounts, f.gate)

	require.NotPanics(t, func() {
		assert.NoError(t, h.HandleMenu(f.inlineCallback(100, "menu")))
	})
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAdminHandler_BlockCallbackWithoutMessage(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAdminHandler(f.cfg, f.gw, f.admins, f.gate)

	require.NotPanics(t, func() {
		assert.NoError(t, h.HandleBlock(f.inlineCallback(500, "admin_block_100"), 100))
	})
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAdminHandler_BlockRefreshesDetailView(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAdminHandler(f.cfg, f.gw, f.admins, f.gate)

	f.mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET blocked = $2`)).
		WithArgs(int64(100), true).
		WillReturnRows(detailUserRows().AddRow(
			int64(100), "someone", int64(10), int64(2), "a1b2c3d4",
			(*int64)(nil), true, (*time.Time)(nil), time.Now(),
		))
	// The detail view is re-read after the mutation so the blocked flag
	// and the investment count shown are current.
	f.mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE user_id = $1`)).
		WithArgs(int64(100)).
		WillReturnRows(detailUserRows().AddRow(
			int64(100), "someone", int64(10), int64(2), "a1b2c3d4",
			(*int64)(nil), true, (*time.Time)(nil), time.Now(),
		))
	f.mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM investments WHERE user_id = $1`)).
		WithArgs(int64(100)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

	require.NoError(t, h.HandleBlock(f.messageCallback(500, "admin_block_100"), 100))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAdminHandler_ApproveWithdrawalRefreshesDetailView(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAdminHandler(f.cfg, f.gw, f.admins, f.gate)

	f.mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE user_id = $1`)).
		WithArgs(int64(100)).
		WillReturnRows(detailUserRows().AddRow(
			int64(100), "someone", int64(70), int64(2), "a1b2c3d4",
			(*int64)(nil), false, (*time.Time)(nil), time.Now(),
		))
	f.mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET balance = $2`)).
		WithArgs(int64(100), int64(0)).
		WillReturnRows(detailUserRows().AddRow(
			int64(100), "someone", int64(0), int64(2), "a1b2c3d4",
			(*int64)(nil), false, (*time.Time)(nil), time.Now(),
		))
	f.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
		WithArgs(int64(100), int64(-70), "withdraw_payout", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "amount", "type", "description", "created_at",
		}).AddRow(int64(1), int64(100), int64(-70), "withdraw_payout", (*string)(nil), time.Now()))

	// Fresh re-read for the re-rendered detail view.
	f.mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE user_id = $1`)).
		WithArgs(int64(100)).
		WillReturnRows(detailUserRows().AddRow(
			int64(100), "someone", int64(0), int64(2), "a1b2c3d4",
			(*int64)(nil), false, (*time.Time)(nil), time.Now(),
		))
	f.mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM investments WHERE user_id = $1`)).
		WithArgs(int64(100)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	require.NoError(t, h.HandleApproveWithdrawal(f.messageCallback(500, "approve_100"), 100))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
