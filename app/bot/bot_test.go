package bot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/beargentino/marketbot/app/flow"
	"github.com/beargentino/marketbot/app/store"
	"github.com/beargentino/marketbot/pkg/botx"
	"github.com/beargentino/marketbot/pkg/logx"
)

type apiMock struct {
	sent   []botx.Response
	sendFn func(resp botx.Response) error
}

func (m *apiMock) Updates() <-chan botx.Request { return nil }

func (m *apiMock) SendMessage(_ context.Context, resp botx.Response) error {
	if m.sendFn != nil {
		if err := m.sendFn(resp); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, resp)
	return nil
}

type testBot struct {
	ctrl    *Ctrl
	api     *apiMock
	catalog *store.Catalog
	path    string
}

func newTestBot(t *testing.T, defaults map[string]store.ProductRecord) *testBot {
	t.Helper()

	lg := slog.New(logx.NoOp())
	path := filepath.Join(t.TempDir(), "overlay.json")
	catalog := store.NewCatalog(lg, path, defaults)
	api := &apiMock{}

	ctrl := &Ctrl{
		Logger:  lg,
		Catalog: catalog,
		Flows:   flow.NewFlows(lg, catalog, "marketbot"),
		Notifier: &Notifier{
			Logger:         lg,
			API:            api,
			AdminIDs:       []string{"9001", "9002"},
			SupportContact: "@marketbot_support",
		},
		AdminIDs:       []string{"9001", "9002"},
		SiteBaseURL:    "https://market.example.com",
		HandlerTimeout: 5 * time.Second,
	}

	return &testBot{ctrl: ctrl, api: api, catalog: catalog, path: path}
}

func msg(chatID, text string) botx.Request {
	return botx.Request{
		Chat: botx.Chat{ID: chatID},
		From: botx.User{ID: chatID, Username: "user" + chatID},
		Text: text,
	}
}

func TestCtrl_StartWithKnownPayload(t *testing.T) {
	tb := newTestBot(t, map[string]store.ProductRecord{
		"massage-deluxe": {
			ProductName:  "Massage Deluxe",
			SellerName:   "Ivan Seller",
			SellerChatID: 123456789,
		},
	})
	rtr := tb.ctrl.Routes()

	resps, err := rtr.Handle(context.Background(), msg("500", "/start massage-deluxe"))
	require.NoError(t, err)

	require.Len(t, resps, 1)
	assert.Equal(t, "500", resps[0].ChatID)
	assert.Contains(t, resps[0].Text, "Massage Deluxe")
	assert.Contains(t, resps[0].Text, "@marketbot_support")

	// one seller notification and one per admin
	require.Len(t, tb.api.sent, 3)
	assert.Equal(t, "123456789", tb.api.sent[0].ChatID)
	assert.Contains(t, tb.api.sent[0].Text, "@user500")
	assert.Equal(t, "9001", tb.api.sent[1].ChatID)
	assert.Equal(t, "9002", tb.api.sent[2].ChatID)
	assert.Contains(t, tb.api.sent[1].Text, "Ivan Seller")
}

func TestCtrl_StartWithLinkPayload(t *testing.T) {
	tb := newTestBot(t, map[string]store.ProductRecord{
		"foto9063": {ProductName: "foto9063", SellerName: "Seller", SellerChatID: 42},
	})
	rtr := tb.ctrl.Routes()

	resps, err := rtr.Handle(context.Background(), msg("500", "/start https://t.me/marketbot?start=foto9063"))
	require.NoError(t, err)

	require.Len(t, resps, 1)
	assert.Contains(t, resps[0].Text, "foto9063")
}

func TestCtrl_StartUnknownPayload(t *testing.T) {
	tb := newTestBot(t, nil)
	rtr := tb.ctrl.Routes()

	resps, err := rtr.Handle(context.Background(), msg("500", "/start no-such-thing"))
	require.NoError(t, err)

	require.Len(t, resps, 1, "exactly one reply")
	assert.Contains(t, resps[0].Text, "couldn't find")
	assert.Empty(t, tb.api.sent, "no notifications on lookup miss")
}

func TestCtrl_StartEmptyPayload(t *testing.T) {
	tb := newTestBot(t, nil)
	rtr := tb.ctrl.Routes()

	resps, err := rtr.Handle(context.Background(), msg("500", "/start"))
	require.NoError(t, err)

	require.Len(t, resps, 1)
	assert.Contains(t, resps[0].Text, "https://market.example.com")
	assert.Empty(t, tb.api.sent)
}

func TestCtrl_StartReloadsOnMiss(t *testing.T) {
	tb := newTestBot(t, nil)
	rtr := tb.ctrl.Routes()

	// another process writes the overlay behind our back
	lg := slog.New(logx.NoOp())
	other := store.NewCatalog(lg, tb.path, nil)
	other.Upsert(context.Background(), "late-arrival", store.ProductRecord{
		ProductName: "Late Arrival", SellerName: "Seller", SellerChatID: 7,
	})

	resps, err := rtr.Handle(context.Background(), msg("500", "/start late-arrival"))
	require.NoError(t, err)

	require.Len(t, resps, 1)
	assert.Contains(t, resps[0].Text, "Late Arrival")
}

func TestCtrl_SellerWithoutContact(t *testing.T) {
	tb := newTestBot(t, map[string]store.ProductRecord{
		"orphan": {ProductName: "Orphan", SellerName: "Nobody"},
	})
	rtr := tb.ctrl.Routes()

	resps, err := rtr.Handle(context.Background(), msg("500", "/start orphan"))
	require.NoError(t, err)

	require.Len(t, resps, 1)
	assert.Contains(t, resps[0].Text, "a representative")

	// only admin notifications went out
	require.Len(t, tb.api.sent, 2)
	assert.Equal(t, "9001", tb.api.sent[0].ChatID)
	assert.Equal(t, "9002", tb.api.sent[1].ChatID)
}

func TestCtrl_DeliveryFailuresAreIsolated(t *testing.T) {
	tb := newTestBot(t, map[string]store.ProductRecord{
		"massage-deluxe": {ProductName: "Massage Deluxe", SellerName: "Ivan", SellerChatID: 13},
	})
	tb.api.sendFn = func(resp botx.Response) error {
		// seller unreachable and first admin blocked the bot
		if resp.ChatID == "13" || resp.ChatID == "9001" {
			return errors.New("forbidden: bot was blocked by the user")
		}
		return nil
	}
	rtr := tb.ctrl.Routes()

	resps, err := rtr.Handle(context.Background(), msg("500", "/start massage-deluxe"))
	require.NoError(t, err)

	require.Len(t, resps, 1, "customer reply is still attempted")

	// the surviving admin got the notification
	require.Len(t, tb.api.sent, 1)
	assert.Equal(t, "9002", tb.api.sent[0].ChatID)
}

func TestCtrl_NonAdminCommandsRejected(t *testing.T) {
	tb := newTestBot(t, map[string]store.ProductRecord{
		"massage-deluxe": {ProductName: "Massage Deluxe", SellerName: "Ivan"},
	})
	rtr := tb.ctrl.Routes()

	for _, cmd := range []string{"/new", "/delete massage-deluxe"} {
		resps, err := rtr.Handle(context.Background(), msg("500", cmd))
		require.NoError(t, err)

		require.Len(t, resps, 1, "command %q", cmd)
		assert.Contains(t, resps[0].Text, "administrators")
	}

	assert.False(t, tb.ctrl.Flows.PendingAdd("500"))
	assert.False(t, tb.ctrl.Flows.PendingDelete("500"))

	_, ok := tb.catalog.Lookup(context.Background(), "massage-deluxe")
	assert.True(t, ok, "nothing was deleted")
}

func TestCtrl_AddFlowThroughRouter(t *testing.T) {
	tb := newTestBot(t, nil)
	rtr := tb.ctrl.Routes()
	ctx := context.Background()

	steps := []string{"/new", "Massage Deluxe", "Ivan Seller", "123456789"}
	for _, text := range steps {
		resps, err := rtr.Handle(ctx, msg("9001", text))
		require.NoError(t, err)
		require.Len(t, resps, 1, "step %q", text)
	}

	rec, ok := tb.catalog.Lookup(ctx, "massage-deluxe")
	require.True(t, ok)
	assert.Equal(t, store.ProductRecord{
		ProductName:      "Massage Deluxe",
		SellerName:       "Ivan Seller",
		SellerChatID:     123456789,
		SellerContactRaw: "123456789",
	}, rec)
	assert.False(t, tb.ctrl.Flows.PendingAdd("9001"))
}

func TestCtrl_DeleteFlowThroughRouter(t *testing.T) {
	tb := newTestBot(t, map[string]store.ProductRecord{
		"massage-deluxe": {ProductName: "Massage Deluxe", SellerName: "Ivan"},
	})
	rtr := tb.ctrl.Routes()
	ctx := context.Background()

	resps, err := rtr.Handle(ctx, msg("9001", "/delete massage-deluxe"))
	require.NoError(t, err)
	require.Len(t, resps, 1)
	assert.Contains(t, resps[0].Text, "deleted")

	_, ok := tb.catalog.Lookup(ctx, "massage-deluxe")
	assert.False(t, ok)
	assert.False(t, tb.ctrl.Flows.PendingDelete("9001"))
}

func TestCtrl_PlainTextWithoutFlowIgnored(t *testing.T) {
	tb := newTestBot(t, nil)
	rtr := tb.ctrl.Routes()

	resps, err := rtr.Handle(context.Background(), msg("500", "hello there"))
	require.NoError(t, err)
	assert.Empty(t, resps)
	assert.Empty(t, tb.api.sent)
}
