package flow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/beargentino/marketbot/app/store"
	"github.com/beargentino/marketbot/pkg/logx"
)

func newTestFlows(t *testing.T, defaults map[string]store.ProductRecord) (*Flows, *store.Catalog) {
	t.Helper()
	lg := slog.New(logx.NoOp())
	catalog := store.NewCatalog(lg, filepath.Join(t.TempDir(), "overlay.json"), defaults)
	return NewFlows(lg, catalog, "marketbot"), catalog
}

func TestFlows_AddHappyPath(t *testing.T) {
	ctx := context.Background()
	f, catalog := newTestFlows(t, nil)

	const admin = "1001"

	assert.Equal(t, "Enter the product name.", f.StartAdd(ctx, admin))
	assert.True(t, f.PendingAdd(admin))

	assert.Equal(t, "Enter the seller name.", f.HandleAdd(ctx, admin, "Massage Deluxe"))
	assert.Contains(t, f.HandleAdd(ctx, admin, "Ivan Seller"), "numeric chat ID")

	reply := f.HandleAdd(ctx, admin, "123456789")
	assert.Contains(t, reply, "Massage Deluxe")
	assert.Contains(t, reply, "Ivan Seller")
	assert.Contains(t, reply, "https://t.me/marketbot?start=massage-deluxe")
	assert.False(t, f.PendingAdd(admin))

	rec, ok := catalog.Lookup(ctx, "massage-deluxe")
	require.True(t, ok)
	assert.Equal(t, store.ProductRecord{
		ProductName:      "Massage Deluxe",
		SellerName:       "Ivan Seller",
		SellerChatID:     123456789,
		SellerContactRaw: "123456789",
	}, rec)
}

func TestFlows_AddRejectsEmptyNames(t *testing.T) {
	ctx := context.Background()
	f, catalog := newTestFlows(t, nil)

	const admin = "1001"

	f.StartAdd(ctx, admin)
	assert.Contains(t, f.HandleAdd(ctx, admin, "   "), "can't be empty")
	assert.True(t, f.PendingAdd(admin))

	f.HandleAdd(ctx, admin, "Massage Deluxe")
	assert.Contains(t, f.HandleAdd(ctx, admin, ""), "can't be empty")
	assert.True(t, f.PendingAdd(admin))

	assert.Equal(t, 0, catalog.Len())
}

func TestFlows_AddRejectsNonNumericContact(t *testing.T) {
	ctx := context.Background()
	f, catalog := newTestFlows(t, nil)

	const admin = "1001"

	f.StartAdd(ctx, admin)
	f.HandleAdd(ctx, admin, "Massage Deluxe")
	f.HandleAdd(ctx, admin, "Ivan Seller")

	for _, bad := range []string{
		"ivan_seller", "@ivan_seller", "+123456", "12 34",
		"99999999999999999999", // overflows int64, must reprompt rather than wrap
	} {
		assert.Contains(t, f.HandleAdd(ctx, admin, bad), "numeric chat ID", "input %q", bad)
		assert.True(t, f.PendingAdd(admin))
	}

	assert.Equal(t, 0, catalog.Len())
}

func TestFlows_AddSlugFallbacks(t *testing.T) {
	ctx := context.Background()
	f, catalog := newTestFlows(t, nil)

	// product name produces no slug, seller name does
	f.StartAdd(ctx, "1001")
	f.HandleAdd(ctx, "1001", "Фотосессия")
	f.HandleAdd(ctx, "1001", "Ivan")
	f.HandleAdd(ctx, "1001", "5")
	_, ok := catalog.Lookup(ctx, "ivan")
	assert.True(t, ok)

	// neither name survives slugification
	f.StartAdd(ctx, "1002")
	f.HandleAdd(ctx, "1002", "Фото")
	f.HandleAdd(ctx, "1002", "Иван")
	f.HandleAdd(ctx, "1002", "6")
	_, ok = catalog.Lookup(ctx, "service")
	assert.True(t, ok)
}

func TestFlows_AddUniquifiesSlug(t *testing.T) {
	ctx := context.Background()
	f, catalog := newTestFlows(t, map[string]store.ProductRecord{
		"massage-deluxe": {ProductName: "Massage Deluxe", SellerName: "Old Seller"},
	})

	f.StartAdd(ctx, "1001")
	f.HandleAdd(ctx, "1001", "Massage Deluxe")
	f.HandleAdd(ctx, "1001", "New Seller")
	reply := f.HandleAdd(ctx, "1001", "42")

	assert.Contains(t, reply, "start=massage-deluxe-2")

	rec, ok := catalog.Lookup(ctx, "massage-deluxe-2")
	require.True(t, ok)
	assert.Equal(t, "New Seller", rec.SellerName)

	// the existing listing is untouched
	rec, ok = catalog.Lookup(ctx, "massage-deluxe")
	require.True(t, ok)
	assert.Equal(t, "Old Seller", rec.SellerName)
}

func TestFlows_AddRestartDiscardsProgress(t *testing.T) {
	ctx := context.Background()
	f, catalog := newTestFlows(t, nil)

	const admin = "1001"

	f.StartAdd(ctx, admin)
	f.HandleAdd(ctx, admin, "Massage Deluxe")

	// restart throws away the accumulated product name
	assert.Equal(t, "Enter the product name.", f.StartAdd(ctx, admin))
	f.HandleAdd(ctx, admin, "Yoga Class")
	f.HandleAdd(ctx, admin, "Ivan Seller")
	f.HandleAdd(ctx, admin, "7")

	_, ok := catalog.Lookup(ctx, "yoga-class")
	assert.True(t, ok)
	_, ok = catalog.Lookup(ctx, "massage-deluxe")
	assert.False(t, ok)
}

func TestFlows_AddIsolatesAdmins(t *testing.T) {
	ctx := context.Background()
	f, catalog := newTestFlows(t, nil)

	f.StartAdd(ctx, "1001")
	f.StartAdd(ctx, "1002")

	f.HandleAdd(ctx, "1001", "Massage Deluxe")
	f.HandleAdd(ctx, "1002", "Yoga Class")
	f.HandleAdd(ctx, "1001", "Ivan")
	f.HandleAdd(ctx, "1002", "Olga")
	f.HandleAdd(ctx, "1001", "11")
	f.HandleAdd(ctx, "1002", "22")

	massage, ok := catalog.Lookup(ctx, "massage-deluxe")
	require.True(t, ok)
	assert.Equal(t, "Ivan", massage.SellerName)

	yoga, ok := catalog.Lookup(ctx, "yoga-class")
	require.True(t, ok)
	assert.Equal(t, "Olga", yoga.SellerName)
}

func TestFlows_DeleteWithInlineArg(t *testing.T) {
	ctx := context.Background()
	f, catalog := newTestFlows(t, map[string]store.ProductRecord{
		"massage-deluxe": {ProductName: "Massage Deluxe", SellerName: "Ivan"},
	})

	reply := f.StartDelete(ctx, "1001", "massage-deluxe")
	assert.Contains(t, reply, `"Massage Deluxe"`)
	assert.False(t, f.PendingDelete("1001"))

	_, ok := catalog.Lookup(ctx, "massage-deluxe")
	assert.False(t, ok)
}

func TestFlows_DeleteByLink(t *testing.T) {
	ctx := context.Background()
	f, catalog := newTestFlows(t, map[string]store.ProductRecord{
		"yoga3851": {ProductName: "yoga3851", SellerName: "Seller"},
	})

	reply := f.StartDelete(ctx, "1001", "")
	assert.Contains(t, reply, "slug")
	assert.True(t, f.PendingDelete("1001"))

	reply = f.HandleDelete(ctx, "1001", "https://t.me/marketbot?start=yoga3851")
	assert.Contains(t, reply, "deleted")
	assert.False(t, f.PendingDelete("1001"))

	_, ok := catalog.Lookup(ctx, "yoga3851")
	assert.False(t, ok)
}

func TestFlows_DeleteUnknownSlugEndsFlow(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFlows(t, map[string]store.ProductRecord{
		"yoga3851": {ProductName: "yoga3851", SellerName: "Seller"},
	})

	f.StartDelete(ctx, "1001", "")
	reply := f.HandleDelete(ctx, "1001", "no-such-slug")
	assert.Contains(t, reply, "already gone")
	assert.False(t, f.PendingDelete("1001"))
}

func TestFlows_DeleteEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFlows(t, nil)

	assert.Equal(t, "The catalog is empty.", f.StartDelete(ctx, "1001", ""))
	assert.False(t, f.PendingDelete("1001"))
}

func TestFlows_DeepLinkWithoutBotName(t *testing.T) {
	lg := slog.New(logx.NoOp())
	catalog := store.NewCatalog(lg, "", nil)

	f := NewFlows(lg, catalog, "")
	assert.Contains(t, f.DeepLink("massage-deluxe"), "bot username is not set")

	f = NewFlows(lg, catalog, "@marketbot")
	assert.Equal(t, "https://t.me/marketbot?start=massage-deluxe", f.DeepLink("massage-deluxe"))
}
