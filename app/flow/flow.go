// Package flow contains the conversational admin dialogs: adding a
// listing and soft-deleting one. State is kept per admin chat and
// never expires; re-issuing the command restarts the dialog.
package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	cache "github.com/go-pkgz/expirable-cache/v2"
	"golang.org/x/exp/slog"

	"github.com/beargentino/marketbot/app/store"
	"github.com/beargentino/marketbot/pkg/slug"
)

type addStep int

const (
	stepProductName addStep = iota
	stepSellerName
	stepContact
)

type addState struct {
	step        addStep
	productName string
	sellerName  string
}

// Flows drives the add and delete dialogs over the catalog.
type Flows struct {
	log     *slog.Logger
	catalog store.Interface
	// bot's public handle used to build deep links; empty means links
	// can't be built and a placeholder is shown instead
	botName string

	adds cache.Cache[string, *addState]
	dels cache.Cache[string, struct{}]
}

// NewFlows creates a flow engine over the given catalog.
func NewFlows(lg *slog.Logger, catalog store.Interface, botName string) *Flows {
	return &Flows{
		log:     lg,
		catalog: catalog,
		botName: strings.TrimPrefix(botName, "@"),
		adds:    cache.NewCache[string, *addState]().WithLRU().WithMaxKeys(1000),
		dels:    cache.NewCache[string, struct{}]().WithLRU().WithMaxKeys(1000),
	}
}

// PendingAdd reports whether the user is mid add-dialog.
func (f *Flows) PendingAdd(userID string) bool {
	_, ok := f.adds.Get(userID)
	return ok
}

// PendingDelete reports whether the user is mid delete-dialog.
func (f *Flows) PendingDelete(userID string) bool {
	_, ok := f.dels.Get(userID)
	return ok
}

// StartAdd begins the add dialog for the user, discarding any dialog
// already in progress.
func (f *Flows) StartAdd(_ context.Context, userID string) string {
	f.adds.Set(userID, &addState{step: stepProductName}, 0)
	return "Enter the product name."
}

// HandleAdd advances the add dialog with the user's message.
func (f *Flows) HandleAdd(ctx context.Context, userID, text string) string {
	state, ok := f.adds.Get(userID)
	if !ok {
		return ""
	}

	text = strings.TrimSpace(text)

	switch state.step {
	case stepProductName:
		if text == "" {
			return "The product name can't be empty, enter it again."
		}
		state.productName = text
		state.step = stepSellerName
		return "Enter the seller name."

	case stepSellerName:
		if text == "" {
			return "The seller name can't be empty, enter it again."
		}
		state.sellerName = text
		state.step = stepContact
		return "Enter the seller's numeric chat ID. " +
			"You can find it in the profile (peer ID) or via @chatIDrobot."

	case stepContact:
		chatID, ok := parseChatID(text)
		if !ok {
			return "I need a numeric chat ID. " +
				"Open the profile (peer ID) or use @chatIDrobot and send me the number."
		}
		return f.commitAdd(ctx, userID, state, text, chatID)
	}

	return ""
}

func (f *Flows) commitAdd(ctx context.Context, userID string, state *addState, contactRaw string, chatID int64) string {
	s := slug.Slugify(state.productName)
	if s == "" {
		s = slug.Slugify(state.sellerName)
	}
	if s == "" {
		s = "service"
	}
	s = slug.EnsureUnique(s, func(candidate string) bool {
		_, taken := f.catalog.Lookup(ctx, candidate)
		return taken
	})

	rec := store.ProductRecord{
		ProductName:      state.productName,
		SellerName:       state.sellerName,
		SellerChatID:     chatID,
		SellerContactRaw: contactRaw,
	}

	f.catalog.Upsert(ctx, s, rec)
	f.adds.Invalidate(userID)

	f.log.InfoCtx(ctx, "listing created",
		slog.String("slug", s), slog.String("admin", userID))

	return fmt.Sprintf("Created a new listing:\nName: %s\nSeller: %s\nContact: %d\nDeep link: %s",
		rec.ProductName, rec.SellerName, chatID, f.DeepLink(s))
}

// StartDelete begins the delete dialog. With a non-empty inline
// argument the dialog is resolved immediately against it.
func (f *Flows) StartDelete(ctx context.Context, userID, inlineArg string) string {
	if f.catalog.Len() == 0 {
		return "The catalog is empty."
	}

	f.dels.Set(userID, struct{}{}, 0)

	if inlineArg = strings.TrimSpace(inlineArg); inlineArg != "" {
		return f.HandleDelete(ctx, userID, inlineArg)
	}

	return "Send me the listing slug (the part after start= in the link) or the full link."
}

// HandleDelete resolves the delete dialog with the user's message.
func (f *Flows) HandleDelete(ctx context.Context, userID, text string) string {
	if _, ok := f.dels.Get(userID); !ok {
		return ""
	}

	s := slug.Extract(text)
	if s == "" {
		return "Couldn't make a slug out of that, send it again."
	}

	rec, ok := f.catalog.Tombstone(ctx, s)
	if !ok {
		f.dels.Invalidate(userID)
		return "That listing is already gone."
	}

	f.dels.Invalidate(userID)

	name := rec.ProductName
	if name == "" {
		name = s
	}

	f.log.InfoCtx(ctx, "listing deleted",
		slog.String("slug", s), slog.String("admin", userID))

	return fmt.Sprintf("Listing %q was deleted.", name)
}

// DeepLink builds the start link for a slug, or a placeholder when the
// bot handle is not configured.
func (f *Flows) DeepLink(s string) string {
	if f.botName == "" {
		return fmt.Sprintf("(bot username is not set) slug: %s", s)
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", f.botName, s)
}

func parseChatID(text string) (int64, bool) {
	if text == "" {
		return 0, false
	}

	// ParseInt alone would accept a sign prefix, the contact step
	// takes bare digits only
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}
