// Package bot contains routers and controllers for the marketplace bot.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/exp/slog"

	"github.com/beargentino/marketbot/app/flow"
	"github.com/beargentino/marketbot/app/store"
	"github.com/beargentino/marketbot/pkg/botx"
	"github.com/beargentino/marketbot/pkg/botx/botmw"
	"github.com/beargentino/marketbot/pkg/slug"
)

// Ctrl provides routes and controllers for bot updates.
type Ctrl struct {
	Logger         *slog.Logger
	Catalog        store.Interface
	Flows          *flow.Flows
	Notifier       *Notifier
	AdminIDs       []string
	SiteBaseURL    string
	HandlerTimeout time.Duration
}

// Routes returns a multiplexer for bot controllers.
func (c *Ctrl) Routes() *botx.Router {
	rtr := botx.NewRouter()

	rtr.Use(
		botmw.RequestID(),
		botmw.AppendRequestIDOnError(),
		botmw.Recover(c.Logger),
		botmw.Logger(c.Logger),
		botmw.Timeout(c.HandlerTimeout),
	)

	rtr.NotFound(c.pendingFlow)
	rtr.Add("/start", c.start)

	rtr.Group(func(rtr *botx.Router) {
		rtr.Use(c.ensureAdmin)

		rtr.Add("/new", c.newListing)
		rtr.Add("/delete", c.deleteListing)
	})

	return rtr
}

// start handles a deep-link activation: looks the product up, notifies
// the seller and the admins, and acknowledges the customer. Both
// notification legs are best-effort, the customer reply is always
// attempted.
func (c *Ctrl) start(ctx context.Context, req botx.Request) ([]botx.Response, error) {
	payload := strings.TrimSpace(commandArgs(req.Text))

	if payload == "" {
		return []botx.Response{{
			ChatID: req.Chat.ID,
			Text: "Hi! Pick a service in the catalog and press the order button.\n" +
				c.SiteBaseURL,
		}}, nil
	}

	s := slug.Extract(payload)

	rec, ok := c.Catalog.Lookup(ctx, s)
	if !ok {
		// the in-memory view may be stale relative to the overlay
		// file, e.g. after a restart or an edit by another instance;
		// reload once and retry
		c.Catalog.Reload(ctx)
		rec, ok = c.Catalog.Lookup(ctx, s)
	}

	if !ok {
		c.Logger.WarnCtx(ctx, "unknown deep-link payload", slog.String("payload", payload))
		return []botx.Response{{
			ChatID: req.Chat.ID,
			Text: "I couldn't find the product behind this link. " +
				"Please go back to the catalog and press the order button again.",
		}}, nil
	}

	if delivered := c.Notifier.NotifySeller(ctx, rec, req.From); !delivered {
		c.Logger.WarnCtx(ctx, "seller was not notified", slog.String("slug", s))
	}
	c.Notifier.NotifyAdmins(ctx, rec, req.From)

	return []botx.Response{{
		ChatID: req.Chat.ID,
		Text:   c.Notifier.CustomerReply(rec),
	}}, nil
}

func (c *Ctrl) newListing(ctx context.Context, req botx.Request) ([]botx.Response, error) {
	return []botx.Response{{
		ChatID: req.Chat.ID,
		Text:   c.Flows.StartAdd(ctx, userID(req)),
	}}, nil
}

func (c *Ctrl) deleteListing(ctx context.Context, req botx.Request) ([]botx.Response, error) {
	return []botx.Response{{
		ChatID: req.Chat.ID,
		Text:   c.Flows.StartDelete(ctx, userID(req), commandArgs(req.Text)),
	}}, nil
}

// pendingFlow feeds plain text into the sender's pending dialog, if
// any. Text from users with no pending dialog is silently ignored.
func (c *Ctrl) pendingFlow(ctx context.Context, req botx.Request) ([]botx.Response, error) {
	uid := userID(req)

	var reply string
	switch {
	case c.Flows.PendingAdd(uid):
		reply = c.Flows.HandleAdd(ctx, uid, req.Text)
	case c.Flows.PendingDelete(uid):
		reply = c.Flows.HandleDelete(ctx, uid, req.Text)
	default:
		return nil, nil
	}

	if reply == "" {
		return nil, nil
	}

	return []botx.Response{{ChatID: req.Chat.ID, Text: reply}}, nil
}

func (c *Ctrl) ensureAdmin(h botx.Handler) botx.Handler {
	return func(ctx context.Context, req botx.Request) ([]botx.Response, error) {
		if !lo.Contains(c.AdminIDs, userID(req)) {
			return []botx.Response{{
				ChatID: req.Chat.ID,
				Text:   "This command is only available to administrators.",
			}}, nil
		}

		return h(ctx, req)
	}
}

// NotifyAdmins sends a lifecycle message to all admins.
func (c *Ctrl) NotifyAdmins(ctx context.Context, msg string) error {
	if err := c.Notifier.Broadcast(ctx, msg); err != nil {
		return fmt.Errorf("broadcast to admins: %w", err)
	}
	return nil
}

// userID identifies the acting user; in private chats telegram makes
// them the same as the chat, but groups carry a separate sender.
func userID(req botx.Request) string {
	if req.From.ID != "" {
		return req.From.ID
	}
	return req.Chat.ID
}

// commandArgs returns the text after the command token, e.g.
// "/delete massage-deluxe" -> "massage-deluxe".
func commandArgs(text string) string {
	if _, args, found := strings.Cut(text, " "); found {
		return strings.TrimSpace(args)
	}
	return ""
}
