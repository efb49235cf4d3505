package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/exp/slog"

	"github.com/beargentino/marketbot/app/store"
	"github.com/beargentino/marketbot/pkg/botx"
)

var sellerMessageTmpl = template.Must(template.New("sellerMessage").Parse(
	`🚀 You have a new order for "{{.ProductName}}".
Customer: {{.Customer}}

Please contact the customer during business hours.`))

var adminMessageTmpl = template.Must(template.New("adminMessage").Parse(
	`🚀 Order placed for "{{.ProductName}}".
Seller: {{.SellerName}}{{if .SellerContact}} {{.SellerContact}}{{end}}
Customer: {{.Customer}}`))

var customerReplyTmpl = template.Must(template.New("customerReply").Parse(
	`We received your order for "{{.ProductName}}".

The partner will contact you from {{.Contact}}, or you can reach out yourself by messaging {{.Contact}} directly.

If you run into any questions or trouble, write to our support: {{.Support}}`))

// Notifier sends order notifications to the seller and the admin
// list. Every send is best-effort: failures are logged and never
// propagate to the triggering handler.
type Notifier struct {
	Logger         *slog.Logger
	API            botx.API
	AdminIDs       []string
	SupportContact string
}

// NotifySeller tells the seller about an order and reports whether the
// message was delivered. A record without any seller contact is
// reported undelivered without an attempt.
func (n *Notifier) NotifySeller(ctx context.Context, rec store.ProductRecord, customer botx.User) bool {
	if rec.SellerChatID == 0 && rec.SellerUsername == "" {
		n.Logger.WarnCtx(ctx, "no seller contact for product",
			slog.String("product", rec.ProductName))
		return false
	}

	text := &strings.Builder{}
	err := sellerMessageTmpl.Execute(text, map[string]string{
		"ProductName": rec.ProductName,
		"Customer":    mention(customer),
	})
	if err != nil {
		n.Logger.ErrorCtx(ctx, "failed to render seller message", slog.Any("err", err))
		return false
	}

	target := rec.SellerUsername
	if rec.SellerChatID != 0 {
		target = strconv.FormatInt(rec.SellerChatID, 10)
	}

	if err := n.API.SendMessage(ctx, botx.Response{ChatID: target, Text: text.String()}); err != nil {
		n.Logger.ErrorCtx(ctx, "failed to notify seller",
			slog.String("target", target), slog.Any("err", err))
		return false
	}

	return true
}

// NotifyAdmins tells every configured admin about an order. One
// admin's delivery failure does not block the others.
func (n *Notifier) NotifyAdmins(ctx context.Context, rec store.ProductRecord, customer botx.User) {
	if len(n.AdminIDs) == 0 {
		return
	}

	text := &strings.Builder{}
	err := adminMessageTmpl.Execute(text, map[string]string{
		"ProductName":   rec.ProductName,
		"SellerName":    rec.SellerName,
		"SellerContact": rec.SellerUsername,
		"Customer":      mention(customer),
	})
	if err != nil {
		n.Logger.ErrorCtx(ctx, "failed to render admin message", slog.Any("err", err))
		return
	}

	for _, adminID := range n.AdminIDs {
		if err := n.API.SendMessage(ctx, botx.Response{ChatID: adminID, Text: text.String()}); err != nil {
			n.Logger.ErrorCtx(ctx, "failed to notify admin",
				slog.String("admin", adminID), slog.Any("err", err))
		}
	}
}

// CustomerReply renders the acknowledgment sent back to the customer.
func (n *Notifier) CustomerReply(rec store.ProductRecord) string {
	contact := rec.SellerUsername
	if contact == "" {
		contact = "a representative"
	}

	text := &strings.Builder{}
	err := customerReplyTmpl.Execute(text, map[string]string{
		"ProductName": rec.ProductName,
		"Contact":     contact,
		"Support":     n.SupportContact,
	})
	if err != nil {
		// static template over strings, can't really happen
		return fmt.Sprintf("We received your order for %q.", rec.ProductName)
	}

	return text.String()
}

// Broadcast sends a message to every admin, failing on the first
// undeliverable one. Used for lifecycle notifications.
func (n *Notifier) Broadcast(ctx context.Context, msg string) error {
	for _, adminID := range n.AdminIDs {
		if err := n.API.SendMessage(ctx, botx.Response{ChatID: adminID, Text: msg}); err != nil {
			return fmt.Errorf("send message to admin %s: %w", adminID, err)
		}
	}

	return nil
}

// mention renders the customer identity for notifications: @username
// when it exists, then the display name, then a generic label.
func mention(u botx.User) string {
	switch {
	case u.Username != "":
		return "@" + u.Username
	case u.DisplayName != "":
		return u.DisplayName
	default:
		return "a customer"
	}
}
