// Package cmd contains commands for the application.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"github.com/beargentino/marketbot/app/bot"
	"github.com/beargentino/marketbot/app/flow"
	"github.com/beargentino/marketbot/app/store"
	"github.com/beargentino/marketbot/pkg/botx"
	"github.com/beargentino/marketbot/pkg/botx/botapi"
)

// Run is a command to run the bot.
type Run struct {
	Bot struct {
		Timeout time.Duration `long:"timeout" env:"TIMEOUT" default:"30s" description:"timeout for handling a single update"`

		Telegram struct {
			Token string `long:"token" env:"TOKEN" description:"telegram token"`
		} `group:"telegram" namespace:"telegram" env-namespace:"TELEGRAM"`

		Username string   `long:"username" env:"USERNAME" description:"bot public handle for deep links, without @"`
		AdminIDs []string `long:"admin-ids" env:"ADMIN_IDS" env-delim:"," description:"admin chat IDs"`
	} `group:"bot" namespace:"bot" env-namespace:"BOT"`

	CatalogPath    string `long:"catalog-path" env:"CATALOG_PATH" default:"extra_catalog.json" description:"path to the persisted catalog overlay"`
	SiteBaseURL    string `long:"site-base-url" env:"SITE_BASE_URL" default:"https://comunaglobal.com" description:"catalog page shown to customers without a payload"`
	SupportContact string `long:"support-contact" env:"SUPPORT_CONTACT" default:"@marketbot_support" description:"support contact shown to customers"`
}

// Execute runs the command.
func (r Run) Execute(_ []string) error {
	if r.Bot.Telegram.Token == "" {
		return errors.New("telegram token is not set")
	}

	lg := slog.Default()

	catalog := store.NewCatalog(
		lg.With(slog.String("prefix", "catalog")),
		r.CatalogPath,
		store.Defaults,
	)

	api, err := botapi.NewTelegram(
		lg.With(slog.String("prefix", "telegram")),
		r.Bot.Telegram.Token,
		100,
	)
	if err != nil {
		return fmt.Errorf("make telegram controller: %w", err)
	}

	botName := r.Bot.Username
	if botName == "" {
		botName = api.Username()
	}

	ctrl := &bot.Ctrl{
		Logger:  lg.With(slog.String("prefix", "bot")),
		Catalog: catalog,
		Flows: flow.NewFlows(
			lg.With(slog.String("prefix", "flow")),
			catalog,
			botName,
		),
		Notifier: &bot.Notifier{
			Logger:         lg.With(slog.String("prefix", "notify")),
			API:            api,
			AdminIDs:       r.Bot.AdminIDs,
			SupportContact: r.SupportContact,
		},
		AdminIDs:       r.Bot.AdminIDs,
		SiteBaseURL:    r.SiteBaseURL,
		HandlerTimeout: r.Bot.Timeout,
	}

	b := botx.NewBot(
		ctrl.Routes().Handle,
		api,
		botx.WithLogger(lg.With(slog.String("prefix", "botx"))),
		botx.WithWorkers(1),
	)

	if err := ctrl.NotifyAdmins(context.Background(), "bot started"); err != nil {
		return fmt.Errorf("notify admins about started bot: %w", err)
	}

	ctx, stop := context.WithCancel(context.Background())

	ewg, ctx := errgroup.WithContext(ctx)
	ewg.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
		select {
		case sig := <-sig:
			slog.Warn("caught signal, stopping", slog.String("signal", sig.String()))
			stop()
			return ctx.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	ewg.Go(func() error {
		lg.Info("starting bot")
		b.Run(ctx)
		lg.Warn("bot stopped")
		return nil
	})

	// the api runs outside of the errgroup, because it has to outlive
	// the context for the admins to be notified about the stop
	apiStopped := make(chan struct{})
	go func() {
		lg.Info("starting telegram api")
		api.Run()
		lg.Warn("telegram api stopped listening for updates")
		apiStopped <- struct{}{}
	}()

	if err := ewg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		msg := fmt.Sprintf("bot stopped with error: %v", err)

		if sendErr := ctrl.NotifyAdmins(context.Background(), msg); sendErr != nil {
			return fmt.Errorf("notify admins about stopped bot (for reason: %v): %w", err, sendErr)
		}

		return err
	}

	if err := ctrl.NotifyAdmins(context.Background(), "bot stopped"); err != nil {
		return fmt.Errorf("notify admins about stopped bot: %w", err)
	}

	lg.Info("stopping telegram api")
	api.Stop()
	<-apiStopped
	lg.Info("telegram api stopped")

	return nil
}
