package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/slog"

	"github.com/beargentino/marketbot/app/store"
)

// Links is a command that prints a deep link for every active catalog
// entry and exits, for bulk link generation.
type Links struct {
	Bot struct {
		Username string `long:"username" env:"USERNAME" description:"bot public handle for deep links, without @"`
	} `group:"bot" namespace:"bot" env-namespace:"BOT"`

	CatalogPath string `long:"catalog-path" env:"CATALOG_PATH" default:"extra_catalog.json" description:"path to the persisted catalog overlay"`

	out      io.Writer
	defaults map[string]store.ProductRecord
}

// Execute runs the command.
func (l Links) Execute(_ []string) error {
	if l.Bot.Username == "" {
		return errors.New("bot username is not set, cannot build links")
	}

	if l.out == nil {
		l.out = os.Stdout
	}
	if l.defaults == nil {
		l.defaults = store.Defaults
	}

	catalog := store.NewCatalog(
		slog.Default().With(slog.String("prefix", "catalog")),
		l.CatalogPath,
		l.defaults,
	)

	for _, it := range catalog.List(context.Background()) {
		name := it.Record.ProductName
		if name == "" {
			name = it.Slug
		}

		fmt.Fprintf(l.out, "%s -> https://t.me/%s?start=%s\n", name, l.Bot.Username, it.Slug)
	}

	return nil
}
