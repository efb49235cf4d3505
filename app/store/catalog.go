package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/exp/slog"
)

// Catalog is the active product map: compiled-in defaults merged with
// the persisted overlay, where the overlay wins per slug and its
// tombstones mask defaults. Mutations rewrite the whole overlay file
// atomically; a failed write is logged and the in-memory state stands.
type Catalog struct {
	log      *slog.Logger
	path     string
	defaults map[string]ProductRecord

	mu      sync.RWMutex
	active  map[string]ProductRecord
	overlay map[string]Entry
}

// NewCatalog loads the overlay from path and returns the merged
// catalog. An empty path disables persistence; a missing or corrupt
// overlay file degrades to an empty overlay, it is never fatal.
func NewCatalog(lg *slog.Logger, path string, defaults map[string]ProductRecord) *Catalog {
	c := &Catalog{
		log:      lg,
		path:     path,
		defaults: defaults,
	}
	c.Reload(context.Background())
	return c
}

// Reload re-reads the overlay file and rebuilds the active map. Used
// at startup and by callers retrying a lookup miss against a possibly
// stale in-memory view.
func (c *Catalog) Reload(ctx context.Context) {
	overlay := c.readOverlay(ctx)

	active := make(map[string]ProductRecord, len(c.defaults)+len(overlay))
	for slug, rec := range c.defaults {
		active[slug] = rec
	}
	for slug, e := range overlay {
		if e.Deleted() {
			delete(active, slug)
			continue
		}
		active[slug] = *e.Record
	}

	c.mu.Lock()
	c.active, c.overlay = active, overlay
	c.mu.Unlock()

	c.log.InfoCtx(ctx, "catalog loaded",
		slog.Int("active", len(active)), slog.Int("overlay", len(overlay)))
}

func (c *Catalog) readOverlay(ctx context.Context) map[string]Entry {
	overlay := map[string]Entry{}

	if c.path == "" {
		return overlay
	}

	bts, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.ErrorCtx(ctx, "failed to read overlay file", slog.Any("err", err))
		}
		return overlay
	}

	if err := json.Unmarshal(bts, &overlay); err != nil {
		c.log.ErrorCtx(ctx, "overlay file is not valid json, treating as empty",
			slog.Any("err", err))
		return map[string]Entry{}
	}

	return overlay
}

// Lookup returns the active record for slug.
func (c *Catalog) Lookup(_ context.Context, slug string) (ProductRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.active[slug]
	return rec, ok
}

// Upsert inserts or replaces the record under slug and persists the
// overlay.
func (c *Catalog) Upsert(ctx context.Context, slug string, rec ProductRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active[slug] = rec
	c.overlay[slug] = Active(rec)
	c.persist(ctx)
}

// Tombstone removes slug from the active map and records a deletion
// marker in the overlay, masking any compiled-in default. It returns
// the record that was active, if any; a tombstone is written either
// way only when something was there to delete.
func (c *Catalog) Tombstone(ctx context.Context, slug string) (ProductRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.active[slug]
	if !ok {
		return ProductRecord{}, false
	}

	delete(c.active, slug)
	c.overlay[slug] = Tombstone()
	c.persist(ctx)

	return rec, true
}

// List returns all active listings, sorted by slug.
func (c *Catalog) List(_ context.Context) []Listing {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]Listing, 0, len(c.active))
	for slug, rec := range c.active {
		res = append(res, Listing{Slug: slug, Record: rec})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Slug < res[j].Slug })

	return res
}

// Len returns the number of active listings.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.active)
}

// persist rewrites the overlay file, callers must hold mu. Failure is
// logged and the in-memory mutation stands.
func (c *Catalog) persist(ctx context.Context) {
	if c.path == "" {
		return
	}

	if err := c.writeOverlay(); err != nil {
		c.log.ErrorCtx(ctx, "failed to persist overlay", slog.Any("err", err))
	}
}

func (c *Catalog) writeOverlay() error {
	bts, err := json.MarshalIndent(c.overlay, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal overlay: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("make overlay dir: %w", err)
		}
	}

	// write to a temp path and rename over the target, so a crash
	// mid-write can't leave a truncated file behind
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, bts, 0o640); err != nil {
		return fmt.Errorf("write temp overlay: %w", err)
	}

	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace overlay: %w", err)
	}

	return nil
}
