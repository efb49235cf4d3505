// Package store contains catalog entities and the overlay-backed
// catalog store.
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// ProductRecord is a single marketplace listing. The slug is the
// catalog key, not a field of the record.
type ProductRecord struct {
	ProductName      string `json:"product_name"`
	SellerName       string `json:"seller_name"`
	SellerChatID     int64  `json:"seller_chat_id,omitempty"`
	SellerUsername   string `json:"seller_username,omitempty"`
	SellerContactRaw string `json:"seller_contact_raw,omitempty"`
}

// Entry is a value of the persisted overlay: either an active record
// or a tombstone left by a delete. A tombstone masks a compiled-in
// default with the same slug.
type Entry struct {
	Record *ProductRecord
}

// Active returns an entry holding rec.
func Active(rec ProductRecord) Entry { return Entry{Record: &rec} }

// Tombstone returns a deleted-marker entry.
func Tombstone() Entry { return Entry{} }

// Deleted reports whether the entry is a tombstone.
func (e Entry) Deleted() bool { return e.Record == nil }

// MarshalJSON serializes a tombstone as {"deleted":true} and an active
// entry as the bare record object.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Record == nil {
		return []byte(`{"deleted":true}`), nil
	}
	return json.Marshal(e.Record)
}

// UnmarshalJSON is the inverse of MarshalJSON; any object with a
// truthy "deleted" field is a tombstone, regardless of other fields.
func (e *Entry) UnmarshalJSON(bts []byte) error {
	var probe struct {
		Deleted bool `json:"deleted"`
	}
	if err := json.Unmarshal(bts, &probe); err != nil {
		return fmt.Errorf("probe deleted flag: %w", err)
	}

	if probe.Deleted {
		e.Record = nil
		return nil
	}

	rec := &ProductRecord{}
	if err := json.Unmarshal(bts, rec); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}

	e.Record = rec
	return nil
}

// Listing pairs a slug with its active record.
type Listing struct {
	Slug   string
	Record ProductRecord
}

// Interface defines methods of the catalog store.
type Interface interface {
	Lookup(ctx context.Context, slug string) (ProductRecord, bool)
	Reload(ctx context.Context)
	Upsert(ctx context.Context, slug string, rec ProductRecord)
	Tombstone(ctx context.Context, slug string) (ProductRecord, bool)
	List(ctx context.Context) []Listing
	Len() int
}
